package p2term

import (
	"sync/atomic"
	"time"

	"github.com/ironsheep/pnutterm-ingest/internal/message"
)

// Metrics tracks the process-wide ingestion counters named in the
// external interface's observability section.
type Metrics struct {
	BytesIn          atomic.Uint64 // Total bytes pushed into the ring
	BytesSkippedZero atomic.Uint64 // Bytes consumed by the post-binary zero filter

	// messagesEmitted is indexed by message.Kind.
	messagesEmitted [numMessageKinds]atomic.Uint64

	OverflowCount        atomic.Uint64 // Ring-full pushes dropped
	PoolExhaustionCount  atomic.Uint64 // Acquires that exhausted the retry budget
	ResponsesSent        atomic.Uint64 // 52-byte ack stubs handed to the transmit callback
	ResetsCoalesced      atomic.Uint64 // DTR-high transitions folded into an active sequence

	// velocityEWMAx1000 stores the velocity EWMA (messages/sec) scaled by
	// 1000 so it can live in an atomic integer.
	velocityEWMAx1000 atomic.Int64

	// currentPacerMs is the adaptive pacer's active period in milliseconds.
	currentPacerMs atomic.Int64

	StartTime atomic.Int64 // Process start timestamp (UnixNano)
	StopTime  atomic.Int64 // Process stop timestamp (UnixNano), 0 while running
}

const numMessageKinds = 5

// NewMetrics creates a new metrics instance with its clock started.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordBytesIn records bytes accepted into the ring buffer.
func (m *Metrics) RecordBytesIn(n uint64) {
	m.BytesIn.Add(n)
}

// RecordZeroSkip records bytes consumed by the post-binary zero filter.
func (m *Metrics) RecordZeroSkip(n uint64) {
	m.BytesSkippedZero.Add(n)
}

// RecordMessageEmitted records one extracted message of the given kind.
func (m *Metrics) RecordMessageEmitted(kind message.Kind) {
	m.messagesEmitted[kind].Add(1)
}

// RecordOverflow records a ring-full push being dropped.
func (m *Metrics) RecordOverflow() {
	m.OverflowCount.Add(1)
}

// RecordPoolExhaustion records an acquire that exhausted the retry budget.
func (m *Metrics) RecordPoolExhaustion() {
	m.PoolExhaustionCount.Add(1)
}

// RecordResponseSent records a 52-byte ack stub handed to the transmit callback.
func (m *Metrics) RecordResponseSent() {
	m.ResponsesSent.Add(1)
}

// RecordResetCoalesced records a DTR-high transition folded into an active sequence.
func (m *Metrics) RecordResetCoalesced() {
	m.ResetsCoalesced.Add(1)
}

// SetVelocityEWMA records the router's current velocity estimate in messages/second.
func (m *Metrics) SetVelocityEWMA(v float64) {
	m.velocityEWMAx1000.Store(int64(v * 1000))
}

// SetCurrentPacerMs records the adaptive pacer's active period.
func (m *Metrics) SetCurrentPacerMs(ms int64) {
	m.currentPacerMs.Store(ms)
}

// Stop marks the process as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time, non-atomic copy of Metrics for
// reporting (JSON encoding, the Prometheus collector, the "stats" CLI
// subcommand).
type MetricsSnapshot struct {
	BytesIn          uint64
	BytesSkippedZero uint64

	MessagesEmitted map[string]uint64

	OverflowCount       uint64
	PoolExhaustionCount uint64
	ResponsesSent       uint64
	ResetsCoalesced     uint64

	VelocityEWMA    float64
	CurrentPacerMs  int64

	UptimeNs uint64
}

// Snapshot creates a point-in-time snapshot of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		BytesIn:             m.BytesIn.Load(),
		BytesSkippedZero:    m.BytesSkippedZero.Load(),
		OverflowCount:       m.OverflowCount.Load(),
		PoolExhaustionCount: m.PoolExhaustionCount.Load(),
		ResponsesSent:       m.ResponsesSent.Load(),
		ResetsCoalesced:     m.ResetsCoalesced.Load(),
		VelocityEWMA:        float64(m.velocityEWMAx1000.Load()) / 1000.0,
		CurrentPacerMs:      m.currentPacerMs.Load(),
		MessagesEmitted:     make(map[string]uint64, numMessageKinds),
	}

	for _, kind := range message.Kinds() {
		snap.MessagesEmitted[kind.String()] = m.messagesEmitted[kind].Load()
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	return snap
}

// Reset resets all counters. Intended for tests.
func (m *Metrics) Reset() {
	m.BytesIn.Store(0)
	m.BytesSkippedZero.Store(0)
	for i := range m.messagesEmitted {
		m.messagesEmitted[i].Store(0)
	}
	m.OverflowCount.Store(0)
	m.PoolExhaustionCount.Store(0)
	m.ResponsesSent.Store(0)
	m.ResetsCoalesced.Store(0)
	m.velocityEWMAx1000.Store(0)
	m.currentPacerMs.Store(0)
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable instrumentation of the ingestion pipeline,
// mirroring the options.Observer seam components accept alongside a logger.
type Observer interface {
	ObserveBytesIn(n uint64)
	ObserveZeroSkip(n uint64)
	ObserveMessageEmitted(kind message.Kind)
	ObserveOverflow()
	ObservePoolExhaustion()
	ObserveResponseSent()
	ObserveResetCoalesced()
	ObserveVelocity(v float64)
	ObservePacer(ms int64)
}

// NoOpObserver is a no-op implementation of Observer. CreateAndServe
// does not fall back to it: a nil Options.Observer gets a
// MetricsObserver over the ingestor's own Metrics.
type NoOpObserver struct{}

func (NoOpObserver) ObserveBytesIn(uint64)              {}
func (NoOpObserver) ObserveZeroSkip(uint64)             {}
func (NoOpObserver) ObserveMessageEmitted(message.Kind) {}
func (NoOpObserver) ObserveOverflow()                   {}
func (NoOpObserver) ObservePoolExhaustion()              {}
func (NoOpObserver) ObserveResponseSent()               {}
func (NoOpObserver) ObserveResetCoalesced()              {}
func (NoOpObserver) ObserveVelocity(float64)            {}
func (NoOpObserver) ObservePacer(int64)                 {}

// MetricsObserver implements Observer by recording into a *Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveBytesIn(n uint64)              { o.metrics.RecordBytesIn(n) }
func (o *MetricsObserver) ObserveZeroSkip(n uint64)             { o.metrics.RecordZeroSkip(n) }
func (o *MetricsObserver) ObserveMessageEmitted(k message.Kind) { o.metrics.RecordMessageEmitted(k) }
func (o *MetricsObserver) ObserveOverflow()                     { o.metrics.RecordOverflow() }
func (o *MetricsObserver) ObservePoolExhaustion()               { o.metrics.RecordPoolExhaustion() }
func (o *MetricsObserver) ObserveResponseSent()                 { o.metrics.RecordResponseSent() }
func (o *MetricsObserver) ObserveResetCoalesced()               { o.metrics.RecordResetCoalesced() }
func (o *MetricsObserver) ObserveVelocity(v float64)            { o.metrics.SetVelocityEWMA(v) }
func (o *MetricsObserver) ObservePacer(ms int64)                { o.metrics.SetCurrentPacerMs(ms) }

// Compile-time interface checks.
var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
