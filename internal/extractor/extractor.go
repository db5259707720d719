// Package extractor drives the pattern registry against the ring
// buffer: the run loop that turns raw bytes into classified spans,
// including the post-binary zero filter and the malformed-frame
// recovery (advance one byte and keep going).
package extractor

import (
	"github.com/ironsheep/pnutterm-ingest/internal/constants"
	"github.com/ironsheep/pnutterm-ingest/internal/message"
	"github.com/ironsheep/pnutterm-ingest/internal/pattern"
	"github.com/ironsheep/pnutterm-ingest/internal/ring"
)

// MetricsSink is the subset of observability counters the extractor
// updates. *p2term.Metrics satisfies this structurally.
type MetricsSink interface {
	RecordZeroSkip(n uint64)
	RecordMessageEmitted(kind message.Kind)
}

// Logger is the nil-tolerant logging seam every component in this
// module accepts, mirroring the teacher's options.Logger convention.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Handler receives one classified message. span is only valid for the
// duration of the call — the caller must copy it (the router's pooled
// Acquire does exactly this) before returning.
type Handler func(kind message.Kind, span []byte, meta message.Metadata, timestampUs int64)

// Extractor runs the registry against a ring buffer, one message at a
// time, cooperatively — Tick does bounded work and returns, to be
// called again by the orchestrator's run loop.
type Extractor struct {
	ring     *ring.Buffer
	registry *pattern.Registry
	metrics  MetricsSink
	logger   Logger

	zeroSkipCap int
	scratch     [constants.MaxMessagePayload]byte

	justProcessedDebugger bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithZeroSkipCap overrides the default post-binary zero-filter bound.
func WithZeroSkipCap(n int) Option {
	return func(e *Extractor) { e.zeroSkipCap = n }
}

// WithLogger sets a nil-tolerant logger.
func WithLogger(l Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// New builds an Extractor over the given ring and registry.
func New(r *ring.Buffer, registry *pattern.Registry, metrics MetricsSink, opts ...Option) *Extractor {
	e := &Extractor{
		ring:        r,
		registry:    registry,
		metrics:     metrics,
		zeroSkipCap: constants.DefaultZeroSkipCap,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tick runs the zero filter (if armed) and at most one classification
// pass. It returns true if it made forward progress (consumed bytes or
// emitted a message), so the orchestrator can decide whether to keep
// ticking immediately or wait for more input.
func (e *Extractor) Tick(onMessage Handler) bool {
	if e.justProcessedDebugger {
		e.runZeroFilter()
		e.justProcessedDebugger = false
	}

	if e.ring.Len() == 0 {
		return false
	}

	result := e.registry.Classify(e.peek)

	switch result.Status {
	case pattern.Incomplete:
		return false

	case pattern.Invalid:
		// MalformedFrame: advance one byte and keep working. Never fatal.
		if e.logger != nil {
			e.logger.Warn("malformed frame, advancing one byte")
		}
		e.ring.Advance(1)
		return true

	case pattern.Complete:
		e.emit(result, onMessage)
		return true
	}

	return false
}

// Drain calls Tick until it stops making progress, useful for the
// processor's per-iteration catch-up pass.
func (e *Extractor) Drain(onMessage Handler) int {
	emitted := 0
	for e.Tick(onMessage) {
		emitted++
	}
	return emitted
}

// ClearDebuggerFlag clears the post-debugger-packet zero-filter arm
// flag. Called by the reset manager when a DTR reset is accepted, per
// the invariant that no stale zero-filter state survives a reset.
func (e *Extractor) ClearDebuggerFlag() {
	e.justProcessedDebugger = false
}

func (e *Extractor) peek(n int) []byte {
	if n > len(e.scratch) {
		n = len(e.scratch)
	}
	buf := e.scratch[:n]
	copied := e.ring.Peek(0, buf)
	return buf[:copied]
}

func (e *Extractor) emit(result pattern.Result, onMessage Handler) {
	span := e.peek(result.Length)

	var payload []byte
	if result.Kind == message.DebuggerPacket {
		payload = span
	} else {
		payload = trimEOLCopy(span)
	}

	timestampUs := monotonicMicros()

	if onMessage != nil {
		onMessage(result.Kind, payload, result.Meta, timestampUs)
	}
	if e.metrics != nil {
		e.metrics.RecordMessageEmitted(result.Kind)
	}

	e.ring.Advance(result.Length)

	if result.Kind == message.DebuggerPacket {
		e.justProcessedDebugger = true
	}
}

// runZeroFilter advances the read pointer past a run of 0x00 bytes up
// to zeroSkipCap, recording the skipped count.
func (e *Extractor) runZeroFilter() {
	skipped := 0
	for skipped < e.zeroSkipCap {
		b, ok := e.ring.PeekByte(0)
		if !ok || b != 0x00 {
			break
		}
		e.ring.Advance(1)
		skipped++
	}
	if skipped > 0 && e.metrics != nil {
		e.metrics.RecordZeroSkip(uint64(skipped))
	}
}

func trimEOLCopy(span []byte) []byte {
	end := len(span)
	for end > 0 && (span[end-1] == '\r' || span[end-1] == '\n') {
		end--
	}
	return span[:end]
}
