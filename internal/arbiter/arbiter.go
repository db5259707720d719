// Package arbiter implements the response arbiter: on every debugger
// packet, enqueue a fixed 52-byte zero-payload reply to the transmit
// side, subject to debounce, so the sending COG's inter-core lock is
// released.
package arbiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ironsheep/pnutterm-ingest/internal/constants"
	"github.com/ironsheep/pnutterm-ingest/internal/wire"
)

// MetricsSink is the subset of observability counters the arbiter
// updates. *p2term.Metrics satisfies this structurally.
type MetricsSink interface {
	RecordResponseSent()
}

// Transmit is the callback the arbiter hands the 52-byte ack stub to.
type Transmit func(payload []byte) error

// state mirrors the two-state machine the spec names.
type state int

const (
	idle state = iota
	responded
)

// Arbiter implements the debounce window described in §4.5: a
// rate.Limiter with burst 1 gates how often the ack stub can be
// re-armed, rather than a hand-rolled "time since last response" check.
// A packet that arrives while the limiter denies a token is not
// dropped: it waits on a bounded queue that Tick drains as debounce
// tokens become available, so the sending COG's inter-core lock still
// gets unblocked, just later.
type Arbiter struct {
	mu       sync.Mutex
	state    state
	debounce *rate.Limiter
	transmit Transmit
	metrics  MetricsSink
	pending  []uint32
}

// New builds an Arbiter with the given debounce window (minimum spacing
// between sent replies) and transmit callback.
func New(debounce time.Duration, transmit Transmit, metrics MetricsSink) *Arbiter {
	if debounce <= 0 {
		debounce = constants.DefaultResponseDebounce
	}
	return &Arbiter{
		state:    idle,
		debounce: rate.NewLimiter(rate.Every(debounce), 1),
		transmit: transmit,
		metrics:  metrics,
	}
}

// DebuggerPacketReceived handles the router's signal: if the debounce
// limiter has a token available, send the 52-byte zero ack stub
// immediately and mark state == responded. Otherwise the packet's
// reply is queued (bounded to constants.ReplyQueueDepth) for Tick to
// drain once a token frees up; a packet arriving with the queue
// already full is the one case that drops, since there is nowhere
// left to hold it.
func (a *Arbiter) DebuggerPacketReceived(cogID uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.debounce.Allow() {
		a.send()
		return
	}

	if len(a.pending) < constants.ReplyQueueDepth {
		a.pending = append(a.pending, cogID)
	}
}

// Tick drains as many queued replies as the debounce limiter currently
// allows. Call it once per processor tick so a burst of debounce-denied
// acks eventually goes out instead of waiting on another packet arrival
// to re-check the limiter.
func (a *Arbiter) Tick() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for len(a.pending) > 0 && a.debounce.Allow() {
		a.pending = a.pending[1:]
		a.send()
	}
}

// send transmits the ack stub and records the response. Caller must
// hold a.mu.
func (a *Arbiter) send() {
	stub := wire.BuildAckStub()
	if a.transmit != nil {
		if err := a.transmit(stub); err != nil {
			return
		}
	}
	a.state = responded
	if a.metrics != nil {
		a.metrics.RecordResponseSent()
	}
}

// QueueLen reports how many replies are waiting for a debounce token
// (for tests and diagnostics).
func (a *Arbiter) QueueLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Reset clears the arbiter's state on a DTR reset, per the invariant
// that no in-flight response carries over a reset sequence.
func (a *Arbiter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = idle
	a.pending = nil
}

// State reports whether the arbiter last sent a response (for tests).
func (a *Arbiter) State() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == responded {
		return "responded"
	}
	return "idle"
}
