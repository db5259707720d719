// Package reset implements the DTR reset manager: serializes reset
// requests, coalesces bursts within a debounce window, waits for the
// router to drain, and signals log rotation before returning to idle.
package reset

import (
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/ironsheep/pnutterm-ingest/internal/constants"
)

// Level distinguishes a DTR transition that should trigger a reset
// (High) from one that is merely recorded (Low).
type Level int

const (
	Low Level = iota
	High
)

// State is the reset manager's state machine position.
type State int

const (
	Idle State = iota
	ResetDetected
	Rotating
)

// MetricsSink is the subset of observability counters the reset
// manager updates. *p2term.Metrics satisfies this structurally.
type MetricsSink interface {
	RecordResetCoalesced()
}

// Hooks are the callbacks the reset manager drives other components
// with. All are optional (nil-safe).
type Hooks struct {
	// ClearExtractor tells the extractor to clear just_processed_debugger_packet.
	ClearExtractor func()
	// ClearArbiter tells the arbiter to clear its debounce state.
	ClearArbiter func()
	// DrainRouter tells the router to stop accepting new messages and
	// begin draining; it must eventually call Manager.DrainComplete.
	DrainRouter func()
	// RotateLog signals the logger destination to rotate, tagged with
	// the sequence id so rotated segments are named deterministically.
	RotateLog func(sequenceID string)
}

// Manager implements the DTR reset state machine.
type Manager struct {
	mu    sync.Mutex
	state State
	seq   int

	coalesceWindow time.Duration
	drainTimeout   time.Duration

	drainTimer *time.Timer

	// lastAccepted is when the current or most recent sequence entered
	// ResetDetected; zero before the first accepted reset.
	lastAccepted time.Time

	hooks   Hooks
	metrics MetricsSink
}

// New builds a Manager with the given coalesce window and drain
// timeout. Zero values fall back to the spec defaults.
func New(coalesceWindow, drainTimeout time.Duration, hooks Hooks, metrics MetricsSink) *Manager {
	if coalesceWindow <= 0 {
		coalesceWindow = constants.DefaultResetCoalesce
	}
	if drainTimeout <= 0 {
		drainTimeout = constants.DefaultDrainTimeout
	}
	return &Manager{
		state:          Idle,
		coalesceWindow: coalesceWindow,
		drainTimeout:   drainTimeout,
		hooks:          hooks,
		metrics:        metrics,
	}
}

// State returns the manager's current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RequestReset handles request_reset(level) from the IPC surface.
func (m *Manager) RequestReset(level Level) {
	if level == Low {
		return // recorded but does not trigger reset; nothing to track here
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Idle:
		if !m.lastAccepted.IsZero() && time.Since(m.lastAccepted) < m.coalesceWindow {
			// Same burst as the last accepted reset, even though its
			// drain/rotate cycle has already finished.
			if m.metrics != nil {
				m.metrics.RecordResetCoalesced()
			}
			return
		}
		m.enterResetDetectedLocked()
	case ResetDetected:
		// Within the coalesce window: absorbed into the current sequence.
		if m.metrics != nil {
			m.metrics.RecordResetCoalesced()
		}
	case Rotating:
		// A high request arriving mid-rotation is absorbed into the
		// sequence now finishing; it does not start a new one.
		if m.metrics != nil {
			m.metrics.RecordResetCoalesced()
		}
	}
}

// enterResetDetectedLocked must be called with mu held.
func (m *Manager) enterResetDetectedLocked() {
	m.seq++
	m.state = ResetDetected
	m.lastAccepted = time.Now()

	if m.hooks.ClearExtractor != nil {
		m.hooks.ClearExtractor()
	}
	if m.hooks.ClearArbiter != nil {
		m.hooks.ClearArbiter()
	}
	if m.hooks.DrainRouter != nil {
		m.hooks.DrainRouter()
	}

	seq := m.seq

	if m.drainTimer != nil {
		m.drainTimer.Stop()
	}
	m.drainTimer = time.AfterFunc(m.drainTimeout, func() {
		m.forceDrainComplete(seq)
	})
}

// DrainComplete handles on_drain_complete() from the router.
func (m *Manager) DrainComplete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceToRotatingLocked()
}

func (m *Manager) forceDrainComplete(seq int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seq != seq || m.state != ResetDetected {
		return // superseded by a newer sequence or already past this state
	}
	m.advanceToRotatingLocked()
}

func (m *Manager) advanceToRotatingLocked() {
	if m.state != ResetDetected {
		return
	}
	if m.drainTimer != nil {
		m.drainTimer.Stop()
	}
	m.state = Rotating

	sequenceID := xid.New().String()
	if m.hooks.RotateLog != nil {
		m.hooks.RotateLog(sequenceID)
	}
}

// RotateAck handles rotate_ack from the logger destination, returning
// the manager to idle.
func (m *Manager) RotateAck() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Rotating {
		return
	}
	m.state = Idle
}
