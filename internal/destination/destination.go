// Package destination defines the call surface the router dispatches
// pooled message records across: loggers, window-creators, and typed
// windows. Kept separate from router to avoid a circular import between
// the router and anything (the GUI, a file logger) that implements a
// Destination without depending on routing internals.
package destination

import "github.com/ironsheep/pnutterm-ingest/internal/message"

// Kind distinguishes the three destination shapes named in the data
// model: a plain logger, the window-creator that materializes typed
// windows on demand, and an already-materialized typed window.
type Kind int

const (
	Logger Kind = iota
	WindowCreator
	TypedWindow
)

// ErrQueueFull is returned by Push when a destination's bounded queue
// has no room and the destination is not immediate.
type ErrQueueFull struct{ ID string }

func (e ErrQueueFull) Error() string { return "destination: queue full for " + e.ID }

// Destination is the call surface every router target implements.
// Immediate destinations flush on every push; non-immediate
// destinations accumulate and flush on a timer or the watermark count,
// whichever comes first.
type Destination interface {
	ID() string
	Kind() Kind
	Ready() bool
	Immediate() bool

	// Push attempts a bounded enqueue of rec. The caller retains its own
	// reference count on rec and must call Release once Push returns,
	// regardless of error — Push does not take ownership.
	Push(rec *message.Record) error

	// Flush delivers any accumulated, unflushed records.
	Flush() error
}

// WindowCreatorDestination is the optional capability a WindowCreator-
// kind destination implements: synchronously or asynchronously
// materializing a typed window from a BacktickWindow creation
// directive, and registering it so future updates route by target name.
type WindowCreatorDestination interface {
	Destination

	// CreateWindow materializes (or looks up) a typed window for the
	// given directive/target pair and returns its destination id. This
	// counts as one consumer of rec, same as Push.
	CreateWindow(directive, target string, rec *message.Record) (windowID string, err error)
}

// Rotator is the optional capability a logger-kind destination
// implements to receive the DTR reset manager's rotation signal,
// tagged with the sequence id the rotated segment should be named
// after.
type Rotator interface {
	Rotate(sequenceID string) error
}
