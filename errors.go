// Package p2term is the serial ingestion core for a P2 debug terminal: a
// ring buffer, a pattern-priority message extractor, a pooled message
// object, a destination router with an adaptive pacer, a host-response
// arbiter, and a DTR-driven reset/drain manager.
package p2term

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured ingestion-core error with context and,
// where applicable, an errno mapping from opening the serial transport.
type Error struct {
	Op    string        // Operation that failed (e.g., "extractor.validate", "router.dispatch")
	Kind  string        // Component the error originated in ("ring", "pool", "router", ...)
	Code  ErrorCode     // High-level error category
	Errno syscall.Errno // Kernel errno (0 if not applicable)
	Msg   string        // Human-readable message
	Inner error         // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Kind != "" {
		parts = append(parts, fmt.Sprintf("kind=%s", e.Kind))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("p2term: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("p2term: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support keyed on error code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode represents the high-level error categories from the
// ingestion core's error taxonomy.
type ErrorCode string

const (
	// CodeTransientOverflow: the ring buffer was full; the incoming span
	// was dropped and a counter incremented. Not fatal.
	CodeTransientOverflow ErrorCode = "transient overflow"

	// CodePoolExhausted: no free pooled message record was available
	// after the configured retry budget.
	CodePoolExhausted ErrorCode = "pool exhausted"

	// CodeMalformedFrame: a recognizer rejected a candidate span; the
	// extractor advances one byte and continues.
	CodeMalformedFrame ErrorCode = "malformed frame"

	// CodeDestinationLost: a destination id was unknown or its queue
	// closed; the consumer slot is released so the pool record recycles.
	CodeDestinationLost ErrorCode = "destination lost"

	// CodeResetRequested is not an error — it marks a control event
	// threaded through the same reporting path for uniformity.
	CodeResetRequested ErrorCode = "reset requested"

	// CodeUnexpectedPanic: an implementation bug recovered at the
	// orchestrator boundary; the loop restarts without restarting the
	// process.
	CodeUnexpectedPanic ErrorCode = "unexpected panic"

	// CodeTransportOpen: the serial transport could not be opened.
	CodeTransportOpen ErrorCode = "transport open failed"

	// CodeTransportClosed: an operation was attempted against a closed
	// serial transport.
	CodeTransportClosed ErrorCode = "transport closed"

	// CodeInvalidParameters: caller-supplied configuration was rejected.
	CodeInvalidParameters ErrorCode = "invalid parameters"
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewKindError creates a structured error tagged with the originating
// component (ring, pool, router, arbiter, reset, extractor, ...).
func NewKindError(op, kind string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Kind: kind, Code: code, Msg: msg}
}

// NewErrorWithErrno creates a new structured error carrying a syscall
// errno, used when the serial transport fails to open or configure.
func NewErrorWithErrno(op string, code ErrorCode, errno syscall.Errno) *Error {
	return &Error{Op: op, Code: code, Errno: errno, Msg: errno.Error()}
}

// WrapError wraps an existing error with ingestion-core context.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if pe, ok := inner.(*Error); ok {
		return &Error{Op: op, Kind: pe.Kind, Code: pe.Code, Errno: pe.Errno, Msg: pe.Msg, Inner: pe.Inner}
	}

	code := CodeTransportOpen
	if errno, ok := inner.(syscall.Errno); ok {
		code = mapErrnoToCode(errno)
		return &Error{Op: op, Code: code, Errno: errno, Msg: errno.Error(), Inner: inner}
	}

	return &Error{Op: op, Code: code, Msg: inner.Error(), Inner: inner}
}

// mapErrnoToCode maps syscall errno values seen opening/configuring the
// serial transport to ingestion-core error codes.
func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.ENOENT:
		return CodeTransportOpen
	case syscall.EBUSY:
		return CodeTransportOpen
	case syscall.EINVAL, syscall.E2BIG:
		return CodeInvalidParameters
	case syscall.EPERM, syscall.EACCES:
		return CodeTransportOpen
	case syscall.ETIMEDOUT:
		return CodeTransportClosed
	default:
		return CodeTransportOpen
	}
}

// IsCode checks if an error matches a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// IsErrno checks if an error wraps a specific syscall errno.
func IsErrno(err error, errno syscall.Errno) bool {
	if err == nil {
		return false
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Errno == errno
	}
	return false
}
