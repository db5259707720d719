// Package constants collects the tunable defaults for the ingestion core.
package constants

import "time"

// Buffer and pool sizing defaults.
const (
	// DefaultRingCapacity is the ring buffer's default capacity in bytes (1 MiB).
	DefaultRingCapacity = 1 << 20

	// DefaultPoolSize is the number of pre-allocated pooled message records.
	DefaultPoolSize = 100

	// DefaultZeroSkipCap bounds how many 0x00 bytes the post-binary noise
	// filter will silently consume in one pass.
	DefaultZeroSkipCap = 256

	// DefaultMaxCogs bounds the valid COG-id range (1..DefaultMaxCogs).
	// Hardware literature documents 8 cores; the value stays configurable.
	DefaultMaxCogs = 8

	// DebuggerPacketSize is the fixed wire size of a debugger packet.
	DebuggerPacketSize = 416

	// AckStubSize is the fixed size of the host's acknowledgement reply.
	AckStubSize = 52

	// MaxMessagePayload bounds a pooled record's backing storage: the
	// larger of the fixed DebuggerPacketSize and the 1024-byte scan
	// window BacktickWindow/CogMessage/TerminalOutput recognizers use.
	MaxMessagePayload = 1024
)

// Timing defaults.
const (
	// DefaultResponseDebounce is the minimum spacing between acks sent to
	// the transmit callback.
	DefaultResponseDebounce = 5 * time.Millisecond

	// DefaultResponseWindow is the advisory deadline for sending an ack
	// after a debugger packet arrives.
	DefaultResponseWindow = 100 * time.Millisecond

	// DefaultResetCoalesce is the window in which further DTR-high
	// transitions are folded into the current reset sequence.
	DefaultResetCoalesce = 250 * time.Millisecond

	// DefaultDrainTimeout bounds how long the reset manager waits for
	// drain_complete before proceeding anyway.
	DefaultDrainTimeout = 2 * time.Second

	// PoolSpinLimit is the spacing between Pool.Acquire's retries for a
	// free record; with PoolMaxRetries it bounds the wait before the
	// router sees PoolExhausted.
	PoolSpinLimit = 1 * time.Millisecond

	// PoolMaxRetries is the number of 1ms backoff attempts before a
	// message is dropped as unrecoverably pool-exhausted.
	PoolMaxRetries = 10

	// WatermarkCount is the non-immediate-destination flush watermark.
	WatermarkCount = 7

	// ReplyQueueDepth bounds how many debounce-denied arbiter replies
	// wait for the next drain before being dropped.
	ReplyQueueDepth = 8
)

// PacerPeriodsMs are the three adaptive-pacer periods, fast to slow.
var PacerPeriodsMs = [3]time.Duration{
	2 * time.Millisecond,
	5 * time.Millisecond,
	20 * time.Millisecond,
}

// Velocity thresholds (messages/second) and per-tick processing thresholds
// (milliseconds) used to select the adaptive pacer period.
const (
	VelocityFastThreshold     = 40
	VelocityMediumThreshold   = 10
	ProcessingSlowThresholdMs = 10
)
