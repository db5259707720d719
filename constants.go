package p2term

import "github.com/ironsheep/pnutterm-ingest/internal/constants"

// Re-exported defaults for public API consumers that only need the
// configuration knobs, not the internal packages.
const (
	DefaultRingCapacity     = constants.DefaultRingCapacity
	DefaultPoolSize         = constants.DefaultPoolSize
	DefaultZeroSkipCap      = constants.DefaultZeroSkipCap
	DefaultMaxCogs          = constants.DefaultMaxCogs
	DebuggerPacketSize      = constants.DebuggerPacketSize
	AckStubSize             = constants.AckStubSize
	DefaultResponseDebounce = constants.DefaultResponseDebounce
	DefaultResponseWindow   = constants.DefaultResponseWindow
	DefaultResetCoalesce    = constants.DefaultResetCoalesce
	DefaultDrainTimeout     = constants.DefaultDrainTimeout
	PoolMaxRetries          = constants.PoolMaxRetries
	WatermarkCount          = constants.WatermarkCount
)
