package message

// Metadata is a tagged variant carrying the per-kind parsed context
// described in the recognizer contracts: nothing for CogMessage and
// TerminalOutput, a directive/target pair for BacktickWindow, and the
// COG id for DebuggerPacket.
//
// This replaces the dynamic-typing approach of stashing arbitrary
// fields on a shared object: exactly one of the embedded structs is
// meaningful, selected by Tag.
type Metadata struct {
	Tag MetaTag

	Backtick BacktickMeta
	Debugger DebuggerMeta
}

// MetaTag discriminates which field of Metadata is populated.
type MetaTag int

const (
	// None carries no metadata (CogMessage, TerminalOutput, Unknown).
	None MetaTag = iota
	// TagBacktick selects Metadata.Backtick.
	TagBacktick
	// TagDebugger selects Metadata.Debugger.
	TagDebugger
)

// BacktickMeta carries the parsed directive head and target name of a
// BacktickWindow message, e.g. directive "LOGIC", target "MyLogic".
type BacktickMeta struct {
	Directive string
	Target    string
}

// DebuggerMeta carries the COG id of a DebuggerPacket message.
type DebuggerMeta struct {
	CogID uint32
}

// NoneMeta is the zero-value metadata for kinds that carry none.
func NoneMeta() Metadata {
	return Metadata{Tag: None}
}

// BacktickMetadata builds metadata for a BacktickWindow message.
func BacktickMetadata(directive, target string) Metadata {
	return Metadata{Tag: TagBacktick, Backtick: BacktickMeta{Directive: directive, Target: target}}
}

// DebuggerMetadata builds metadata for a DebuggerPacket message.
func DebuggerMetadata(cogID uint32) Metadata {
	return Metadata{Tag: TagDebugger, Debugger: DebuggerMeta{CogID: cogID}}
}
