// Package pattern implements the priority-ordered recognizer registry
// that classifies candidate spans at the extractor's current read
// position into one of the message kinds.
package pattern

import "github.com/ironsheep/pnutterm-ingest/internal/message"

// PrefilterWindow bounds how many bytes CanStartAt may inspect. The
// DebuggerPacket prefilter is the most demanding: it needs the
// duplicated 4-byte cog-id header plus the 12-byte discriminator run
// (bytes 8..20).
const PrefilterWindow = 20

// Status is the three-way verdict a recognizer's Validate returns.
type Status int

const (
	// Incomplete means more bytes are needed before a verdict can be
	// reached; the extractor waits for the next push.
	Incomplete Status = iota
	// Invalid means the candidate span does not match this recognizer;
	// the extractor advances past it (typically by one byte) and
	// retries the registry from the new position.
	Invalid
	// Complete means the recognizer framed exactly Length bytes as Kind.
	Complete
)

// Result is the outcome of Validate.
type Result struct {
	Status Status
	Length int
	Kind   message.Kind
	Meta   message.Metadata
}

func incomplete() Result { return Result{Status: Incomplete} }
func invalid() Result    { return Result{Status: Invalid} }
func complete(length int, kind message.Kind, meta message.Metadata) Result {
	return Result{Status: Complete, Length: length, Kind: kind, Meta: meta}
}

// Recognizer supplies a fast prefilter and a bounded validator for one
// message shape. CanStartAt must only look at the bytes it is given
// (at most the first PrefilterWindow bytes of the candidate span) and
// must not allocate or scan.
type Recognizer interface {
	// Priority orders recognizers; lower values are tried first.
	Priority() int

	// CanStartAt is a cheap prefilter over the bytes currently available
	// at the read position, up to PrefilterWindow bytes. It must return
	// false, never panic, when fewer bytes are available than it needs.
	CanStartAt(peek []byte) bool

	// Validate inspects up to len(span) bytes (never more) and returns
	// a verdict. It must not read past span's length.
	Validate(span []byte) Result
}
