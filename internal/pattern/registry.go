package pattern

import (
	"sort"

	"github.com/ironsheep/pnutterm-ingest/internal/constants"
)

// Registry holds the ordered set of recognizers and drives the
// extractor's per-position decision: try each recognizer's prefilter in
// priority order, and on a hit, run its validator.
type Registry struct {
	recognizers []Recognizer
}

// NewRegistry builds a registry from the given recognizers, sorted by
// ascending priority (lower values tried first).
func NewRegistry(recognizers ...Recognizer) *Registry {
	ordered := make([]Recognizer, len(recognizers))
	copy(ordered, recognizers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})
	return &Registry{recognizers: ordered}
}

// Default builds the registry with the four standard recognizers in
// their spec-mandated priority order: DebuggerPacket(10),
// BacktickWindow(20), CogMessage(30), TerminalOutput(40).
func Default(maxCogs int, sanity SanityCheck) *Registry {
	return NewRegistry(
		NewDebugger(maxCogs, sanity),
		NewBacktick(),
		NewCog(),
		NewTerminal(),
	)
}

// PeekFunc supplies up to n bytes at the extractor's current read
// position without copying more than necessary; it returns fewer bytes
// if fewer are available.
type PeekFunc func(n int) []byte

// Classify runs the registry against the current read position: peek
// supplies the prefilter window, and validate is called with whatever
// span the matching recognizer asked for. It returns the first
// recognizer's Result whose prefilter matched — the registry does not
// fall through to a lower-priority recognizer once Validate has been
// called, even if it returns Invalid (the extractor is responsible for
// the malformed-frame recovery of advancing one byte).
func (r *Registry) Classify(peek PeekFunc) Result {
	prefilter := peek(PrefilterWindow)

	for _, rec := range r.recognizers {
		if !rec.CanStartAt(prefilter) {
			continue
		}
		span := peek(validateWindow(rec))
		return rec.Validate(span)
	}

	return invalid()
}

// validateWindow returns how many bytes to hand a recognizer's
// Validate: the fixed packet size for Debugger, or the line-scan cap
// for the text recognizers.
func validateWindow(rec Recognizer) int {
	if _, ok := rec.(*Debugger); ok {
		return constants.DebuggerPacketSize
	}
	return maxLineScan
}
