package pattern

import "github.com/ironsheep/pnutterm-ingest/internal/message"

// Terminal is the fallback recognizer: any other printable-ASCII-
// dominant line. Priority 40 — tried only after every other recognizer
// declines the current position.
type Terminal struct{}

// NewTerminal builds a Terminal recognizer.
func NewTerminal() *Terminal { return &Terminal{} }

// Priority implements Recognizer.
func (*Terminal) Priority() int { return 40 }

// CanStartAt implements Recognizer. Terminal is the catch-all, so it
// always accepts the prefilter; registry ordering ensures it only runs
// once every higher-priority recognizer has declined.
func (*Terminal) CanStartAt([]byte) bool { return true }

// Validate implements Recognizer.
func (*Terminal) Validate(span []byte) Result {
	length, status := scanForTerminator(span)

	switch status {
	case eolIncomplete:
		return incomplete()
	case eolInvalid:
		// No terminator within the 1024-byte cap: consume the full
		// window rather than waiting forever.
		length = maxLineScan
	}

	if !printableDominant(span[:length]) {
		return invalid()
	}

	return complete(length, message.TerminalOutput, message.NoneMeta())
}

// printableDominant implements the 95% printable-dominance test: a run
// is ASCII-dominant if at least 95% of its bytes are tab, LF, CR, or in
// [0x20, 0x7E].
func printableDominant(run []byte) bool {
	if len(run) == 0 {
		return false
	}
	printable := 0
	for _, b := range run {
		if b == 0x09 || b == 0x0A || b == 0x0D || (b >= 0x20 && b <= 0x7E) {
			printable++
		}
	}
	return float64(printable)/float64(len(run)) >= 0.95
}

var _ Recognizer = (*Terminal)(nil)
