package pattern

import "github.com/ironsheep/pnutterm-ingest/internal/message"

// Cog recognizes a text line beginning with "Cog" followed by a decimal
// digit and whitespace. Priority 30.
type Cog struct{}

// NewCog builds a Cog recognizer.
func NewCog() *Cog { return &Cog{} }

// Priority implements Recognizer.
func (*Cog) Priority() int { return 30 }

// CanStartAt implements Recognizer.
func (*Cog) CanStartAt(peek []byte) bool {
	if len(peek) < 5 {
		return false
	}
	if peek[0] != 'C' || peek[1] != 'o' || peek[2] != 'g' {
		return false
	}
	if peek[3] < '0' || peek[3] > '9' {
		return false
	}
	return peek[4] == ' ' || peek[4] == '\t'
}

// Validate implements Recognizer.
func (*Cog) Validate(span []byte) Result {
	length, status := scanForTerminator(span)
	switch status {
	case eolIncomplete:
		return incomplete()
	case eolInvalid:
		return invalid()
	}

	return complete(length, message.CogMessage, message.NoneMeta())
}

var _ Recognizer = (*Cog)(nil)
