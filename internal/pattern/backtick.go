package pattern

import (
	"strings"

	"github.com/ironsheep/pnutterm-ingest/internal/message"
)

// creationDirectives are the recognized window-creating directive
// heads. Anything else addressing a backtick line is an update
// directed at an already-created target by name.
var creationDirectives = map[string]bool{
	"LOGIC": true,
	"SCOPE": true,
	"TERM":  true,
	"PLOT":  true,
}

// Backtick recognizes control directives introduced by 0x60. Priority 20.
type Backtick struct{}

// NewBacktick builds a Backtick recognizer.
func NewBacktick() *Backtick { return &Backtick{} }

// Priority implements Recognizer.
func (*Backtick) Priority() int { return 20 }

// CanStartAt implements Recognizer.
func (*Backtick) CanStartAt(peek []byte) bool {
	return len(peek) >= 1 && peek[0] == 0x60
}

// Validate implements Recognizer.
func (*Backtick) Validate(span []byte) Result {
	length, status := scanForTerminator(span)
	switch status {
	case eolIncomplete:
		return incomplete()
	case eolInvalid:
		return invalid()
	}

	body := trimEOL(span[1:length]) // drop the leading backtick and trailing EOL
	directive, target := parseDirectiveHead(body)

	return complete(length, message.BacktickWindow, message.BacktickMetadata(directive, target))
}

// parseDirectiveHead splits a backtick line's body into a directive
// head (for creation lines) and a target name, or just a target name
// (for update lines addressed directly to an existing window).
func parseDirectiveHead(body []byte) (directive, target string) {
	fields := strings.Fields(string(body))
	if len(fields) == 0 {
		return "", ""
	}
	head := strings.ToUpper(fields[0])
	if creationDirectives[head] {
		if len(fields) > 1 {
			return head, fields[1]
		}
		return head, ""
	}
	return "", fields[0]
}

var _ Recognizer = (*Backtick)(nil)
