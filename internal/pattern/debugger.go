package pattern

import (
	"encoding/binary"

	"github.com/ironsheep/pnutterm-ingest/internal/constants"
	"github.com/ironsheep/pnutterm-ingest/internal/message"
)

// SanityCheck decides whether bytes 8..20 of a candidate debugger
// packet distinguish it from idle-line zero noise. It is exposed as a
// swappable policy because the exact discriminator signature is
// empirical (see the design notes): the default requires at least one
// non-zero byte in 8..20 and rejects a packet whose first 32 bytes are
// entirely zero.
type SanityCheck func(span []byte) bool

// DebuggerPacketSanity is the default discriminator policy.
func DebuggerPacketSanity(span []byte) bool {
	if len(span) < 32 {
		return false
	}
	allZero32 := true
	for _, b := range span[:32] {
		if b != 0 {
			allZero32 = false
			break
		}
	}
	if allZero32 {
		return false
	}
	for _, b := range span[8:20] {
		if b != 0 {
			return true
		}
	}
	return false
}

// Debugger recognizes the fixed-size binary debugger packet. Priority
// 10 — tried first, since its prefilter is the most specific.
type Debugger struct {
	MaxCogs int
	Sanity  SanityCheck
}

// NewDebugger builds a Debugger recognizer with the given cog-id upper
// bound and sanity policy. A nil policy uses DebuggerPacketSanity.
func NewDebugger(maxCogs int, sanity SanityCheck) *Debugger {
	if maxCogs <= 0 {
		maxCogs = constants.DefaultMaxCogs
	}
	if sanity == nil {
		sanity = DebuggerPacketSanity
	}
	return &Debugger{MaxCogs: maxCogs, Sanity: sanity}
}

// Priority implements Recognizer.
func (d *Debugger) Priority() int { return 10 }

// CanStartAt implements Recognizer.
func (d *Debugger) CanStartAt(peek []byte) bool {
	if len(peek) < 20 {
		return false
	}
	a := binary.LittleEndian.Uint32(peek[0:4])
	b := binary.LittleEndian.Uint32(peek[4:8])
	if a != b {
		return false
	}
	if a < 1 || a > uint32(d.MaxCogs) {
		return false
	}
	for _, c := range peek[8:20] {
		if c != 0 {
			return true
		}
	}
	return false
}

// Validate implements Recognizer.
func (d *Debugger) Validate(span []byte) Result {
	if len(span) < constants.DebuggerPacketSize {
		return incomplete()
	}
	packet := span[:constants.DebuggerPacketSize]

	cogA := binary.LittleEndian.Uint32(packet[0:4])
	cogB := binary.LittleEndian.Uint32(packet[4:8])
	if cogA != cogB {
		return invalid()
	}
	if cogA < 1 || cogA > uint32(d.MaxCogs) {
		return invalid()
	}
	if !d.Sanity(packet) {
		return invalid()
	}

	return complete(constants.DebuggerPacketSize, message.DebuggerPacket, message.DebuggerMetadata(cogA))
}

var _ Recognizer = (*Debugger)(nil)
