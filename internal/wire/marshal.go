// Package wire isolates the manual little-endian marshaling the ack
// stub and the debugger-packet header require, in the same
// field-by-field binary.LittleEndian style the rest of the corpus uses
// for its C-compatible wire structs — no reflection, no encoding/gob.
package wire

import (
	"encoding/binary"
	"errors"

	"github.com/ironsheep/pnutterm-ingest/internal/constants"
)

// ErrShortPacket is returned when a debugger packet header is shorter
// than the fixed framing requires.
var ErrShortPacket = errors.New("wire: packet shorter than debugger header")

// DebuggerHeader is the parsed fixed header of a 416-byte debugger
// packet: the duplicated little-endian COG id. The core never
// interprets the remainder of the packet's content (Non-goal).
type DebuggerHeader struct {
	CogIDPrimary   uint32
	CogIDDuplicate uint32
}

// ParseDebuggerHeader reads the duplicated cog-id header from bytes
// 0..8 of a debugger packet.
func ParseDebuggerHeader(packet []byte) (DebuggerHeader, error) {
	if len(packet) < 8 {
		return DebuggerHeader{}, ErrShortPacket
	}
	return DebuggerHeader{
		CogIDPrimary:   binary.LittleEndian.Uint32(packet[0:4]),
		CogIDDuplicate: binary.LittleEndian.Uint32(packet[4:8]),
	}, nil
}

// BuildAckStub builds the fixed 52-byte all-zero acknowledgement reply
// the response arbiter hands to the transmit callback after every
// debugger packet.
func BuildAckStub() []byte {
	return make([]byte, constants.AckStubSize)
}
