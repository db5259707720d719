package pattern

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/pnutterm-ingest/internal/message"
)

func peekOver(data []byte) PeekFunc {
	return func(n int) []byte {
		if n > len(data) {
			n = len(data)
		}
		return data[:n]
	}
}

func TestCogMessageClassification(t *testing.T) {
	r := Default(8, nil)
	data := []byte("Cog0  INIT $0000_0000 $0000_0000 load\r\n")

	res := r.Classify(peekOver(data))
	require.Equal(t, Complete, res.Status)
	assert.Equal(t, message.CogMessage, res.Kind)
	assert.Equal(t, len(data), res.Length)
}

func TestBacktickCreationClassification(t *testing.T) {
	r := Default(8, nil)
	data := []byte("`LOGIC MyLogic SAMPLES 32 'Low' 3 'Mid' 2 'High'\r\n")

	res := r.Classify(peekOver(data))
	require.Equal(t, Complete, res.Status)
	assert.Equal(t, message.BacktickWindow, res.Kind)
	assert.Equal(t, TagBacktick, res.Meta.Tag)
	assert.Equal(t, "LOGIC", res.Meta.Backtick.Directive)
	assert.Equal(t, "MyLogic", res.Meta.Backtick.Target)
}

func TestBacktickUpdateClassification(t *testing.T) {
	r := Default(8, nil)
	data := []byte("`MyLogic 7\r\n")

	res := r.Classify(peekOver(data))
	require.Equal(t, Complete, res.Status)
	assert.Equal(t, "", res.Meta.Backtick.Directive)
	assert.Equal(t, "MyLogic", res.Meta.Backtick.Target)
}

func buildDebuggerPacket(cogID uint32) []byte {
	packet := make([]byte, 416)
	binary.LittleEndian.PutUint32(packet[0:4], cogID)
	binary.LittleEndian.PutUint32(packet[4:8], cogID)
	packet[8] = 0xAA // non-zero discriminator
	return packet
}

func TestDebuggerPacketClassification(t *testing.T) {
	r := Default(8, nil)
	data := buildDebuggerPacket(1)

	res := r.Classify(peekOver(data))
	require.Equal(t, Complete, res.Status)
	assert.Equal(t, message.DebuggerPacket, res.Kind)
	assert.Equal(t, 416, res.Length)
	assert.Equal(t, TagDebugger, res.Meta.Tag)
	assert.Equal(t, uint32(1), res.Meta.Debugger.CogID)
}

func TestDebuggerPacketAllZeroFirst32NeverFramedAsPacket(t *testing.T) {
	packet := make([]byte, 416)
	// cog id headers both zero fail the debugger prefilter's >=1
	// cog-id-range check, so the run is never framed as a packet (the
	// all-zero-first-32 sanity check would reject it as well).
	r := Default(8, nil)

	res := r.Classify(peekOver(packet))
	assert.NotEqual(t, Complete, res.Status)
}

func TestTerminalOutputFallback(t *testing.T) {
	r := Default(8, nil)
	data := []byte("plain text output\r\n")

	res := r.Classify(peekOver(data))
	require.Equal(t, Complete, res.Status)
	assert.Equal(t, message.TerminalOutput, res.Kind)
}

func TestTerminalOutputRejectsNonPrintableDominated(t *testing.T) {
	r := Default(8, nil)
	data := make([]byte, 200)
	for i := range data {
		data[i] = 0x01 // non-printable
	}
	data[199] = '\n'

	res := r.Classify(peekOver(data))
	assert.Equal(t, Invalid, res.Status)
}

func TestIncompleteWaitsForMoreBytes(t *testing.T) {
	r := Default(8, nil)
	data := []byte("Cog0 partial line, no terminator yet")

	res := r.Classify(peekOver(data))
	assert.Equal(t, Incomplete, res.Status)
}

// A trailing bare CR with no byte available yet could still turn into
// a CRLF pair on the next read, so it must not be framed as a
// terminator until either a following byte or the scan cap settles it.
func TestTrailingCarriageReturnWaitsForPossibleLineFeed(t *testing.T) {
	r := Default(8, nil)
	data := []byte("Cog0  A\r")

	res := r.Classify(peekOver(data))
	assert.Equal(t, Incomplete, res.Status)
}

func TestTrailingCarriageReturnThenLineFeedCompletesAcrossReads(t *testing.T) {
	r := Default(8, nil)
	data := []byte("Cog0  A\r\n")

	res := r.Classify(peekOver(data))
	require.Equal(t, Complete, res.Status)
	assert.Equal(t, message.CogMessage, res.Kind)
	assert.Equal(t, "Cog0  A", string(data[:res.Length-2]))
}
