package wire

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDebuggerHeader(t *testing.T) {
	packet := make([]byte, 416)
	binary.LittleEndian.PutUint32(packet[0:4], 3)
	binary.LittleEndian.PutUint32(packet[4:8], 3)

	hdr, err := ParseDebuggerHeader(packet)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), hdr.CogIDPrimary)
	assert.Equal(t, uint32(3), hdr.CogIDDuplicate)
}

func TestParseDebuggerHeaderShort(t *testing.T) {
	_, err := ParseDebuggerHeader([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrShortPacket)
}

func TestBuildAckStub(t *testing.T) {
	stub := BuildAckStub()
	require.Len(t, stub, 52)
	for _, b := range stub {
		assert.Equal(t, byte(0), b)
	}
}
