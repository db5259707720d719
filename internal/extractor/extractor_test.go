package extractor

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/pnutterm-ingest/internal/message"
	"github.com/ironsheep/pnutterm-ingest/internal/pattern"
	"github.com/ironsheep/pnutterm-ingest/internal/ring"
)

type fakeMetrics struct {
	zeroSkipped uint64
	emitted     map[message.Kind]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{emitted: make(map[message.Kind]int)}
}

func (f *fakeMetrics) RecordZeroSkip(n uint64)                 { f.zeroSkipped += n }
func (f *fakeMetrics) RecordMessageEmitted(kind message.Kind) { f.emitted[kind]++ }

func buildDebuggerPacket(cogID uint32) []byte {
	packet := make([]byte, 416)
	binary.LittleEndian.PutUint32(packet[0:4], cogID)
	binary.LittleEndian.PutUint32(packet[4:8], cogID)
	packet[8] = 0xAA
	return packet
}

func TestExtractorEmitsCogMessage(t *testing.T) {
	r := ring.New(4096)
	metrics := newFakeMetrics()
	e := New(r, pattern.Default(8, nil), metrics)

	require.NoError(t, r.Push([]byte("Cog0  INIT $0000_0000 $0000_0000 load\r\n")))

	var got []byte
	var gotKind message.Kind
	n := e.Drain(func(kind message.Kind, span []byte, meta message.Metadata, ts int64) {
		got = append([]byte(nil), span...)
		gotKind = kind
	})

	assert.Equal(t, 1, n)
	assert.Equal(t, message.CogMessage, gotKind)
	assert.Equal(t, "Cog0  INIT $0000_0000 $0000_0000 load", string(got))
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 1, metrics.emitted[message.CogMessage])
}

func TestExtractorZeroFilterAfterDebuggerPacket(t *testing.T) {
	r := ring.New(4096)
	metrics := newFakeMetrics()
	e := New(r, pattern.Default(8, nil), metrics)

	packet := buildDebuggerPacket(1)
	payload := append(append([]byte{}, packet...), make([]byte, 64)...) // 64 zero bytes follow
	require.NoError(t, r.Push(payload))

	var kinds []message.Kind
	e.Drain(func(kind message.Kind, span []byte, meta message.Metadata, ts int64) {
		kinds = append(kinds, kind)
	})

	require.Len(t, kinds, 1)
	assert.Equal(t, message.DebuggerPacket, kinds[0])
	assert.Equal(t, uint64(64), metrics.zeroSkipped)
	assert.Equal(t, 0, r.Len())
}

func TestExtractorMalformedFrameAdvancesOneByte(t *testing.T) {
	r := ring.New(4096)
	metrics := newFakeMetrics()
	e := New(r, pattern.Default(8, nil), metrics)

	// Non-printable junk dominated run, no terminator within the scan
	// cap: Terminal recognizer will report Invalid.
	junk := make([]byte, 1100)
	for i := range junk {
		junk[i] = 0x01
	}
	require.NoError(t, r.Push(junk))

	progressed := e.Tick(func(message.Kind, []byte, message.Metadata, int64) {})
	assert.True(t, progressed)
	assert.Equal(t, len(junk)-1, r.Len())
}

func TestExtractorIncompleteWaits(t *testing.T) {
	r := ring.New(4096)
	e := New(r, pattern.Default(8, nil), newFakeMetrics())

	require.NoError(t, r.Push([]byte("Cog0 partial")))
	progressed := e.Tick(func(message.Kind, []byte, message.Metadata, int64) {})
	assert.False(t, progressed)
	assert.Equal(t, len("Cog0 partial"), r.Len())
}
