package p2term

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/pnutterm-ingest/internal/extractor"
	"github.com/ironsheep/pnutterm-ingest/internal/message"
	"github.com/ironsheep/pnutterm-ingest/internal/pattern"
	"github.com/ironsheep/pnutterm-ingest/internal/ring"
	"github.com/ironsheep/pnutterm-ingest/internal/router"
)

type scenarioMessage struct {
	kind  message.Kind
	span  string
	meta  message.Metadata
	tsUs  int64
}

func newScenarioExtractor(t *testing.T, capacity int) (*ring.Buffer, *extractor.Extractor, *Metrics) {
	t.Helper()
	r := ring.New(capacity)
	m := NewMetrics()
	reg := pattern.Default(DefaultMaxCogs, pattern.DebuggerPacketSanity)
	ex := extractor.New(r, reg, m)
	return r, ex, m
}

// S1: a single terminated CogMessage line yields exactly one emission,
// trims its CRLF, and leaves the ring empty.
func TestScenarioS1SingleCogMessage(t *testing.T) {
	r, ex, _ := newScenarioExtractor(t, 4096)
	require.NoError(t, r.Push([]byte("Cog0  INIT $0000_0000 $0000_0000 load\r\n")))

	var got []scenarioMessage
	ex.Drain(func(kind message.Kind, span []byte, meta message.Metadata, tsUs int64) {
		got = append(got, scenarioMessage{kind, string(span), meta, tsUs})
	})

	require.Len(t, got, 1)
	assert.Equal(t, message.CogMessage, got[0].kind)
	assert.Equal(t, "Cog0  INIT $0000_0000 $0000_0000 load", got[0].span)
	assert.Equal(t, 0, r.Len())
}

// S2: a debugger packet that follows a completed text line is emitted
// after it with the right cog id, and arms the zero filter that then
// silently consumes the following idle-zero run.
func TestScenarioS2DebuggerPacketArmsZeroFilter(t *testing.T) {
	r, ex, metrics := newScenarioExtractor(t, 8192)

	line := []byte("Cog0 still booting up and printing diagnostics here\r\n")
	require.NoError(t, r.Push(line))

	packet := BuildDebuggerPacket(1)
	require.NoError(t, r.Push(packet))

	zeros := make([]byte, 200)
	require.NoError(t, r.Push(zeros))

	var kinds []message.Kind
	var cogID uint32
	ex.Drain(func(kind message.Kind, span []byte, meta message.Metadata, tsUs int64) {
		kinds = append(kinds, kind)
		if kind == message.DebuggerPacket {
			cogID = meta.Debugger.CogID
		}
		metrics.RecordMessageEmitted(kind)
	})

	require.Len(t, kinds, 2)
	assert.Equal(t, message.CogMessage, kinds[0])
	assert.Equal(t, message.DebuggerPacket, kinds[1])
	assert.Equal(t, uint32(1), cogID)

	// The zero run should have been silently consumed by the armed filter.
	assert.Equal(t, 0, r.Len())
	assert.Greater(t, metrics.Snapshot().BytesSkippedZero, uint64(0))
}

// S3: a long run of zero bytes with no preceding debugger packet never
// produces a DebuggerPacket — the all-zero-first-32-bytes sanity check
// rejects it, and the extractor recovers byte-by-byte.
func TestScenarioS3ZeroRunWithoutPriorDebuggerNeverEmits(t *testing.T) {
	r, ex, _ := newScenarioExtractor(t, 4096)
	require.NoError(t, r.Push(make([]byte, 512)))

	emitted := 0
	for r.Len() > 0 {
		if !ex.Tick(func(message.Kind, []byte, message.Metadata, int64) { emitted++ }) {
			break
		}
	}

	assert.Equal(t, 0, emitted)
	assert.Equal(t, 0, r.Len())
}

// S5: a BacktickWindow creation line routes to both the logger and the
// window-creator, and a subsequent update line addressed at the same
// target routes to the logger and the now-materialized typed window.
func TestScenarioS5BacktickWindowCreationThenUpdate(t *testing.T) {
	pool := newTestPool(t)
	rt := router.New(pool, nil)

	logger := NewMockDestination("logger")
	creator := NewMockWindowCreator("window-creator")
	rt.RegisterDestination(logger, message.BacktickWindow)
	rt.RegisterDestination(creator)

	meta := message.BacktickMetadata("LOGIC", "MyLogic")
	err := rt.Dispatch(context.Background(), message.BacktickWindow,
		[]byte("`LOGIC MyLogic SAMPLES 32 'Low' 3 'Mid' 2 'High'"), meta, 0)
	require.NoError(t, err)

	require.Len(t, logger.Delivered(), 1)
	require.Equal(t, []string{"MyLogic"}, creator.Created())

	// The router wires "window:MyLogic" to the creator itself as part of
	// CreateWindow's success path, so a subsequent update addressed at the
	// same target resolves directly without re-invoking CreateWindow.
	updateMeta := message.BacktickMetadata("", "MyLogic")
	err = rt.Dispatch(context.Background(), message.BacktickWindow, []byte("`MyLogic 7"), updateMeta, 0)
	require.NoError(t, err)

	assert.Len(t, logger.Delivered(), 2)
	assert.Len(t, creator.Delivered(), 1)
	assert.Equal(t, []string{"MyLogic"}, creator.Created())
}

// S6: a pool much smaller than the message volume never drops a
// message — each dispatch acquires, fans out to every destination, and
// releases before the next dispatch begins, so a burst of CogMessages
// reaches every destination intact even with only two records to lend.
func TestScenarioS6SmallPoolNeverDropsMessages(t *testing.T) {
	pool := message.NewPool(2)
	metrics := NewMetrics()
	rt := router.New(pool, metrics)

	a := NewMockDestination("a")
	b := NewMockDestination("b")
	c := NewMockDestination("c")
	rt.RegisterDestination(a, message.CogMessage)
	rt.RegisterDestination(b, message.CogMessage)
	rt.RegisterDestination(c, message.CogMessage)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < 10; i++ {
		err := rt.Dispatch(ctx, message.CogMessage, []byte("Cog0 tick"), message.NoneMeta(), int64(i))
		require.NoError(t, err)
	}

	assert.Len(t, a.Delivered(), 10)
	assert.Len(t, b.Delivered(), 10)
	assert.Len(t, c.Delivered(), 10)
}

func newTestPool(t *testing.T) *message.Pool {
	t.Helper()
	return message.NewPool(8)
}
