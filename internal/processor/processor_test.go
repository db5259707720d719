package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/pnutterm-ingest/internal/destination"
	"github.com/ironsheep/pnutterm-ingest/internal/extractor"
	"github.com/ironsheep/pnutterm-ingest/internal/message"
	"github.com/ironsheep/pnutterm-ingest/internal/pattern"
	"github.com/ironsheep/pnutterm-ingest/internal/reset"
	"github.com/ironsheep/pnutterm-ingest/internal/ring"
	"github.com/ironsheep/pnutterm-ingest/internal/router"
)

type fakeMetrics struct {
	velocity  float64
	pacerMs   int64
	overflows int
}

func (f *fakeMetrics) SetVelocityEWMA(v float64)  { f.velocity = v }
func (f *fakeMetrics) SetCurrentPacerMs(ms int64) { f.pacerMs = ms }
func (f *fakeMetrics) RecordOverflow()            { f.overflows++ }

type collectingDestination struct {
	id     string
	pushed []string
}

func (d *collectingDestination) ID() string            { return d.id }
func (d *collectingDestination) Kind() destination.Kind { return destination.Logger }
func (d *collectingDestination) Ready() bool            { return true }
func (d *collectingDestination) Immediate() bool        { return true }
func (d *collectingDestination) Push(rec *message.Record) error {
	d.pushed = append(d.pushed, string(rec.Payload()))
	return nil
}
func (d *collectingDestination) Flush() error { return nil }

func buildProcessor(t *testing.T) (*Processor, *collectingDestination, *fakeMetrics) {
	t.Helper()
	r := ring.New(4096)
	pool := message.NewPool(8)
	reg := pattern.Default(8, pattern.DebuggerPacketSanity)
	ex := extractor.New(r, reg, nil)

	logger := &collectingDestination{id: "logger"}
	rt := router.New(pool, nil)
	rt.RegisterDestination(logger, message.CogMessage, message.TerminalOutput)

	pacer := router.NewPacer([3]time.Duration{2 * time.Millisecond, 5 * time.Millisecond, 20 * time.Millisecond})
	mgr := reset.New(10*time.Millisecond, time.Second, reset.Hooks{}, nil)
	metrics := &fakeMetrics{}

	p := New(Params{
		Ring:      r,
		Extractor: ex,
		Router:    rt,
		Pacer:     pacer,
		Reset:     mgr,
		Metrics:   metrics,
	})
	return p, logger, metrics
}

func TestProcessorTickDispatchesExtractedMessage(t *testing.T) {
	p, logger, metrics := buildProcessor(t)

	require.NoError(t, p.PushBytes([]byte("Cog0 hello\n")))
	p.tick(context.Background())

	require.Len(t, logger.pushed, 1)
	assert.Equal(t, "Cog0 hello", logger.pushed[0])
	assert.GreaterOrEqual(t, metrics.pacerMs, int64(0))
}

func TestProcessorTickSuspendedDuringReset(t *testing.T) {
	p, logger, _ := buildProcessor(t)

	p.RequestReset(reset.High)
	require.NoError(t, p.PushBytes([]byte("Cog0 hello\n")))

	p.tick(context.Background())

	assert.Empty(t, logger.pushed)
}

func TestProcessorPushBytesRecordsOverflow(t *testing.T) {
	p, _, metrics := buildProcessor(t)
	big := make([]byte, 1<<21)
	err := p.PushBytes(big)
	require.Error(t, err)
	assert.Equal(t, 1, metrics.overflows)
}

func TestProcessorRunStopsOnContextCancel(t *testing.T) {
	p, _, _ := buildProcessor(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
