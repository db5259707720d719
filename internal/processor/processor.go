// Package processor owns the cooperative run loop: pull bytes out of
// the ring via the extractor, hand extracted frames to the router, and
// let the adaptive pacer time the next tick.
package processor

import (
	"context"
	"time"

	"github.com/ironsheep/pnutterm-ingest/internal/extractor"
	"github.com/ironsheep/pnutterm-ingest/internal/message"
	"github.com/ironsheep/pnutterm-ingest/internal/reset"
	"github.com/ironsheep/pnutterm-ingest/internal/ring"
	"github.com/ironsheep/pnutterm-ingest/internal/router"
)

// ReplyDrainer is the arbiter's queued-reply drain hook, invoked once
// per tick so debounce-denied acks go out as soon as a token frees up
// rather than waiting on the next debugger packet to arrive.
type ReplyDrainer interface {
	Tick()
}

// MetricsSink is the subset of observability counters the processor
// updates every tick. *p2term.Metrics satisfies this structurally.
type MetricsSink interface {
	SetVelocityEWMA(v float64)
	SetCurrentPacerMs(ms int64)
	RecordOverflow()
}

// Logger is the nil-tolerant logging seam every component accepts.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Params are the already-constructed components the processor
// orchestrates. Wiring destinations onto the router happens before
// the processor is built.
type Params struct {
	Ring      *ring.Buffer
	Extractor *extractor.Extractor
	Router    *router.Router
	Pacer     *router.Pacer
	Reset     *reset.Manager
	Arbiter   ReplyDrainer
	Metrics   MetricsSink
	Logger    Logger
}

// Processor runs the single-threaded tick loop described by the
// orchestrator component: flush stats, invoke the extractor, hand
// messages to the router, let the pacer time re-arm.
type Processor struct {
	ring      *ring.Buffer
	extractor *extractor.Extractor
	router    *router.Router
	pacer     *router.Pacer
	resetMgr  *reset.Manager
	arbiter   ReplyDrainer
	metrics   MetricsSink
	logger    Logger
}

// New builds a Processor over already-wired components.
func New(p Params) *Processor {
	return &Processor{
		ring:      p.Ring,
		extractor: p.Extractor,
		router:    p.Router,
		pacer:     p.Pacer,
		resetMgr:  p.Reset,
		arbiter:   p.Arbiter,
		metrics:   p.Metrics,
		logger:    p.Logger,
	}
}

// PushBytes is the single entry point the I/O producer callback uses
// to hand bytes to the ring. It is the only goroutine allowed to
// advance the ring's write index.
func (p *Processor) PushBytes(span []byte) error {
	if err := p.ring.Push(span); err != nil {
		if p.metrics != nil {
			p.metrics.RecordOverflow()
		}
		return err
	}
	return nil
}

// RequestReset forwards a DTR transition to the reset manager.
func (p *Processor) RequestReset(level reset.Level) {
	p.resetMgr.RequestReset(level)
}

// RotateAck forwards the logger's rotation acknowledgement, returning
// the reset manager to idle.
func (p *Processor) RotateAck() {
	p.resetMgr.RotateAck()
}

// Run drives the cooperative loop until ctx is canceled. Each
// iteration fires on the pacer's current period; the period is
// re-evaluated after every tick based on observed velocity and
// processing time.
func (p *Processor) Run(ctx context.Context) error {
	timer := time.NewTimer(p.pacer.Current())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			p.tick(ctx)
			timer.Reset(p.pacer.Current())
		}
	}
}

// tick runs one orchestration pass: suspended entirely while a reset
// is in progress (reset-detected or rotating), otherwise drains as
// many complete frames as the extractor can produce and dispatches
// each through the router.
func (p *Processor) tick(ctx context.Context) {
	if p.resetMgr.State() != reset.Idle {
		return
	}

	start := time.Now()
	p.extractor.Drain(func(kind message.Kind, span []byte, meta message.Metadata, timestampUs int64) {
		if err := p.router.Dispatch(ctx, kind, span, meta, timestampUs); err != nil && p.logger != nil {
			p.logger.Warn("dispatch failed", "err", err)
		}
	})

	// Let the router's self-scheduled timer fire (flush non-immediate
	// destinations up to the watermark) and drain any arbiter replies
	// still waiting on a debounce token.
	p.router.Flush()
	if p.arbiter != nil {
		p.arbiter.Tick()
	}

	elapsed := time.Since(start)

	velocity := p.router.Velocity().Sample()
	period := p.pacer.Evaluate(velocity, elapsed)
	if p.metrics != nil {
		p.metrics.SetVelocityEWMA(velocity)
		p.metrics.SetCurrentPacerMs(period.Milliseconds())
	}
}
