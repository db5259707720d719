// Package router maintains the (kind → destination-id list) table and
// dispatches pooled message records, replacing the source's event-bus
// fan-out over shared mutable payloads with an explicit table and a
// reference-counted pooled record per dispatch.
package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/ironsheep/pnutterm-ingest/internal/constants"
	"github.com/ironsheep/pnutterm-ingest/internal/destination"
	"github.com/ironsheep/pnutterm-ingest/internal/message"
)

// MetricsSink is the subset of observability counters the router
// updates. *p2term.Metrics satisfies this structurally.
type MetricsSink interface {
	RecordOverflow()
	RecordPoolExhaustion()
}

// Logger is the nil-tolerant logging seam every component accepts.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// DebuggerPacketHandler is invoked once per DebuggerPacket dispatch,
// regardless of destination outcome — the signal the response arbiter
// subscribes to.
type DebuggerPacketHandler func(cogID uint32)

// Router owns the kind → destination-id table and dispatches pooled
// records to each resolved destination.
type Router struct {
	mu sync.RWMutex

	byKind       map[message.Kind][]string
	destinations map[string]destination.Destination
	windowCreatorID string

	// pending counts unflushed pushes per non-immediate destination id
	// since its last Flush; RouteKindToDestination-reachable only via
	// Dispatch/Flush, never read without mu held.
	pending map[string]int

	pool     *message.Pool
	metrics  MetricsSink
	logger   Logger
	velocity *VelocityMeter

	onDebuggerPacket DebuggerPacketHandler
}

// New builds a Router over the given pool.
func New(pool *message.Pool, metrics MetricsSink, opts ...Option) *Router {
	r := &Router{
		byKind:       make(map[message.Kind][]string),
		destinations: make(map[string]destination.Destination),
		pending:      make(map[string]int),
		pool:         pool,
		metrics:      metrics,
		velocity:     NewVelocityMeter(0.3),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets a nil-tolerant logger.
func WithLogger(l Logger) Option { return func(r *Router) { r.logger = l } }

// WithDebuggerPacketHandler registers the arbiter's signal hook.
func WithDebuggerPacketHandler(h DebuggerPacketHandler) Option {
	return func(r *Router) { r.onDebuggerPacket = h }
}

// RegisterDestination adds (or replaces) a destination and wires it
// into the kind → destination-id table for every kind it should always
// receive. Use RouteKindToDestination for kinds wired after the fact
// (e.g. a typed window that only exists for BacktickWindow updates
// targeting it).
func (r *Router) RegisterDestination(d destination.Destination, kinds ...message.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destinations[d.ID()] = d
	if d.Kind() == destination.WindowCreator {
		r.windowCreatorID = d.ID()
	}
	for _, k := range kinds {
		r.byKind[k] = appendUnique(r.byKind[k], d.ID())
	}
}

// RouteKindToDestination adds id to the destination list for kind
// without requiring the destination to already be registered (used by
// typed windows registering themselves for their target's updates).
func (r *Router) RouteKindToDestination(kind message.Kind, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKind[kind] = appendUnique(r.byKind[kind], id)
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// Dispatch resolves the destination list for kind/meta, acquires a
// pooled record for that many consumers, and attempts a bounded
// enqueue to each. A DebuggerPacket dispatch always signals the
// arbiter, regardless of destination outcome.
func (r *Router) Dispatch(ctx context.Context, kind message.Kind, span []byte, meta message.Metadata, timestampUs int64) error {
	ids, targetUnresolved := r.resolve(kind, meta)

	r.mu.RLock()
	destinations := make([]destination.Destination, 0, len(ids))
	for _, id := range ids {
		if d, ok := r.destinations[id]; ok {
			destinations = append(destinations, d)
		}
	}
	windowCreator, hasCreator := r.destinations[r.windowCreatorID].(destination.WindowCreatorDestination)
	r.mu.RUnlock()

	wantsCreator := targetUnresolved && meta.Tag == message.TagBacktick && hasCreator

	consumers := len(destinations)
	if wantsCreator {
		consumers++
	}
	if consumers == 0 {
		// Nothing to dispatch to: no pooled record needed. The
		// DebuggerPacket signal still fires below regardless of
		// destination outcome.
		if kind == message.DebuggerPacket && r.onDebuggerPacket != nil {
			r.onDebuggerPacket(meta.Debugger.CogID)
		}
		r.velocity.RecordMessage()
		return nil
	}

	rec, err := r.pool.Acquire(ctx, span, kind, meta, timestampUs, consumers)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordPoolExhaustion()
		}
		return fmt.Errorf("router: acquire: %w", err)
	}

	for _, d := range destinations {
		if pushErr := d.Push(rec); pushErr != nil {
			if r.logger != nil {
				r.logger.Warn("destination push failed", "id", d.ID(), "err", pushErr)
			}
		} else if d.Immediate() {
			if flushErr := d.Flush(); flushErr != nil && r.logger != nil {
				r.logger.Warn("destination flush failed", "id", d.ID(), "err", flushErr)
			}
		} else {
			r.recordPush(d)
		}
		r.pool.Release(rec)
	}

	if wantsCreator {
		windowID, err := windowCreator.CreateWindow(meta.Backtick.Directive, meta.Backtick.Target, rec)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("window creation failed", "target", meta.Backtick.Target, "err", err)
			}
		} else {
			r.mu.Lock()
			r.destinations[windowID] = windowCreator
			r.mu.Unlock()
		}
		r.pool.Release(rec)
	}

	if kind == message.DebuggerPacket && r.onDebuggerPacket != nil {
		r.onDebuggerPacket(meta.Debugger.CogID)
	}

	r.velocity.RecordMessage()
	return nil
}

// resolve returns the known destination ids for kind/meta, plus whether
// a BacktickWindow target name has no registered destination yet (and
// therefore needs the window-creator).
func (r *Router) resolve(kind message.Kind, meta message.Metadata) (ids []string, targetUnresolved bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	base := r.byKind[kind]
	ids = append(ids[:0:0], base...)

	if kind == message.BacktickWindow && meta.Tag == message.TagBacktick {
		windowID := windowDestinationID(meta.Backtick.Target)
		if _, ok := r.destinations[windowID]; ok {
			ids = appendUnique(ids, windowID)
		} else if meta.Backtick.Target != "" {
			targetUnresolved = true
		}
	}

	if kind == message.DebuggerPacket && meta.Tag == message.TagDebugger {
		typedID := typedWindowID(kind, fmt.Sprintf("%d", meta.Debugger.CogID))
		if _, ok := r.destinations[typedID]; ok {
			ids = appendUnique(ids, typedID)
		}
	}

	return ids, targetUnresolved
}

// windowDestinationID derives a stable destination id for a typed
// window addressed by target name.
func windowDestinationID(target string) string {
	return "window:" + target
}

// typedWindowID derives a stable destination id composed from
// {kind, cog-id-or-name}, per the router's fan-out rule for
// DebuggerPacket.
func typedWindowID(kind message.Kind, idOrName string) string {
	return fmt.Sprintf("window:%s:%s", kind.String(), idOrName)
}

// Velocity returns the router's velocity meter, sampled once per
// processor tick to feed the pacer.
func (r *Router) Velocity() *VelocityMeter {
	return r.velocity
}

// recordPush tallies one unflushed push against a non-immediate
// destination, flushing it immediately once the watermark count is
// reached rather than waiting for the next Flush tick.
func (r *Router) recordPush(d destination.Destination) {
	r.mu.Lock()
	r.pending[d.ID()]++
	hitWatermark := r.pending[d.ID()] >= constants.WatermarkCount
	if hitWatermark {
		r.pending[d.ID()] = 0
	}
	r.mu.Unlock()

	if hitWatermark {
		if err := d.Flush(); err != nil && r.logger != nil {
			r.logger.Warn("destination flush failed", "id", d.ID(), "err", err)
		}
	}
}

// Flush drains every non-immediate destination that has an unflushed
// push outstanding. Call it once per processor tick — the self-
// scheduled timer spec.md describes, running at the pacer's
// current_period — so accumulated records don't wait indefinitely for
// the watermark count to be reached.
func (r *Router) Flush() {
	r.mu.Lock()
	var toFlush []destination.Destination
	for id, count := range r.pending {
		if count == 0 {
			continue
		}
		if d, ok := r.destinations[id]; ok {
			toFlush = append(toFlush, d)
		}
		r.pending[id] = 0
	}
	r.mu.Unlock()

	for _, d := range toFlush {
		if err := d.Flush(); err != nil && r.logger != nil {
			r.logger.Warn("destination flush failed", "id", d.ID(), "err", err)
		}
	}
}
