package message

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/ironsheep/pnutterm-ingest/internal/constants"
)

// Pool is a fixed-size free-list of pooled Records, replacing the
// source's shared-mutable-object fan-out with explicit reference
// counting: a record acquired for N destinations is returned to the
// free list only once all N consumers have released it.
//
// Unlike a sync.Pool (which may grow unbounded and silently drop items
// under GC pressure), Pool never allocates beyond its configured size
// — exhaustion is a first-class, observable condition (see
// ErrExhausted / PoolExhaustionCount), matching the spec's pool
// exhaustion test (S6).
type Pool struct {
	mu   sync.Mutex
	free []*Record

	// backoff paces retries at roughly one attempt per millisecond,
	// the same cadence as the source's ad-hoc retry loop, without a
	// hand-rolled ticker.
	backoff *rate.Limiter

	exhaustions atomic.Uint64
}

// NewPool pre-allocates size records.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = constants.DefaultPoolSize
	}
	free := make([]*Record, size)
	for i := range free {
		free[i] = &Record{}
	}
	return &Pool{
		free:    free,
		backoff: rate.NewLimiter(rate.Every(constants.PoolSpinLimit), 1),
	}
}

// Size returns the pool's total capacity.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cap(p.free)
}

// ErrExhausted indicates that no free record became available within
// constants.PoolMaxRetries backoff attempts.
type ErrExhausted struct{}

func (ErrExhausted) Error() string { return "message: pool exhausted" }

// tryAcquire pops one free record, or returns nil if none is free.
func (p *Pool) tryAcquire() *Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.free)
	if n == 0 {
		return nil
	}
	r := p.free[n-1]
	p.free = p.free[:n-1]
	return r
}

// Acquire fills a free record with span/kind/meta/timestamp and arms it
// for the given number of consumers (destinations it will be dispatched
// to). If no record is immediately free, it retries with a ~1ms backoff
// up to constants.PoolMaxRetries times before returning ErrExhausted.
func (p *Pool) Acquire(ctx context.Context, span []byte, kind Kind, meta Metadata, timestampUs int64, consumers int) (*Record, error) {
	if consumers <= 0 {
		consumers = 1
	}

	if r := p.tryAcquire(); r != nil {
		r.fill(span, kind, meta, timestampUs)
		atomic.StoreInt32(&r.consumers, int32(consumers))
		return r, nil
	}

	for attempt := 0; attempt < constants.PoolMaxRetries; attempt++ {
		if err := p.backoff.Wait(ctx); err != nil {
			return nil, err
		}
		if r := p.tryAcquire(); r != nil {
			r.fill(span, kind, meta, timestampUs)
			atomic.StoreInt32(&r.consumers, int32(consumers))
			return r, nil
		}
	}

	p.exhaustions.Add(1)
	return nil, ErrExhausted{}
}

// Release decrements the record's outstanding consumer count. When it
// reaches zero the record is returned to the free list.
func (p *Pool) Release(r *Record) {
	if r == nil {
		return
	}
	if atomic.AddInt32(&r.consumers, -1) > 0 {
		return
	}
	p.mu.Lock()
	p.free = append(p.free, r)
	p.mu.Unlock()
}

// Exhaustions returns the cumulative count of Acquire calls that gave
// up after PoolMaxRetries attempts.
func (p *Pool) Exhaustions() uint64 {
	return p.exhaustions.Load()
}
