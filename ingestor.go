package p2term

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ironsheep/pnutterm-ingest/internal/arbiter"
	"github.com/ironsheep/pnutterm-ingest/internal/config"
	"github.com/ironsheep/pnutterm-ingest/internal/destination"
	"github.com/ironsheep/pnutterm-ingest/internal/extractor"
	"github.com/ironsheep/pnutterm-ingest/internal/logging"
	"github.com/ironsheep/pnutterm-ingest/internal/message"
	"github.com/ironsheep/pnutterm-ingest/internal/pattern"
	"github.com/ironsheep/pnutterm-ingest/internal/processor"
	"github.com/ironsheep/pnutterm-ingest/internal/reset"
	"github.com/ironsheep/pnutterm-ingest/internal/ring"
	"github.com/ironsheep/pnutterm-ingest/internal/router"
)

// Logger is the leveled logging seam every component in this module
// accepts; *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Transport is the byte stream the ingestor reads frames from and
// writes ack stubs to — a serial port in production, a pipe in tests.
type Transport interface {
	io.Reader
	io.Writer
}

// DestinationBinding registers a destination for the given message
// kinds at ingestor construction time.
type DestinationBinding struct {
	Destination destination.Destination
	Kinds       []message.Kind
}

// Params configures a new Ingestor.
type Params struct {
	// Config supplies the tunable knobs; nil uses config.DefaultConfig().
	Config *config.Config

	// Transport is read from by the producer loop and written to by the
	// response arbiter.
	Transport Transport

	// Destinations are registered on the router before the first tick.
	Destinations []DestinationBinding
}

// Options carries cross-cutting collaborators.
type Options struct {
	Context  context.Context
	Logger   Logger
	Observer Observer
}

// Ingestor is the serial ingestion core: ring buffer, pattern-priority
// extractor, router, response arbiter, and DTR reset manager, wired
// together and driven by one cooperative processor loop.
type Ingestor struct {
	cfg *config.Config

	ring      *ring.Buffer
	pool      *message.Pool
	extractor *extractor.Extractor
	router    *router.Router
	arbiter   *arbiter.Arbiter
	resetMgr  *reset.Manager
	processor *processor.Processor

	metrics   *Metrics
	observer  Observer
	logger    Logger
	transport Transport

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	stopped   bool
	mu        sync.Mutex
}

// CreateAndServe wires a full ingestor over params and starts both the
// producer read loop and the processor's cooperative tick loop. The
// ingestor runs until ctx is canceled or Close is called.
func CreateAndServe(ctx context.Context, params Params, options *Options) (*Ingestor, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if options == nil {
		options = &Options{}
	}
	if options.Context != nil {
		ctx = options.Context
	}
	if params.Transport == nil {
		return nil, NewError("ingestor.create", CodeInvalidParameters, "transport is required")
	}

	cfg := params.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.Default()
	}

	metrics := NewMetrics()
	observer := options.Observer
	if observer == nil {
		observer = NewMetricsObserver(metrics)
	}

	rb := ring.New(cfg.RingCapacity)
	pool := message.NewPool(cfg.PoolSize)
	registry := pattern.Default(cfg.MaxCogs, pattern.DebuggerPacketSanity)
	ex := extractor.New(rb, registry, metrics, extractor.WithZeroSkipCap(cfg.ZeroSkipCap), extractor.WithLogger(logger))

	arb := arbiter.New(cfg.ResponseDebounce(), func(payload []byte) error {
		_, err := params.Transport.Write(payload)
		return err
	}, metrics)

	rt := router.New(pool, metrics,
		router.WithLogger(logger),
		router.WithDebuggerPacketHandler(arb.DebuggerPacketReceived),
	)
	for _, binding := range params.Destinations {
		rt.RegisterDestination(binding.Destination, binding.Kinds...)
	}

	pacer := router.NewPacer(cfg.PacerPeriodsArray())

	var mgr *reset.Manager
	hooks := reset.Hooks{
		ClearExtractor: ex.ClearDebuggerFlag,
		ClearArbiter:   arb.Reset,
		DrainRouter: func() {
			// Single-threaded cooperative dispatch means there is no
			// in-flight work once the processor stops ticking; signal
			// drain-complete off the calling goroutine to avoid
			// re-entering the reset manager's own lock.
			go mgr.DrainComplete()
		},
		RotateLog: func(sequenceID string) {
			for _, binding := range params.Destinations {
				if rotator, ok := binding.Destination.(destination.Rotator); ok {
					if err := rotator.Rotate(sequenceID); err != nil && logger != nil {
						logger.Warn("destination rotate failed", "id", binding.Destination.ID(), "err", err)
					}
				}
			}
			// RotateLog also fires under the reset manager's lock, so the
			// acknowledgement goes off the calling goroutine too.
			go mgr.RotateAck()
		},
	}
	mgr = reset.New(cfg.ResetCoalesce(), cfg.DrainTimeout(), hooks, metrics)

	proc := processor.New(processor.Params{
		Ring:      rb,
		Extractor: ex,
		Router:    rt,
		Pacer:     pacer,
		Reset:     mgr,
		Arbiter:   arb,
		Metrics:   metrics,
		Logger:    logger,
	})

	runCtx, cancel := context.WithCancel(ctx)

	ing := &Ingestor{
		cfg:       cfg,
		ring:      rb,
		pool:      pool,
		extractor: ex,
		router:    rt,
		arbiter:   arb,
		resetMgr:  mgr,
		processor: proc,
		metrics:   metrics,
		observer:  observer,
		logger:    logger,
		transport: params.Transport,
		ctx:       runCtx,
		cancel:    cancel,
		startTime: time.Now(),
	}

	ing.wg.Add(2)
	go ing.produceLoop()
	go ing.processLoop()

	logger.Info("ingestor started", "ring_capacity", cfg.RingCapacity, "pool_size", cfg.PoolSize)

	return ing, nil
}

// produceLoop is the single I/O producer: it only ever writes the
// ring's write index, via Processor.PushBytes.
func (ing *Ingestor) produceLoop() {
	defer ing.wg.Done()

	buf := make([]byte, 64*1024)
	for {
		select {
		case <-ing.ctx.Done():
			return
		default:
		}

		n, err := ing.transport.Read(buf)
		if n > 0 {
			ing.metrics.RecordBytesIn(uint64(n))
			if pushErr := ing.processor.PushBytes(buf[:n]); pushErr != nil && ing.logger != nil {
				ing.logger.Warn("ring overflow, span dropped", "bytes", n, "err", pushErr)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ing.logger != nil {
				ing.logger.Error("transport read failed", "err", err)
			}
			return
		}
	}
}

func (ing *Ingestor) processLoop() {
	defer ing.wg.Done()
	if err := ing.processor.Run(ing.ctx); err != nil && !errors.Is(err, context.Canceled) && ing.logger != nil {
		ing.logger.Debug("processor loop stopped", "err", err)
	}
}

// RequestReset forwards a DTR transition to the reset manager.
func (ing *Ingestor) RequestReset(level reset.Level) {
	ing.processor.RequestReset(level)
}

// RotateAck forwards a logger destination's rotation acknowledgement.
func (ing *Ingestor) RotateAck() {
	ing.processor.RotateAck()
}

// State reports whether the ingestor is running or stopped.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// State returns the ingestor's current lifecycle state.
func (ing *Ingestor) State() State {
	if ing == nil {
		return StateStopped
	}
	ing.mu.Lock()
	defer ing.mu.Unlock()
	if ing.stopped {
		return StateStopped
	}
	select {
	case <-ing.ctx.Done():
		return StateStopped
	default:
		return StateRunning
	}
}

// Info summarizes the ingestor for diagnostics/status reporting.
type Info struct {
	State        State
	RingCapacity int
	PoolSize     int
	MaxCogs      int
	UptimeNs     uint64
}

// Info returns a snapshot of the ingestor's configuration and state.
func (ing *Ingestor) Info() Info {
	if ing == nil {
		return Info{}
	}
	return Info{
		State:        ing.State(),
		RingCapacity: ing.cfg.RingCapacity,
		PoolSize:     ing.cfg.PoolSize,
		MaxCogs:      ing.cfg.MaxCogs,
		UptimeNs:     uint64(time.Since(ing.startTime).Nanoseconds()),
	}
}

// Metrics returns the ingestor's live metrics instance.
func (ing *Ingestor) Metrics() *Metrics {
	if ing == nil {
		return nil
	}
	return ing.metrics
}

// MetricsSnapshot returns a point-in-time snapshot of ingestor metrics.
func (ing *Ingestor) MetricsSnapshot() MetricsSnapshot {
	if ing == nil || ing.metrics == nil {
		return MetricsSnapshot{}
	}
	return ing.metrics.Snapshot()
}

// Close stops the producer and processor loops and waits for both to
// exit, up to the configured drain timeout.
func (ing *Ingestor) Close(ctx context.Context) error {
	if ing == nil {
		return nil
	}
	ing.mu.Lock()
	if ing.stopped {
		ing.mu.Unlock()
		return nil
	}
	ing.stopped = true
	ing.mu.Unlock()

	ing.cancel()
	ing.metrics.Stop()

	done := make(chan struct{})
	go func() {
		ing.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("ingestor: close timed out: %w", ctx.Err())
	case <-time.After(ing.cfg.DrainTimeout()):
		return fmt.Errorf("ingestor: close timed out after %s", ing.cfg.DrainTimeout())
	}
}
