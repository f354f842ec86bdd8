// Package poller drives the polling loop: one fetch, extract, classify, commit
// and emit cycle per configured symbol on every tick.
package poller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	qterrors "quote-tracker/internal/errors"
	"quote-tracker/internal/logging"
	"quote-tracker/internal/models"
	"quote-tracker/internal/notify"
	"quote-tracker/internal/quote"
	"quote-tracker/internal/store"
	"quote-tracker/internal/valuation"
)

// Mode selects how a tick dispatches its per-symbol cycles.
type Mode int

const (
	// ModeSequential runs cycles one after another in configured order.
	ModeSequential Mode = iota
	// ModeConcurrent runs one goroutine per symbol.
	ModeConcurrent
)

func (m Mode) String() string {
	switch m {
	case ModeConcurrent:
		return "concurrent"
	default:
		return "sequential"
	}
}

// ParseMode parses "sequential" or "concurrent" (also "sync"/"async").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequential", "sync":
		return ModeSequential, nil
	case "concurrent", "async":
		return ModeConcurrent, nil
	default:
		return ModeSequential, fmt.Errorf("%w: %q", qterrors.ErrUnknownMode, s)
	}
}

// Cycle stages reported in CycleError.Stage.
const (
	StageFetch   = "fetch"
	StageExtract = "extract"
	StageStore   = "store"
	StagePanic   = "panic"
)

// Config holds coordinator settings.
type Config struct {
	Symbols  []models.Symbol
	Interval time.Duration
	Mode     Mode
	// WaitForTick makes a concurrent tick finish every cycle before the
	// coordinator sleeps. Off by default: dispatch is fire-and-forget.
	WaitForTick bool
	// MaxConcurrency caps in-flight cycles per concurrent tick (0 = unlimited).
	MaxConcurrency int
}

// Coordinator runs the polling loop over a fixed symbol set.
type Coordinator struct {
	cfg       Config
	fetcher   quote.Fetcher
	extractor quote.Extractor
	store     store.ValuationStore
	sink      notify.Sink
	logger    zerolog.Logger
	now       func() time.Time

	// One flag per configured key; the map is never written after New.
	inflight map[string]*atomic.Bool
	ticks    atomic.Uint64
	pending  sync.WaitGroup
}

// New creates a coordinator. A nil sink discards observations.
func New(cfg Config, fetcher quote.Fetcher, extractor quote.Extractor, st store.ValuationStore, sink notify.Sink, logger zerolog.Logger) (*Coordinator, error) {
	if len(cfg.Symbols) == 0 {
		return nil, qterrors.ErrNoSymbols
	}
	if cfg.Interval <= 0 {
		return nil, qterrors.NewValidationError("interval", cfg.Interval, "must be positive")
	}
	if cfg.MaxConcurrency < 0 {
		return nil, qterrors.NewValidationError("max_concurrency", cfg.MaxConcurrency, "must not be negative")
	}
	if fetcher == nil || extractor == nil || st == nil {
		return nil, qterrors.NewValidationError("collaborators", nil, "fetcher, extractor and store are required")
	}
	if sink == nil {
		sink = notify.NoOpSink{}
	}

	inflight := make(map[string]*atomic.Bool, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		if _, dup := inflight[s.Key]; dup {
			return nil, qterrors.NewValidationError("symbols", s.Code, "duplicate storage key")
		}
		inflight[s.Key] = &atomic.Bool{}
	}

	return &Coordinator{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		store:     st,
		sink:      sink,
		logger:    logging.WithComponent(logger, "poller"),
		now:       time.Now,
		inflight:  inflight,
	}, nil
}

// Run dispatches a tick immediately and then once per interval, measured
// between tick starts, until ctx is cancelled.
//
// In concurrent mode without WaitForTick the coordinator does not wait for
// a tick's cycles before sleeping; a symbol still in flight when the next
// tick starts is skipped for that tick. Once ctx is cancelled Run waits for
// dispatched cycles to finish, so collaborators can be closed after it returns.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info().
		Int("symbols", len(c.cfg.Symbols)).
		Dur("interval", c.cfg.Interval).
		Str("mode", c.cfg.Mode.String()).
		Bool("wait_for_tick", c.cfg.WaitForTick).
		Msg("Polling started")

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		done := c.Tick(ctx)
		if c.cfg.Mode == ModeSequential || c.cfg.WaitForTick {
			select {
			case <-done:
			case <-ctx.Done():
			}
		}

		select {
		case <-ctx.Done():
			c.Wait()
			c.logger.Info().Uint64("ticks", c.ticks.Load()).Msg("Polling stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick dispatches one cycle per configured symbol and returns a channel
// that is closed once every cycle of this tick has finished. Sequential
// ticks complete before Tick returns.
func (c *Coordinator) Tick(ctx context.Context) <-chan struct{} {
	seq := c.ticks.Add(1)
	log := logging.WithTick(c.logger, uuid.NewString(), seq)
	start := c.now()
	done := make(chan struct{})
	c.pending.Add(1)

	log.Debug().Str("mode", c.cfg.Mode.String()).Int("symbols", len(c.cfg.Symbols)).Msg("Tick dispatched")

	if c.cfg.Mode == ModeSequential {
		for _, sym := range c.cfg.Symbols {
			if ctx.Err() != nil {
				break
			}
			c.runCycle(ctx, log, sym)
		}
		log.Debug().Dur("elapsed", time.Since(start)).Msg("Tick complete")
		close(done)
		c.pending.Done()
		return done
	}

	var g errgroup.Group
	if c.cfg.MaxConcurrency > 0 {
		g.SetLimit(c.cfg.MaxConcurrency)
	}
	go func() {
		defer c.pending.Done()
		defer close(done)
		for _, sym := range c.cfg.Symbols {
			sym := sym
			g.Go(func() error {
				c.runCycle(ctx, log, sym)
				return nil
			})
		}
		_ = g.Wait()
		log.Debug().Dur("elapsed", time.Since(start)).Msg("Tick complete")
	}()
	return done
}

// Wait blocks until every tick dispatched so far has finished.
func (c *Coordinator) Wait() {
	c.pending.Wait()
}

// Ticks returns the number of ticks dispatched so far.
func (c *Coordinator) Ticks() uint64 {
	return c.ticks.Load()
}

// runCycle is the per-symbol failure boundary: errors and panics are logged
// here and go no further.
func (c *Coordinator) runCycle(ctx context.Context, log zerolog.Logger, sym models.Symbol) {
	log = logging.WithSymbol(log, sym.Key)

	flag := c.inflight[sym.Key]
	if flag == nil {
		flag = &atomic.Bool{}
	}
	if !flag.CompareAndSwap(false, true) {
		log.Warn().Err(qterrors.ErrCycleInFlight).Msg("Skipping symbol this tick")
		return
	}
	defer flag.Store(false)

	defer func() {
		if r := recover(); r != nil {
			logging.LogCycleFailure(log, sym.Key, StagePanic, fmt.Errorf("panic: %v", r))
		}
	}()

	obs, err := c.Cycle(ctx, sym)
	if err != nil {
		if ctx.Err() != nil && (qterrors.Is(err, ctx.Err()) || qterrors.Is(err, qterrors.ErrStoreClosed)) {
			log.Debug().Err(err).Msg("Cycle abandoned at shutdown")
			return
		}
		stage := "unknown"
		var ce *qterrors.CycleError
		if qterrors.As(err, &ce) {
			stage = ce.Stage
		}
		logging.LogCycleFailure(log, sym.Key, stage, err)
		return
	}
	log.Debug().Str("status", obs.Status.String()).Float64("price", obs.Quote.Price).Msg("Cycle committed")
}

// Cycle performs fetch, extract, classify, commit and emit for one symbol.
// A quote without a price is not committed and yields errors.ErrNoPrice.
func (c *Coordinator) Cycle(ctx context.Context, sym models.Symbol) (models.Observation, error) {
	markup, err := c.fetcher.Fetch(ctx, sym)
	if err != nil {
		return models.Observation{}, qterrors.NewCycleError(sym.Key, StageFetch, err)
	}

	q, err := c.extractor.Extract(markup, sym)
	if err != nil {
		return models.Observation{}, qterrors.NewCycleError(sym.Key, StageExtract, err)
	}
	q.Symbol = sym
	if q.FetchedAt.IsZero() {
		q.FetchedAt = c.now()
	}
	if !q.HasPrice {
		return models.Observation{}, qterrors.NewCycleError(sym.Key, StageExtract, qterrors.ErrNoPrice)
	}

	prior, hasPrior, err := c.store.Previous(ctx, sym.Key)
	if err != nil {
		return models.Observation{}, qterrors.NewCycleError(sym.Key, StageStore, err)
	}

	obs := valuation.Observe(q, prior, hasPrior)
	if err := c.store.Commit(ctx, sym.Key, obs); err != nil {
		return models.Observation{}, qterrors.NewCycleError(sym.Key, StageStore, err)
	}

	c.sink.Emit(obs)
	return obs, nil
}
