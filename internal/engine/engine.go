// Package engine coordinates the pipeline: a refresh loop assembles
// immutable market universes and publishes them atomically, while a
// consume loop reacts to each publication by matching, ranking, sizing,
// and submitting. The two loops share nothing but the published pointer
// and a wake-up channel.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tmglimp/commas/internal/ctd"
	"github.com/tmglimp/commas/internal/quote"
	"github.com/tmglimp/commas/internal/sizing"
)

// Snapshot is one published market universe. Snapshots are immutable:
// the refresh loop always builds a fresh one and swaps the pointer.
type Snapshot struct {
	Bonds       []quote.BondQuote
	Futures     []quote.FuturesQuote
	PublishedAt time.Time
}

// UniverseSource assembles the two sides of a snapshot.
type UniverseSource interface {
	BondUniverse(ctx context.Context, size int, asOf time.Time) ([]quote.BondQuote, error)
	FuturesUniverse(ctx context.Context, symbols []string, asOf time.Time) ([]quote.FuturesQuote, error)
}

// CapitalSource reports deployable account equity.
type CapitalSource interface {
	AvailableFunds(ctx context.Context) (decimal.Decimal, error)
}

// OrderSubmitter places a sized combo order.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, inst sizing.OrderInstruction) error
}

// Gate delays a cycle while order capacity is exhausted.
type Gate interface {
	WaitForSlot(ctx context.Context) error
}

// Options tune the engine.
type Options struct {
	RefreshInterval time.Duration
	// LivenessInterval bounds how long the consume loop sleeps without a
	// publication before re-checking its context and the latest snapshot.
	LivenessInterval time.Duration
	Symbols          []string
	UniverseSize     int
	// Leverage scales account equity into deployable capital.
	Leverage float64
	TopPairs int
}

// Engine owns the refresh and consume loops.
type Engine struct {
	opts      Options
	source    UniverseSource
	capital   CapitalSource
	submitter OrderSubmitter
	matcher   *ctd.Matcher
	gate      Gate
	logger    zerolog.Logger

	snapshot   atomic.Pointer[Snapshot]
	lastResult atomic.Pointer[CycleResult]

	// notify wakes the consume loop; capacity one so a publication during
	// a running cycle coalesces instead of queueing.
	notify chan struct{}
}

// New constructs an engine. The capital source and matcher are required;
// submitter and gate may be nil for analysis-only runs.
func New(opts Options, source UniverseSource, capital CapitalSource, submitter OrderSubmitter, matcher *ctd.Matcher, gate Gate, logger zerolog.Logger) (*Engine, error) {
	if opts.RefreshInterval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive, got %s", opts.RefreshInterval)
	}
	if opts.LivenessInterval <= 0 {
		return nil, fmt.Errorf("liveness interval must be positive, got %s", opts.LivenessInterval)
	}
	if len(opts.Symbols) == 0 {
		return nil, fmt.Errorf("at least one futures symbol is required")
	}
	if opts.UniverseSize <= 0 {
		return nil, fmt.Errorf("universe size must be positive, got %d", opts.UniverseSize)
	}
	if opts.Leverage <= 0 {
		return nil, fmt.Errorf("leverage must be positive, got %v", opts.Leverage)
	}
	if opts.TopPairs <= 0 {
		return nil, fmt.Errorf("top pairs must be positive, got %d", opts.TopPairs)
	}
	if source == nil || capital == nil || matcher == nil {
		return nil, fmt.Errorf("universe source, capital source, and matcher are required")
	}

	return &Engine{
		opts:      opts,
		source:    source,
		capital:   capital,
		submitter: submitter,
		matcher:   matcher,
		gate:      gate,
		logger:    logger.With().Str("component", "engine").Logger(),
		notify:    make(chan struct{}, 1),
	}, nil
}

// Snapshot returns the latest published universe, nil before the first
// refresh completes.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// LastResult returns the most recent completed cycle, nil before one
// finishes.
func (e *Engine) LastResult() *CycleResult {
	return e.lastResult.Load()
}

// Run drives both loops until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.refreshLoop(ctx) })
	g.Go(func() error { return e.consumeLoop(ctx) })
	return g.Wait()
}

// refreshLoop periodically rebuilds the universes and publishes them.
// A failed side keeps its previous universe so one bad fetch never
// empties the book.
func (e *Engine) refreshLoop(ctx context.Context) error {
	for {
		e.refresh(ctx)

		timer := time.NewTimer(e.opts.RefreshInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (e *Engine) refresh(ctx context.Context) {
	asOf := time.Now().UTC()

	var bonds []quote.BondQuote
	var futures []quote.FuturesQuote

	g, fetchCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bonds, err = e.source.BondUniverse(fetchCtx, e.opts.UniverseSize, asOf)
		return err
	})
	g.Go(func() error {
		var err error
		futures, err = e.source.FuturesUniverse(fetchCtx, e.opts.Symbols, asOf)
		return err
	})
	err := g.Wait()

	prev := e.snapshot.Load()
	if err != nil {
		e.logger.Warn().Err(err).Msg("universe refresh degraded")
		if prev == nil {
			return
		}
		if bonds == nil {
			bonds = prev.Bonds
		}
		if futures == nil {
			futures = prev.Futures
		}
	}
	if len(bonds) == 0 || len(futures) == 0 {
		e.logger.Warn().Int("bonds", len(bonds)).Int("futures", len(futures)).
			Msg("refusing to publish an empty universe")
		return
	}

	e.snapshot.Store(&Snapshot{Bonds: bonds, Futures: futures, PublishedAt: asOf})
	e.logger.Debug().Int("bonds", len(bonds)).Int("futures", len(futures)).Msg("universe published")

	select {
	case e.notify <- struct{}{}:
	default:
	}
}

// consumeLoop runs one cycle per publication. The liveness timer keeps
// the loop responsive when publications stall.
func (e *Engine) consumeLoop(ctx context.Context) error {
	timer := time.NewTimer(e.opts.LivenessInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.notify:
		case <-timer.C:
		}
		timer.Reset(e.opts.LivenessInterval)

		snap := e.snapshot.Load()
		if snap == nil {
			continue
		}
		result, err := e.RunCycle(ctx, snap)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Error().Err(err).Msg("cycle failed")
			continue
		}
		e.lastResult.Store(result)
	}
}
