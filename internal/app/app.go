package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tmglimp/commas/internal/broker"
	"github.com/tmglimp/commas/internal/config"
	"github.com/tmglimp/commas/internal/ctd"
	"github.com/tmglimp/commas/internal/engine"
	"github.com/tmglimp/commas/internal/ratelimit"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newBucket() (*ratelimit.Bucket, error) {
	return ratelimit.NewBucket(ratelimit.Options{
		Capacity:     a.Config.RateLimit.Capacity,
		RefillAmount: a.Config.RateLimit.RefillAmount,
		Interval:     a.Config.RateLimit.Interval,
	}, a.Logger)
}

func (a *App) newBroker(limiter broker.Limiter) *broker.Client {
	return broker.New(broker.Options{
		BaseURL:   a.Config.Broker.BaseURL,
		AccountID: a.Config.Broker.AccountID,
		Timeout:   a.Config.Broker.RequestTimeout,
		UserAgent: a.Config.Broker.UserAgent,
		Insecure:  a.Config.Broker.Insecure,
	}, limiter, a.Logger)
}

func (a *App) newMatcher() (*ctd.Matcher, error) {
	return ctd.NewMatcher(a.Config.Brackets(), a.Logger)
}

func (a *App) engineOptions() engine.Options {
	return engine.Options{
		RefreshInterval:  a.Config.Pipeline.RefreshInterval,
		LivenessInterval: a.Config.Pipeline.LivenessInterval,
		Symbols:          a.Config.Symbols(),
		UniverseSize:     a.Config.Pipeline.UniverseSize,
		Leverage:         a.Config.Pipeline.Leverage,
		TopPairs:         a.Config.Pipeline.TopPairs,
	}
}

// Run executes the long-running trading pipeline.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bucket, err := a.newBucket()
	if err != nil {
		return err
	}
	client := a.newBroker(bucket)

	gate, err := ratelimit.NewOrderGate(ratelimit.GateOptions{
		MaxActive:    a.Config.Orders.MaxActive,
		PollInterval: a.Config.Orders.PollInterval,
	}, client, a.Logger)
	if err != nil {
		return err
	}

	matcher, err := a.newMatcher()
	if err != nil {
		return err
	}
	eng, err := engine.New(a.engineOptions(), client, client, client, matcher, gate, a.Logger)
	if err != nil {
		return err
	}

	a.Logger.Info().Msg("starting trading pipeline")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bucket.Run(ctx) })
	g.Go(func() error { return eng.Run(ctx) })

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("pipeline terminated with error")
		return err
	}

	a.Logger.Info().Msg("trading pipeline stopped")
	return nil
}
