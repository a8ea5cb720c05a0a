package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ActiveOrderCounter reports how many orders are currently working at the
// broker.
type ActiveOrderCounter interface {
	ActiveOrderCount(ctx context.Context) (int, error)
}

// GateOptions tune the order gate.
type GateOptions struct {
	// MaxActive is the working-order count at or above which new
	// submissions wait.
	MaxActive    int
	PollInterval time.Duration
}

// OrderGate delays order submission while the broker reports too many
// working orders.
type OrderGate struct {
	opts    GateOptions
	counter ActiveOrderCounter
	logger  zerolog.Logger
}

// NewOrderGate constructs a gate over the given counter.
func NewOrderGate(opts GateOptions, counter ActiveOrderCounter, logger zerolog.Logger) (*OrderGate, error) {
	if opts.MaxActive <= 0 {
		return nil, fmt.Errorf("max active orders must be positive, got %d", opts.MaxActive)
	}
	if opts.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", opts.PollInterval)
	}
	if counter == nil {
		return nil, fmt.Errorf("order counter is required")
	}
	return &OrderGate{
		opts:    opts,
		counter: counter,
		logger:  logger.With().Str("component", "order_gate").Logger(),
	}, nil
}

// WaitForSlot blocks until the working-order count drops below the
// limit or ctx is cancelled. Counter errors are logged and retried on
// the next poll rather than aborting the cycle.
func (g *OrderGate) WaitForSlot(ctx context.Context) error {
	for {
		n, err := g.counter.ActiveOrderCount(ctx)
		if err != nil {
			g.logger.Warn().Err(err).Msg("active order count unavailable, retrying")
		} else if n < g.opts.MaxActive {
			return nil
		} else {
			g.logger.Debug().Int("active", n).Int("max", g.opts.MaxActive).Msg("order slots exhausted, waiting")
		}

		timer := time.NewTimer(g.opts.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
