// Package ratelimit bounds outbound broker traffic: a leaky token bucket
// paces API calls and an order gate holds new submissions while too many
// working orders are live.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Options tune the token bucket.
type Options struct {
	// Capacity is the burst size; the bucket starts full.
	Capacity int
	// RefillAmount tokens are restored every Interval, up to Capacity.
	RefillAmount int
	Interval     time.Duration
}

// Bucket is a channel-backed token bucket. Waiters block on the token
// channel, so grants resolve in roughly arrival order without a separate
// queue.
type Bucket struct {
	opts   Options
	tokens chan struct{}
	logger zerolog.Logger
}

// NewBucket constructs a full bucket.
func NewBucket(opts Options, logger zerolog.Logger) (*Bucket, error) {
	if opts.Capacity <= 0 {
		return nil, fmt.Errorf("bucket capacity must be positive, got %d", opts.Capacity)
	}
	if opts.RefillAmount <= 0 {
		return nil, fmt.Errorf("refill amount must be positive, got %d", opts.RefillAmount)
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("refill interval must be positive, got %s", opts.Interval)
	}

	b := &Bucket{
		opts:   opts,
		tokens: make(chan struct{}, opts.Capacity),
		logger: logger.With().Str("component", "ratelimit").Logger(),
	}
	for i := 0; i < opts.Capacity; i++ {
		b.tokens <- struct{}{}
	}
	return b, nil
}

// Run refills the bucket until ctx is cancelled. Tokens beyond capacity
// are discarded.
func (b *Bucket) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.opts.Interval)
	defer ticker.Stop()

	b.logger.Info().
		Int("capacity", b.opts.Capacity).
		Int("refill", b.opts.RefillAmount).
		Dur("interval", b.opts.Interval).
		Msg("token bucket running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.refill()
		}
	}
}

func (b *Bucket) refill() {
	for i := 0; i < b.opts.RefillAmount; i++ {
		select {
		case b.tokens <- struct{}{}:
		default:
			return
		}
	}
}

// Acquire blocks until a token is available or ctx is cancelled.
func (b *Bucket) Acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}

// TryAcquire takes a token without blocking.
func (b *Bucket) TryAcquire() bool {
	select {
	case <-b.tokens:
		return true
	default:
		return false
	}
}

// Available reports the tokens currently grantable without waiting.
func (b *Bucket) Available() int {
	return len(b.tokens)
}
