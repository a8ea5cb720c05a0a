package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/tmglimp/commas/internal/rank"
	"github.com/tmglimp/commas/internal/sizing"
)

// CycleResult is the outcome of one match-rank-size pass over a
// snapshot. Ranked holds every surviving pair in score order; Orders
// holds the instructions rendered for the top pairs, of which only the
// first is submitted.
type CycleResult struct {
	Ranked  []*rank.Pair
	Orders  []sizing.OrderInstruction
	Capital float64
	At      time.Time
}

// RunCycle executes one full pass over the given snapshot. Per-contract
// failures are logged and skipped; only systemic failures abort the
// cycle.
func (e *Engine) RunCycle(ctx context.Context, snap *Snapshot) (*CycleResult, error) {
	if e.gate != nil {
		if err := e.gate.WaitForSlot(ctx); err != nil {
			return nil, err
		}
	}

	funds, err := e.capital.AvailableFunds(ctx)
	if err != nil {
		return nil, fmt.Errorf("capital lookup: %w", err)
	}
	capital := funds.InexactFloat64() * e.opts.Leverage

	result := &CycleResult{Capital: capital, At: snap.PublishedAt}

	var legs []rank.Leg
	for _, fut := range snap.Futures {
		cand, ok, err := e.matcher.Match(fut, snap.Bonds)
		if err != nil {
			e.logger.Warn().Str("symbol", fut.Symbol).Int64("conid", fut.ConID).Err(err).
				Msg("ctd match failed, dropping contract")
			continue
		}
		if !ok {
			continue
		}
		leg, err := rank.NewLeg(cand, snap.PublishedAt)
		if err != nil {
			e.logger.Warn().Str("symbol", fut.Symbol).Err(err).Msg("leg analytics failed, dropping contract")
			continue
		}
		legs = append(legs, leg)
	}

	pairs := rank.BuildPairs(legs)
	if len(pairs) == 0 {
		e.logger.Info().Int("legs", len(legs)).Msg("no pairable legs this cycle")
		return result, nil
	}

	if err := sizing.Apply(pairs, capital); err != nil {
		return nil, fmt.Errorf("sizing: %w", err)
	}
	rank.Rank(pairs)

	result.Ranked = pairs
	top := rank.Top(pairs, e.opts.TopPairs)
	result.Orders = sizing.Orders(top, len(top))

	if e.submitter == nil || len(result.Orders) == 0 {
		return result, nil
	}

	// The best pair trades; the remaining instructions are standby
	// alternates surfaced for operators.
	if err := e.submitter.SubmitOrder(ctx, result.Orders[0]); err != nil {
		return nil, fmt.Errorf("order submission: %w", err)
	}
	for _, alt := range result.Orders[1:] {
		e.logger.Info().
			Int64("front_conid", alt.FrontConID).
			Int64("back_conid", alt.BackConID).
			Str("limit_price", alt.LimitPrice.String()).
			Msg("alternate pair not submitted")
	}
	return result, nil
}
