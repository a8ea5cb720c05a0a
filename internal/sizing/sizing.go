// Package sizing turns ranked basis pairs into DV01-neutral hedge
// quantities under a capital cap, and renders the resulting combo order
// instructions.
package sizing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/tmglimp/commas/internal/rank"
)

// CapitalCapRatio bounds the aggregate notional deployed across all
// pairs to a fraction of available capital.
const CapitalCapRatio = 0.9

// multiplierFactor scales a leg's hedge ratio by its contract size. Only
// the two Treasury futures contract sizes are deliverable here; anything
// else is a product configuration fault.
func multiplierFactor(multiplier float64) (float64, error) {
	switch multiplier {
	case 1000:
		return 1, nil
	case 2000:
		return 0.5, nil
	default:
		return 0, fmt.Errorf("unsupported contract multiplier %v", multiplier)
	}
}

// Ratios computes the DV01-neutral front and back hedge ratios for one
// pair from the legs' futures-implied DV01s. Each leg's ratio carries
// the opposite leg's DV01 normalized by the pair average and scaled by
// that leg's contract-size factor.
func Ratios(frontMult, backMult, frontDV01, backDV01 float64) (float64, float64, error) {
	ff, err := multiplierFactor(frontMult)
	if err != nil {
		return 0, 0, err
	}
	bf, err := multiplierFactor(backMult)
	if err != nil {
		return 0, 0, err
	}
	avg := (frontDV01 + backDV01) / 2
	if avg == 0 {
		return 0, 0, fmt.Errorf("degenerate pair: both legs have zero dv01")
	}
	return bf * backDV01 / avg, ff * frontDV01 / avg, nil
}

// Apply sizes every pair in place: raw DV01-neutral ratios, a
// proportional scale-down when the aggregate notional exceeds the
// capital cap, a common-divisor reduction taken from the first pair, and
// the quantity-adjusted net basis fields the ranking consumes.
func Apply(pairs []*rank.Pair, capital float64) error {
	if capital <= 0 {
		return fmt.Errorf("available capital must be positive, got %v", capital)
	}
	if len(pairs) == 0 {
		return nil
	}

	for _, p := range pairs {
		fq, bq, err := Ratios(p.Front.Multiplier, p.Back.Multiplier, p.Front.ImpliedDV01, p.Back.ImpliedDV01)
		if err != nil {
			return fmt.Errorf("pair %d/%d: %w", p.Front.FuturesConID, p.Back.FuturesConID, err)
		}
		p.FrontQty = fq
		p.BackQty = bq
	}

	var total float64
	for _, p := range pairs {
		total += p.FrontQty*p.Front.Multiplier*p.Front.ImpliedPrice +
			p.BackQty*p.Back.Multiplier*p.Back.ImpliedPrice
	}
	if limit := CapitalCapRatio * capital; total >= limit && total > 0 {
		scale := limit / total
		for _, p := range pairs {
			p.FrontQty *= scale
			p.BackQty *= scale
		}
	}

	// The first pair in build order donates the common divisor; a shared
	// factor there tends to be shared across the set.
	g := gcd(int64(math.Floor(pairs[0].FrontQty)), int64(math.Floor(pairs[0].BackQty)))
	if g > 1 {
		for _, p := range pairs {
			p.FrontQty = math.Floor(p.FrontQty / float64(g))
			p.BackQty = math.Floor(p.BackQty / float64(g))
		}
	}
	if g < 1 {
		g = 1
	}

	for _, p := range pairs {
		p.UnitQty = float64(g)
		p.FrontAdjNetBasis = p.Front.NetBasis * p.FrontQty
		p.BackAdjNetBasis = p.Back.NetBasis * p.BackQty
		p.PairsAdjNetBasis = p.FrontAdjNetBasis + p.BackAdjNetBasis
	}
	return nil
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// OrderInstruction is one two-legged combo order ready for submission.
// The leg carrying the larger adjusted net basis is sold, so a negative
// ratio marks the short leg. An exact tie leaves both legs long.
type OrderInstruction struct {
	FrontConID int64
	FrontRatio float64
	BackConID  int64
	BackRatio  float64
	Quantity   int
	LimitPrice decimal.Decimal
}

// Orders renders instructions for the first n ranked pairs. The limit
// price targets half the pair's adjusted net basis, credited to the
// buyer, rounded to five decimals.
func Orders(ranked []*rank.Pair, n int) []OrderInstruction {
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]OrderInstruction, 0, n)
	for _, p := range ranked[:n] {
		inst := OrderInstruction{
			FrontConID: p.Front.FuturesConID,
			FrontRatio: p.FrontQty,
			BackConID:  p.Back.FuturesConID,
			BackRatio:  p.BackQty,
			Quantity:   int(p.UnitQty),
			LimitPrice: decimal.NewFromFloat(-0.5 * p.PairsAdjNetBasis).Round(5),
		}
		if inst.Quantity < 1 {
			inst.Quantity = 1
		}
		diff := p.FrontAdjNetBasis - p.BackAdjNetBasis
		if diff > 0 {
			inst.FrontRatio = -inst.FrontRatio
		}
		if diff < 0 {
			inst.BackRatio = -inst.BackRatio
		}
		out = append(out, inst)
	}
	return out
}
