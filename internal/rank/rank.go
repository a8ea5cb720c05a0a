// Package rank builds the cross product of cheapest-to-deliver legs into
// candidate pairs, attaches basis and liquidity metrics, and orders the
// pairs by their liquidity-weighted adjusted net basis.
package rank

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tmglimp/commas/internal/ctd"
	"github.com/tmglimp/commas/internal/fincalc"
)

// financingDayBasis is the money-market day basis for annualizing the
// implied repo rate.
const financingDayBasis = 360

// Leg is one futures contract with its matched deliverable bond and the
// analytics a pairing decision needs. Analytics use the on-coupon closed
// forms on the bond's own terms: the leg carries coupon anchors but no
// settlement, so carry is priced through the basis terms instead of a
// dirty price. The Implied fields are those values divided by the
// conversion factor, restating the deliverable in futures-contract units.
type Leg struct {
	ctd.Candidate

	// FairPrice is the closed-form value of the deliverable at its
	// quoted yield, per 100 face.
	FairPrice        float64
	ModifiedDuration float64
	MacaulayDuration float64
	DV01             float64
	Convexity        float64
	ApproxDuration   float64
	ApproxConvexity  float64

	ImpliedPrice            float64
	ImpliedModifiedDuration float64
	ImpliedMacaulayDuration float64
	ImpliedDV01             float64
	ImpliedApproxDuration   float64
	ImpliedApproxConvexity  float64

	DaysToMaturity float64

	RepoRate  float64
	RepoValid bool

	GrossBasis     float64
	ConvexityYield float64
	NetBasis       float64
}

// NewLeg derives the pairing analytics for a matched candidate as of the
// given cycle time.
func NewLeg(c ctd.Candidate, asOf time.Time) (Leg, error) {
	maturity, err := fincalc.ParseDate(c.MaturityDate)
	if err != nil {
		return Leg{}, fmt.Errorf("candidate %s: %w", c.CUSIP, err)
	}
	begin, err := fincalc.ParseDate(c.PrevCouponDate)
	if err != nil {
		return Leg{}, fmt.Errorf("candidate %s: %w", c.CUSIP, err)
	}
	next, err := fincalc.ParseDate(c.NextCouponDate)
	if err != nil {
		return Leg{}, fmt.Errorf("candidate %s: %w", c.CUSIP, err)
	}
	if c.Factor <= 0 {
		return Leg{}, fmt.Errorf("candidate %s: conversion factor %v is not positive", c.CUSIP, c.Factor)
	}

	const period = 2
	a := fincalc.Anchors{Begin: begin, NextCoupon: next}

	leg := Leg{
		Candidate:        c,
		FairPrice:        fincalc.Price(c.Coupon, c.YearsToMaturity, c.BondYield, period, a, fincalc.DayCountActualActual),
		ModifiedDuration: fincalc.ModifiedDuration(c.Coupon, c.YearsToMaturity, c.BondYield, period, a, fincalc.DayCountActualActual),
		MacaulayDuration: fincalc.MacaulayDuration(c.Coupon, c.YearsToMaturity, c.BondYield, period, a, fincalc.DayCountActualActual),
		DV01:             fincalc.DV01(c.Coupon, c.YearsToMaturity, c.BondYield, period, a, fincalc.DayCountActualActual),
		Convexity:        fincalc.Convexity(c.Coupon, c.YearsToMaturity, c.BondYield, period, a, fincalc.DayCountActualActual),
		ApproxDuration:   fincalc.ApproximateDuration(c.Coupon, c.YearsToMaturity, c.BondYield, period, a, fincalc.DayCountActualActual, 0),
		ApproxConvexity:  fincalc.ApproximateConvexity(c.Coupon, c.YearsToMaturity, c.BondYield, period, a, fincalc.DayCountActualActual, 0),
		DaysToMaturity:   maturity.Sub(asOf).Hours() / 24,
	}

	leg.ImpliedPrice = leg.FairPrice / c.Factor
	leg.ImpliedModifiedDuration = leg.ModifiedDuration / c.Factor
	leg.ImpliedMacaulayDuration = leg.MacaulayDuration / c.Factor
	leg.ImpliedDV01 = leg.DV01 / c.Factor
	leg.ImpliedApproxDuration = leg.ApproxDuration / c.Factor
	leg.ImpliedApproxConvexity = leg.ApproxConvexity / c.Factor

	if leg.DaysToMaturity > 0 && c.BondPrice > 0 {
		leg.RepoRate = (leg.ImpliedPrice - c.BondPrice) / c.BondPrice *
			(financingDayBasis / leg.DaysToMaturity)
		leg.RepoValid = true
	}

	leg.GrossBasis = leg.ImpliedPrice - c.BondPrice
	leg.ConvexityYield = leg.ImpliedApproxConvexity / 100 * (leg.ImpliedPrice - c.BondPrice)
	leg.NetBasis = leg.GrossBasis + leg.ConvexityYield
	return leg, nil
}

// Pair is an ordered front/back combination of two legs. Quantity and
// adjusted-basis fields are zero until sizing runs; Score is zero until
// Rank runs.
type Pair struct {
	Front Leg
	Back  Leg

	FrontQty float64
	BackQty  float64
	UnitQty  float64

	FrontAdjNetBasis float64
	BackAdjNetBasis  float64
	PairsAdjNetBasis float64

	// Liquidity is the mean z-score of the legs' log traded volume
	// across the pair set.
	Liquidity float64
	Score     float64
}

// BuildPairs forms every ordered combination of distinct legs. Pairings
// whose legs deliver the same bond are excluded. Liquidity z-scores are
// computed across the resulting set, per column.
func BuildPairs(legs []Leg) []*Pair {
	var pairs []*Pair
	for i, front := range legs {
		for j, back := range legs {
			if i == j || front.BondConID == back.BondConID {
				continue
			}
			pairs = append(pairs, &Pair{Front: front, Back: back})
		}
	}
	attachLiquidity(pairs)
	return pairs
}

// attachLiquidity scores each pair by the mean column z-score of
// ln(volume). Volumes below one are clamped so the log stays finite; a
// degenerate column with zero variance scores zero.
func attachLiquidity(pairs []*Pair) {
	if len(pairs) == 0 {
		return
	}
	front := make([]float64, len(pairs))
	back := make([]float64, len(pairs))
	for i, p := range pairs {
		front[i] = math.Log(math.Max(p.Front.Volume, 1))
		back[i] = math.Log(math.Max(p.Back.Volume, 1))
	}
	fz := zscores(front)
	bz := zscores(back)
	for i, p := range pairs {
		p.Liquidity = (fz[i] + bz[i]) / 2
	}
}

func zscores(xs []float64) []float64 {
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var variance float64
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	sd := math.Sqrt(variance / float64(len(xs)))

	out := make([]float64, len(xs))
	if sd == 0 {
		return out
	}
	for i, x := range xs {
		out[i] = (x - mean) / sd
	}
	return out
}

// Rank scores every pair as its adjusted net basis weighted by liquidity
// and sorts descending. The sort is stable so equal scores keep build
// order.
func Rank(pairs []*Pair) {
	for _, p := range pairs {
		p.Score = p.PairsAdjNetBasis * p.Liquidity
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Score > pairs[j].Score
	})
}

// Top returns the first n ranked pairs, fewer when the set is smaller.
func Top(pairs []*Pair, n int) []*Pair {
	if n > len(pairs) {
		n = len(pairs)
	}
	if n < 0 {
		n = 0
	}
	return pairs[:n]
}
