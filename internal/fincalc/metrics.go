package fincalc

import (
	"fmt"
	"time"

	"github.com/tmglimp/commas/internal/quote"
)

// Result bundles every analytic derived for one bond in one cycle. Results
// are recomputed each refresh and never persisted across cycles.
type Result struct {
	TimeToMaturity   float64
	AccruedInterest  float64
	CleanPrice       float64
	YieldToMaturity  float64
	ModifiedDuration float64
	MacaulayDuration float64
	DV01             float64
	Convexity        float64
	ApproxDuration   float64
	ApproxConvexity  float64

	// Converged is false when the yield solver returned a best-effort
	// estimate. Downstream treats the result as degraded, not invalid.
	Converged bool
}

// Compute derives the full analytics result for a bond quote, settling
// T+1 from asOf. Bonds missing a required field produce an error and are
// excluded for the cycle.
func Compute(b quote.BondQuote, asOf time.Time) (Result, error) {
	if !b.Complete() {
		return Result{}, fmt.Errorf("bond %d: incomplete quote", b.ConID)
	}

	maturity, err := ParseDate(b.MaturityDate)
	if err != nil {
		return Result{}, fmt.Errorf("bond %d: %w", b.ConID, err)
	}
	begin, err := ParseDate(b.PrevCouponDate)
	if err != nil {
		return Result{}, fmt.Errorf("bond %d: %w", b.ConID, err)
	}
	next, err := ParseDate(b.NextCouponDate)
	if err != nil {
		return Result{}, fmt.Errorf("bond %d: %w", b.ConID, err)
	}

	const (
		period   = 2
		dayCount = DayCountActualActual
	)

	settle := SettlementDate(asOf, 1)
	term := TermYears(settle, maturity)
	marketPrice := (b.AskPrice + b.BidPrice + b.LastPrice) / 3

	ytm, converged := YieldToMaturity(marketPrice, b.FaceValue, b.CouponRate, term, period)

	a := Anchors{Begin: begin, Settle: settle, NextCoupon: next}
	return Result{
		TimeToMaturity:   term,
		AccruedInterest:  AccruedInterest(b.CouponRate, period, a, dayCount),
		CleanPrice:       Price(b.CouponRate, term, ytm, period, a, dayCount),
		YieldToMaturity:  ytm,
		ModifiedDuration: ModifiedDuration(b.CouponRate, term, ytm, period, a, dayCount),
		MacaulayDuration: MacaulayDuration(b.CouponRate, term, ytm, period, a, dayCount),
		DV01:             DV01(b.CouponRate, term, ytm, period, a, dayCount),
		Convexity:        Convexity(b.CouponRate, term, ytm, period, a, dayCount),
		ApproxDuration:   ApproximateDuration(b.CouponRate, term, ytm, period, a, dayCount, 0),
		ApproxConvexity:  ApproximateConvexity(b.CouponRate, term, ytm, period, a, dayCount, 0),
		Converged:        converged,
	}, nil
}
