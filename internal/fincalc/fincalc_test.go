package fincalc

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceOnCouponDate(t *testing.T) {
	p := Price(4.5, 9.5, 0.038, 2, Anchors{}, DayCountActualActual)
	assert.InDelta(t, 105.5384, p, 0.05)

	mdur := ModifiedDuration(4.5, 9.5, 0.038, 2, Anchors{}, DayCountActualActual)
	assert.InDelta(t, 7.7398, mdur, 0.1)

	macdur := MacaulayDuration(4.5, 9.5, 0.038, 2, Anchors{}, DayCountActualActual)
	assert.InDelta(t, 7.8869, macdur, 0.1)
}

func TestPriceAtParWhenYieldEqualsCoupon(t *testing.T) {
	p := Price(6.0, 10, 0.06, 2, Anchors{}, DayCountActualActual)
	assert.InDelta(t, 100.0, p, 1e-9)
}

func TestPriceMonotonicInYield(t *testing.T) {
	for _, term := range []float64{0.5, 2, 7.25, 19.5, 30} {
		for _, cpn := range []float64{0.25, 2.5, 4.5, 8} {
			prev := math.Inf(1)
			for y := 0.001; y < 0.16; y += 0.0025 {
				p := Price(cpn, term, y, 2, Anchors{}, DayCountActualActual)
				require.Lessf(t, p, prev, "price not decreasing at cpn=%v term=%v y=%v", cpn, term, y)
				prev = p
			}
		}
	}
}

func TestDV01MatchesCentralDifference(t *testing.T) {
	for _, y := range []float64{0.01, 0.038, 0.07, 0.12} {
		dv01 := DV01(4.5, 9.5, y, 2, Anchors{}, DayCountActualActual)
		up := Price(4.5, 9.5, y+0.0001, 2, Anchors{}, DayCountActualActual)
		down := Price(4.5, 9.5, y-0.0001, 2, Anchors{}, DayCountActualActual)
		fd := (down - up) / 2
		assert.InEpsilon(t, fd, dv01, 1e-6)

		// The finite-difference duration has to agree with the closed form
		// at the same tolerance scale.
		aprx := ApproximateDuration(4.5, 9.5, y, 2, Anchors{}, DayCountActualActual, 0)
		mdur := ModifiedDuration(4.5, 9.5, y, 2, Anchors{}, DayCountActualActual)
		assert.InDelta(t, mdur, aprx, 1e-4)
	}
}

func TestApproximateConvexityPositive(t *testing.T) {
	cvx := ApproximateConvexity(4.5, 9.5, 0.038, 2, Anchors{}, DayCountActualActual, 0)
	assert.Greater(t, cvx, 0.0)
	closed := Convexity(4.5, 9.5, 0.038, 2, Anchors{}, DayCountActualActual)
	assert.InDelta(t, closed, cvx, 0.01)
}

func TestYieldToMaturityRoundTrip(t *testing.T) {
	for y := 0.005; y < 0.15; y += 0.01 {
		price := Price(4.5, 10, y, 2, Anchors{}, DayCountActualActual)
		got, converged := YieldToMaturity(price, 100, 4.5, 10, 2)
		require.True(t, converged, "solver did not converge at y=%v", y)
		assert.InDelta(t, y, got, 1e-4)
	}
}

func TestYieldToMaturityNonConvergenceReturnsEstimate(t *testing.T) {
	// A zero-term bond has no cash flows to discount; the derivative is
	// flat so the solver must bail out with its current estimate rather
	// than divide by it.
	got, converged := YieldToMaturity(100, 100, 4.5, 0, 2)
	assert.False(t, converged)
	assert.InDelta(t, 0.045, got, 1e-9)
}

func TestAccrualPeriodActualActual(t *testing.T) {
	begin := time.Date(2018, 8, 15, 0, 0, 0, 0, time.UTC)
	settle := time.Date(2018, 10, 5, 0, 0, 0, 0, time.UTC)
	next := time.Date(2019, 2, 15, 0, 0, 0, 0, time.UTC)
	v := AccrualPeriod(Anchors{Begin: begin, Settle: settle, NextCoupon: next}, DayCountActualActual)
	assert.InDelta(t, 51.0/184.0, v, 1e-12)
}

func TestAccrualPeriod30360(t *testing.T) {
	begin := time.Date(2018, 8, 15, 0, 0, 0, 0, time.UTC)
	settle := time.Date(2018, 10, 5, 0, 0, 0, 0, time.UTC)
	v := AccrualPeriod(Anchors{Begin: begin, Settle: settle}, DayCount30360)
	assert.InDelta(t, (30.0*2-10)/180, v, 1e-12)
}

func TestDirtyPriceAdjustment(t *testing.T) {
	begin := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	settle := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	next := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)
	a := Anchors{Begin: begin, Settle: settle, NextCoupon: next}

	clean := Price(4.5, 9.5, 0.038, 2, Anchors{}, DayCountActualActual)
	adjusted := Price(4.5, 9.5, 0.038, 2, a, DayCountActualActual)

	v := AccrualPeriod(a, DayCountActualActual)
	want := math.Pow(1.019, v)*clean - v*2.25
	assert.InDelta(t, want, adjusted, 1e-12)
	assert.NotEqual(t, clean, adjusted)
}

func TestSettlementDateSkipsWeekend(t *testing.T) {
	friday := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	got := SettlementDate(friday, 1)
	assert.Equal(t, time.Monday, got.Weekday())
	assert.Equal(t, "20260831", FormatDate(got))
}

func TestTermYears(t *testing.T) {
	settle := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	maturity := settle.AddDate(2, 0, 0)
	assert.InDelta(t, 2.0, TermYears(settle, maturity), 0.01)
}
