package fincalc

import "math"

const (
	ytmTolerance     = 1e-8
	ytmMaxIterations = 1000
	ytmDerivStep     = 1e-5
	ytmDerivFloor    = 1e-12
)

// YieldToMaturity solves for the annual yield equating the bond's
// discounted cash flows to the market price, by Newton-Raphson with a
// central-difference derivative. The coupon rate seeds the iteration.
//
// The second return value reports convergence. On non-convergence the best
// available estimate is still returned; callers must treat it as a
// degraded-confidence figure, not an error. The solver also bails out with
// the current estimate when the derivative magnitude drops below 1e-12,
// which guards the division near turning points.
func YieldToMaturity(marketPrice, faceValue, couponPct, term float64, period int) (float64, bool) {
	target := marketPrice / 100 * faceValue
	rate := couponPct / 100
	coupon := faceValue * rate / float64(period)
	n := int(term * float64(period))

	pv := func(y float64) float64 {
		per := 1 + y/float64(period)
		v := 0.0
		for t := 1; t <= n; t++ {
			v += coupon / math.Pow(per, float64(t))
		}
		return v + faceValue/math.Pow(per, float64(n))
	}

	y := rate
	for i := 0; i < ytmMaxIterations; i++ {
		deriv := (pv(y+ytmDerivStep) - pv(y-ytmDerivStep)) / (2 * ytmDerivStep)
		if math.Abs(deriv) < ytmDerivFloor {
			return y, false
		}
		next := y - (pv(y)-target)/deriv
		if math.Abs(next-y) < ytmTolerance {
			return next, true
		}
		y = next
	}
	return y, false
}
