// Package fincalc implements closed-form fixed income analytics for
// level-coupon bonds: price, accrued interest, modified and Macaulay
// duration, DV01, convexity, and their finite-difference cross-checks.
//
// Conventions follow standard US Treasury quoting: coupons are annual
// percentages (4.5 for 4.5%), yields are decimals (0.038), prices are per
// 100 face. All closed forms carry both an on-coupon-date variant and an
// accrual-adjusted variant selected by the presence of anchor dates.
package fincalc

import "math"

// Day count conventions for the accrual period.
const (
	DayCountActualActual = 1
	DayCount30360        = 0
)

// DefaultYieldBump is the symmetric yield shift used by the
// finite-difference duration and convexity estimates (1 basis point).
const DefaultYieldBump = 0.0001

// AccrualPeriod returns the fraction of the current coupon period elapsed
// between the last coupon date and settlement. Under actual/actual the
// elapsed days are normalized by the days in the full coupon period; under
// 30/360 the day count is normalized by a 180-day half year. NextCoupon
// falls back to the settlement date when absent.
func AccrualPeriod(a Anchors, dayCount int) float64 {
	if dayCount == DayCountActualActual {
		next := a.NextCoupon
		if next.IsZero() {
			next = a.Settle
		}
		elapsed := next.Sub(a.Begin).Hours() / 24
		if elapsed == 0 {
			return 0
		}
		return a.Settle.Sub(a.Begin).Hours() / 24 / elapsed
	}
	ly, lm, ld := a.Begin.Date()
	sy, sm, sd := a.Settle.Date()
	return float64(360*(sy-ly)+30*(int(sm)-int(lm))+sd-ld) / 180
}

// AccruedInterest is the coupon interest earned since the last payment but
// not yet paid out.
func AccruedInterest(cpn float64, period int, a Anchors, dayCount int) float64 {
	return cpn / float64(period) * AccrualPeriod(a, dayCount)
}

// Price returns the bond price per 100 face at the given annual yield.
// With complete anchors the on-coupon price is carried forward into the
// coupon period using the standard intra-period scaling
// (1+y)^v * P - v*C.
func Price(cpn, term, yld float64, period int, a Anchors, dayCount int) float64 {
	T := term * float64(period)
	c := cpn / float64(period)
	y := yld / float64(period)

	price := c*(1-math.Pow(1+y, -T))/y + 100/math.Pow(1+y, T)

	if a.Complete() {
		v := AccrualPeriod(a, dayCount)
		price = math.Pow(1+y, v)*price - v*c
	}
	return price
}

// ModifiedDuration is the first derivative of Price with respect to yield,
// scaled by price, in years.
func ModifiedDuration(cpn, term, yld float64, period int, a Anchors, dayCount int) float64 {
	T := term * float64(period)
	c := cpn / float64(period)
	y := yld / float64(period)
	p := Price(cpn, term, yld, period, a, dayCount)

	var mdur float64
	if a.Complete() {
		v := AccrualPeriod(a, dayCount)
		p = math.Pow(1+y, v) * p
		mdur = -v*math.Pow(1+y, v-1)*c/y*(1-math.Pow(1+y, -T)) +
			math.Pow(1+y, v)*(c/math.Pow(y, 2)*(1-math.Pow(1+y, -T))-
				T*c/(y*math.Pow(1+y, T+1))+
				(T-v)*100/math.Pow(1+y, T+1))
	} else {
		mdur = c/math.Pow(y, 2)*(1-math.Pow(1+y, -T)) +
			T*(100-c/y)/math.Pow(1+y, T+1)
	}
	return mdur / (float64(period) * p)
}

// MacaulayDuration is the present-value weighted average time to the
// bond's cash flows, in years.
func MacaulayDuration(cpn, term, yld float64, period int, a Anchors, dayCount int) float64 {
	return ModifiedDuration(cpn, term, yld, period, a, dayCount) * (1 + yld/float64(period))
}

// DV01 is the dollar price change per 100 face for a one basis point yield
// move.
func DV01(cpn, term, yld float64, period int, a Anchors, dayCount int) float64 {
	p := Price(cpn, term, yld, period, a, dayCount)
	return ModifiedDuration(cpn, term, yld, period, a, dayCount) * p * 0.0001
}

// Convexity is the curvature of the price-yield relationship. The base
// price for the accrual-adjusted form is the on-coupon price carried
// forward, matching the adjusted duration form.
func Convexity(cpn, term, yld float64, period int, a Anchors, dayCount int) float64 {
	T := term * float64(period)
	c := cpn / float64(period)
	y := yld / float64(period)
	p := Price(cpn, term, yld, period, Anchors{}, dayCount)

	var dcv float64
	if a.Complete() {
		v := AccrualPeriod(a, dayCount)
		p = math.Pow(1+y, v) * p
		dcv = -v*(v-1)*math.Pow(1+y, v-2)*c/y*(1-math.Pow(1+y, -T)) -
			2*v*math.Pow(1+y, v-1)*(c/math.Pow(y, 2)*(1-math.Pow(1+y, -T))-
				T*c/(y*math.Pow(1+y, T+1))) -
			math.Pow(1+y, v)*(-c/math.Pow(y, 3)*(1-math.Pow(1+y, -T))+
				2*T*c/(math.Pow(y, 2)*math.Pow(1+y, T+1))+
				T*(T+1)*c/(y*math.Pow(1+y, T+2))) +
			(T-v)*(T+1)*100/math.Pow(1+y, T+2-v)
	} else {
		dcv = 2*c/math.Pow(y, 3)*(1-math.Pow(1+y, -T)) -
			2*T*c/(math.Pow(y, 2)*math.Pow(1+y, T+1)) +
			T*(T+1)*(100-c/y)/math.Pow(1+y, T+2)
	}
	return dcv / (p * float64(period) * float64(period))
}

// ApproximateDuration estimates duration by symmetric finite difference.
// It is numerically independent of the closed forms and is the value fed
// downstream. A non-positive bump selects DefaultYieldBump.
func ApproximateDuration(cpn, term, yld float64, period int, a Anchors, dayCount int, bump float64) float64 {
	if bump <= 0 {
		bump = DefaultYieldBump
	}
	p := Price(cpn, term, yld, period, a, dayCount)
	up := Price(cpn, term, yld+bump, period, a, dayCount)
	down := Price(cpn, term, yld-bump, period, a, dayCount)
	return (down - up) / (2 * p * bump)
}

// ApproximateConvexity estimates convexity by symmetric finite difference.
func ApproximateConvexity(cpn, term, yld float64, period int, a Anchors, dayCount int, bump float64) float64 {
	if bump <= 0 {
		bump = DefaultYieldBump
	}
	p := Price(cpn, term, yld, period, a, dayCount)
	up := Price(cpn, term, yld+bump, period, a, dayCount)
	down := Price(cpn, term, yld-bump, period, a, dayCount)
	return (down + up - 2*p) / (p * bump * bump)
}
