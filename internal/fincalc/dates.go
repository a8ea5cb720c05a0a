package fincalc

import (
	"fmt"
	"time"
)

const dateLayout = "20060102"

// daysPerYear is the actual/actual (ISDA) year length used for terms.
const daysPerYear = 365.25

// Anchors carry the accrual dates bracketing a settlement. A zero value
// means "on a coupon date": the closed forms then skip the intra-period
// adjustment.
type Anchors struct {
	Begin      time.Time // last coupon date
	Settle     time.Time
	NextCoupon time.Time
}

// Complete reports whether all three anchor dates are set.
func (a Anchors) Complete() bool {
	return !a.Begin.IsZero() && !a.Settle.IsZero() && !a.NextCoupon.IsZero()
}

// ParseDate parses a YYYYMMDD date string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a date as YYYYMMDD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// TermYears returns the time between settlement and maturity in years
// under the actual/actual day count.
func TermYears(settle, maturity time.Time) float64 {
	return maturity.Sub(settle).Hours() / 24 / daysPerYear
}

// SettlementDate advances the trade date by tPlus business days, skipping
// weekends.
func SettlementDate(trade time.Time, tPlus int) time.Time {
	settle := trade
	for added := 0; added < tPlus; {
		settle = settle.AddDate(0, 0, 1)
		if wd := settle.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return settle
}
