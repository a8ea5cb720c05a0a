// Package ctd selects cheapest-to-deliver candidates: for each futures
// contract it restricts the bond universe to the product's deliverable
// maturity bracket and matches a conversion factor from the product's
// coupon-by-maturity factor grid.
package ctd

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/tmglimp/commas/internal/quote"
)

// Bracket is a product class's deliverable eligibility window. Bonds
// qualify when their years to maturity fall strictly inside
// (MinYears, MaxYears).
type Bracket struct {
	Table    string
	MinYears float64
	MaxYears float64
}

// DefaultBrackets maps the supported Treasury futures classes to their
// deliverable windows.
func DefaultBrackets() map[string]Bracket {
	return map[string]Bracket{
		"ZT":  {Table: "2-Year Note Table", MinYears: 1.75, MaxYears: 2},
		"Z3N": {Table: "3-Year Note Table", MinYears: 2.75, MaxYears: 3},
		"ZF":  {Table: "5-Year Note Table", MinYears: 4.16667, MaxYears: 5.25},
		"ZN":  {Table: "10-Year Note Table", MinYears: 6.5, MaxYears: 10},
		"TN":  {Table: "10-Year Note Table", MinYears: 9.5, MaxYears: 10},
	}
}

// Candidate is a futures contract joined with its matched deliverable
// bond and conversion factor for one cycle.
type Candidate struct {
	FuturesConID int64
	Symbol       string
	FuturesPrice float64
	Multiplier   float64
	Volume       float64

	CUSIP           string
	BondConID       int64
	BondPrice       float64
	BondYield       float64
	Coupon          float64
	PrevCouponDate  string
	NextCouponDate  string
	MaturityDate    string
	YearsToMaturity float64

	Factor      float64
	TableCoupon float64
	TableTenor  Tenor
}

// Matcher holds the configured brackets and their generated factor
// tables.
type Matcher struct {
	brackets map[string]Bracket
	tables   map[string]*FactorTable
	logger   zerolog.Logger
}

// NewMatcher validates the bracket configuration and generates one factor
// table per distinct table name, spanning the widest bracket that
// references it.
func NewMatcher(brackets map[string]Bracket, logger zerolog.Logger) (*Matcher, error) {
	if len(brackets) == 0 {
		return nil, fmt.Errorf("no product brackets configured")
	}

	spans := map[string]Bracket{}
	for symbol, b := range brackets {
		if b.Table == "" {
			return nil, fmt.Errorf("product %s: missing table name", symbol)
		}
		if b.MinYears <= 0 || b.MaxYears <= b.MinYears {
			return nil, fmt.Errorf("product %s: invalid maturity bracket [%v, %v)", symbol, b.MinYears, b.MaxYears)
		}
		span, ok := spans[b.Table]
		if !ok {
			spans[b.Table] = b
			continue
		}
		span.MinYears = math.Min(span.MinYears, b.MinYears)
		span.MaxYears = math.Max(span.MaxYears, b.MaxYears)
		spans[b.Table] = span
	}

	tables := make(map[string]*FactorTable, len(spans))
	for name, span := range spans {
		tables[name] = GenerateFactorTable(name, span.MinYears, span.MaxYears)
	}

	return &Matcher{
		brackets: brackets,
		tables:   tables,
		logger:   logger.With().Str("component", "ctd_matcher").Logger(),
	}, nil
}

// Symbols lists the configured product classes.
func (m *Matcher) Symbols() []string {
	out := make([]string, 0, len(m.brackets))
	for s := range m.brackets {
		out = append(out, s)
	}
	return out
}

// Match selects the CTD candidate for one futures contract. The second
// return value is false when no bond lies inside the deliverable bracket;
// the contract is then dropped from the cycle. An unconfigured symbol is
// an error: configuration is validated at startup, so hitting one
// mid-cycle means the universe and config disagree.
func (m *Matcher) Match(fut quote.FuturesQuote, bonds []quote.BondQuote) (Candidate, bool, error) {
	bracket, ok := m.brackets[fut.Symbol]
	if !ok {
		return Candidate{}, false, fmt.Errorf("no deliverable bracket for symbol %q", fut.Symbol)
	}

	var eligible []quote.BondQuote
	for _, b := range bonds {
		if b.YearsToMaturity > bracket.MinYears && b.YearsToMaturity < bracket.MaxYears {
			eligible = append(eligible, b)
		}
	}
	if len(eligible) == 0 {
		m.logger.Debug().Str("symbol", fut.Symbol).Msg("no eligible deliverable bonds in bracket")
		return Candidate{}, false, nil
	}

	selected := selectDeliverable(eligible, fut.Mid)

	table := m.tables[bracket.Table]
	cell, coupon, tenor, ok := table.nearestCell(selected.Price * fut.Mid)
	if !ok {
		m.logger.Debug().Str("symbol", fut.Symbol).Msg("factor table region empty")
		return Candidate{}, false, nil
	}

	return Candidate{
		FuturesConID:    fut.ConID,
		Symbol:          fut.Symbol,
		FuturesPrice:    fut.Mid,
		Multiplier:      fut.Multiplier,
		Volume:          fut.Volume,
		CUSIP:           selected.CUSIP,
		BondConID:       selected.ConID,
		BondPrice:       selected.Price,
		BondYield:       selected.Yield,
		Coupon:          selected.CouponRate,
		PrevCouponDate:  selected.PrevCouponDate,
		NextCouponDate:  selected.NextCouponDate,
		MaturityDate:    selected.MaturityDate,
		YearsToMaturity: selected.YearsToMaturity,
		Factor:          cell,
		TableCoupon:     RoundToQuarter(coupon),
		TableTenor:      tenor,
	}, true, nil
}

// selectDeliverable picks the bond minimizing |price*futPrice - price|,
// first occurrence winning ties. The metric multiplies the bond price by
// the futures price before comparing against the price itself; the
// two-stage nearest-neighbor structure is retained deliberately.
func selectDeliverable(eligible []quote.BondQuote, futPrice float64) quote.BondQuote {
	best := eligible[0]
	bestDist := math.Abs(best.Price*futPrice - best.Price)
	for _, b := range eligible[1:] {
		if d := math.Abs(b.Price*futPrice - b.Price); d < bestDist {
			best = b
			bestDist = d
		}
	}
	return best
}

// nearestCell scans the grid row-major for the factor closest to the
// target, returning the cell value with its row coupon and column tenor.
func (t *FactorTable) nearestCell(target float64) (float64, float64, Tenor, bool) {
	if len(t.Values) == 0 || len(t.Tenors) == 0 {
		return 0, 0, Tenor{}, false
	}
	var (
		bestCell   float64
		bestCoupon float64
		bestTenor  Tenor
		bestDiff   = math.Inf(1)
	)
	for i, row := range t.Values {
		for j, cf := range row {
			if diff := math.Abs(cf - target); diff < bestDiff {
				bestDiff = diff
				bestCell = cf
				bestCoupon = t.Coupons[i]
				bestTenor = t.Tenors[j]
			}
		}
	}
	return bestCell, bestCoupon, bestTenor, true
}
