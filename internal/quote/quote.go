// Package quote defines the fixed-shape bond and futures quote records the
// pipeline operates on, together with the broker field-code tables and the
// futures price normalization rules.
//
// Records are immutable per refresh cycle: the refresh loop builds a new
// universe wholesale and publishes it; nothing downstream mutates a quote
// in place.
package quote

// BondQuote is one deliverable government bond as of a refresh cycle.
// Dates are YYYYMMDD strings as delivered by the broker.
type BondQuote struct {
	ConID    int64
	CUSIP    string
	Currency string

	FaceValue      float64
	IssueDate      string
	MaturityDate   string
	CouponRate     float64 // annual percent, e.g. 4.5
	PrevCouponDate string
	NextCouponDate string

	BidPrice  float64
	AskPrice  float64
	LastPrice float64
	Price     float64 // bid/ask midpoint
	Yield     float64 // annual decimal derived from quoted yields
	Volume    float64

	YearsToMaturity float64
}

// Complete reports whether the record carries every field the analytics
// require. Incomplete bonds are skipped for the cycle, never defaulted.
func (b BondQuote) Complete() bool {
	return b.CouponRate > 0 &&
		b.FaceValue > 0 &&
		b.IssueDate != "" &&
		b.MaturityDate != "" &&
		b.PrevCouponDate != "" &&
		b.NextCouponDate != "" &&
		b.AskPrice > 0 &&
		b.BidPrice > 0 &&
		b.LastPrice > 0
}

// FuturesQuote is one Treasury futures contract as of a refresh cycle.
// Raw prices keep the exchange fractional form until Normalize converts
// them.
type FuturesQuote struct {
	ConID      int64
	Symbol     string // product class, e.g. ZN
	Expiry     string // YYYYMMDD
	Multiplier float64
	Increment  Increment

	RawAsk  string
	RawBid  string
	RawLast string

	AskDecimal float64
	BidDecimal float64
	Spread     float64
	Mid        float64

	Volume          float64
	YearsToMaturity float64
}
