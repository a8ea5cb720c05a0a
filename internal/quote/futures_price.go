package quote

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Increment identifies the quoted sub-fraction convention of a futures
// contract: what fraction of a 32nd the digits after the tick separator
// represent.
type Increment int

const (
	IncrementNone Increment = iota
	IncrementHalf
	IncrementQuarter
	IncrementEighth
	IncrementSixteenth
)

// Denominator returns the sub-fraction divisor applied on top of 32nds.
// Unknown conventions fall back to 32, matching plain 32nd quoting.
func (i Increment) Denominator() float64 {
	switch i {
	case IncrementHalf:
		return 2
	case IncrementQuarter:
		return 4
	case IncrementEighth:
		return 8
	case IncrementSixteenth:
		return 16
	}
	return 32
}

func (i Increment) String() string {
	switch i {
	case IncrementHalf:
		return "half"
	case IncrementQuarter:
		return "quarter"
	case IncrementEighth:
		return "eighth"
	case IncrementSixteenth:
		return "sixteenth"
	}
	return "none"
}

// IncrementFromRule maps an exchange price-increment value to the
// sub-fraction convention. The values are the decimal tick sizes the
// broker reports per contract.
func IncrementFromRule(tick float64) Increment {
	switch {
	case closeTo(tick, 1.0/256): // 0.00390625
		return IncrementHalf
	case closeTo(tick, 1.0/64): // 0.015625
		return IncrementQuarter
	case closeTo(tick, 1.0/32): // 0.03125
		return IncrementEighth
	case closeTo(tick, 1.0/512): // 0.001953125
		return IncrementSixteenth
	}
	return IncrementNone
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// ParseFractionalPrice converts an exchange fractional price such as
// "134'16.5" (handle, 32nds, sub-fraction of a 32nd) into decimal dollars.
// The digits after the dot are a decimal fraction of one sub-unit, so with
// a quarter convention "134'16.5" is 134 + 16/32 + 0.5/(32*4). Plain
// decimal strings pass through unchanged.
func ParseFractionalPrice(raw string, inc Increment) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty futures price")
	}
	if !strings.Contains(raw, "'") {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("parse futures price %q: %w", raw, err)
		}
		return v, nil
	}

	handle, fraction, _ := strings.Cut(raw, "'")
	whole, err := strconv.Atoi(handle)
	if err != nil {
		return 0, fmt.Errorf("parse futures price %q: %w", raw, err)
	}

	var frac float64
	if n32s, sub, ok := strings.Cut(fraction, "."); ok {
		n32, err := strconv.Atoi(n32s)
		if err != nil {
			return 0, fmt.Errorf("parse futures price %q: %w", raw, err)
		}
		subDigits, err := strconv.Atoi(sub)
		if err != nil {
			return 0, fmt.Errorf("parse futures price %q: %w", raw, err)
		}
		subUnit := float64(subDigits) / math.Pow10(len(sub))
		frac = float64(n32)/32 + subUnit/(32*inc.Denominator())
	} else {
		n32, err := strconv.Atoi(fraction)
		if err != nil {
			return 0, fmt.Errorf("parse futures price %q: %w", raw, err)
		}
		frac = float64(n32) / 32
	}
	return float64(whole) + frac, nil
}

// Normalize fills the decimal price fields of a futures quote from its raw
// fractional quotes. Missing ask or bid quotes are backfilled from the
// last trade with any leading settlement flag stripped. The mid price is
// the quoting system's ask + bid/2 convention, kept as-is.
func Normalize(q *FuturesQuote) error {
	ask := q.RawAsk
	bid := q.RawBid
	if ask == "" {
		ask = stripSettlementFlag(q.RawLast)
	}
	if bid == "" {
		bid = stripSettlementFlag(q.RawLast)
	}

	askDec, err := ParseFractionalPrice(ask, q.Increment)
	if err != nil {
		return fmt.Errorf("normalize ask: %w", err)
	}
	bidDec, err := ParseFractionalPrice(bid, q.Increment)
	if err != nil {
		return fmt.Errorf("normalize bid: %w", err)
	}

	q.AskDecimal = askDec
	q.BidDecimal = bidDec
	q.Spread = askDec - bidDec
	q.Mid = askDec + bidDec/2
	return nil
}

// stripSettlementFlag drops the leading flag character closed-market last
// prices carry (e.g. "C134'16").
func stripSettlementFlag(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
		return s[1:]
	}
	return s
}
