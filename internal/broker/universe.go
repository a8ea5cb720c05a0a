package broker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tmglimp/commas/internal/fincalc"
	"github.com/tmglimp/commas/internal/quote"
)

// defaultFaceValue backstops bond definitions delivered without a par
// amount.
const defaultFaceValue = 1000

// BondUniverse assembles the deliverable bond universe for one cycle:
// scan, definitions, then a market snapshot merged into complete quote
// records. Bonds missing any analytic input are dropped, not defaulted.
func (c *Client) BondUniverse(ctx context.Context, size int, asOf time.Time) ([]quote.BondQuote, error) {
	scanned, err := c.ScanBonds(ctx, size, asOf)
	if err != nil {
		return nil, err
	}

	conids := make([]int64, len(scanned))
	for i, s := range scanned {
		conids[i] = s.ConID
	}

	defs, err := c.SecurityDefinitions(ctx, conids)
	if err != nil {
		return nil, err
	}
	rows, err := c.MarketSnapshot(ctx, conids, quote.BondSnapshotFields)
	if err != nil {
		return nil, err
	}

	settle := fincalc.SettlementDate(asOf, 1)
	out := make([]quote.BondQuote, 0, len(scanned))
	for _, s := range scanned {
		def, ok := defs[s.ConID]
		if !ok || def.Bond == nil {
			c.logger.Debug().Int64("conid", s.ConID).Msg("bond definition missing, dropping")
			continue
		}
		row, ok := rows[s.ConID]
		if !ok {
			c.logger.Debug().Int64("conid", s.ConID).Msg("bond snapshot missing, dropping")
			continue
		}

		b := quote.BondQuote{
			ConID:          s.ConID,
			CUSIP:          def.Bond.CUSIP,
			Currency:       def.Currency,
			FaceValue:      def.Bond.ParValue,
			IssueDate:      def.Bond.IssueDate,
			MaturityDate:   def.Bond.MaturityDate,
			CouponRate:     def.Bond.CouponRate,
			PrevCouponDate: def.Bond.PrevCouponDate,
			NextCouponDate: def.Bond.NextCouponDate,
			BidPrice:       row.Float(quote.FieldBidPrice),
			AskPrice:       row.Float(quote.FieldAskPrice),
			LastPrice:      row.Float(quote.FieldLastPrice),
			Volume:         quote.ParseVolume(row.String(quote.FieldVolume)),
		}
		if b.FaceValue == 0 {
			b.FaceValue = defaultFaceValue
		}
		b.Price = (b.AskPrice + b.BidPrice) / 2
		b.Yield = (row.Float(quote.FieldAskYield) + row.Float(quote.FieldBidYield)/2) / 100

		if !b.Complete() {
			c.logger.Debug().Int64("conid", s.ConID).Msg("incomplete bond quote, dropping")
			continue
		}
		maturity, err := fincalc.ParseDate(b.MaturityDate)
		if err != nil {
			c.logger.Debug().Int64("conid", s.ConID).Err(err).Msg("bad maturity date, dropping")
			continue
		}
		b.YearsToMaturity = fincalc.TermYears(settle, maturity)
		out = append(out, b)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("bond universe: every scanned bond was incomplete")
	}
	c.logger.Info().Int("bonds", len(out)).Msg("bond universe assembled")
	return out, nil
}

// FuturesUniverse assembles normalized futures quotes for the configured
// product classes.
func (c *Client) FuturesUniverse(ctx context.Context, symbols []string, asOf time.Time) ([]quote.FuturesQuote, error) {
	contracts, err := c.FuturesBySymbols(ctx, symbols, asOf)
	if err != nil {
		return nil, err
	}

	conids := make([]int64, len(contracts))
	for i, f := range contracts {
		conids[i] = f.ConID
	}

	defs, err := c.SecurityDefinitions(ctx, conids)
	if err != nil {
		return nil, err
	}
	rows, err := c.MarketSnapshot(ctx, conids, quote.FuturesSnapshotFields)
	if err != nil {
		return nil, err
	}

	out := make([]quote.FuturesQuote, 0, len(contracts))
	for _, contract := range contracts {
		def, ok := defs[contract.ConID]
		if !ok {
			c.logger.Debug().Int64("conid", contract.ConID).Msg("futures definition missing, dropping")
			continue
		}
		row, ok := rows[contract.ConID]
		if !ok {
			c.logger.Debug().Int64("conid", contract.ConID).Msg("futures snapshot missing, dropping")
			continue
		}

		multiplier, err := strconv.ParseFloat(def.Multiplier, 64)
		if err != nil || multiplier <= 0 {
			c.logger.Warn().Int64("conid", contract.ConID).Str("multiplier", def.Multiplier).
				Msg("unusable contract multiplier, dropping")
			continue
		}

		increment := quote.IncrementNone
		if len(def.IncrementRules) > 0 {
			increment = quote.IncrementFromRule(def.IncrementRules[0].Increment)
		}

		q := quote.FuturesQuote{
			ConID:      contract.ConID,
			Symbol:     contract.Symbol,
			Expiry:     strconv.FormatInt(contract.Expiry, 10),
			Multiplier: multiplier,
			Increment:  increment,
			RawAsk:     row.String(quote.FieldAskPrice),
			RawBid:     row.String(quote.FieldBidPrice),
			RawLast:    row.String(quote.FieldLastPrice),
			Volume:     quote.ParseVolume(row.String(quote.FieldVolume)),
		}
		if err := quote.Normalize(&q); err != nil {
			c.logger.Warn().Int64("conid", contract.ConID).Err(err).Msg("unusable futures prices, dropping")
			continue
		}
		expiry, err := contract.ExpiryDate()
		if err != nil {
			continue
		}
		q.YearsToMaturity = fincalc.TermYears(asOf, expiry)
		out = append(out, q)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("futures universe: no usable contracts")
	}
	c.logger.Info().Int("futures", len(out)).Msg("futures universe assembled")
	return out, nil
}
