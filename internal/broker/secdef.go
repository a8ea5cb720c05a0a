package broker

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	futuresPath = "/trsrv/futures"
	secdefPath  = "/trsrv/secdef"

	// secdefBatchSize caps the conids carried on a single request line.
	secdefBatchSize = 50

	// maxFuturesHorizonYears excludes back-month contracts too far out to
	// carry deliverable baskets worth pairing.
	maxFuturesHorizonYears = 2
)

// FuturesContract is one listed contract from a product chain.
type FuturesContract struct {
	ConID  int64  `json:"conid"`
	Symbol string `json:"symbol"`
	Expiry int64  `json:"expirationDate"`
}

// ExpiryDate parses the chain's YYYYMMDD expiry integer.
func (f FuturesContract) ExpiryDate() (time.Time, error) {
	return time.Parse("20060102", strconv.FormatInt(f.Expiry, 10))
}

// FuturesBySymbols lists the near contracts for each product class,
// dropping expiries beyond the pairing horizon.
func (c *Client) FuturesBySymbols(ctx context.Context, symbols []string, asOf time.Time) ([]FuturesContract, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no futures symbols requested")
	}

	var chains map[string][]FuturesContract
	query := url.Values{"symbols": {strings.Join(symbols, ",")}}
	if err := c.get(ctx, futuresPath, query, &chains); err != nil {
		return nil, fmt.Errorf("futures chains: %w", err)
	}

	horizon := asOf.AddDate(maxFuturesHorizonYears, 0, 0)
	var out []FuturesContract
	for _, symbol := range symbols {
		for _, contract := range chains[symbol] {
			expiry, err := contract.ExpiryDate()
			if err != nil {
				c.logger.Warn().Int64("conid", contract.ConID).Int64("expiry", contract.Expiry).
					Msg("unparseable futures expiry, skipping contract")
				continue
			}
			if expiry.After(asOf) && expiry.Before(horizon) {
				out = append(out, contract)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("futures chains: no contracts inside the %d-year horizon", maxFuturesHorizonYears)
	}
	return out, nil
}

// SecDef is one security definition record. Futures carry multiplier and
// increment rules; bonds carry the nested bond block.
type SecDef struct {
	ConID          int64  `json:"conid"`
	Currency       string `json:"currency"`
	Symbol         string `json:"symbol"`
	Multiplier     string `json:"multiplier"`
	IncrementRules []struct {
		LowerEdge float64 `json:"lowerEdge"`
		Increment float64 `json:"increment"`
	} `json:"incrementRules"`
	Bond *BondDef `json:"bond"`
}

// BondDef is the bond-specific block of a security definition.
type BondDef struct {
	CUSIP          string  `json:"cusip"`
	ParValue       float64 `json:"parValue"`
	CouponRate     float64 `json:"couponRate"`
	IssueDate      string  `json:"issueDate"`
	MaturityDate   string  `json:"maturityDate"`
	PrevCouponDate string  `json:"previousCouponDate"`
	NextCouponDate string  `json:"nextCouponDate"`
}

type secdefResponse struct {
	Secdef []SecDef `json:"secdef"`
}

// SecurityDefinitions resolves definitions for a conid set, batching
// requests to keep URLs inside gateway limits. A failed batch is logged
// and skipped; only a total failure is an error.
func (c *Client) SecurityDefinitions(ctx context.Context, conids []int64) (map[int64]SecDef, error) {
	out := make(map[int64]SecDef, len(conids))
	var batches, failed int
	var lastErr error
	for start := 0; start < len(conids); start += secdefBatchSize {
		end := start + secdefBatchSize
		if end > len(conids) {
			end = len(conids)
		}
		batches++

		var resp secdefResponse
		query := url.Values{"conids": {joinConIDs(conids[start:end])}}
		if err := c.get(ctx, secdefPath, query, &resp); err != nil {
			failed++
			lastErr = err
			c.logger.Warn().Int("batch_start", start).Int("batch_size", end-start).Err(err).
				Msg("security definition batch failed, skipping")
			continue
		}
		for _, def := range resp.Secdef {
			out[def.ConID] = def
		}
	}
	if batches > 0 && failed == batches {
		return nil, fmt.Errorf("security definitions: all %d batches failed: %w", batches, lastErr)
	}
	return out, nil
}

func joinConIDs(conids []int64) string {
	parts := make([]string, len(conids))
	for i, id := range conids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
