package broker

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	scannerPath = "/iserver/scanner/run"

	// Scan windows open between two and roughly ten years out so every
	// product bracket can be populated from the same universe.
	scanWindowMinDays = 730
	scanWindowMaxDays = 3651
	scanWindowSpan    = 365

	maxScanAttempts = 8
)

// treasurySymbol marks cash Treasuries in scanner output.
const treasurySymbol = "US-T"

// excludedDescriptions disqualify structured or floating issues that the
// deliverable baskets never admit.
var excludedDescriptions = []string{"TIPS", "STRIPS", "BILL", "FLOATING", "FRN"}

// ScannedBond is one scanner hit.
type ScannedBond struct {
	ConID       int64
	Description string
}

type scanRequest struct {
	Instrument string       `json:"instrument"`
	Location   string       `json:"location"`
	Type       string       `json:"type"`
	Filter     []scanFilter `json:"filter"`
}

type scanFilter struct {
	Code  string `json:"code"`
	Value string `json:"value"`
}

type scanResponse struct {
	Contracts []struct {
		ConID       int64  `json:"con_id"`
		Symbol      string `json:"symbol"`
		Description string `json:"contract_description_1"`
	} `json:"contracts"`
}

// ScanBonds collects up to want distinct Treasury notes and bonds. Each
// attempt scans a randomized maturity window; the scanner caps each
// response, so shifting the window is what grows the universe.
func (c *Client) ScanBonds(ctx context.Context, want int, asOf time.Time) ([]ScannedBond, error) {
	if want <= 0 {
		return nil, fmt.Errorf("universe size must be positive, got %d", want)
	}

	seen := make(map[int64]struct{}, want)
	var out []ScannedBond

	for attempt := 0; attempt < maxScanAttempts && len(out) < want; attempt++ {
		from := scanWindowMinDays + rand.IntN(scanWindowMaxDays-scanWindowSpan-scanWindowMinDays)
		lower := asOf.AddDate(0, 0, from)
		upper := lower.AddDate(0, 0, scanWindowSpan)

		var resp scanResponse
		err := c.post(ctx, scannerPath, scanRequest{
			Instrument: "BOND",
			Location:   "BOND.GOVT",
			Type:       "BOND_CUSIP",
			Filter: []scanFilter{
				{Code: "maturityDateAbove", Value: lower.Format("20060102")},
				{Code: "maturityDateBelow", Value: upper.Format("20060102")},
			},
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("bond scan: %w", err)
		}

		for _, contract := range resp.Contracts {
			if contract.Symbol != treasurySymbol || excludedIssue(contract.Description) {
				continue
			}
			if _, dup := seen[contract.ConID]; dup {
				continue
			}
			seen[contract.ConID] = struct{}{}
			out = append(out, ScannedBond{ConID: contract.ConID, Description: contract.Description})
			if len(out) == want {
				break
			}
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("bond scan: no eligible treasuries after %d attempts", maxScanAttempts)
	}
	c.logger.Debug().Int("bonds", len(out)).Msg("bond universe scanned")
	return out, nil
}

func excludedIssue(description string) bool {
	d := strings.ToUpper(description)
	for _, marker := range excludedDescriptions {
		if strings.Contains(d, marker) {
			return true
		}
	}
	return false
}
