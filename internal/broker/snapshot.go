package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tmglimp/commas/internal/quote"
)

const (
	snapshotPath      = "/iserver/marketdata/snapshot"
	snapshotBatchSize = 50
)

// SnapshotRow is one contract's market data keyed by field code. The
// gateway delivers heterogeneous value types, so access goes through the
// typed getters.
type SnapshotRow map[string]json.RawMessage

// ConID identifies the row's contract.
func (r SnapshotRow) ConID() int64 {
	var id int64
	_ = json.Unmarshal(r["conid"], &id)
	return id
}

// String returns the field as its raw string form, empty when absent.
func (r SnapshotRow) String(f quote.FieldCode) string {
	raw, ok := r[f.Key()]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}

// Float parses the field as a number. Percent suffixes and thousands
// separators are tolerated; absent or unparseable values are zero.
func (r SnapshotRow) Float(f quote.FieldCode) float64 {
	raw, ok := r[f.Key()]
	if !ok {
		return 0
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// MarketSnapshot fetches the requested fields for a conid set, batching
// to the gateway's per-request contract limit. A failed batch is logged
// and skipped so the surviving rows still flow; only a total failure is
// an error.
func (c *Client) MarketSnapshot(ctx context.Context, conids []int64, fields []quote.FieldCode) (map[int64]SnapshotRow, error) {
	out := make(map[int64]SnapshotRow, len(conids))
	var batches, failed int
	var lastErr error
	for start := 0; start < len(conids); start += snapshotBatchSize {
		end := start + snapshotBatchSize
		if end > len(conids) {
			end = len(conids)
		}
		batches++

		var rows []SnapshotRow
		query := url.Values{
			"conids": {joinConIDs(conids[start:end])},
			"fields": {quote.FieldCSV(fields)},
		}
		if err := c.get(ctx, snapshotPath, query, &rows); err != nil {
			failed++
			lastErr = err
			c.logger.Warn().Int("batch_start", start).Int("batch_size", end-start).Err(err).
				Msg("market snapshot batch failed, skipping")
			continue
		}
		for _, row := range rows {
			if id := row.ConID(); id != 0 {
				out[id] = row
			}
		}
	}
	if batches > 0 && failed == batches {
		return nil, fmt.Errorf("market snapshot: all %d batches failed: %w", batches, lastErr)
	}
	return out, nil
}
