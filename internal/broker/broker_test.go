package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tmglimp/commas/internal/quote"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, AccountID: "DU1234567", Timeout: time.Second}, nil, noopLogger())
}

func asOf() time.Time {
	return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
}

func TestScanBondsFiltersAndDedupes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != scannerPath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"contracts": []map[string]any{
				{"con_id": 1, "symbol": "US-T", "contract_description_1": "US Treasury Note 4.5 Aug33"},
				{"con_id": 1, "symbol": "US-T", "contract_description_1": "duplicate row"},
				{"con_id": 2, "symbol": "US-T", "contract_description_1": "US Treasury TIPS 0.125 Jan30"},
				{"con_id": 3, "symbol": "IBCID", "contract_description_1": "corporate issue"},
				{"con_id": 4, "symbol": "US-T", "contract_description_1": "US Treasury Bond 3.0 Feb45"},
			},
		})
	}))

	bonds, err := c.ScanBonds(context.Background(), 10, asOf())
	if err != nil {
		t.Fatalf("ScanBonds: %v", err)
	}
	if len(bonds) != 2 {
		t.Fatalf("got %d bonds, want 2 after filtering", len(bonds))
	}
	if bonds[0].ConID != 1 || bonds[1].ConID != 4 {
		t.Fatalf("unexpected conids %d, %d", bonds[0].ConID, bonds[1].ConID)
	}
}

func TestScanBondsNoResults(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"contracts": []any{}})
	}))
	if _, err := c.ScanBonds(context.Background(), 5, asOf()); err == nil {
		t.Fatal("empty scans must surface an error")
	}
}

func TestScanBondsGatewayError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not authenticated"})
	}))
	_, err := c.ScanBonds(context.Background(), 5, asOf())
	if err == nil || !strings.Contains(err.Error(), "not authenticated") {
		t.Fatalf("gateway error not surfaced: %v", err)
	}
}

func TestFuturesBySymbolsHorizon(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbols"); got != "ZN,TN" {
			t.Fatalf("symbols query = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ZN": []map[string]any{
				{"conid": 10, "symbol": "ZN", "expirationDate": 20260918},
				{"conid": 11, "symbol": "ZN", "expirationDate": 20290918}, // beyond horizon
				{"conid": 12, "symbol": "ZN", "expirationDate": 20250918}, // already expired
			},
			"TN": []map[string]any{
				{"conid": 20, "symbol": "TN", "expirationDate": 20261218},
			},
		})
	}))

	contracts, err := c.FuturesBySymbols(context.Background(), []string{"ZN", "TN"}, asOf())
	if err != nil {
		t.Fatalf("FuturesBySymbols: %v", err)
	}
	if len(contracts) != 2 {
		t.Fatalf("got %d contracts, want 2", len(contracts))
	}
	if contracts[0].ConID != 10 || contracts[1].ConID != 20 {
		t.Fatalf("unexpected contracts %+v", contracts)
	}
}

func TestSecurityDefinitionsBatches(t *testing.T) {
	var calls int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		ids := strings.Split(r.URL.Query().Get("conids"), ",")
		if len(ids) > secdefBatchSize {
			t.Fatalf("batch of %d exceeds limit", len(ids))
		}
		defs := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			defs = append(defs, map[string]any{"conid": json.Number(id), "currency": "USD"})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"secdef": defs})
	}))

	conids := make([]int64, 120)
	for i := range conids {
		conids[i] = int64(i + 1)
	}
	defs, err := c.SecurityDefinitions(context.Background(), conids)
	if err != nil {
		t.Fatalf("SecurityDefinitions: %v", err)
	}
	if len(defs) != 120 {
		t.Fatalf("got %d definitions, want 120", len(defs))
	}
	if calls != 3 {
		t.Fatalf("made %d requests, want 3", calls)
	}
}

func TestSecurityDefinitionsSkipsFailedBatch(t *testing.T) {
	var calls int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "gateway hiccup"})
			return
		}
		ids := strings.Split(r.URL.Query().Get("conids"), ",")
		defs := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			defs = append(defs, map[string]any{"conid": json.Number(id), "currency": "USD"})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"secdef": defs})
	}))

	conids := make([]int64, 120)
	for i := range conids {
		conids[i] = int64(i + 1)
	}
	defs, err := c.SecurityDefinitions(context.Background(), conids)
	if err != nil {
		t.Fatalf("SecurityDefinitions: %v", err)
	}
	// Batches one and three survive the failed middle batch.
	if len(defs) != 70 {
		t.Fatalf("got %d definitions, want 70 from the surviving batches", len(defs))
	}
	if calls != 3 {
		t.Fatalf("made %d requests, want 3", calls)
	}
}

func TestSecurityDefinitionsAllBatchesFailed(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "down"})
	}))
	if _, err := c.SecurityDefinitions(context.Background(), []int64{1, 2, 3}); err == nil {
		t.Fatal("a total batch failure must surface an error")
	}
}

func TestMarketSnapshotSkipsFailedBatch(t *testing.T) {
	var calls int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "gateway hiccup"})
			return
		}
		ids := strings.Split(r.URL.Query().Get("conids"), ",")
		rows := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, map[string]any{"conid": json.Number(id), "86": 101.25})
		}
		_ = json.NewEncoder(w).Encode(rows)
	}))

	conids := make([]int64, 80)
	for i := range conids {
		conids[i] = int64(i + 1)
	}
	rows, err := c.MarketSnapshot(context.Background(), conids, quote.BondSnapshotFields)
	if err != nil {
		t.Fatalf("MarketSnapshot: %v", err)
	}
	if len(rows) != 30 {
		t.Fatalf("got %d rows, want 30 from the surviving batch", len(rows))
	}
	if calls != 2 {
		t.Fatalf("made %d requests, want 2", calls)
	}
}

func TestSnapshotRowParsing(t *testing.T) {
	raw := []byte(`{"conid": 42, "84": "134'16", "86": 101.25, "7720": "4.25%", "87": "1.2K"}`)
	var row SnapshotRow
	if err := json.Unmarshal(raw, &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if row.ConID() != 42 {
		t.Fatalf("conid = %d", row.ConID())
	}
	if got := row.String(quote.FieldBidPrice); got != "134'16" {
		t.Fatalf("bid string = %q", got)
	}
	if got := row.Float(quote.FieldAskPrice); got != 101.25 {
		t.Fatalf("ask float = %v", got)
	}
	if got := row.Float(quote.FieldAskYield); got != 4.25 {
		t.Fatalf("ask yield = %v, percent suffix not stripped", got)
	}
	if got := row.Float(quote.FieldSymbol); got != 0 {
		t.Fatalf("absent field = %v, want 0", got)
	}
}

func TestAvailableFunds(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"upnl": map[string]any{
				"DU1234567.Core": map[string]any{"nl": 250000.50},
			},
		})
	}))
	funds, err := c.AvailableFunds(context.Background())
	if err != nil {
		t.Fatalf("AvailableFunds: %v", err)
	}
	if funds.InexactFloat64() != 250000.50 {
		t.Fatalf("funds = %s", funds)
	}
}

func TestAvailableFundsNoPartition(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"upnl": map[string]any{}})
	}))
	if _, err := c.AvailableFunds(context.Background()); err == nil {
		t.Fatal("missing partitions must surface an error")
	}
}

func TestActiveOrderCount(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"orders": []map[string]any{
				{"orderId": 1, "status": "Submitted"},
				{"orderId": 2, "status": "PreSubmitted"},
				{"orderId": 3, "status": "Filled"},
				{"orderId": 4, "status": "PendingSubmit"},
				{"orderId": 5, "status": "Cancelled"},
			},
		})
	}))
	n, err := c.ActiveOrderCount(context.Background())
	if err != nil {
		t.Fatalf("ActiveOrderCount: %v", err)
	}
	if n != 3 {
		t.Fatalf("active = %d, want 3", n)
	}
}
