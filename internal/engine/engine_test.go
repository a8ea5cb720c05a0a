package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tmglimp/commas/internal/ctd"
	"github.com/tmglimp/commas/internal/quote"
	"github.com/tmglimp/commas/internal/sizing"
)

type staticSource struct {
	mu      sync.Mutex
	bonds   []quote.BondQuote
	futures []quote.FuturesQuote
	bondErr error
	futErr  error
}

func (s *staticSource) BondUniverse(ctx context.Context, size int, asOf time.Time) ([]quote.BondQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bondErr != nil {
		return nil, s.bondErr
	}
	return s.bonds, nil
}

func (s *staticSource) FuturesUniverse(ctx context.Context, symbols []string, asOf time.Time) ([]quote.FuturesQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.futErr != nil {
		return nil, s.futErr
	}
	return s.futures, nil
}

type staticCapital struct {
	funds decimal.Decimal
	err   error
}

func (s *staticCapital) AvailableFunds(ctx context.Context) (decimal.Decimal, error) {
	return s.funds, s.err
}

type recordingSubmitter struct {
	mu     sync.Mutex
	orders []sizing.OrderInstruction
}

func (r *recordingSubmitter) SubmitOrder(ctx context.Context, inst sizing.OrderInstruction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, inst)
	return nil
}

func (r *recordingSubmitter) submitted() []sizing.OrderInstruction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sizing.OrderInstruction(nil), r.orders...)
}

func testBond(conid int64, price, ytm float64) quote.BondQuote {
	return quote.BondQuote{
		ConID: conid, CUSIP: "91282CAB1", FaceValue: 1000, CouponRate: 4.25,
		IssueDate: "20230815", MaturityDate: "20330815",
		PrevCouponDate: "20260215", NextCouponDate: "20260815",
		BidPrice: price - 0.25, AskPrice: price + 0.25, LastPrice: price,
		Price: price, Yield: 0.041, Volume: 10000, YearsToMaturity: ytm,
	}
}

func testUniverse() *staticSource {
	return &staticSource{
		bonds: []quote.BondQuote{
			testBond(100, 99.0, 7.2),
			testBond(200, 101.0, 9.7),
		},
		futures: []quote.FuturesQuote{
			{ConID: 10, Symbol: "ZN", Mid: 110.5, Multiplier: 1000, Volume: 50000},
			{ConID: 20, Symbol: "TN", Mid: 113.25, Multiplier: 1000, Volume: 20000},
		},
	}
}

func newTestEngine(t *testing.T, source UniverseSource, capital CapitalSource, submitter OrderSubmitter, gate Gate) *Engine {
	t.Helper()
	matcher, err := ctd.NewMatcher(ctd.DefaultBrackets(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	e, err := New(Options{
		RefreshInterval:  5 * time.Millisecond,
		LivenessInterval: 10 * time.Millisecond,
		Symbols:          []string{"ZN", "TN"},
		UniverseSize:     25,
		Leverage:         4,
		TopPairs:         3,
	}, source, capital, submitter, matcher, gate, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestRunCycleSubmitsTopOrderOnly(t *testing.T) {
	submitter := &recordingSubmitter{}
	e := newTestEngine(t, testUniverse(), &staticCapital{funds: decimal.NewFromInt(250000)}, submitter, nil)

	snap := &Snapshot{
		Bonds:       testUniverse().bonds,
		Futures:     testUniverse().futures,
		PublishedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	result, err := e.RunCycle(context.Background(), snap)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	// Two futures with distinct deliverables form two ordered pairs.
	if len(result.Ranked) != 2 {
		t.Fatalf("ranked %d pairs, want 2", len(result.Ranked))
	}
	if result.Capital != 1_000_000 {
		t.Fatalf("capital = %v, want leveraged 1000000", result.Capital)
	}
	if len(result.Orders) != 2 {
		t.Fatalf("rendered %d orders, want 2", len(result.Orders))
	}

	got := submitter.submitted()
	if len(got) != 1 {
		t.Fatalf("submitted %d orders, want only the top pair", len(got))
	}
	if got[0].FrontConID != result.Orders[0].FrontConID {
		t.Fatalf("submitted order %+v is not the top-ranked one", got[0])
	}
	if got[0].FrontRatio > 0 == (got[0].BackRatio > 0) {
		t.Fatalf("order %+v is not a long/short combo", got[0])
	}
}

func TestRunCycleNoPairsIsNotAnError(t *testing.T) {
	source := testUniverse()
	source.futures = source.futures[:1] // one leg cannot pair
	e := newTestEngine(t, source, &staticCapital{funds: decimal.NewFromInt(100000)}, &recordingSubmitter{}, nil)

	result, err := e.RunCycle(context.Background(), &Snapshot{
		Bonds: source.bonds, Futures: source.futures, PublishedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(result.Ranked) != 0 || len(result.Orders) != 0 {
		t.Fatalf("expected an empty result, got %+v", result)
	}
}

func TestRunCycleCapitalFailureAborts(t *testing.T) {
	e := newTestEngine(t, testUniverse(), &staticCapital{err: errors.New("gateway down")}, nil, nil)
	_, err := e.RunCycle(context.Background(), &Snapshot{
		Bonds: testUniverse().bonds, Futures: testUniverse().futures, PublishedAt: time.Now(),
	})
	if err == nil {
		t.Fatal("capital lookup failure must abort the cycle")
	}
}

type blockedGate struct{}

func (blockedGate) WaitForSlot(ctx context.Context) error { return ctx.Err() }

func TestRunCycleHonorsGateCancellation(t *testing.T) {
	e := newTestEngine(t, testUniverse(), &staticCapital{funds: decimal.NewFromInt(1)}, nil, blockedGate{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.RunCycle(ctx, &Snapshot{PublishedAt: time.Now()}); !errors.Is(err, context.Canceled) {
		t.Fatalf("RunCycle returned %v, want context.Canceled", err)
	}
}

func TestRefreshKeepsPreviousSideOnFailure(t *testing.T) {
	source := testUniverse()
	e := newTestEngine(t, source, &staticCapital{funds: decimal.NewFromInt(1)}, nil, nil)

	e.refresh(context.Background())
	first := e.Snapshot()
	if first == nil {
		t.Fatal("first refresh did not publish")
	}

	source.mu.Lock()
	source.futErr = errors.New("chain lookup failed")
	source.mu.Unlock()

	e.refresh(context.Background())
	second := e.Snapshot()
	if second == nil || len(second.Futures) != len(first.Futures) {
		t.Fatal("failed side did not fall back to the previous universe")
	}
	if !second.PublishedAt.After(first.PublishedAt) && !second.PublishedAt.Equal(first.PublishedAt) {
		t.Fatal("snapshot went backwards")
	}
}

func TestRefreshNeverPublishesEmptyUniverse(t *testing.T) {
	source := &staticSource{bondErr: errors.New("scan failed"), futErr: errors.New("chain failed")}
	e := newTestEngine(t, source, &staticCapital{funds: decimal.NewFromInt(1)}, nil, nil)

	e.refresh(context.Background())
	if e.Snapshot() != nil {
		t.Fatal("published a snapshot with no data")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	submitter := &recordingSubmitter{}
	e := newTestEngine(t, testUniverse(), &staticCapital{funds: decimal.NewFromInt(250000)}, submitter, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for e.LastResult() == nil {
		select {
		case <-deadline:
			t.Fatal("no cycle completed before the deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}

	if len(submitter.submitted()) == 0 {
		t.Fatal("no order was submitted over a full run")
	}
}

func TestNewValidation(t *testing.T) {
	matcher, err := ctd.NewMatcher(ctd.DefaultBrackets(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	valid := Options{
		RefreshInterval: time.Second, LivenessInterval: time.Second,
		Symbols: []string{"ZN"}, UniverseSize: 25, Leverage: 4, TopPairs: 3,
	}

	cases := []func(*Options){
		func(o *Options) { o.RefreshInterval = 0 },
		func(o *Options) { o.LivenessInterval = 0 },
		func(o *Options) { o.Symbols = nil },
		func(o *Options) { o.UniverseSize = 0 },
		func(o *Options) { o.Leverage = 0 },
		func(o *Options) { o.TopPairs = 0 },
	}
	for i, mutate := range cases {
		opts := valid
		mutate(&opts)
		if _, err := New(opts, &staticSource{}, &staticCapital{}, nil, matcher, nil, zerolog.Nop()); err == nil {
			t.Fatalf("case %d: invalid options accepted", i)
		}
	}
	if _, err := New(valid, nil, &staticCapital{}, nil, matcher, nil, zerolog.Nop()); err == nil {
		t.Fatal("nil universe source accepted")
	}
}
