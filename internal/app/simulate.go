package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tmglimp/commas/internal/engine"
	"github.com/tmglimp/commas/internal/quote"
	"github.com/tmglimp/commas/internal/sizing"
)

// SimulateCycle runs one full pipeline cycle against a small built-in
// universe, logging the order that would have been submitted. It needs
// no gateway and is safe against any account.
func (a *App) SimulateCycle(ctx context.Context, capital float64) error {
	if capital <= 0 {
		return fmt.Errorf("capital must be greater than zero")
	}

	matcher, err := a.newMatcher()
	if err != nil {
		return err
	}
	submitter := &loggingSubmitter{logger: a.Logger}
	eng, err := engine.New(a.engineOptions(), staticUniverse{}, staticCapital{funds: capital}, submitter, matcher, nil, a.Logger)
	if err != nil {
		return err
	}

	asOf := time.Now().UTC()
	src := staticUniverse{}
	bonds, _ := src.BondUniverse(ctx, a.Config.Pipeline.UniverseSize, asOf)
	futures, _ := src.FuturesUniverse(ctx, a.Config.Symbols(), asOf)

	result, err := eng.RunCycle(ctx, &engine.Snapshot{Bonds: bonds, Futures: futures, PublishedAt: asOf})
	if err != nil {
		return err
	}

	if err := printPairs(result.Ranked); err != nil {
		return err
	}
	return printOrders(result.Orders)
}

func printOrders(orders []sizing.OrderInstruction) error {
	if len(orders) == 0 {
		return nil
	}
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Front ConID\tRatio\tBack ConID\tRatio\tQuantity\tLimit")
	for _, o := range orders {
		fmt.Fprintf(writer, "%d\t%.0f\t%d\t%.0f\t%d\t%s\n",
			o.FrontConID, o.FrontRatio, o.BackConID, o.BackRatio, o.Quantity, o.LimitPrice)
	}
	return writer.Flush()
}

type loggingSubmitter struct {
	logger zerolog.Logger
}

func (l *loggingSubmitter) SubmitOrder(ctx context.Context, inst sizing.OrderInstruction) error {
	l.logger.Info().
		Int64("front_conid", inst.FrontConID).
		Float64("front_ratio", inst.FrontRatio).
		Int64("back_conid", inst.BackConID).
		Float64("back_ratio", inst.BackRatio).
		Int("quantity", inst.Quantity).
		Str("limit_price", inst.LimitPrice.String()).
		Msg("simulated order submission")
	return nil
}

type staticCapital struct {
	funds float64
}

func (s staticCapital) AvailableFunds(ctx context.Context) (decimal.Decimal, error) {
	return decimal.NewFromFloat(s.funds), nil
}

// staticUniverse is a deterministic two-product market: a ZN and a TN
// contract with distinct deliverable notes.
type staticUniverse struct{}

func (staticUniverse) BondUniverse(ctx context.Context, size int, asOf time.Time) ([]quote.BondQuote, error) {
	nextCoupon := asOf.AddDate(0, 4, 0).Format("20060102")
	prevCoupon := asOf.AddDate(0, -2, 0).Format("20060102")
	bond := func(conid int64, cusip string, price, coupon, ytm float64, maturityYears int) quote.BondQuote {
		return quote.BondQuote{
			ConID: conid, CUSIP: cusip, Currency: "USD", FaceValue: 1000,
			IssueDate:    asOf.AddDate(-2, 0, 0).Format("20060102"),
			MaturityDate: asOf.AddDate(maturityYears, 0, 0).Format("20060102"),
			CouponRate:   coupon, PrevCouponDate: prevCoupon, NextCouponDate: nextCoupon,
			BidPrice: price - 0.125, AskPrice: price + 0.125, LastPrice: price,
			Price: price, Yield: 0.042, Volume: 25000, YearsToMaturity: ytm,
		}
	}
	return []quote.BondQuote{
		bond(5001, "91282CJK8", 98.75, 4.25, 7.3, 7),
		bond(5002, "91282CHT7", 101.5, 4.625, 9.8, 10),
	}, nil
}

func (staticUniverse) FuturesUniverse(ctx context.Context, symbols []string, asOf time.Time) ([]quote.FuturesQuote, error) {
	expiry := asOf.AddDate(0, 3, 0).Format("20060102")
	return []quote.FuturesQuote{
		{ConID: 7001, Symbol: "ZN", Expiry: expiry, Multiplier: 1000, Mid: 111.25, Volume: 1_200_000, YearsToMaturity: 0.25},
		{ConID: 7002, Symbol: "TN", Expiry: expiry, Multiplier: 1000, Mid: 114.5, Volume: 350_000, YearsToMaturity: 0.25},
	}, nil
}

var _ engine.UniverseSource = staticUniverse{}
var _ engine.CapitalSource = staticCapital{}
var _ engine.OrderSubmitter = (*loggingSubmitter)(nil)
