package allocationService

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KotFed0t/basket_shares/internal/model"
	"github.com/KotFed0t/basket_shares/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	series map[string]model.PriceSeries
	errs   map[string]error
	delays map[string]time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	mu    sync.Mutex
	calls []string
}

func (f *fakeFetcher) GetDailyCloses(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, ticker)
	f.mu.Unlock()

	if d, ok := f.delays[ticker]; ok {
		time.Sleep(d)
	}
	if err, ok := f.errs[ticker]; ok {
		return nil, err
	}
	return f.series[ticker], nil
}

var (
	d1    = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2    = time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	d3    = time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	start = d1
	end   = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func series(points ...any) model.PriceSeries {
	res := model.PriceSeries{}
	for i := 0; i < len(points); i += 2 {
		res = append(res, model.PricePoint{Date: points[i].(time.Time), Close: dec(points[i+1].(string))})
	}
	return res
}

func entry(ticker, weight string) model.BasketEntry {
	return model.BasketEntry{Ticker: ticker, Weight: dec(weight)}
}

func TestComputeRecordsScenario(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string]model.PriceSeries{
		"AAPL": series(d1, "150", d2, "152"),
		"MSFT": series(d1, "300"),
	}}
	srv := New(fetcher, 2)

	res, err := srv.ComputeRecords(context.Background(), []model.BasketEntry{entry("AAPL", "0.6"), entry("MSFT", "0.4")}, start, end, dec("1000"))
	require.NoError(t, err)
	require.Empty(t, res.Skipped)
	require.Len(t, res.Records, 3)

	expected := []struct {
		date   time.Time
		ticker string
		price  string
		weight string
		amount string
		shares float64
	}{
		{d1, "AAPL", "150", "0.6", "600", 4.0},
		{d2, "AAPL", "152", "0.6", "600", 3.9473684210526},
		{d1, "MSFT", "300", "0.4", "400", 1.3333333333333},
	}

	for i, e := range expected {
		rec := res.Records[i]
		require.Equal(t, e.date, rec.Date)
		require.Equal(t, e.ticker, rec.Ticker)
		require.True(t, rec.ClosingPrice.Equal(dec(e.price)))
		require.True(t, rec.Weight.Equal(dec(e.weight)))
		require.True(t, rec.AllocatedAmount.Equal(dec(e.amount)))
		require.InDelta(t, e.shares, rec.ShareCount.InexactFloat64(), 1e-9)
	}
}

func TestComputeRecordsInvariants(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string]model.PriceSeries{
		"A.NS": series(d1, "101.35", d2, "99.9", d3, "104.05"),
		"B.NS": series(d1, "2478.6"),
		"C.NS": series(d2, "17.3", d3, "18.15"),
	}}
	basket := []model.BasketEntry{entry("A.NS", "0.25"), entry("B.NS", "0.5"), entry("C.NS", "0.3333")}
	total := dec("250000")

	res, err := New(fetcher, 3).ComputeRecords(context.Background(), basket, start, end, total)
	require.NoError(t, err)
	require.Len(t, res.Records, 3+1+2)

	tolerance := decimal.New(1, -9)
	amounts := map[string]decimal.Decimal{}
	for _, rec := range res.Records {
		expectedAmount := total.Mul(rec.Weight)
		require.True(t, rec.AllocatedAmount.Equal(expectedAmount))

		if prev, ok := amounts[rec.Ticker]; ok {
			require.True(t, prev.Equal(rec.AllocatedAmount))
		}
		amounts[rec.Ticker] = rec.AllocatedAmount

		diff := rec.ShareCount.Mul(rec.ClosingPrice).Sub(rec.AllocatedAmount).Abs()
		require.True(t, diff.LessThan(tolerance), "shares × price drifted by %s", diff)
	}
}

func TestComputeRecordsOrderIndependentOfCompletion(t *testing.T) {
	fetcher := &fakeFetcher{
		series: map[string]model.PriceSeries{
			"SLOW": series(d1, "1", d2, "2"),
			"MID":  series(d1, "3"),
			"FAST": series(d1, "4", d2, "5", d3, "6"),
		},
		delays: map[string]time.Duration{
			"SLOW": 60 * time.Millisecond,
			"MID":  30 * time.Millisecond,
		},
	}
	basket := []model.BasketEntry{entry("SLOW", "0.2"), entry("MID", "0.3"), entry("FAST", "0.5")}

	res, err := New(fetcher, 3).ComputeRecords(context.Background(), basket, start, end, dec("100"))
	require.NoError(t, err)

	var got []string
	for _, rec := range res.Records {
		got = append(got, rec.Ticker+"@"+rec.Date.Format(time.DateOnly))
	}
	require.Equal(t, []string{
		"SLOW@2024-01-02", "SLOW@2024-01-03",
		"MID@2024-01-02",
		"FAST@2024-01-02", "FAST@2024-01-03", "FAST@2024-01-04",
	}, got)

	// reordering the basket reorders ticker blocks identically
	reversed := []model.BasketEntry{basket[2], basket[1], basket[0]}
	res, err = New(fetcher, 3).ComputeRecords(context.Background(), reversed, start, end, dec("100"))
	require.NoError(t, err)
	require.Equal(t, "FAST", res.Records[0].Ticker)
	require.Equal(t, "MID", res.Records[3].Ticker)
	require.Equal(t, "SLOW", res.Records[4].Ticker)
}

func TestComputeRecordsRespectsWorkerLimit(t *testing.T) {
	fetcher := &fakeFetcher{
		series: map[string]model.PriceSeries{},
		delays: map[string]time.Duration{},
	}
	var basket []model.BasketEntry
	for _, ticker := range []string{"A", "B", "C", "D", "E", "F"} {
		fetcher.series[ticker] = series(d1, "10")
		fetcher.delays[ticker] = 10 * time.Millisecond
		basket = append(basket, entry(ticker, "0.1"))
	}

	res, err := New(fetcher, 2).ComputeRecords(context.Background(), basket, start, end, dec("100"))
	require.NoError(t, err)
	require.Len(t, res.Records, 6)
	require.LessOrEqual(t, fetcher.maxInFlight.Load(), int32(2))

	sequential := &fakeFetcher{series: fetcher.series}
	_, err = New(sequential, 1).ComputeRecords(context.Background(), basket, start, end, dec("100"))
	require.NoError(t, err)
	require.Equal(t, int32(1), sequential.maxInFlight.Load())
	require.Equal(t, []string{"A", "B", "C", "D", "E", "F"}, sequential.calls)
}

func TestComputeRecordsSkipsFailedAndEmpty(t *testing.T) {
	fetchErr := errors.New("connection reset by peer")
	fetcher := &fakeFetcher{
		series: map[string]model.PriceSeries{
			"OK.NS":    series(d1, "50", d2, "40"),
			"EMPTY.NS": {},
		},
		errs: map[string]error{"BAD.NS": fetchErr},
	}
	basket := []model.BasketEntry{entry("BAD.NS", "0.3"), entry("EMPTY.NS", "0.3"), entry("OK.NS", "0.4")}

	res, err := New(fetcher, 1).ComputeRecords(context.Background(), basket, start, end, dec("1000"))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	for _, rec := range res.Records {
		require.Equal(t, "OK.NS", rec.Ticker)
	}

	require.Equal(t, []model.SkippedTicker{
		{Ticker: "BAD.NS", Reason: fetchErr.Error()},
		{Ticker: "EMPTY.NS", Reason: service.ErrNoData.Error()},
	}, res.Skipped)
}

func TestComputeRecordsSingleFailingTicker(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{"X.NS": errors.New("boom")}}

	res, err := New(fetcher, 4).ComputeRecords(context.Background(), []model.BasketEntry{entry("X.NS", "1")}, start, end, dec("1000"))
	require.NoError(t, err)
	require.NotNil(t, res.Records)
	require.Empty(t, res.Records)
	require.Len(t, res.Skipped, 1)
}

func TestComputeRecordsSkipsNonPositivePrices(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string]model.PriceSeries{
		"MIXED.NS": series(d1, "0", d2, "20", d3, "-1"),
		"ZERO.NS":  series(d1, "0"),
	}}
	basket := []model.BasketEntry{entry("MIXED.NS", "0.5"), entry("ZERO.NS", "0.5")}

	res, err := New(fetcher, 2).ComputeRecords(context.Background(), basket, start, end, dec("100"))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	require.Equal(t, d2, res.Records[0].Date)
	require.True(t, res.Records[0].ShareCount.Equal(dec("2.5")))
	require.Equal(t, []model.SkippedTicker{{Ticker: "ZERO.NS", Reason: reasonInvalidPrices}}, res.Skipped)
}

func TestComputeRecordsCancelledContext(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string]model.PriceSeries{"A": series(d1, "1")}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fetcher, 1).ComputeRecords(ctx, []model.BasketEntry{entry("A", "1")}, start, end, dec("1"))
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, fetcher.calls)
}

func TestComputeRecordsEmptyBasket(t *testing.T) {
	res, err := New(&fakeFetcher{}, 1).ComputeRecords(context.Background(), nil, start, end, dec("1000"))
	require.NoError(t, err)
	require.Empty(t, res.Records)
	require.Empty(t, res.Skipped)
}
