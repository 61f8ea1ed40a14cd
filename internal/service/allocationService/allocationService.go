package allocationService

import (
	"context"
	"log/slog"
	"time"

	"github.com/KotFed0t/basket_shares/internal/model"
	"github.com/KotFed0t/basket_shares/internal/service"
	"github.com/KotFed0t/basket_shares/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const reasonInvalidPrices = "no positive closing prices"

type PriceFetcher interface {
	GetDailyCloses(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error)
}

type AllocationService struct {
	fetcher PriceFetcher
	workers int
}

// New creates a service fetching at most workers tickers at once.
func New(fetcher PriceFetcher, workers int) *AllocationService {
	if workers < 1 {
		workers = 1
	}
	return &AllocationService{fetcher: fetcher, workers: workers}
}

type tickerOutcome struct {
	records    []model.InvestmentRecord
	skipped    bool
	skipReason string
}

// ComputeRecords fetches closing prices for every basket entry over [start, end) and derives
// the daily share counts for a fixed allocation of totalInvestment × weight.
//
// Records follow basket order, then date order within a ticker, regardless of the order in which
// fetches complete. A ticker whose fetch fails or returns no data is reported in Skipped and
// contributes no records. The only returned error is the context's.
func (s *AllocationService) ComputeRecords(
	ctx context.Context,
	basket []model.BasketEntry,
	start, end time.Time,
	totalInvestment decimal.Decimal,
) (model.AllocationResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AllocationService.ComputeRecords"

	slog.Debug("ComputeRecords start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("tickers", len(basket)))

	outcomes := make([]tickerOutcome, len(basket))

	g := &errgroup.Group{}
	g.SetLimit(s.workers)
	for i, entry := range basket {
		i, entry := i, entry
		g.Go(func() error {
			outcomes[i] = s.processEntry(ctx, entry, start, end, totalInvestment)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		slog.Error("ComputeRecords interrupted", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.AllocationResult{}, err
	}

	res := model.AllocationResult{Records: make([]model.InvestmentRecord, 0)}
	for i, outcome := range outcomes {
		if outcome.skipped {
			res.Skipped = append(res.Skipped, model.SkippedTicker{Ticker: basket[i].Ticker, Reason: outcome.skipReason})
			continue
		}
		res.Records = append(res.Records, outcome.records...)
	}

	slog.Info(
		"ComputeRecords completed",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.Int("records", len(res.Records)),
		slog.Int("skipped", len(res.Skipped)),
	)

	return res, nil
}

func (s *AllocationService) processEntry(
	ctx context.Context,
	entry model.BasketEntry,
	start, end time.Time,
	totalInvestment decimal.Decimal,
) tickerOutcome {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AllocationService.processEntry"

	if err := ctx.Err(); err != nil {
		return tickerOutcome{skipped: true, skipReason: err.Error()}
	}

	series, err := s.fetcher.GetDailyCloses(ctx, entry.Ticker, start, end)
	if err != nil {
		slog.Error("error fetching data", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", entry.Ticker), slog.String("err", err.Error()))
		return tickerOutcome{skipped: true, skipReason: err.Error()}
	}

	if len(series) == 0 {
		slog.Warn("no data found", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", entry.Ticker))
		return tickerOutcome{skipped: true, skipReason: service.ErrNoData.Error()}
	}

	records := allocate(ctx, entry, series, totalInvestment)
	if len(records) == 0 {
		return tickerOutcome{skipped: true, skipReason: reasonInvalidPrices}
	}

	return tickerOutcome{records: records}
}

// allocate emits one record per positive closing price in series.
func allocate(ctx context.Context, entry model.BasketEntry, series model.PriceSeries, totalInvestment decimal.Decimal) []model.InvestmentRecord {
	rqID := utils.GetRequestIDFromCtx(ctx)

	amount := totalInvestment.Mul(entry.Weight)

	records := make([]model.InvestmentRecord, 0, len(series))
	for _, point := range series {
		if !point.Close.IsPositive() {
			slog.Warn(
				"skipping non-positive closing price",
				slog.String("rqID", rqID),
				slog.String("ticker", entry.Ticker),
				slog.String("date", point.Date.Format(time.DateOnly)),
				slog.String("close", point.Close.String()),
			)
			continue
		}

		records = append(records, model.InvestmentRecord{
			Date:            point.Date,
			Ticker:          entry.Ticker,
			ClosingPrice:    point.Close,
			Weight:          entry.Weight,
			AllocatedAmount: amount,
			ShareCount:      amount.Div(point.Close),
		})
	}

	return records
}
