package priceService

import (
	"context"
	"log/slog"
	"time"

	"github.com/KotFed0t/basket_shares/internal/model"
	"github.com/KotFed0t/basket_shares/utils"
)

type PriceApi interface {
	GetDailyCloses(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error)
}

type Cache interface {
	GetPriceSeries(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error)
	SetPriceSeries(ctx context.Context, ticker string, start, end time.Time, series model.PriceSeries) error
}

// PriceService reads through an optional cache to the price api.
type PriceService struct {
	api   PriceApi
	cache Cache
}

// New accepts a nil cache, every call then goes to the api.
func New(api PriceApi, cache Cache) *PriceService {
	return &PriceService{api: api, cache: cache}
}

func (s *PriceService) GetDailyCloses(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceService.GetDailyCloses"

	if s.cache != nil {
		series, err := s.cache.GetPriceSeries(ctx, ticker, start, end)
		if err == nil {
			slog.Debug("got price series from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
			return series, nil
		}
		slog.Warn("can't get price series from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	series, err := s.api.GetDailyCloses(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(series) > 0 {
		err = s.cache.SetPriceSeries(ctx, ticker, start, end, series)
		if err != nil {
			slog.Error("got error from cache.SetPriceSeries", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}

	return series, nil
}
