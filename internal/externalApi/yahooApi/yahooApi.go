package yahooApi

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/KotFed0t/basket_shares/config"
	"github.com/KotFed0t/basket_shares/internal/externalApi"
	"github.com/KotFed0t/basket_shares/internal/model"
	"github.com/KotFed0t/basket_shares/internal/model/yahooModel"
	"github.com/KotFed0t/basket_shares/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const chartNotFoundCode = "Not Found"

type YahooApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *YahooApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.YahooApi.Url).
		SetHeader("User-Agent", cfg.API.YahooApi.UserAgent)
	return &YahooApi{client: client}
}

// GetDailyCloses returns daily closing prices of ticker for trading days in [start, end).
// An unknown ticker yields externalApi.ErrNotFound, a range without trades yields an empty series.
func (a *YahooApi) GetDailyCloses(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "YahooApi.GetDailyCloses"
	url := "/v8/finance/chart/{ticker}"
	params := map[string]string{
		"period1":        strconv.FormatInt(start.Unix(), 10),
		"period2":        strconv.FormatInt(end.Unix(), 10),
		"interval":       "1d",
		"events":         "history",
		"includePrePost": "false",
	}

	slog.Debug("start YahooApi.GetDailyCloses request", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetPathParam("ticker", ticker).
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing YahooApi", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("op", op))
		return nil, err
	}

	rawChart := yahooModel.ChartResponse{}
	unmarshalErr := json.Unmarshal(resp.Body(), &rawChart)

	if resp.StatusCode() == http.StatusNotFound || (unmarshalErr == nil && isNotFound(rawChart.Chart.Error)) {
		slog.Warn("ticker not found in YahooApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
		return nil, fmt.Errorf("%s: %w", ticker, externalApi.ErrNotFound)
	}

	if resp.IsError() {
		slog.Error("unexpected YahooApi status", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("yahoo chart %s: unexpected status %d", ticker, resp.StatusCode())
	}

	if unmarshalErr != nil {
		slog.Error("can't unmarshall response into yahooModel.ChartResponse", slog.String("err", unmarshalErr.Error()), slog.String("rqID", rqID), slog.String("op", op))
		return nil, unmarshalErr
	}

	if rawChart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s: %s", ticker, rawChart.Chart.Error.Code, rawChart.Chart.Error.Description)
	}

	res, err := parseChart(rawChart, start, end)
	if err != nil {
		slog.Error("can't parse raw data", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("op", op))
		return nil, err
	}

	slog.Debug("YahooApi.GetDailyCloses request complete", slog.String("rqID", rqID), slog.String("op", op), slog.Int("points", len(res)))

	return res, nil
}

func isNotFound(chartErr *yahooModel.ChartError) bool {
	return chartErr != nil && chartErr.Code == chartNotFoundCode
}

func parseChart(rawChart yahooModel.ChartResponse, start, end time.Time) (model.PriceSeries, error) {
	if len(rawChart.Chart.Result) == 0 {
		return model.PriceSeries{}, nil
	}

	result := rawChart.Chart.Result[0]
	if len(result.Timestamp) == 0 {
		return model.PriceSeries{}, nil
	}

	if len(result.Indicators.Quote) == 0 {
		return nil, errors.New("missing quote indicators")
	}

	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return nil, fmt.Errorf("lengths Timestamp != Close: %d and %d", len(result.Timestamp), len(closes))
	}

	loc := exchangeLocation(result.Meta)
	startDay, endDay := toDay(start), toDay(end)

	series := make(model.PriceSeries, 0, len(closes))
	for i, ts := range result.Timestamp {
		if closes[i] == nil {
			continue
		}

		day := toDay(time.Unix(ts, 0).In(loc))
		if day.Before(startDay) || !day.Before(endDay) {
			continue
		}

		point := model.PricePoint{Date: day, Close: decimal.NewFromFloat(*closes[i])}

		// yahoo may append an intraday point for the current session
		if n := len(series); n > 0 && series[n-1].Date.Equal(day) {
			series[n-1] = point
			continue
		}
		series = append(series, point)
	}

	slices.SortStableFunc(series, func(a, b model.PricePoint) int {
		return cmp.Compare(a.Date.Unix(), b.Date.Unix())
	})

	return series, nil
}

func exchangeLocation(meta yahooModel.Meta) *time.Location {
	if meta.ExchangeTimezoneName != "" {
		if loc, err := time.LoadLocation(meta.ExchangeTimezoneName); err == nil {
			return loc
		}
	}
	return time.FixedZone(meta.Symbol, meta.GmtOffset)
}

// toDay drops the clock keeping the calendar date of t in its own location.
func toDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
