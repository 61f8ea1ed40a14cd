package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/basket_shares/config"
	"github.com/KotFed0t/basket_shares/internal/model"
	"github.com/KotFed0t/basket_shares/utils"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("error cache miss")

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func priceSeriesKey(ticker string, start, end time.Time) string {
	return fmt.Sprintf("prices:%s:%s:%s", ticker, start.Format(time.DateOnly), end.Format(time.DateOnly))
}

func (r *RedisCache) SetPriceSeries(ctx context.Context, ticker string, start, end time.Time, series model.PriceSeries) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start SetPriceSeries", slog.String("rqID", rqID), slog.String("ticker", ticker))

	seriesJson, err := json.Marshal(series)
	if err != nil {
		slog.Error("can't marshall series in SetPriceSeries", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall series")
	}

	key := priceSeriesKey(ticker, start, end)
	err = r.redis.Set(ctx, key, seriesJson, r.cfg.Cache.PricesExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return err
	}

	slog.Debug("SetPriceSeries completed", slog.String("rqID", rqID), slog.String("ticker", ticker))

	return nil
}

func (r *RedisCache) GetPriceSeries(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetPriceSeries start", slog.String("rqID", rqID), slog.String("ticker", ticker))

	key := priceSeriesKey(ticker, start, end)
	res, err := r.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return nil, err
	}

	series := model.PriceSeries{}
	err = json.Unmarshal([]byte(res), &series)
	if err != nil {
		slog.Error(
			"can't unmarshall series in GetPriceSeries",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return nil, errors.New("can't unmarshall series")
	}

	slog.Debug("GetPriceSeries finished", slog.String("rqID", rqID), slog.String("ticker", ticker))

	return series, nil
}
