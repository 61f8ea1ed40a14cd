package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/basket_shares/config"
	"github.com/KotFed0t/basket_shares/data"
	"github.com/KotFed0t/basket_shares/data/cache"
	"github.com/KotFed0t/basket_shares/data/repository/postgres"
	"github.com/KotFed0t/basket_shares/internal/basketLoader"
	"github.com/KotFed0t/basket_shares/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/basket_shares/internal/externalApi/yahooApi"
	"github.com/KotFed0t/basket_shares/internal/reportGenerator/xslsxGenerator"
	"github.com/KotFed0t/basket_shares/internal/service/allocationService"
	"github.com/KotFed0t/basket_shares/internal/service/basketService"
	"github.com/KotFed0t/basket_shares/internal/service/priceService"
	"github.com/KotFed0t/basket_shares/internal/storage/localStorage"
	"github.com/KotFed0t/basket_shares/internal/transport/console"
	"github.com/KotFed0t/basket_shares/utils"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("basket", cfg.Basket), slog.Any("api", cfg.API))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = utils.CreateCtxWithRqID(ctx)

	err := run(ctx, cfg)
	cancel()
	if err != nil {
		slog.Error("run failed", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	params, err := console.New(os.Stdin, os.Stdout).AskRunParams(ctx)
	if err != nil {
		return err
	}

	var priceCache priceService.Cache
	if cfg.Redis.Enabled {
		redisClient := data.NewRedisClient(cfg)
		defer redisClient.Close()

		priceCache = cache.NewRedisCache(redisClient, cfg)
	}

	prices := priceService.New(yahooApi.New(cfg), priceCache)

	var repo basketService.Repository
	if cfg.Postgres.Enabled {
		pgClient, err := data.NewPostgresClient(ctx, cfg)
		if err != nil {
			return err
		}
		defer pgClient.Close()

		repo = postgres.NewPostgres(pgClient)
	}

	var cloudStorage basketService.CloudStorage
	if cfg.GoogleDrive.Enabled {
		drive, err := googleDriveApi.New(ctx, cfg)
		if err != nil {
			return err
		}
		cloudStorage = drive
	}

	basketSrv := basketService.New(
		cfg,
		basketLoader.New(cfg),
		allocationService.New(prices, cfg.Basket.Workers),
		xslsxGenerator.New(),
		localStorage.New(),
		cloudStorage,
		repo,
	)

	report, err := basketSrv.BuildReport(ctx, params)
	if err != nil {
		return err
	}

	for _, skipped := range report.Skipped {
		fmt.Printf("No data for %s: %s\n", skipped.Ticker, skipped.Reason)
	}
	fmt.Printf("Results saved to %s (%d rows)\n", report.Location, report.RecordsCount)
	if report.DownloadLink != "" {
		fmt.Printf("Uploaded to %s\n", report.DownloadLink)
	}

	return nil
}

// logs go to stderr, stdout carries the prompts
func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
