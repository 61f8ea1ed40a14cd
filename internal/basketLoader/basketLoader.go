package basketLoader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/KotFed0t/basket_shares/config"
	"github.com/KotFed0t/basket_shares/internal/model"
	"github.com/KotFed0t/basket_shares/internal/service"
	"github.com/KotFed0t/basket_shares/utils"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	tickerColumn = "Ticker"
	weightColumn = "Weightage"
)

// basketRow keeps raw cell text so that blank cells can be told apart from zero weights.
type basketRow struct {
	Ticker    string `csv:"Ticker"`
	Weightage string `csv:"Weightage"`
}

type BasketLoader struct {
	tickerSuffix string
}

func New(cfg *config.Config) *BasketLoader {
	return &BasketLoader{tickerSuffix: cfg.Basket.TickerSuffix}
}

// Load reads the Ticker/Weightage table at path (.csv or .xlsx). Tickers are trimmed and
// suffixed with the configured exchange suffix; rows missing either value are dropped.
func (l *BasketLoader) Load(ctx context.Context, path string) ([]model.BasketEntry, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BasketLoader.Load"

	slog.Debug("Load start", slog.String("rqID", rqID), slog.String("op", op), slog.String("path", path))

	var (
		rows []basketRow
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		slog.Error("can't read basket file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	entries := l.normalize(ctx, rows)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", path, service.ErrEmptyBasket)
	}

	slog.Info("basket loaded", slog.String("rqID", rqID), slog.String("op", op), slog.Int("rows", len(rows)), slog.Int("entries", len(entries)))

	return entries, nil
}

func (l *BasketLoader) normalize(ctx context.Context, rows []basketRow) []model.BasketEntry {
	rqID := utils.GetRequestIDFromCtx(ctx)

	entries := make([]model.BasketEntry, 0, len(rows))
	for i, row := range rows {
		ticker := strings.TrimSpace(row.Ticker)
		rawWeight := strings.TrimSpace(row.Weightage)

		if ticker == "" || rawWeight == "" {
			slog.Debug("dropping incomplete row", slog.String("rqID", rqID), slog.Int("row", i+1), slog.Any("raw", row))
			continue
		}

		weight, err := decimal.NewFromString(rawWeight)
		if err != nil {
			slog.Warn("dropping row with invalid weightage", slog.String("rqID", rqID), slog.Int("row", i+1), slog.String("weightage", rawWeight))
			continue
		}

		entries = append(entries, model.BasketEntry{Ticker: l.withSuffix(ticker), Weight: weight})
	}

	return entries
}

func (l *BasketLoader) withSuffix(ticker string) string {
	if l.tickerSuffix == "" || strings.HasSuffix(strings.ToUpper(ticker), strings.ToUpper(l.tickerSuffix)) {
		return ticker
	}
	return ticker + l.tickerSuffix
}

func readCSV(path string) ([]basketRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// spreadsheet exports often start with a UTF-8 BOM
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	rows := []basketRow{}
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return rows, nil
		}
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	return rows, nil
}

func readXLSX(path string) ([]basketRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	cells, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(cells) == 0 {
		return nil, nil
	}

	tickerIdx, weightIdx := -1, -1
	for i, name := range cells[0] {
		switch strings.TrimSpace(name) {
		case tickerColumn:
			tickerIdx = i
		case weightColumn:
			weightIdx = i
		}
	}
	if tickerIdx < 0 || weightIdx < 0 {
		return nil, fmt.Errorf("sheet %q must have %s and %s columns", sheet, tickerColumn, weightColumn)
	}

	rows := make([]basketRow, 0, len(cells)-1)
	for _, cell := range cells[1:] {
		rows = append(rows, basketRow{Ticker: cellAt(cell, tickerIdx), Weightage: cellAt(cell, weightIdx)})
	}

	return rows, nil
}

// cellAt tolerates rows shortened by trailing blank cells.
func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}
