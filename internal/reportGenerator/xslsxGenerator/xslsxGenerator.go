package xslsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/basket_shares/internal/model"
	"github.com/KotFed0t/basket_shares/utils"
	"github.com/xuri/excelize/v2"
)

const (
	ResultsSheet = "Results"
	SkippedSheet = "Skipped"

	dateFormat = "yyyy-mm-dd"
)

var resultsHeader = []any{"Date", "Ticker", "Closing Price", "Weightage", "Investment Amount", "Number of Shares"}

type XSLSXGenerator struct{}

func New() *XSLSXGenerator {
	return &XSLSXGenerator{}
}

// Generate renders one Results row per record in the given order. Skipped tickers, if any,
// go to a separate sheet.
func (g *XSLSXGenerator) Generate(ctx context.Context, result model.AllocationResult) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("records", len(result.Records)))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), ResultsSheet); err != nil {
		return nil, "", err
	}

	if err := g.fillResultsSheet(f, result.Records); err != nil {
		slog.Error("got error while filling results sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if len(result.Skipped) > 0 {
		if err := g.fillSkippedSheet(f, result.Skipped); err != nil {
			slog.Error("got error while filling skipped sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return nil, "", err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XSLSXGenerator) fillResultsSheet(f *excelize.File, records []model.InvestmentRecord) error {
	if err := g.writeHeader(f, ResultsSheet, resultsHeader, "#cfe2f3"); err != nil { // light blue
		return err
	}

	for i, rec := range records {
		row := []any{
			rec.Date,
			rec.Ticker,
			rec.ClosingPrice.InexactFloat64(),
			rec.Weight.InexactFloat64(),
			rec.AllocatedAmount.InexactFloat64(),
			rec.ShareCount.InexactFloat64(),
		}
		if err := f.SetSheetRow(ResultsSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}

	if len(records) == 0 {
		return nil
	}

	dateStyleID, err := f.NewStyle(&excelize.Style{CustomNumFmt: ptr(dateFormat)})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(ResultsSheet, "A2", fmt.Sprintf("A%d", len(records)+1), dateStyleID); err != nil {
		return fmt.Errorf("apply date style: %w", err)
	}

	return nil
}

func (g *XSLSXGenerator) fillSkippedSheet(f *excelize.File, skipped []model.SkippedTicker) error {
	if _, err := f.NewSheet(SkippedSheet); err != nil {
		return err
	}

	if err := g.writeHeader(f, SkippedSheet, []any{"Ticker", "Reason"}, "#f4cccc"); err != nil { // light pink
		return err
	}

	for i, s := range skipped {
		_ = f.SetCellStr(SkippedSheet, fmt.Sprintf("A%d", i+2), s.Ticker)
		_ = f.SetCellStr(SkippedSheet, fmt.Sprintf("B%d", i+2), s.Reason)
	}

	return nil
}

func (g *XSLSXGenerator) writeHeader(f *excelize.File, sheet string, header []any, color string) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
	if err != nil {
		return err
	}

	lastCell, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheet, "A1", lastCell, styleID); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	return nil
}

func ptr[T any](v T) *T {
	return &v
}
