package basketService

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/basket_shares/config"
	"github.com/KotFed0t/basket_shares/internal/model"
	"github.com/KotFed0t/basket_shares/internal/model/dbModel"
	"github.com/KotFed0t/basket_shares/internal/service"
	"github.com/KotFed0t/basket_shares/utils"
	"github.com/shopspring/decimal"
)

type BasketLoader interface {
	Load(ctx context.Context, path string) ([]model.BasketEntry, error)
}

type AllocationService interface {
	ComputeRecords(ctx context.Context, basket []model.BasketEntry, start, end time.Time, totalInvestment decimal.Decimal) (model.AllocationResult, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, result model.AllocationResult) (fileBytes []byte, fileExtension string, err error)
}

type FileStorage interface {
	SaveFile(ctx context.Context, reader io.Reader, filename string) (location string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
}

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	InsertRun(ctx context.Context, run dbModel.Run) error
	InsertRecords(ctx context.Context, records []dbModel.Record) error
}

type BasketService struct {
	inputFile    string
	outputFile   string
	loader       BasketLoader
	allocation   AllocationService
	generator    ReportGenerator
	fileStorage  FileStorage
	cloudStorage CloudStorage
	repo         Repository
}

// New wires the run pipeline. cloudStorage and repo are optional and may be nil.
func New(
	cfg *config.Config,
	loader BasketLoader,
	allocation AllocationService,
	generator ReportGenerator,
	fileStorage FileStorage,
	cloudStorage CloudStorage,
	repo Repository,
) *BasketService {
	return &BasketService{
		inputFile:    cfg.Basket.InputFile,
		outputFile:   cfg.Basket.OutputFile,
		loader:       loader,
		allocation:   allocation,
		generator:    generator,
		fileStorage:  fileStorage,
		cloudStorage: cloudStorage,
		repo:         repo,
	}
}

// BuildReport loads the basket, computes the records and writes the workbook. Archiving and
// uploading are best effort: their failures are logged and leave the report in place.
func (s *BasketService) BuildReport(ctx context.Context, params model.RunParams) (model.Report, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BasketService.BuildReport"

	slog.Info(
		"BuildReport start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("amount", params.TotalInvestment.String()),
		slog.String("start", params.StartDate.Format(time.DateOnly)),
		slog.String("end", params.EndDate.Format(time.DateOnly)),
	)

	if err := validate(params); err != nil {
		return model.Report{}, err
	}

	basket, err := s.loader.Load(ctx, s.inputFile)
	if err != nil {
		slog.Error("got error from loader.Load", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Report{}, err
	}

	result, err := s.allocation.ComputeRecords(ctx, basket, params.StartDate, params.EndDate, params.TotalInvestment)
	if err != nil {
		return model.Report{}, err
	}

	fileBytes, _, err := s.generator.Generate(ctx, result)
	if err != nil {
		slog.Error("got error from generator.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Report{}, err
	}

	location, err := s.fileStorage.SaveFile(ctx, bytes.NewReader(fileBytes), s.outputFile)
	if err != nil {
		slog.Error("got error from fileStorage.SaveFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Report{}, err
	}

	report := model.Report{
		RunID:        rqID,
		Location:     location,
		RecordsCount: len(result.Records),
		Skipped:      result.Skipped,
	}

	if s.repo != nil {
		if err := s.archive(ctx, params, result); err != nil {
			slog.Error("failed to archive run", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}

	if s.cloudStorage != nil {
		link, err := s.cloudStorage.UploadFile(ctx, bytes.NewReader(fileBytes), s.outputFile)
		if err != nil {
			slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			report.DownloadLink = link
		}
	}

	slog.Info("BuildReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("location", location))

	return report, nil
}

func (s *BasketService) archive(ctx context.Context, params model.RunParams, result model.AllocationResult) error {
	runID := utils.GetRequestIDFromCtx(ctx)

	skipped := make([]string, 0, len(result.Skipped))
	for _, sk := range result.Skipped {
		skipped = append(skipped, sk.Ticker)
	}

	run := dbModel.Run{
		RunID:           runID,
		InputFile:       s.inputFile,
		TotalInvestment: params.TotalInvestment,
		StartDate:       params.StartDate,
		EndDate:         params.EndDate,
		RecordsCount:    len(result.Records),
		SkippedTickers:  strings.Join(skipped, ","),
	}

	records := make([]dbModel.Record, 0, len(result.Records))
	for i, rec := range result.Records {
		records = append(records, dbModel.Record{
			RunID:           runID,
			Ordinal:         i,
			Date:            rec.Date,
			Ticker:          rec.Ticker,
			ClosingPrice:    rec.ClosingPrice,
			Weight:          rec.Weight,
			AllocatedAmount: rec.AllocatedAmount,
			ShareCount:      rec.ShareCount,
		})
	}

	return s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.InsertRun(ctx, run); err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return s.repo.InsertRecords(ctx, records)
	})
}

func validate(params model.RunParams) error {
	if !params.TotalInvestment.IsPositive() {
		return fmt.Errorf("%w: investment amount must be positive", service.ErrInvalidInput)
	}
	if !params.EndDate.After(params.StartDate) {
		return fmt.Errorf("%w: end date must be after start date", service.ErrInvalidInput)
	}
	return nil
}
