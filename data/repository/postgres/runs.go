package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/KotFed0t/basket_shares/data/repository"
	"github.com/KotFed0t/basket_shares/internal/model/dbModel"
	"github.com/KotFed0t/basket_shares/utils"
	"github.com/jackc/pgx/v5/pgconn"
)

// postgres caps a statement at 65535 bind parameters, a record row takes 8
const recordsBatchSize = 1000

func (r *Postgres) InsertRun(ctx context.Context, run dbModel.Run) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO allocation_runs(run_id, input_file, total_investment, start_date, end_date, records_count, skipped_tickers)
		VALUES(:run_id, :input_file, :total_investment, :start_date, :end_date, :records_count, :skipped_tickers)`

	slog.Debug("InsertRun start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertRun failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertRun completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).NamedExecContext(ctx, query, run)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return repository.ErrAlreadyExists
			}
		}
		return err
	}

	return nil
}

func (r *Postgres) InsertRecords(ctx context.Context, records []dbModel.Record) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO allocation_records(run_id, ordinal, trade_date, ticker, closing_price, weight, allocated_amount, share_count)
		VALUES(:run_id, :ordinal, :trade_date, :ticker, :closing_price, :weight, :allocated_amount, :share_count)`

	slog.Debug("InsertRecords start", slog.String("rqID", rqID), slog.Int("records", len(records)))
	defer func() {
		if err != nil {
			slog.Error("InsertRecords failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertRecords completed", slog.String("rqID", rqID))
		}
	}()

	for _, batch := range chunk(records, recordsBatchSize) {
		if _, err = r.txOrDb(ctx).NamedExecContext(ctx, query, batch); err != nil {
			return err
		}
	}

	return nil
}

func chunk[T any](items []T, size int) [][]T {
	var batches [][]T
	for size < len(items) {
		items, batches = items[size:], append(batches, items[:size:size])
	}
	if len(items) > 0 {
		batches = append(batches, items)
	}
	return batches
}
