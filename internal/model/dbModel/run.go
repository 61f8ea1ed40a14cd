package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Run struct {
	RunID           string          `db:"run_id"`
	InputFile       string          `db:"input_file"`
	TotalInvestment decimal.Decimal `db:"total_investment"`
	StartDate       time.Time       `db:"start_date"`
	EndDate         time.Time       `db:"end_date"`
	RecordsCount    int             `db:"records_count"`
	SkippedTickers  string          `db:"skipped_tickers"`
}

type Record struct {
	RunID           string          `db:"run_id"`
	Ordinal         int             `db:"ordinal"`
	Date            time.Time       `db:"trade_date"`
	Ticker          string          `db:"ticker"`
	ClosingPrice    decimal.Decimal `db:"closing_price"`
	Weight          decimal.Decimal `db:"weight"`
	AllocatedAmount decimal.Decimal `db:"allocated_amount"`
	ShareCount      decimal.Decimal `db:"share_count"`
}
