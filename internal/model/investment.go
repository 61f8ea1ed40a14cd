package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvestmentRecord struct {
	Date            time.Time
	Ticker          string
	ClosingPrice    decimal.Decimal
	Weight          decimal.Decimal
	AllocatedAmount decimal.Decimal
	ShareCount      decimal.Decimal
}

type SkippedTicker struct {
	Ticker string
	Reason string
}

type AllocationResult struct {
	Records []InvestmentRecord
	Skipped []SkippedTicker
}

// RunParams are the user supplied inputs of a single calculation.
type RunParams struct {
	TotalInvestment decimal.Decimal
	StartDate       time.Time
	EndDate         time.Time
}

type Report struct {
	RunID        string
	Location     string
	DownloadLink string
	RecordsCount int
	Skipped      []SkippedTicker
}
