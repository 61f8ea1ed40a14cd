package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PricePoint struct {
	Date  time.Time       `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// PriceSeries is ordered by Date ascending, one point per trading day.
type PriceSeries []PricePoint
