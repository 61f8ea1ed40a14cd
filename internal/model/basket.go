package model

import "github.com/shopspring/decimal"

type BasketEntry struct {
	Ticker string
	Weight decimal.Decimal
}
