package service

import "errors"

var (
	ErrNoData       = errors.New("error no data for requested range")
	ErrEmptyBasket  = errors.New("error basket has no usable rows")
	ErrInvalidInput = errors.New("error invalid input")
)
