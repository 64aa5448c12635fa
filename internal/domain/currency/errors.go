package currency

import "errors"

var (
	ErrCurrencyNotFound = errors.New("currency not found")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrDuplicateCode    = errors.New("currency code already exists")
)
