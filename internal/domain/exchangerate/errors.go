package exchangerate

import "errors"

var (
	ErrRateNotFound  = errors.New("no exchange rate at or before the requested time")
	ErrInvalidRate   = errors.New("exchange rate must be positive")
	ErrDuplicateRate = errors.New("exchange rate for this currency and time already exists")
)
