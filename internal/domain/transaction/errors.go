package transaction

import "errors"

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidAmount       = errors.New("amount must be positive with at most 8 decimal places")
	ErrSameWallet          = errors.New("source and destination wallets must differ")
	ErrInvalidCurrencyUse  = errors.New("currency_use must be FROM or TO")
)
