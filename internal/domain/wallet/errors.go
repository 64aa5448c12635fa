package wallet

import "errors"

var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrDuplicateName     = errors.New("wallet name already taken")
	ErrInvalidName       = errors.New("wallet name is required")
)
