package ledger

import "errors"

var (
	ErrNoHistory    = errors.New("there are no transactions for this wallet")
	ErrInvalidRange = errors.New("start_date must not be after end_date")
	ErrInvalidEntry = errors.New("invalid ledger entry")
)
