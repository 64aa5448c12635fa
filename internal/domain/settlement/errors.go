package settlement

import (
	"errors"
	"fmt"

	"github.com/paysys/wallet-ledger/internal/domain/wallet"
)

var (
	// ErrRateUnavailable: no qualifying quote yet, or the lookup timed out.
	ErrRateUnavailable = errors.New("exchange rate unavailable")
	// ErrStorageFailure: a read or write against the stores failed.
	ErrStorageFailure = errors.New("storage failure")
	// ErrIntegrity: the transaction can never settle as recorded
	// (missing wallet or currency, malformed transfer, overflow).
	ErrIntegrity = errors.New("transaction integrity violation")
	// ErrInsufficientFunds: the source wallet cannot cover the debit.
	ErrInsufficientFunds = wallet.ErrInsufficientFunds
)

// IsRetryable reports whether a failed settlement should stay PENDING.
// Anything not known to be permanent is retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrInsufficientFunds) && !errors.Is(err, ErrIntegrity)
}

func integrityErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrIntegrity, fmt.Sprintf(format, args...))
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageFailure, op, err)
}
