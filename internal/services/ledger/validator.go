package ledger

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fastprodman/moneyserver/internal/repos/transactions"
)

// Validator authorizes finalization of a transfer by its secure code. It
// never writes.
type Validator struct{}

// Validate loads the record and checks it can be finalized with secureCode.
// Negative outcomes wrap ErrValidationFailed; other errors come from the store.
func (v Validator) Validate(ctx context.Context, txns transactions.Transactions, secureCode string, id uuid.UUID) (transactions.Record, error) {
	rec, err := txns.LockAndGet(ctx, id)
	if err != nil {
		if errors.Is(err, transactions.ErrTransactionNotFound) {
			return transactions.Record{}, fmt.Errorf("%w: %w", ErrValidationFailed, err)
		}

		return transactions.Record{}, fmt.Errorf("load transaction: %w", err)
	}

	err = v.Check(rec, secureCode)
	if err != nil {
		return transactions.Record{}, err
	}

	return rec, nil
}

// Check validates an already loaded record.
func (Validator) Check(rec transactions.Record, secureCode string) error {
	if rec.Status != transactions.StatusPending {
		return fmt.Errorf("%w: %w", ErrValidationFailed, ErrNotPending)
	}

	if rec.CodeUsed {
		return fmt.Errorf("%w: secure code already used", ErrValidationFailed)
	}

	if secureCode == "" || subtle.ConstantTimeCompare([]byte(rec.SecureCode), []byte(secureCode)) != 1 {
		return fmt.Errorf("%w: secure code mismatch", ErrValidationFailed)
	}

	return nil
}
