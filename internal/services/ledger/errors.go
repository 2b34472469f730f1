package ledger

import (
	"errors"

	"github.com/fastprodman/moneyserver/internal/guard"
	"github.com/fastprodman/moneyserver/internal/repos/accounts"
	"github.com/fastprodman/moneyserver/internal/repos/transactions"
	"github.com/fastprodman/moneyserver/internal/repos/userinfo"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidAmount   = errors.New("amount must not be negative")

	// ErrValidationFailed covers a missing record, a consumed or wrong
	// secure code, or a record that is no longer pending.
	ErrValidationFailed = errors.New("transfer validation failed")

	ErrNotPending          = errors.New("transaction is not pending")
	ErrAlreadyDebited      = errors.New("sender side already applied")
	ErrNotDebited          = errors.New("sender side not applied yet")
	ErrTransactionMismatch = errors.New("call does not match the transaction record")
	ErrInvalidTransition   = errors.New("invalid status transition")

	// ErrTransferRolledBack is returned by GiveMoney when the credit failed
	// and the sender was refunded. The record is left in ERROR.
	ErrTransferRolledBack = errors.New("credit failed, withdrawal rolled back")

	// ErrReconciliationRequired means a refund did not go through. The
	// record is escalated to ERROR with ReconcileDescription and keeps its
	// debit until an operator settles it.
	ErrReconciliationRequired = errors.New("rollback failed, manual reconciliation required")
)

// ReconcileDescription prefixes the description of records escalated after a
// failed refund.
const ReconcileDescription = "refund failed, reconcile"

// rejections are the recoverable outcomes: the call was refused, the store
// is healthy and retrying the same call will not change the answer.
var rejections = []error{
	ErrInvalidArgument,
	ErrInvalidAmount,
	ErrValidationFailed,
	ErrNotPending,
	ErrAlreadyDebited,
	ErrNotDebited,
	ErrTransactionMismatch,
	ErrInvalidTransition,
	ErrTransferRolledBack,
	accounts.ErrAccountNotFound,
	accounts.ErrAccountExists,
	accounts.ErrInsufficientFunds,
	transactions.ErrTransactionNotFound,
	transactions.ErrDuplicateTransaction,
	userinfo.ErrUserInfoNotFound,
	userinfo.ErrUserInfoExists,
}

// IsRejected reports whether err is a negative answer rather than a failure.
// A failed rollback is never a rejection, whatever caused it.
func IsRejected(err error) bool {
	if err == nil || errors.Is(err, ErrReconciliationRequired) {
		return false
	}

	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

// IsRetryable reports whether the caller should retry with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, guard.ErrAcquireTimeout)
}
