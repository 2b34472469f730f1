package accounts

import (
	"context"
	"errors"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountExists     = errors.New("account already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Account is a user's currency balance. Values are copies; stored state only
// changes through Accounts methods.
type Account struct {
	UserID  string
	Balance int64
	Status  int
	Type    int
}

type Accounts interface {
	Add(ctx context.Context, acc Account) error
	Get(ctx context.Context, userID string) (Account, error)
	GetBalance(ctx context.Context, userID string) (int64, error)
	// AdjustBalance applies delta and returns the new balance. A result below
	// zero fails with ErrInsufficientFunds and leaves the balance untouched.
	AdjustBalance(ctx context.Context, userID string, delta int64) (int64, error)
}
