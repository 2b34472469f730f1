package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/moneyserver/internal/repos/accounts"
)

func (r *accountsRepo) AdjustBalance(ctx context.Context, userID string, delta int64) (int64, error) {
	var balance int64

	err := r.q.QueryRowContext(ctx, `
		UPDATE accounts
		SET balance = balance + $2
		WHERE user_id = $1
		  AND balance + $2 >= 0
		RETURNING balance
	`, userID, delta).Scan(&balance)
	if err == nil {
		return balance, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}

	// no row updated: either the account is missing or the guard rejected it
	err = r.exists(ctx, userID)
	if err != nil {
		return 0, err
	}

	return 0, accounts.ErrInsufficientFunds
}

func (r *accountsRepo) exists(ctx context.Context, userID string) error {
	var exists bool

	err := r.q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM accounts WHERE user_id = $1)
	`, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}

	if !exists {
		return accounts.ErrAccountNotFound
	}

	return nil
}
