package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/moneyserver/internal/repos/accounts"
)

func (r *accountsRepo) Get(ctx context.Context, userID string) (accounts.Account, error) {
	acc := accounts.Account{UserID: userID}

	err := r.q.QueryRowContext(ctx, `
		SELECT balance, status, type
		FROM accounts
		WHERE user_id = $1
	`, userID).Scan(&acc.Balance, &acc.Status, &acc.Type)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.Account{}, accounts.ErrAccountNotFound
		}

		return accounts.Account{}, fmt.Errorf("get account: %w", err)
	}

	return acc, nil
}

func (r *accountsRepo) GetBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64

	err := r.q.QueryRowContext(ctx, `
		SELECT balance
		FROM accounts
		WHERE user_id = $1
	`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, accounts.ErrAccountNotFound
		}

		return 0, fmt.Errorf("get balance: %w", err)
	}

	return balance, nil
}
