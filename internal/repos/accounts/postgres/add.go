package accounts

import (
	"context"
	"fmt"

	"github.com/fastprodman/moneyserver/internal/infra/pgutils"
	"github.com/fastprodman/moneyserver/internal/repos/accounts"
)

func (r *accountsRepo) Add(ctx context.Context, acc accounts.Account) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO accounts (user_id, balance, status, type)
		VALUES ($1, $2, $3, $4)
	`, acc.UserID, acc.Balance, acc.Status, acc.Type)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return accounts.ErrAccountExists
		}

		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}
