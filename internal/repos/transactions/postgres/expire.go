package transactions

import (
	"context"
	"fmt"

	"github.com/fastprodman/moneyserver/internal/repos/transactions"
)

func (r *transactionsRepo) ListExpiring(ctx context.Context, deadTime int64) ([]transactions.Record, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM transactions
		WHERE status = 'PENDING'
		  AND debited
		  AND time < $1
		ORDER BY time ASC, transaction_id ASC
		FOR UPDATE
	`, deadTime)
	if err != nil {
		return nil, fmt.Errorf("list expiring: %w", err)
	}

	return collect(rows)
}

func (r *transactionsRepo) ExpireOlderThan(ctx context.Context, deadTime int64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE transactions
		SET status = $2, description = $3
		WHERE status = 'PENDING'
		  AND NOT debited
		  AND time < $1
	`, deadTime, string(transactions.StatusFailed), transactions.ExpiredDescription)
	if err != nil {
		return 0, fmt.Errorf("expire transactions: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return affected, nil
}
