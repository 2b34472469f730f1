package transactions

import (
	"context"
	"fmt"

	"github.com/fastprodman/moneyserver/internal/repos/transactions"
)

func (r *transactionsRepo) ListByUser(ctx context.Context, q transactions.UserQuery) ([]transactions.Record, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM transactions
		WHERE (sender = $1 OR receiver = $1)
		  AND time >= $2
		  AND time <= $3
		ORDER BY time ASC, transaction_id ASC
		OFFSET $4
		LIMIT $5
	`, q.UserID, q.Start, q.End, q.Offset, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	return collect(rows)
}

func (r *transactionsRepo) CountByUser(ctx context.Context, userID string, start, end int64) (int64, error) {
	var n int64

	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM transactions
		WHERE (sender = $1 OR receiver = $1)
		  AND time >= $2
		  AND time <= $3
	`, userID, start, end).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}

	return n, nil
}

type rowsIter interface {
	scanner
	Next() bool
	Err() error
	Close() error
}

func collect(rows rowsIter) ([]transactions.Record, error) {
	//nolint:errcheck
	defer rows.Close()

	out := make([]transactions.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		out = append(out, rec)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return out, nil
}
