package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fastprodman/moneyserver/internal/repos/transactions"
)

func (r *transactionsRepo) Get(ctx context.Context, id uuid.UUID) (transactions.Record, error) {
	rec, err := scanRecord(r.q.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM transactions
		WHERE transaction_id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transactions.Record{}, transactions.ErrTransactionNotFound
		}

		return transactions.Record{}, fmt.Errorf("get transaction: %w", err)
	}

	return rec, nil
}

func (r *transactionsRepo) LockAndGet(ctx context.Context, id uuid.UUID) (transactions.Record, error) {
	rec, err := scanRecord(r.q.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM transactions
		WHERE transaction_id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transactions.Record{}, transactions.ErrTransactionNotFound
		}

		return transactions.Record{}, fmt.Errorf("lock/get transaction: %w", err)
	}

	return rec, nil
}
