package transactions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/fastprodman/moneyserver/internal/repos/transactions"
)

func (r *transactionsRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status transactions.Status, description string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE transactions
		SET status = $2, description = $3
		WHERE transaction_id = $1
	`, id, string(status), description)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	return expectOne(res)
}

// SetSenderBalance records the sender's balance after the debit and marks the
// record debited.
func (r *transactionsRepo) SetSenderBalance(ctx context.Context, id uuid.UUID, balance int64) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE transactions
		SET sender_balance = $2, debited = TRUE
		WHERE transaction_id = $1
	`, id, balance)
	if err != nil {
		return fmt.Errorf("set sender balance: %w", err)
	}

	return expectOne(res)
}

func (r *transactionsRepo) SetReceiverBalance(ctx context.Context, id uuid.UUID, balance int64) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE transactions
		SET receiver_balance = $2
		WHERE transaction_id = $1
	`, id, balance)
	if err != nil {
		return fmt.Errorf("set receiver balance: %w", err)
	}

	return expectOne(res)
}

func (r *transactionsRepo) MarkCodeUsed(ctx context.Context, id uuid.UUID) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE transactions
		SET code_used = TRUE
		WHERE transaction_id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}

	return expectOne(res)
}

func expectOne(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return transactions.ErrTransactionNotFound
	}

	return nil
}
