package transactions

import (
	"context"
	"fmt"

	"github.com/fastprodman/moneyserver/internal/infra/pgutils"
	"github.com/fastprodman/moneyserver/internal/repos/transactions"
)

func (r *transactionsRepo) Append(ctx context.Context, rec transactions.Record) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO transactions (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		rec.ID, rec.Sender, rec.Receiver, rec.Amount, rec.SenderBalance, rec.ReceiverBalance,
		rec.Type, rec.Time, string(rec.Status), rec.ObjectUUID, rec.ObjectName, int64(rec.RegionHandle), rec.RegionUUID,
		rec.SecureCode, rec.CommonName, rec.Description, rec.Debited, rec.CodeUsed,
	)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return transactions.ErrDuplicateTransaction
		}

		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}
