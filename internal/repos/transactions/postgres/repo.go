package transactions

import (
	"github.com/fastprodman/moneyserver/internal/infra/pgutils"
	"github.com/fastprodman/moneyserver/internal/repos/transactions"
)

var _ transactions.Transactions = (*transactionsRepo)(nil)

type transactionsRepo struct{ q pgutils.Querier }

// New binds the repo to a pool or to a running transaction.
func New(q pgutils.Querier) *transactionsRepo {
	return &transactionsRepo{q: q}
}

const recordColumns = `
	transaction_id, sender, receiver, amount, sender_balance, receiver_balance,
	type, time, status, object_uuid, object_name, region_handle, region_uuid,
	secure_code, common_name, description, debited, code_used`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (transactions.Record, error) {
	var (
		rec          transactions.Record
		status       string
		regionHandle int64
	)

	err := s.Scan(
		&rec.ID, &rec.Sender, &rec.Receiver, &rec.Amount, &rec.SenderBalance, &rec.ReceiverBalance,
		&rec.Type, &rec.Time, &status, &rec.ObjectUUID, &rec.ObjectName, &regionHandle, &rec.RegionUUID,
		&rec.SecureCode, &rec.CommonName, &rec.Description, &rec.Debited, &rec.CodeUsed,
	)
	if err != nil {
		return transactions.Record{}, err
	}

	rec.Status = transactions.Status(status)
	// region handles are stored bit-for-bit in a signed BIGINT
	rec.RegionHandle = uint64(regionHandle)

	return rec, nil
}
