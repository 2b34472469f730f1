package memstore

import (
	"bytes"
	"cmp"
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/fastprodman/moneyserver/internal/repos/transactions"
)

type transactionsRepo struct{ sc scope }

func (r transactionsRepo) Append(_ context.Context, rec transactions.Record) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.txns[rec.ID]; ok {
			return transactions.ErrDuplicateTransaction
		}

		st.txns[rec.ID] = rec

		return nil
	})
}

func (r transactionsRepo) Get(_ context.Context, id uuid.UUID) (transactions.Record, error) {
	var rec transactions.Record

	err := r.sc.read(func(st *state) error {
		found, ok := st.txns[id]
		if !ok {
			return transactions.ErrTransactionNotFound
		}

		rec = found

		return nil
	})

	return rec, err
}

// LockAndGet needs no row lock: a unit of work already owns the whole store.
func (r transactionsRepo) LockAndGet(ctx context.Context, id uuid.UUID) (transactions.Record, error) {
	return r.Get(ctx, id)
}

func (r transactionsRepo) UpdateStatus(_ context.Context, id uuid.UUID, status transactions.Status, description string) error {
	return r.update(id, func(rec *transactions.Record) {
		rec.Status = status
		rec.Description = description
	})
}

func (r transactionsRepo) SetSenderBalance(_ context.Context, id uuid.UUID, balance int64) error {
	return r.update(id, func(rec *transactions.Record) {
		rec.SenderBalance = balance
		rec.Debited = true
	})
}

func (r transactionsRepo) SetReceiverBalance(_ context.Context, id uuid.UUID, balance int64) error {
	return r.update(id, func(rec *transactions.Record) {
		rec.ReceiverBalance = balance
	})
}

func (r transactionsRepo) MarkCodeUsed(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(rec *transactions.Record) {
		rec.CodeUsed = true
	})
}

func (r transactionsRepo) update(id uuid.UUID, mutate func(rec *transactions.Record)) error {
	return r.sc.write(func(st *state) error {
		rec, ok := st.txns[id]
		if !ok {
			return transactions.ErrTransactionNotFound
		}

		mutate(&rec)
		st.txns[id] = rec

		return nil
	})
}

func (r transactionsRepo) ListByUser(_ context.Context, q transactions.UserQuery) ([]transactions.Record, error) {
	var out []transactions.Record

	err := r.sc.read(func(st *state) error {
		matched := r.filter(st, func(rec transactions.Record) bool {
			return involves(rec, q.UserID) && rec.Time >= q.Start && rec.Time <= q.End
		})

		out = page(matched, q.Offset, q.Limit)

		return nil
	})

	return out, err
}

func (r transactionsRepo) CountByUser(_ context.Context, userID string, start, end int64) (int64, error) {
	var n int64

	err := r.sc.read(func(st *state) error {
		for _, rec := range st.txns {
			if involves(rec, userID) && rec.Time >= start && rec.Time <= end {
				n++
			}
		}

		return nil
	})

	return n, err
}

func (r transactionsRepo) ListExpiring(_ context.Context, deadTime int64) ([]transactions.Record, error) {
	var out []transactions.Record

	err := r.sc.read(func(st *state) error {
		out = r.filter(st, func(rec transactions.Record) bool {
			return rec.Status == transactions.StatusPending && rec.Debited && rec.Time < deadTime
		})

		return nil
	})

	return out, err
}

func (r transactionsRepo) ExpireOlderThan(_ context.Context, deadTime int64) (int64, error) {
	var n int64

	err := r.sc.write(func(st *state) error {
		for id, rec := range st.txns {
			if rec.Status != transactions.StatusPending || rec.Debited || rec.Time >= deadTime {
				continue
			}

			rec.Status = transactions.StatusFailed
			rec.Description = transactions.ExpiredDescription
			st.txns[id] = rec
			n++
		}

		return nil
	})

	return n, err
}

// filter returns matching records ordered by time, then id.
func (r transactionsRepo) filter(st *state, keep func(rec transactions.Record) bool) []transactions.Record {
	out := make([]transactions.Record, 0)
	for _, rec := range st.txns {
		if keep(rec) {
			out = append(out, rec)
		}
	}

	slices.SortFunc(out, func(a, b transactions.Record) int {
		return cmp.Or(cmp.Compare(a.Time, b.Time), bytes.Compare(a.ID[:], b.ID[:]))
	})

	return out
}

func involves(rec transactions.Record, userID string) bool {
	return rec.Sender == userID || rec.Receiver == userID
}

func page(recs []transactions.Record, offset, limit int) []transactions.Record {
	offset = max(offset, 0)
	if offset >= len(recs) {
		return []transactions.Record{}
	}

	recs = recs[offset:]
	if limit < len(recs) {
		recs = recs[:limit]
	}

	return recs
}
