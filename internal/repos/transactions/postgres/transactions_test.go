package transactions

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/moneyserver/internal/infra/pgtestutil"
	"github.com/fastprodman/moneyserver/internal/infra/pgutils"
	"github.com/fastprodman/moneyserver/internal/repos/transactions"
)

func newRecord(sender, receiver string, at int64) transactions.Record {
	return transactions.Record{
		ID:              uuid.New(),
		Sender:          sender,
		Receiver:        receiver,
		Amount:          10,
		SenderBalance:   transactions.NoBalance,
		ReceiverBalance: transactions.NoBalance,
		Time:            at,
		Status:          transactions.StatusPending,
		SecureCode:      uuid.NewString(),
	}
}

func TestTransactions_Append_DuplicateMock(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO transactions").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = New(db).Append(t.Context(), newRecord("alice", "bob", 1))
	require.ErrorIs(t, err, transactions.ErrDuplicateTransaction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactions_UpdateStatus_NotFoundMock(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE transactions").
		WithArgs(id.String(), "FAILED", "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = New(db).UpdateStatus(t.Context(), id, transactions.StatusFailed, "gone")
	require.ErrorIs(t, err, transactions.ErrTransactionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactions_Get_ScanMock(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	cols := []string{
		"transaction_id", "sender", "receiver", "amount", "sender_balance", "receiver_balance",
		"type", "time", "status", "object_uuid", "object_name", "region_handle", "region_uuid",
		"secure_code", "common_name", "description", "debited", "code_used",
	}

	mock.ExpectQuery("SELECT (.+) FROM transactions WHERE transaction_id = \\$1 FOR UPDATE").
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			id.String(), "alice", "bob", int64(10), int64(90), int64(-1),
			int64(3), int64(100), "PENDING", uuid.Nil.String(), "box", int64(-1), uuid.Nil.String(),
			"code", "", "", true, false,
		))
	mock.ExpectQuery("SELECT (.+) FROM transactions WHERE transaction_id = \\$1").
		WithArgs(id.String()).
		WillReturnError(sql.ErrNoRows)

	repo := New(db)

	rec, err := repo.LockAndGet(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, transactions.StatusPending, rec.Status)
	assert.Equal(t, uint64(math.MaxUint64), rec.RegionHandle)
	assert.Equal(t, 3, rec.Type)
	assert.True(t, rec.Debited)

	_, err = repo.Get(t.Context(), id)
	require.ErrorIs(t, err, transactions.ErrTransactionNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactions_AppendAndGet(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)

	repo := New(db)
	ctx := t.Context()

	want := newRecord("alice", "bob", 1_700_000_000)
	want.ObjectUUID = uuid.New()
	want.ObjectName = "box"
	want.RegionHandle = math.MaxUint64 - 5
	want.RegionUUID = uuid.New()
	want.CommonName = "Alice Resident"
	want.Type = 5001

	err := repo.Append(ctx, want)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	err = repo.Append(ctx, want)
	if !errors.Is(err, transactions.ErrDuplicateTransaction) {
		t.Fatalf("want ErrDuplicateTransaction, got %v", err)
	}

	got, err := repo.Get(ctx, want.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != want {
		t.Fatalf("record mismatch:\nwant %+v\ngot  %+v", want, got)
	}

	_, err = repo.Get(ctx, uuid.New())
	if !errors.Is(err, transactions.ErrTransactionNotFound) {
		t.Fatalf("want ErrTransactionNotFound, got %v", err)
	}
}

func TestTransactions_Progress(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)

	repo := New(db)
	ctx := t.Context()

	rec := newRecord("alice", "bob", 1)
	err := repo.Append(ctx, rec)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	err = pgutils.WithTx(ctx, db, func(tx *sql.Tx) error {
		r := New(tx)

		_, err := r.LockAndGet(ctx, rec.ID)
		if err != nil {
			return err
		}

		for _, step := range []func() error{
			func() error { return r.SetSenderBalance(ctx, rec.ID, 90) },
			func() error { return r.SetReceiverBalance(ctx, rec.ID, 10) },
			func() error { return r.MarkCodeUsed(ctx, rec.ID) },
			func() error { return r.UpdateStatus(ctx, rec.ID, transactions.StatusSuccess, "done") },
		} {
			err = step()
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		t.Fatalf("progress tx: %v", err)
	}

	got, err := repo.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if !got.Debited || !got.CodeUsed || got.SenderBalance != 90 || got.ReceiverBalance != 10 ||
		got.Status != transactions.StatusSuccess || got.Description != "done" {
		t.Fatalf("unexpected record after progress: %+v", got)
	}

	missing := uuid.New()
	for name, err := range map[string]error{
		"status":   repo.UpdateStatus(ctx, missing, transactions.StatusFailed, ""),
		"sender":   repo.SetSenderBalance(ctx, missing, 1),
		"receiver": repo.SetReceiverBalance(ctx, missing, 1),
		"code":     repo.MarkCodeUsed(ctx, missing),
	} {
		if !errors.Is(err, transactions.ErrTransactionNotFound) {
			t.Fatalf("%s on missing record: want ErrTransactionNotFound, got %v", name, err)
		}
	}
}

func TestTransactions_ListAndCount(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)

	repo := New(db)
	ctx := t.Context()

	for i, rec := range []transactions.Record{
		newRecord("alice", "bob", 10),
		newRecord("bob", "alice", 20),
		newRecord("alice", "carol", 30),
		newRecord("carol", "bob", 40),
		newRecord("alice", "bob", 50),
	} {
		err := repo.Append(ctx, rec)
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	tests := []struct {
		name      string
		query     transactions.UserQuery
		wantTimes []int64
	}{
		{"all", transactions.UserQuery{UserID: "alice", Start: 0, End: 100, Limit: 100}, []int64{10, 20, 30, 50}},
		{"inclusive_bounds", transactions.UserQuery{UserID: "alice", Start: 20, End: 30, Limit: 100}, []int64{20, 30}},
		{"offset_limit", transactions.UserQuery{UserID: "alice", Start: 0, End: 100, Offset: 1, Limit: 2}, []int64{20, 30}},
		{"offset_past_end", transactions.UserQuery{UserID: "alice", Start: 0, End: 100, Offset: 10, Limit: 2}, nil},
		{"unknown_user", transactions.UserQuery{UserID: "dave", Start: 0, End: 100, Limit: 100}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := repo.ListByUser(ctx, tt.query)
			if err != nil {
				t.Fatalf("list: %v", err)
			}

			if len(recs) != len(tt.wantTimes) {
				t.Fatalf("want %d records, got %d", len(tt.wantTimes), len(recs))
			}

			for i, rec := range recs {
				if rec.Time != tt.wantTimes[i] {
					t.Fatalf("record %d: want time %d, got %d", i, tt.wantTimes[i], rec.Time)
				}
			}
		})
	}

	n, err := repo.CountByUser(ctx, "bob", 0, 40)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("want 3 records for bob, got %d", n)
	}
}

func TestTransactions_Expire(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)

	repo := New(db)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	stale := newRecord("alice", "bob", 100)
	staleDebited := newRecord("alice", "bob", 110)
	settled := newRecord("alice", "bob", 120)
	settled.Status = transactions.StatusSuccess
	boundary := newRecord("alice", "bob", 200)

	for _, rec := range []transactions.Record{stale, staleDebited, settled, boundary} {
		err := repo.Append(ctx, rec)
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	err := repo.SetSenderBalance(ctx, staleDebited.ID, 90)
	if err != nil {
		t.Fatalf("set sender balance: %v", err)
	}

	err = pgutils.WithTx(ctx, db, func(tx *sql.Tx) error {
		r := New(tx)

		expiring, err := r.ListExpiring(ctx, 200)
		if err != nil {
			return err
		}
		if len(expiring) != 1 || expiring[0].ID != staleDebited.ID {
			t.Errorf("ListExpiring: want only the debited record, got %+v", expiring)
		}

		n, err := r.ExpireOlderThan(ctx, 200)
		if err != nil {
			return err
		}
		if n != 1 {
			t.Errorf("ExpireOlderThan: want 1, got %d", n)
		}

		return nil
	})
	if err != nil {
		t.Fatalf("expire tx: %v", err)
	}

	for _, tc := range []struct {
		id   uuid.UUID
		want transactions.Status
	}{
		{stale.ID, transactions.StatusFailed},
		{staleDebited.ID, transactions.StatusPending},
		{settled.ID, transactions.StatusSuccess},
		{boundary.ID, transactions.StatusPending},
	} {
		got, err := repo.Get(ctx, tc.id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != tc.want {
			t.Fatalf("record at %d: want %s, got %s", got.Time, tc.want, got.Status)
		}
	}
}
