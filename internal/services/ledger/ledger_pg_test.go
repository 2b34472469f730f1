package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/fastprodman/moneyserver/internal/guard"
	"github.com/fastprodman/moneyserver/internal/infra/pgtestutil"
	"github.com/fastprodman/moneyserver/internal/repos/accounts"
	"github.com/fastprodman/moneyserver/internal/repos/pgstore"
	"github.com/fastprodman/moneyserver/internal/repos/transactions"
)

// newPgLedger runs the ledger on a fresh migrated database.
func newPgLedger(t *testing.T, balances map[string]int64) *Ledger {
	t.Helper()

	db := pgtestutil.NewTestDB(t)
	l := New(guard.NewLocal(0), NewManager(pgstore.New(db), WithClock(fixedClock)))

	for id, bal := range balances {
		require.NoError(t, l.AddUser(t.Context(), accounts.Account{UserID: id, Balance: bal}))
	}

	return l
}

func pgBalance(t *testing.T, l *Ledger, userID string) int64 {
	t.Helper()

	bal, err := l.GetBalance(t.Context(), userID)
	require.NoError(t, err)

	return bal
}

func pgFetch(t *testing.T, l *Ledger, rec transactions.Record) transactions.Record {
	t.Helper()

	got, err := l.FetchTransaction(t.Context(), rec.ID)
	require.NoError(t, err)

	return got
}

func TestLedgerPostgres_TwoStepTransfer(t *testing.T) {
	t.Parallel()

	l := newPgLedger(t, map[string]int64{"alice": 1000, "bob": 0})
	ctx := t.Context()

	rec, err := l.AddTransaction(ctx, transactions.Record{Sender: "alice", Receiver: "bob", Amount: 300, SecureCode: "abc"})
	require.NoError(t, err)

	require.NoError(t, l.WithdrawMoney(ctx, rec.ID, "alice", 300))
	assert.Equal(t, int64(700), pgBalance(t, l, "alice"))

	got := pgFetch(t, l, rec)
	assert.Equal(t, transactions.StatusPending, got.Status)
	assert.True(t, got.Debited)
	assert.Equal(t, int64(700), got.SenderBalance)

	require.NoError(t, l.GiveMoney(ctx, rec.ID, "bob", 300))
	assert.Equal(t, int64(300), pgBalance(t, l, "bob"))

	got = pgFetch(t, l, rec)
	assert.Equal(t, transactions.StatusSuccess, got.Status)
	assert.Equal(t, int64(300), got.ReceiverBalance)

	// completed exactly once
	require.ErrorIs(t, l.GiveMoney(ctx, rec.ID, "bob", 300), ErrNotPending)
	assert.Equal(t, int64(300), pgBalance(t, l, "bob"))
}

func TestLedgerPostgres_InsufficientFunds(t *testing.T) {
	t.Parallel()

	l := newPgLedger(t, map[string]int64{"alice": 100, "bob": 0})

	rec, err := l.AddTransaction(t.Context(), transactions.Record{Sender: "alice", Receiver: "bob", Amount: 150})
	require.NoError(t, err)

	err = l.WithdrawMoney(t.Context(), rec.ID, "alice", 150)
	require.ErrorIs(t, err, accounts.ErrInsufficientFunds)
	assert.True(t, IsRejected(err))

	assert.Equal(t, int64(100), pgBalance(t, l, "alice"))

	got := pgFetch(t, l, rec)
	assert.Equal(t, transactions.StatusFailed, got.Status)
	assert.False(t, got.Debited)
}

func TestLedgerPostgres_FailedGiveRefundsSender(t *testing.T) {
	t.Parallel()

	l := newPgLedger(t, map[string]int64{"alice": 100})
	ctx := t.Context()

	rec, err := l.AddTransaction(ctx, transactions.Record{Sender: "alice", Receiver: "nobody", Amount: 40})
	require.NoError(t, err)

	require.NoError(t, l.WithdrawMoney(ctx, rec.ID, "alice", 40))
	assert.Equal(t, int64(60), pgBalance(t, l, "alice"))

	err = l.GiveMoney(ctx, rec.ID, "nobody", 40)
	require.ErrorIs(t, err, ErrTransferRolledBack)
	require.ErrorIs(t, err, accounts.ErrAccountNotFound)

	assert.Equal(t, int64(100), pgBalance(t, l, "alice"))
	assert.Equal(t, transactions.StatusError, pgFetch(t, l, rec).Status)
}

func TestLedgerPostgres_FailedRefundEscalates(t *testing.T) {
	t.Parallel()

	l := newPgLedger(t, map[string]int64{"alice": math.MaxInt64 - 10, "bob": 60})
	ctx := t.Context()

	rec, err := l.AddTransaction(ctx, transactions.Record{Sender: "alice", Receiver: "nobody", Amount: 50})
	require.NoError(t, err)
	require.NoError(t, l.WithdrawMoney(ctx, rec.ID, "alice", 50))

	topUp, err := l.AddTransaction(ctx, transactions.Record{Sender: "bob", Receiver: "alice", Amount: 60})
	require.NoError(t, err)
	require.NoError(t, l.ExecuteTransfer(ctx, topUp.SecureCode, topUp.ID))

	// the refund would overflow alice's balance
	err = l.GiveMoney(ctx, rec.ID, "nobody", 50)
	require.ErrorIs(t, err, ErrReconciliationRequired)

	got := pgFetch(t, l, rec)
	assert.Equal(t, transactions.StatusError, got.Status)
	assert.True(t, got.Debited)
	assert.Contains(t, got.Description, ReconcileDescription)
	assert.Equal(t, int64(math.MaxInt64), pgBalance(t, l, "alice"))
}

func TestLedgerPostgres_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	l := newPgLedger(t, map[string]int64{"carol": 50, "dave": 0})
	ctx := t.Context()

	add := func(at, amount int64) transactions.Record {
		rec, err := l.AddTransaction(ctx, transactions.Record{Sender: "carol", Receiver: "dave", Amount: amount, Time: at})
		require.NoError(t, err)

		return rec
	}

	stale := add(100, 5)
	staleDebited := add(150, 20)
	require.NoError(t, l.WithdrawMoney(ctx, staleDebited.ID, "carol", 20))
	boundary := add(200, 5)

	n, err := l.SetTransExpired(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got := pgFetch(t, l, stale)
	assert.Equal(t, transactions.StatusFailed, got.Status)
	assert.Equal(t, transactions.ExpiredDescription, got.Description)

	assert.Equal(t, transactions.StatusFailed, pgFetch(t, l, staleDebited).Status)
	assert.Equal(t, int64(50), pgBalance(t, l, "carol"))

	assert.Equal(t, transactions.StatusPending, pgFetch(t, l, boundary).Status)

	n, err = l.SetTransExpired(ctx, 200)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLedgerPostgres_ConcurrentWithdrawals(t *testing.T) {
	t.Parallel()

	l := newPgLedger(t, map[string]int64{"alice": 50, "bob": 0})
	ctx := t.Context()

	const workers = 10

	recs := make([]transactions.Record, workers)
	for i := range recs {
		rec, err := l.AddTransaction(ctx, transactions.Record{Sender: "alice", Receiver: "bob", Amount: 10})
		require.NoError(t, err)

		recs[i] = rec
	}

	var eg errgroup.Group

	for _, rec := range recs {
		eg.Go(func() error {
			err := l.WithdrawMoney(ctx, rec.ID, "alice", 10)
			if IsRejected(err) {
				return nil
			}

			return err
		})
	}

	require.NoError(t, eg.Wait())
	assert.Zero(t, pgBalance(t, l, "alice"))

	var debited int

	for _, rec := range recs {
		if pgFetch(t, l, rec).Debited {
			debited++
		}
	}

	assert.Equal(t, 5, debited)
}
