// Package ledger moves money between accounts in two steps, withdraw then
// give, and keeps an auditable record of every transfer.
//
// All mutations on one ledger instance are serialized by a guard.Guard; reads
// go straight to the store and see committed data.
package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/fastprodman/moneyserver/internal/guard"
	"github.com/fastprodman/moneyserver/internal/repos/accounts"
	"github.com/fastprodman/moneyserver/internal/repos/transactions"
	"github.com/fastprodman/moneyserver/internal/repos/userinfo"
)

// Ledger is the entry point shared by concurrent callers.
type Ledger struct {
	guard guard.Guard
	mgr   *Manager
}

func New(g guard.Guard, m *Manager) *Ledger {
	return &Ledger{guard: g, mgr: m}
}

// Session is an explicit hold on the instance guard. Every Manager method
// called through it runs without further locking. Close releases the guard.
//
// Pass Context to the session's methods: it keeps the values of the context
// given to Acquire but not its cancellation, so a withdraw and its give are
// never cut apart by the caller going away.
type Session struct {
	*Manager
	ctx     context.Context
	release guard.Release
}

func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) Close() {
	s.release()
}

// Acquire takes the guard for a sequence of operations, e.g. a withdraw
// followed by the matching give. ctx bounds only the wait for the guard.
func (l *Ledger) Acquire(ctx context.Context) (*Session, error) {
	release, err := l.guard.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	return &Session{Manager: l.mgr, ctx: context.WithoutCancel(ctx), release: release}, nil
}

// WithSession runs fn while holding the guard.
func (l *Ledger) WithSession(ctx context.Context, fn func(ctx context.Context, m *Manager) error) error {
	return guard.With(ctx, l.guard, func(ctx context.Context) error {
		return fn(ctx, l.mgr)
	})
}

func (l *Ledger) AddUser(ctx context.Context, acc accounts.Account) error {
	return l.WithSession(ctx, func(ctx context.Context, m *Manager) error {
		return m.AddUser(ctx, acc)
	})
}

func (l *Ledger) GetBalance(ctx context.Context, userID string) (int64, error) {
	return l.mgr.GetBalance(ctx, userID)
}

func (l *Ledger) GetAccount(ctx context.Context, userID string) (accounts.Account, error) {
	return l.mgr.GetAccount(ctx, userID)
}

func (l *Ledger) AddTransaction(ctx context.Context, rec transactions.Record) (transactions.Record, error) {
	var out transactions.Record

	err := l.WithSession(ctx, func(ctx context.Context, m *Manager) error {
		var err error

		out, err = m.AddTransaction(ctx, rec)

		return err
	})

	return out, err
}

func (l *Ledger) WithdrawMoney(ctx context.Context, id uuid.UUID, senderID string, amount int64) error {
	return l.WithSession(ctx, func(ctx context.Context, m *Manager) error {
		return m.WithdrawMoney(ctx, id, senderID, amount)
	})
}

func (l *Ledger) GiveMoney(ctx context.Context, id uuid.UUID, receiverID string, amount int64) error {
	return l.WithSession(ctx, func(ctx context.Context, m *Manager) error {
		return m.GiveMoney(ctx, id, receiverID, amount)
	})
}

func (l *Ledger) ExecuteTransfer(ctx context.Context, secureCode string, id uuid.UUID) error {
	return l.WithSession(ctx, func(ctx context.Context, m *Manager) error {
		return m.ExecuteTransfer(ctx, secureCode, id)
	})
}

func (l *Ledger) ValidateTransfer(ctx context.Context, secureCode string, id uuid.UUID) (bool, error) {
	var ok bool

	err := l.WithSession(ctx, func(ctx context.Context, m *Manager) error {
		var err error

		ok, err = m.ValidateTransfer(ctx, secureCode, id)

		return err
	})

	return ok, err
}

func (l *Ledger) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status transactions.Status, description string) error {
	return l.WithSession(ctx, func(ctx context.Context, m *Manager) error {
		return m.UpdateTransactionStatus(ctx, id, status, description)
	})
}

func (l *Ledger) FetchTransaction(ctx context.Context, id uuid.UUID) (transactions.Record, error) {
	return l.mgr.FetchTransaction(ctx, id)
}

func (l *Ledger) FetchTransactions(ctx context.Context, q transactions.UserQuery) ([]transactions.Record, error) {
	return l.mgr.FetchTransactions(ctx, q)
}

func (l *Ledger) GetTransactionNum(ctx context.Context, userID string, start, end int64) (int64, error) {
	return l.mgr.GetTransactionNum(ctx, userID, start, end)
}

func (l *Ledger) SetTransExpired(ctx context.Context, deadTime int64) (int64, error) {
	var n int64

	err := l.WithSession(ctx, func(ctx context.Context, m *Manager) error {
		var err error

		n, err = m.SetTransExpired(ctx, deadTime)

		return err
	})

	return n, err
}

func (l *Ledger) AddUserInfo(ctx context.Context, info userinfo.Info) error {
	return l.WithSession(ctx, func(ctx context.Context, m *Manager) error {
		return m.AddUserInfo(ctx, info)
	})
}

func (l *Ledger) FetchUserInfo(ctx context.Context, userID string) (userinfo.Info, error) {
	return l.mgr.FetchUserInfo(ctx, userID)
}

func (l *Ledger) UpdateUserInfo(ctx context.Context, info userinfo.Info) error {
	return l.WithSession(ctx, func(ctx context.Context, m *Manager) error {
		return m.UpdateUserInfo(ctx, info)
	})
}
