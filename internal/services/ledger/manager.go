package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fastprodman/moneyserver/internal/repos"
	"github.com/fastprodman/moneyserver/internal/repos/accounts"
	"github.com/fastprodman/moneyserver/internal/repos/transactions"
	"github.com/fastprodman/moneyserver/internal/repos/userinfo"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// Manager implements the ledger protocol on top of a Store. Every mutating
// method runs in a single unit of work.
//
// Manager does not serialize its callers. Mutations must run while holding
// the instance guard; use Ledger, which does that.
type Manager struct {
	store     repos.Store
	validator Validator
	now       func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now, e.g. in tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store repos.Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// --- Accounts ---

// AddUser creates an account. An existing account is not overwritten.
func (m *Manager) AddUser(ctx context.Context, acc accounts.Account) error {
	if acc.UserID == "" {
		return fmt.Errorf("add user: %w: empty user id", ErrInvalidArgument)
	}

	if acc.Balance < 0 {
		return fmt.Errorf("add user: %w", ErrInvalidAmount)
	}

	err := m.store.InTx(ctx, func(r repos.Repos) error {
		return r.Accounts.Add(ctx, acc)
	})
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}

	slog.Info("account created", "user_id", acc.UserID, "balance", acc.Balance)

	return nil
}

func (m *Manager) GetBalance(ctx context.Context, userID string) (int64, error) {
	balance, err := m.store.Repos().Accounts.GetBalance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}

	return balance, nil
}

func (m *Manager) GetAccount(ctx context.Context, userID string) (accounts.Account, error) {
	acc, err := m.store.Repos().Accounts.Get(ctx, userID)
	if err != nil {
		return accounts.Account{}, fmt.Errorf("get account: %w", err)
	}

	return acc, nil
}

// --- Transactions ---

// AddTransaction stores a new PENDING record and returns it as stored. A nil
// ID and an empty secure code are generated; a zero Time is stamped with now.
// Caller-supplied status and progress fields are ignored.
func (m *Manager) AddTransaction(ctx context.Context, rec transactions.Record) (transactions.Record, error) {
	switch {
	case rec.Amount < 0:
		return transactions.Record{}, fmt.Errorf("add transaction: %w", ErrInvalidAmount)
	case rec.Sender == "" || rec.Receiver == "":
		return transactions.Record{}, fmt.Errorf("add transaction: %w: sender and receiver are required", ErrInvalidArgument)
	case rec.Sender == rec.Receiver:
		return transactions.Record{}, fmt.Errorf("add transaction: %w: sender equals receiver", ErrInvalidArgument)
	}

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	if rec.SecureCode == "" {
		rec.SecureCode = uuid.NewString()
	}

	if rec.Time == 0 {
		rec.Time = m.now().Unix()
	}

	rec.Status = transactions.StatusPending
	rec.SenderBalance = transactions.NoBalance
	rec.ReceiverBalance = transactions.NoBalance
	rec.Debited = false
	rec.CodeUsed = false

	err := m.store.InTx(ctx, func(r repos.Repos) error {
		return r.Transactions.Append(ctx, rec)
	})
	if err != nil {
		return transactions.Record{}, fmt.Errorf("add transaction: %w", err)
	}

	slog.Info("transaction added",
		"transaction_id", rec.ID, "sender", rec.Sender, "receiver", rec.Receiver, "amount", rec.Amount)

	return rec, nil
}

// WithdrawMoney applies the sender side of a pending transaction. The call
// must name the record's sender and amount. When the sender cannot cover the
// amount, or has no account, the record is marked FAILED and no balance
// changes. On success the record stays PENDING until GiveMoney runs.
func (m *Manager) WithdrawMoney(ctx context.Context, id uuid.UUID, senderID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("withdraw money: %w", ErrInvalidAmount)
	}

	var refused error

	err := m.store.InTx(ctx, func(r repos.Repos) error {
		rec, err := r.Transactions.LockAndGet(ctx, id)
		if err != nil {
			return err
		}

		switch {
		case rec.Status != transactions.StatusPending:
			return ErrNotPending
		case rec.Debited:
			return ErrAlreadyDebited
		case rec.Sender != senderID || rec.Amount != amount:
			return ErrTransactionMismatch
		}

		balance, err := r.Accounts.AdjustBalance(ctx, senderID, -amount)
		if errors.Is(err, accounts.ErrInsufficientFunds) || errors.Is(err, accounts.ErrAccountNotFound) {
			refused = err

			// commit the FAILED mark, balances are untouched
			return r.Transactions.UpdateStatus(ctx, id, transactions.StatusFailed, err.Error())
		}
		if err != nil {
			return fmt.Errorf("debit sender: %w", err)
		}

		return r.Transactions.SetSenderBalance(ctx, id, balance)
	})
	if err != nil {
		return fmt.Errorf("withdraw money: %w", err)
	}

	if refused != nil {
		slog.Info("withdrawal refused", "transaction_id", id, "sender", senderID, "reason", refused)
		return fmt.Errorf("withdraw money: %w", refused)
	}

	return nil
}

// creditFailure marks errors raised after the record was confirmed to be
// pending and debited.
type creditFailure struct{ err error }

func (c creditFailure) Error() string { return c.err.Error() }
func (c creditFailure) Unwrap() error { return c.err }

// GiveMoney applies the receiver side of a debited transaction and completes
// it. If the credit fails for any reason the sender is refunded and the
// record ends in ERROR.
func (m *Manager) GiveMoney(ctx context.Context, id uuid.UUID, receiverID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("give money: %w", ErrInvalidAmount)
	}

	err := m.store.InTx(ctx, func(r repos.Repos) error {
		rec, err := r.Transactions.LockAndGet(ctx, id)
		if err != nil {
			return err
		}

		switch {
		case rec.Status != transactions.StatusPending:
			return ErrNotPending
		case !rec.Debited:
			return ErrNotDebited
		case rec.Receiver != receiverID || rec.Amount != amount:
			return creditFailure{ErrTransactionMismatch}
		}

		balance, err := r.Accounts.AdjustBalance(ctx, receiverID, amount)
		if err != nil {
			return creditFailure{fmt.Errorf("credit receiver: %w", err)}
		}

		err = r.Transactions.SetReceiverBalance(ctx, id, balance)
		if err != nil {
			return creditFailure{err}
		}

		err = r.Transactions.UpdateStatus(ctx, id, transactions.StatusSuccess, rec.Description)
		if err != nil {
			return creditFailure{err}
		}

		return nil
	})
	if err == nil {
		slog.Info("transfer completed", "transaction_id", id, "receiver", receiverID, "amount", amount)
		return nil
	}

	var cf creditFailure
	if !errors.As(err, &cf) && IsRejected(err) {
		// refused before anything was known to be debited
		return fmt.Errorf("give money: %w", err)
	}

	return m.compensate(ctx, id, err)
}

// compensate refunds the sender of a pending debited record after a failed
// credit and marks it ERROR. If the refund cannot be applied the record is
// escalated to ERROR without it. A record that turns out not to be pending
// and debited is left alone.
func (m *Manager) compensate(ctx context.Context, id uuid.UUID, cause error) error {
	var refunded bool

	err := m.store.InTx(ctx, func(r repos.Repos) error {
		rec, err := r.Transactions.LockAndGet(ctx, id)
		if err != nil {
			return err
		}

		if rec.Status != transactions.StatusPending || !rec.Debited {
			return nil
		}

		refunded = true

		return refundSender(ctx, r, rec, transactions.StatusError, "credit failed: "+cause.Error())
	})
	if err != nil {
		attrs := []any{"transaction_id", id, "cause", cause, "error", err}

		eerr := m.escalate(ctx, id, "credit failed: "+cause.Error())
		if eerr != nil {
			attrs = append(attrs, "escalate_error", eerr)
		}

		m.logReconcile(ctx, "rollback after failed credit did not complete, manual reconciliation required", id, attrs)

		return fmt.Errorf("give money: %w", errors.Join(ErrReconciliationRequired, cause, err))
	}

	if !refunded {
		return fmt.Errorf("give money: %w", cause)
	}

	slog.Warn("credit failed, sender refunded", "transaction_id", id, "cause", cause)

	return fmt.Errorf("give money: %w: %w", ErrTransferRolledBack, cause)
}

// refundSender credits the amount back to the sender and closes the record.
func refundSender(ctx context.Context, r repos.Repos, rec transactions.Record, status transactions.Status, description string) error {
	_, err := r.Accounts.AdjustBalance(ctx, rec.Sender, rec.Amount)
	if err != nil {
		return fmt.Errorf("refund sender: %w", err)
	}

	err = r.Transactions.UpdateStatus(ctx, rec.ID, status, description)
	if err != nil {
		return fmt.Errorf("close refunded transaction: %w", err)
	}

	return nil
}

// escalate marks a record that is still pending and debited as ERROR without
// touching balances. The debit stays in place for manual reconciliation.
func (m *Manager) escalate(ctx context.Context, id uuid.UUID, reason string) error {
	err := m.store.InTx(ctx, func(r repos.Repos) error {
		rec, err := r.Transactions.LockAndGet(ctx, id)
		if err != nil {
			return err
		}

		if rec.Status != transactions.StatusPending || !rec.Debited {
			return nil
		}

		return r.Transactions.UpdateStatus(ctx, id, transactions.StatusError, ReconcileDescription+": "+reason)
	})
	if err != nil {
		return fmt.Errorf("escalate transaction: %w", err)
	}

	return nil
}

// logReconcile logs an unrecoverable refund together with the stored record.
func (m *Manager) logReconcile(ctx context.Context, msg string, id uuid.UUID, attrs []any) {
	rec, err := m.store.Repos().Transactions.Get(ctx, id)
	if err == nil {
		attrs = append(attrs,
			"sender", rec.Sender, "receiver", rec.Receiver, "amount", rec.Amount,
			"status", rec.Status, "debited", rec.Debited, "time", rec.Time)
	}

	slog.Error(msg, attrs...)
}

// ExecuteTransfer validates the secure code and moves the money in a single
// unit of work. Nothing is applied unless both sides succeed; a refused
// transfer marks the record FAILED.
func (m *Manager) ExecuteTransfer(ctx context.Context, secureCode string, id uuid.UUID) error {
	var refused error

	err := m.store.InTx(ctx, func(r repos.Repos) error {
		rec, err := m.validator.Validate(ctx, r.Transactions, secureCode, id)
		if err != nil {
			return err
		}

		if rec.Debited {
			return ErrAlreadyDebited
		}

		senderBalance, err := r.Accounts.AdjustBalance(ctx, rec.Sender, -rec.Amount)
		if err != nil {
			refused = err
			return err
		}

		receiverBalance, err := r.Accounts.AdjustBalance(ctx, rec.Receiver, rec.Amount)
		if err != nil {
			refused = err
			return err
		}

		for _, step := range []func() error{
			func() error { return r.Transactions.MarkCodeUsed(ctx, id) },
			func() error { return r.Transactions.SetSenderBalance(ctx, id, senderBalance) },
			func() error { return r.Transactions.SetReceiverBalance(ctx, id, receiverBalance) },
			func() error { return r.Transactions.UpdateStatus(ctx, id, transactions.StatusSuccess, rec.Description) },
		} {
			err = step()
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err == nil {
		slog.Info("transfer executed", "transaction_id", id)
		return nil
	}

	if refused == nil || !IsRejected(refused) {
		return fmt.Errorf("execute transfer: %w", err)
	}

	// the unit of work rolled back; record the refusal on its own
	ferr := m.store.InTx(ctx, func(r repos.Repos) error {
		rec, err := r.Transactions.LockAndGet(ctx, id)
		if err != nil {
			return err
		}

		if rec.Status != transactions.StatusPending {
			return nil
		}

		return r.Transactions.UpdateStatus(ctx, id, transactions.StatusFailed, refused.Error())
	})
	if ferr != nil {
		return fmt.Errorf("execute transfer: %w", errors.Join(refused, ferr))
	}

	return fmt.Errorf("execute transfer: %w", refused)
}

// ValidateTransfer reports whether secureCode authorizes the pending
// transaction. A successful validation consumes the code, so replaying it
// returns false. Only store failures produce an error.
func (m *Manager) ValidateTransfer(ctx context.Context, secureCode string, id uuid.UUID) (bool, error) {
	var ok bool

	err := m.store.InTx(ctx, func(r repos.Repos) error {
		_, err := m.validator.Validate(ctx, r.Transactions, secureCode, id)
		if errors.Is(err, ErrValidationFailed) {
			slog.Warn("transfer validation failed", "transaction_id", id, "reason", err)
			return nil
		}
		if err != nil {
			return err
		}

		ok = true

		return r.Transactions.MarkCodeUsed(ctx, id)
	})
	if err != nil {
		return false, fmt.Errorf("validate transfer: %w", err)
	}

	return ok, nil
}

// UpdateTransactionStatus closes a pending transaction by hand. A debited
// record closed as FAILED or ERROR refunds its sender; it cannot be closed as
// SUCCESS because the receiver has not been credited.
func (m *Manager) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status transactions.Status, description string) error {
	if !status.Terminal() {
		return fmt.Errorf("update transaction status: %w: target %q", ErrInvalidTransition, status)
	}

	err := m.store.InTx(ctx, func(r repos.Repos) error {
		rec, err := r.Transactions.LockAndGet(ctx, id)
		if err != nil {
			return err
		}

		if rec.Status != transactions.StatusPending {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, status)
		}

		if !rec.Debited {
			return r.Transactions.UpdateStatus(ctx, id, status, description)
		}

		if status == transactions.StatusSuccess {
			return fmt.Errorf("%w: receiver not credited", ErrInvalidTransition)
		}

		return refundSender(ctx, r, rec, status, description)
	})
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}

	return nil
}

func (m *Manager) FetchTransaction(ctx context.Context, id uuid.UUID) (transactions.Record, error) {
	rec, err := m.store.Repos().Transactions.Get(ctx, id)
	if err != nil {
		return transactions.Record{}, fmt.Errorf("fetch transaction: %w", err)
	}

	return rec, nil
}

// FetchTransactions pages through a user's records by time. A zero Limit
// means DefaultPageSize; larger limits are capped at MaxPageSize.
func (m *Manager) FetchTransactions(ctx context.Context, q transactions.UserQuery) ([]transactions.Record, error) {
	switch {
	case q.UserID == "":
		return nil, fmt.Errorf("fetch transactions: %w: empty user id", ErrInvalidArgument)
	case q.Offset < 0 || q.Limit < 0:
		return nil, fmt.Errorf("fetch transactions: %w: negative offset or limit", ErrInvalidArgument)
	case q.Start > q.End:
		return nil, fmt.Errorf("fetch transactions: %w: start after end", ErrInvalidArgument)
	}

	if q.Limit == 0 {
		q.Limit = DefaultPageSize
	}

	q.Limit = min(q.Limit, MaxPageSize)

	recs, err := m.store.Repos().Transactions.ListByUser(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}

	return recs, nil
}

func (m *Manager) GetTransactionNum(ctx context.Context, userID string, start, end int64) (int64, error) {
	if start > end {
		return 0, fmt.Errorf("get transaction num: %w: start after end", ErrInvalidArgument)
	}

	n, err := m.store.Repos().Transactions.CountByUser(ctx, userID, start, end)
	if err != nil {
		return 0, fmt.Errorf("get transaction num: %w", err)
	}

	return n, nil
}

// SetTransExpired fails every pending transaction older than deadTime and
// returns how many were closed. Senders of debited records get their money
// back first, one record per unit of work; a record whose refund cannot be
// applied is escalated to ERROR and the sweep carries on. Records with
// Time >= deadTime and settled records are never touched.
func (m *Manager) SetTransExpired(ctx context.Context, deadTime int64) (int64, error) {
	debited, err := m.store.Repos().Transactions.ListExpiring(ctx, deadTime)
	if err != nil {
		return 0, fmt.Errorf("set transactions expired: %w", err)
	}

	var (
		refunded, escalated int64
		errs                []error
	)

	for _, rec := range debited {
		ok, err := m.expireDebited(ctx, rec.ID, deadTime)
		switch {
		case errors.Is(err, ErrReconciliationRequired):
			escalated++
		case err != nil:
			errs = append(errs, fmt.Errorf("transaction %s: %w", rec.ID, err))
		case ok:
			refunded++
		}
	}

	var expired int64

	err = m.store.InTx(ctx, func(r repos.Repos) error {
		var err error

		expired, err = r.Transactions.ExpireOlderThan(ctx, deadTime)

		return err
	})
	if err != nil {
		errs = append(errs, err)
	}

	if refunded+expired+escalated > 0 {
		slog.Info("pending transactions expired",
			"dead_time", deadTime, "expired", expired, "refunded", refunded, "escalated", escalated)
	}

	if len(errs) > 0 {
		return refunded + expired, fmt.Errorf("set transactions expired: %w", errors.Join(errs...))
	}

	return refunded + expired, nil
}

// expireDebited refunds and fails one expiring debited record. It reports
// false when the record no longer qualifies. A refund that cannot be applied
// escalates the record and returns ErrReconciliationRequired; only a failed
// escalation is returned as a plain error.
func (m *Manager) expireDebited(ctx context.Context, id uuid.UUID, deadTime int64) (bool, error) {
	var closed bool

	err := m.store.InTx(ctx, func(r repos.Repos) error {
		rec, err := r.Transactions.LockAndGet(ctx, id)
		if err != nil {
			return err
		}

		if rec.Status != transactions.StatusPending || !rec.Debited || rec.Time >= deadTime {
			return nil
		}

		closed = true

		return refundSender(ctx, r, rec, transactions.StatusFailed, transactions.ExpiredDescription+"; sender refunded")
	})
	if err == nil {
		return closed, nil
	}

	attrs := []any{"transaction_id", id, "error", err}

	eerr := m.escalate(ctx, id, "expiry refund failed: "+err.Error())
	if eerr != nil {
		attrs = append(attrs, "escalate_error", eerr)
		m.logReconcile(ctx, "expiry refund failed and the record could not be escalated", id, attrs)

		return false, errors.Join(err, eerr)
	}

	m.logReconcile(ctx, "expiry refund failed, manual reconciliation required", id, attrs)

	return false, ErrReconciliationRequired
}

// --- User info ---

func (m *Manager) AddUserInfo(ctx context.Context, info userinfo.Info) error {
	if info.UserID == "" {
		return fmt.Errorf("add user info: %w: empty user id", ErrInvalidArgument)
	}

	err := m.store.InTx(ctx, func(r repos.Repos) error {
		return r.UserInfo.Add(ctx, info)
	})
	if err != nil {
		return fmt.Errorf("add user info: %w", err)
	}

	return nil
}

func (m *Manager) FetchUserInfo(ctx context.Context, userID string) (userinfo.Info, error) {
	info, err := m.store.Repos().UserInfo.Get(ctx, userID)
	if err != nil {
		return userinfo.Info{}, fmt.Errorf("fetch user info: %w", err)
	}

	return info, nil
}

func (m *Manager) UpdateUserInfo(ctx context.Context, info userinfo.Info) error {
	if info.UserID == "" {
		return fmt.Errorf("update user info: %w: empty user id", ErrInvalidArgument)
	}

	err := m.store.InTx(ctx, func(r repos.Repos) error {
		return r.UserInfo.Update(ctx, info)
	})
	if err != nil {
		return fmt.Errorf("update user info: %w", err)
	}

	return nil
}
