package transactions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrTransactionNotFound  = errors.New("transaction not found")
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusError   Status = "ERROR"
)

// ExpiredDescription marks records failed by the expiry sweep.
const ExpiredDescription = "expired"

// NoBalance is stored in SenderBalance/ReceiverBalance until that side runs.
const NoBalance int64 = -1

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusError
}

func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown transaction status %q", raw)
	}

	return s, nil
}

// Record is one money transfer between two accounts.
type Record struct {
	ID              uuid.UUID
	Sender          string
	Receiver        string
	Amount          int64
	SenderBalance   int64
	ReceiverBalance int64
	Type            int
	Time            int64 // epoch seconds
	Status          Status
	ObjectUUID      uuid.UUID
	ObjectName      string
	RegionHandle    uint64
	RegionUUID      uuid.UUID
	SecureCode      string
	CommonName      string
	Description     string

	// Debited is set once the sender side has been applied.
	Debited bool
	// CodeUsed is set once SecureCode authorized a transfer.
	CodeUsed bool
}

// UserQuery selects the records a user sent or received with
// Start <= Time <= End.
type UserQuery struct {
	UserID string
	Start  int64
	End    int64
	Offset int
	Limit  int
}

type Transactions interface {
	Append(ctx context.Context, rec Record) error
	Get(ctx context.Context, id uuid.UUID) (Record, error)
	// LockAndGet reads the record and holds it until the enclosing unit of
	// work ends.
	LockAndGet(ctx context.Context, id uuid.UUID) (Record, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, description string) error
	SetSenderBalance(ctx context.Context, id uuid.UUID, balance int64) error
	SetReceiverBalance(ctx context.Context, id uuid.UUID, balance int64) error
	MarkCodeUsed(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, q UserQuery) ([]Record, error)
	CountByUser(ctx context.Context, userID string, start, end int64) (int64, error)
	// ListExpiring returns pending, already debited records older than deadTime.
	ListExpiring(ctx context.Context, deadTime int64) ([]Record, error)
	// ExpireOlderThan fails every pending record older than deadTime that was
	// not debited. Debited records are closed by refunding them first.
	ExpireOlderThan(ctx context.Context, deadTime int64) (int64, error)
}
