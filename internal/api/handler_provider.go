package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fastprodman/moneyserver/internal/guard"
	"github.com/fastprodman/moneyserver/internal/repos/accounts"
	"github.com/fastprodman/moneyserver/internal/repos/transactions"
	"github.com/fastprodman/moneyserver/internal/repos/userinfo"
	"github.com/fastprodman/moneyserver/internal/services/ledger"
)

const maxBodyBytes = 1 << 20

// Ledger is the service surface the HTTP API needs. *ledger.Ledger
// implements it.
type Ledger interface {
	AddUser(ctx context.Context, acc accounts.Account) error
	GetAccount(ctx context.Context, userID string) (accounts.Account, error)
	GetBalance(ctx context.Context, userID string) (int64, error)

	AddTransaction(ctx context.Context, rec transactions.Record) (transactions.Record, error)
	FetchTransaction(ctx context.Context, id uuid.UUID) (transactions.Record, error)
	FetchTransactions(ctx context.Context, q transactions.UserQuery) ([]transactions.Record, error)
	GetTransactionNum(ctx context.Context, userID string, start, end int64) (int64, error)
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status transactions.Status, description string) error
	WithdrawMoney(ctx context.Context, id uuid.UUID, senderID string, amount int64) error
	GiveMoney(ctx context.Context, id uuid.UUID, receiverID string, amount int64) error
	ValidateTransfer(ctx context.Context, secureCode string, id uuid.UUID) (bool, error)
	ExecuteTransfer(ctx context.Context, secureCode string, id uuid.UUID) error
	SetTransExpired(ctx context.Context, deadTime int64) (int64, error)

	AddUserInfo(ctx context.Context, info userinfo.Info) error
	FetchUserInfo(ctx context.Context, userID string) (userinfo.Info, error)
	UpdateUserInfo(ctx context.Context, info userinfo.Info) error
}

var _ Ledger = (*ledger.Ledger)(nil)

// HandlerProvider wraps a Ledger and exposes HTTP handlers.
type HandlerProvider struct {
	svc Ledger
}

func NewHandler(svc Ledger) *HandlerProvider {
	return &HandlerProvider{svc: svc}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps ledger outcomes onto status codes. Failures that are
// not a ledger answer are logged and hidden from the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")

		return
	}

	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrReconciliationRequired):
		return http.StatusInternalServerError
	case errors.Is(err, guard.ErrAcquireTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrTransferRolledBack):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidArgument), errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, accounts.ErrAccountNotFound),
		errors.Is(err, transactions.ErrTransactionNotFound),
		errors.Is(err, userinfo.ErrUserInfoNotFound):
		return http.StatusNotFound
	case ledger.IsRejected(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a single JSON object into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}

		return fmt.Errorf("invalid JSON: %w", err)
	}

	return validateStruct(dst)
}

func parseTxID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "txId"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid transaction id: %w", err)
	}

	return id, nil
}

func userIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "userId")
	if id == "" {
		return "", errors.New("missing userId")
	}

	return id, nil
}

// --- Accounts ---

// AddAccountHandler handles POST /accounts
func (h *HandlerProvider) AddAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req addAccountRequest

	err := decode(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	acc := accounts.Account{UserID: req.UserID, Balance: req.Balance, Status: req.Status, Type: req.Type}

	err = h.svc.AddUser(r.Context(), acc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(acc))
}

// GetAccountHandler handles GET /accounts/{userId}
func (h *HandlerProvider) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	acc, err := h.svc.GetAccount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

// GetBalanceHandler handles GET /accounts/{userId}/balance
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bal, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{UserID: userID, Balance: bal})
}
