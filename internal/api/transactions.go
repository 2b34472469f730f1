package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/fastprodman/moneyserver/internal/repos/transactions"
)

// AddTransactionHandler handles POST /transactions
func (h *HandlerProvider) AddTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var req addTransactionRequest

	err := decode(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.svc.AddTransaction(r.Context(), req.record())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createdTransactionResponse{
		transactionResponse: toTransactionResponse(rec),
		SecureCode:          rec.SecureCode,
	})
}

// GetTransactionHandler handles GET /transactions/{txId}
func (h *HandlerProvider) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseTxID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.svc.FetchTransaction(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(rec))
}

// UpdateStatusHandler handles PATCH /transactions/{txId}/status
func (h *HandlerProvider) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseTxID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req statusRequest

	err = decode(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.svc.UpdateTransactionStatus(r.Context(), id, transactions.Status(req.Status), req.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// WithdrawHandler handles POST /transactions/{txId}/withdraw
func (h *HandlerProvider) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	h.moneyStep(w, r, h.svc.WithdrawMoney)
}

// GiveHandler handles POST /transactions/{txId}/give
func (h *HandlerProvider) GiveHandler(w http.ResponseWriter, r *http.Request) {
	h.moneyStep(w, r, h.svc.GiveMoney)
}

func (h *HandlerProvider) moneyStep(
	w http.ResponseWriter, r *http.Request,
	step func(ctx context.Context, id uuid.UUID, userID string, amount int64) error,
) {
	id, err := parseTxID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req moneyRequest

	err = decode(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = step(r.Context(), id, req.UserID, req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ValidateHandler handles POST /transactions/{txId}/validate
func (h *HandlerProvider) ValidateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseTxID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req secureCodeRequest

	err = decode(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := h.svc.ValidateTransfer(r.Context(), req.SecureCode, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{Valid: ok})
}

// ExecuteHandler handles POST /transactions/{txId}/execute
func (h *HandlerProvider) ExecuteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseTxID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req secureCodeRequest

	err = decode(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.svc.ExecuteTransfer(r.Context(), req.SecureCode, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExpireHandler handles POST /transactions/expire
func (h *HandlerProvider) ExpireHandler(w http.ResponseWriter, r *http.Request) {
	var req expireRequest

	err := decode(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.svc.SetTransExpired(r.Context(), req.DeadTime)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, expireResponse{Expired: n})
}

// ListUserTransactionsHandler handles GET /users/{userId}/transactions
func (h *HandlerProvider) ListUserTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := transactions.UserQuery{UserID: userID}

	q.Start, q.End, err = parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q.Offset, err = queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q.Limit, err = queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := h.svc.FetchTransactions(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := transactionListResponse{Transactions: make([]transactionResponse, 0, len(recs))}
	for _, rec := range recs {
		resp.Transactions = append(resp.Transactions, toTransactionResponse(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

// CountUserTransactionsHandler handles GET /users/{userId}/transactions/count
func (h *HandlerProvider) CountUserTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.svc.GetTransactionNum(r.Context(), userID, start, end)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// parseRange reads the inclusive start/end epoch bounds; missing bounds are
// open.
func parseRange(r *http.Request) (int64, int64, error) {
	start, err := queryInt64(r, "start", 0)
	if err != nil {
		return 0, 0, err
	}

	end, err := queryInt64(r, "end", math.MaxInt64)
	if err != nil {
		return 0, 0, err
	}

	return start, end, nil
}

func queryInt64(r *http.Request, key string, def int64) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return v, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v, err := queryInt64(r, key, int64(def))
	if err != nil {
		return 0, err
	}

	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("invalid %s: out of range", key)
	}

	return int(v), nil
}
