package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs a chi router with all API endpoints registered.
func NewRouter(svc Ledger) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.AddAccountHandler)
		r.Get("/{userId}", h.GetAccountHandler)
		r.Get("/{userId}/balance", h.GetBalanceHandler)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", h.AddTransactionHandler)
		r.Post("/expire", h.ExpireHandler)

		r.Route("/{txId}", func(r chi.Router) {
			r.Get("/", h.GetTransactionHandler)
			r.Patch("/status", h.UpdateStatusHandler)
			r.Post("/withdraw", h.WithdrawHandler)
			r.Post("/give", h.GiveHandler)
			r.Post("/validate", h.ValidateHandler)
			r.Post("/execute", h.ExecuteHandler)
		})
	})

	r.Route("/users/{userId}", func(r chi.Router) {
		r.Get("/transactions", h.ListUserTransactionsHandler)
		r.Get("/transactions/count", h.CountUserTransactionsHandler)
		r.Post("/info", h.AddUserInfoHandler)
		r.Get("/info", h.GetUserInfoHandler)
		r.Put("/info", h.UpdateUserInfoHandler)
	})

	return r
}
