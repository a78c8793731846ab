package transactions

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/chris/payment-reconciliation/pkg/api"
	"github.com/chris/payment-reconciliation/pkg/apperr"
	"github.com/chris/payment-reconciliation/pkg/handlers"
	"github.com/chris/payment-reconciliation/pkg/mapping"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// TransactionsHandler holds the dependencies for transaction-related handlers.
type TransactionsHandler struct {
	Engine handlers.Engine
	Logger *slog.Logger
}

// NewTransactionsHandler creates a new TransactionsHandler.
func NewTransactionsHandler(engine handlers.Engine, logger *slog.Logger) *TransactionsHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TransactionsHandler{Engine: engine, Logger: logger}
}

// Routes mounts the transaction endpoints.
func (h *TransactionsHandler) Routes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", h.CreateCharge)
		r.Get("/", h.ListTransactions)
		r.Route("/{transactionId}", func(r chi.Router) {
			r.Get("/", h.withTransactionId(h.GetTransactionById))
			r.Post("/refunds", h.withTransactionId(h.RequestRefund))
			r.Post("/reconcile", h.withTransactionId(h.ReconcileTransaction))
		})
	})
}

func (h *TransactionsHandler) withTransactionId(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var transactionId string
		err := runtime.BindStyledParameterWithLocation("simple", false, "transactionId", runtime.ParamLocationPath, chi.URLParam(r, "transactionId"), &transactionId)
		if err != nil {
			handlers.WriteError(w, h.Logger, apperr.Validation(apperr.CodeInvalidRequest, fmt.Sprintf("invalid format for parameter transactionId: %v", err)))
			return
		}
		next(w, r, transactionId)
	}
}

// CreateCharge handles POST /transactions.
func (h *TransactionsHandler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	var newCharge api.NewCharge
	if err := json.NewDecoder(r.Body).Decode(&newCharge); err != nil {
		handlers.WriteError(w, h.Logger, apperr.Validation(apperr.CodeInvalidRequest, fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	tx, err := h.Engine.CreateCharge(r.Context(), mapping.ToChargeRequest(&newCharge))
	if err != nil {
		handlers.WriteError(w, h.Logger, err)
		return
	}

	handlers.WriteJSON(w, http.StatusCreated, mapping.ToApiTransaction(tx))
}

// GetTransactionById handles GET /transactions/{transactionId}.
func (h *TransactionsHandler) GetTransactionById(w http.ResponseWriter, r *http.Request, transactionId string) {
	tx, err := h.Engine.GetTransaction(r.Context(), transactionId)
	if err != nil {
		handlers.WriteError(w, h.Logger, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, mapping.ToApiTransaction(tx))
}

// ListTransactions handles GET /transactions?merchantId=.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	var merchantId string
	if err := runtime.BindQueryParameter("form", true, true, "merchantId", r.URL.Query(), &merchantId); err != nil {
		handlers.WriteError(w, h.Logger, apperr.Validation(apperr.CodeInvalidRequest, fmt.Sprintf("invalid format for parameter merchantId: %v", err)))
		return
	}

	txs, err := h.Engine.ListTransactions(r.Context(), merchantId)
	if err != nil {
		handlers.WriteError(w, h.Logger, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, mapping.ToApiTransactions(txs))
}

// RequestRefund handles POST /transactions/{transactionId}/refunds.
func (h *TransactionsHandler) RequestRefund(w http.ResponseWriter, r *http.Request, transactionId string) {
	var newRefund api.NewRefund
	if err := json.NewDecoder(r.Body).Decode(&newRefund); err != nil {
		handlers.WriteError(w, h.Logger, apperr.Validation(apperr.CodeInvalidRequest, fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	tx, err := h.Engine.RequestRefund(r.Context(), mapping.ToRefundRequest(transactionId, &newRefund))
	if err != nil {
		handlers.WriteError(w, h.Logger, err)
		return
	}

	handlers.WriteJSON(w, http.StatusCreated, mapping.ToApiTransaction(tx))
}

// ReconcileTransaction handles POST /transactions/{transactionId}/reconcile.
// It re-checks every open lineage against the provider.
func (h *TransactionsHandler) ReconcileTransaction(w http.ResponseWriter, r *http.Request, transactionId string) {
	results, err := h.Engine.Reconcile(r.Context(), transactionId)
	if err != nil {
		handlers.WriteError(w, h.Logger, err)
		return
	}

	out := make([]*api.ReconcileResult, len(results))
	for i, res := range results {
		out[i] = mapping.ToApiResult(res)
	}
	handlers.WriteJSON(w, http.StatusOK, out)
}
