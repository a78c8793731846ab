// Package handlers holds what the HTTP and Lambda handlers share: the engine
// they drive and the JSON response helpers.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chris/payment-reconciliation/pkg/api"
	"github.com/chris/payment-reconciliation/pkg/apperr"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/reconciler"
)

//go:generate mockery --name Engine --output ./mocks --outpkg mocks

// Engine is the part of the reconciliation engine the handlers call.
type Engine interface {
	CreateCharge(ctx context.Context, req reconciler.ChargeRequest) (*models.Transaction, error)
	GetTransaction(ctx context.Context, txID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, merchantID string) ([]models.Transaction, error)
	RequestRefund(ctx context.Context, req reconciler.RefundRequest) (*models.Transaction, error)
	Reconcile(ctx context.Context, txID string) ([]reconciler.Result, error)
	HandleWebhook(ctx context.Context, method models.PaymentMethod, body []byte) (reconciler.Result, error)
}

// Make sure we conform to the interface
var _ Engine = (*reconciler.Engine)(nil)

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorResponse maps err onto the error envelope. Internal errors get a
// generic message.
func ErrorResponse(err error) api.Response {
	resp := api.Response{
		StatusCode: apperr.HTTPStatus(err),
		Message:    apperr.PublicMessage(err),
	}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind != apperr.KindInternal {
		resp.Code = &ae.Code
		if ae.Kind == apperr.KindProvider || ae.Kind == apperr.KindTransientStore {
			resp.Retryable = &ae.Retryable
			resp.SuggestedAction = &ae.SuggestedAction
		}
	}
	return resp
}

// WriteError logs err and writes the error envelope.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	resp := ErrorResponse(err)
	if resp.StatusCode >= http.StatusInternalServerError {
		logger.Error("request failed", slog.Int("status", resp.StatusCode), slog.Any("error", err))
	} else {
		logger.Info("request rejected", slog.Int("status", resp.StatusCode), slog.Any("error", err))
	}
	WriteJSON(w, resp.StatusCode, resp)
}
