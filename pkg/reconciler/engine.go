// Package reconciler drives transactions through their lifecycle: it creates
// charges, takes provider callbacks, issues refunds and re-checks stuck
// transactions, writing only what the providers confirm.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/payment-reconciliation/pkg/apperr"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/notifier"
	"github.com/chris/payment-reconciliation/pkg/providers"
	"github.com/chris/payment-reconciliation/pkg/resolver"
	"github.com/chris/payment-reconciliation/pkg/retry"
	"github.com/chris/payment-reconciliation/pkg/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine is the reconciliation engine. It holds no per-transaction state;
// every call reads what it needs from the store.
type Engine struct {
	store         storage.Storage
	providers     providers.Registry
	notifier      notifier.Notifier
	feePercentage decimal.Decimal
	logger        *slog.Logger

	now   func() time.Time
	newID func() string
}

// New creates an Engine. A nil notifier drops events and a nil logger
// discards logs.
func New(store storage.Storage, registry providers.Registry, n notifier.Notifier, feePercentage decimal.Decimal, logger *slog.Logger) *Engine {
	if n == nil {
		n = notifier.NoOp{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		store:         store,
		providers:     registry,
		notifier:      n,
		feePercentage: feePercentage,
		logger:        logger,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Result describes what one status resolution did.
type Result struct {
	TransactionId string           `json:"transactionId"`
	LineageKey    string           `json:"lineageKey,omitempty"`
	Outcome       resolver.Outcome `json:"outcome"`
	Status        string           `json:"status,omitempty"`
	Previous      string           `json:"previous,omitempty"`
}

// GetTransaction returns the stored transaction.
func (e *Engine) GetTransaction(ctx context.Context, txID string) (*models.Transaction, error) {
	tx, err := e.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, storeError(err)
	}
	return tx, nil
}

// ListTransactions returns the transactions of a merchant, oldest first.
func (e *Engine) ListTransactions(ctx context.Context, merchantID string) ([]models.Transaction, error) {
	if merchantID == "" {
		return nil, apperr.Validation(apperr.CodeInvalidRequest, "merchantId is required")
	}
	txs, err := e.store.ListTransactionsByMerchantID(ctx, merchantID)
	if err != nil {
		return nil, storeError(err)
	}
	return txs, nil
}

// storeError turns storage errors into the error taxonomy callers see.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, retry.ErrExhausted):
		return apperr.TransientStore(err)
	case errors.Is(err, storage.ErrTransactionNotFound):
		e := apperr.NotFound(apperr.CodeTransactionNotFound, "transaction not found")
		e.Err = err
		return e
	case errors.Is(err, storage.ErrCorrelationNotFound):
		e := apperr.NotFound(apperr.CodeCorrelationNotFound, "no pending refund matches this callback")
		e.Err = err
		return e
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return fmt.Errorf("transaction store: %w", err)
}

// providerError turns a failed provider call into a ProviderError.
func providerError(err error) *apperr.Error {
	var perr *providers.Error
	if errors.As(err, &perr) {
		return apperr.Provider(fmt.Sprintf("%s %s failed: %s", perr.Provider, perr.Operation, perr.Message), perr.Retryable(), err)
	}
	if errors.Is(err, resolver.ErrAuthoritativeFetch) {
		return apperr.Provider("could not confirm status with the provider", true, err)
	}
	return apperr.Provider(err.Error(), false, err)
}

func changeEvent(tx *models.Transaction, typ models.EventType) models.ChangeEvent {
	fee := tx.Fee
	return models.ChangeEvent{
		TransactionId:    tx.TransactionId,
		Status:           tx.Status,
		Type:             typ,
		Amount:           tx.Amount,
		MerchantId:       tx.MerchantId,
		TransactionType:  tx.TransactionType,
		Currency:         tx.Currency,
		MetaData:         tx.MetaData,
		Fee:              &fee,
		CreatedOn:        tx.CreatedOn,
		TransactionError: tx.TransactionError,
	}
}

// refundEvent describes a refund lineage change. The refund id is the event's
// transaction id and the charge is its original transaction.
func refundEvent(tx *models.Transaction, refundID string, amount int64, refundStatus string, typ models.EventType) models.ChangeEvent {
	ev := changeEvent(tx, typ)
	ev.TransactionId = refundID
	ev.OriginalTransactionId = tx.TransactionId
	ev.Status = refundStatus
	ev.Amount = amount
	ev.Fee = nil
	return ev
}

// emit publishes ev. The change is already stored, so a failed publish is
// logged rather than returned.
func (e *Engine) emit(ctx context.Context, ev models.ChangeEvent) {
	if err := e.notifier.Notify(ctx, ev); err != nil {
		e.logger.Error("failed to publish change event",
			slog.String("transaction_id", ev.TransactionId),
			slog.String("status", ev.Status),
			slog.String("type", string(ev.Type)),
			slog.Any("error", err))
	}
}
