package reconciler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/chris/payment-reconciliation/pkg/metrics"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/providers"
	"github.com/chris/payment-reconciliation/pkg/refunds"
	"github.com/chris/payment-reconciliation/pkg/status"
	"github.com/chris/payment-reconciliation/pkg/storage"
)

// RefundRequest asks for money to go back from a charge.
type RefundRequest struct {
	TransactionId string            `json:"transactionId"`
	RefundType    models.RefundType `json:"refundType"`
	// Amount defaults to everything still refundable when nil.
	Amount *int64 `json:"amount,omitempty"`
}

// RequestRefund validates a refund, holds its amount on the transaction and
// then issues it with the provider. The refund only becomes successful once
// the provider confirms it. A refused request never reaches the provider, and
// a provider failure gives the held amount back.
func (e *Engine) RequestRefund(ctx context.Context, req RefundRequest) (*models.Transaction, error) {
	tx, err := e.store.GetTransaction(ctx, req.TransactionId)
	if err != nil {
		if errors.Is(err, storage.ErrTransactionNotFound) {
			metrics.RefundRequestsTotal.WithLabelValues("rejected").Inc()
		}
		return nil, storeError(err)
	}

	logger := e.logger.With(slog.String("transaction_id", tx.TransactionId), slog.String("refund_type", string(req.RefundType)))

	amount, err := refunds.Validate(tx, req.RefundType, req.Amount)
	if err != nil {
		metrics.RefundRequestsTotal.WithLabelValues("rejected").Inc()
		logger.Info("refund rejected", slog.Any("error", err))
		return nil, err
	}

	provider, err := e.providers.Get(tx.PaymentMethod)
	if err != nil {
		return nil, err
	}

	referenceID := e.newID()
	logger = logger.With(slog.String("reference_id", referenceID), slog.Int64("amount", amount))

	if tx, err = e.reserve(ctx, logger, tx, req.RefundType, amount, referenceID); err != nil {
		return nil, err
	}

	res, err := provider.Refund(ctx, providers.RefundRequest{
		Transaction: tx,
		RefundType:  req.RefundType,
		Amount:      amount,
		ReferenceId: referenceID,
	})
	if err != nil {
		metrics.RefundRequestsTotal.WithLabelValues("provider_error").Inc()
		logger.Warn("provider refused refund", slog.Any("error", err))
		e.release(ctx, logger, tx.TransactionId, req.RefundType, amount, referenceID)
		return nil, providerError(err)
	}

	logger = logger.With(slog.String("refund_id", res.RefundId))

	if err := e.store.UpdateTransaction(ctx, tx.TransactionId, refunds.Confirmation(req.RefundType, referenceID, res.RefundId, res.Raw)); err != nil {
		logger.Error("failed to record refund issued with the provider", slog.Any("error", err))
		return nil, storeError(err)
	}

	if err := e.store.PutCorrelation(ctx, &models.Correlation{
		CorrelationId: res.RefundId,
		TransactionId: tx.TransactionId,
		RefundType:    req.RefundType,
		Amount:        amount,
		PaymentMethod: tx.PaymentMethod,
		CreatedOn:     e.now().UTC(),
	}); err != nil {
		logger.Error("failed to store refund correlation", slog.Any("error", err))
		return nil, storeError(err)
	}

	updated, err := e.store.GetTransaction(ctx, tx.TransactionId)
	if err != nil {
		return nil, storeError(err)
	}

	metrics.RefundRequestsTotal.WithLabelValues("accepted").Inc()
	logger.Info("refund requested")
	e.emit(ctx, refundEvent(updated, res.RefundId, amount, refunds.RequestCreated(req.RefundType).Name, models.EventUpdate))
	return updated, nil
}

// reserve holds amount on the transaction under the lineage referenceID. If
// another write got there first the transaction is re-read: a lineage already
// present means an earlier attempt landed, otherwise the refund is checked
// again so the refunded total can never pass the charged amount.
func (e *Engine) reserve(ctx context.Context, logger *slog.Logger, tx *models.Transaction, rt models.RefundType, amount int64, referenceID string) (*models.Transaction, error) {
	for attempt := 0; ; attempt++ {
		err := e.store.UpdateTransaction(ctx, tx.TransactionId, refunds.Reservation(tx, rt, amount, referenceID))
		if err == nil {
			return tx, nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) || attempt >= maxConflictRetries {
			logger.Error("failed to reserve refund", slog.Any("error", err))
			return nil, storeError(err)
		}

		if tx, err = e.store.GetTransaction(ctx, tx.TransactionId); err != nil {
			return nil, storeError(err)
		}
		if _, ok := tx.Lineages[referenceID]; ok {
			logger.Info("refund reservation already stored")
			return tx, nil
		}
		requested := amount
		if _, err := refunds.Validate(tx, rt, &requested); err != nil {
			metrics.RefundRequestsTotal.WithLabelValues("rejected").Inc()
			logger.Info("refund rejected after concurrent update", slog.Any("error", err))
			return nil, err
		}
	}
}

// release fails a reserved lineage the provider never took and gives its
// amount back. It stops once the lineage is terminal.
func (e *Engine) release(ctx context.Context, logger *slog.Logger, txID string, rt models.RefundType, amount int64, referenceID string) {
	for attempt := 0; ; attempt++ {
		tx, err := e.store.GetTransaction(ctx, txID)
		if err != nil {
			logger.Error("failed to release refund reservation", slog.Any("error", err))
			return
		}
		current, ok := tx.Lineages[referenceID]
		if !ok {
			return
		}
		if s, ok := status.Parse(current); ok && s.IsTerminal() {
			return
		}

		err = e.store.UpdateTransaction(ctx, txID, refunds.Cancellation(tx, rt, amount, referenceID))
		if err == nil {
			return
		}
		if !errors.Is(err, storage.ErrVersionConflict) || attempt >= maxConflictRetries {
			logger.Error("failed to release refund reservation", slog.Any("error", err))
			return
		}
	}
}
