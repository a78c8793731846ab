package reconciler

import (
	"context"
	"log/slog"

	"github.com/chris/payment-reconciliation/pkg/apperr"
	"github.com/chris/payment-reconciliation/pkg/events"
	"github.com/chris/payment-reconciliation/pkg/metrics"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/normalizer"
	"github.com/chris/payment-reconciliation/pkg/resolver"
	"github.com/chris/payment-reconciliation/pkg/status"
)

// HandleWebhook processes one provider callback. The callback only names the
// transaction and hints at a new status; the status written is always the one
// the provider reports when asked directly.
func (e *Engine) HandleWebhook(ctx context.Context, method models.PaymentMethod, body []byte) (Result, error) {
	result, err := e.handleWebhook(ctx, method, body)

	outcome := string(result.Outcome)
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	metrics.WebhooksTotal.WithLabelValues(string(method), outcome).Inc()
	return result, err
}

func (e *Engine) handleWebhook(ctx context.Context, method models.PaymentMethod, body []byte) (Result, error) {
	provider, err := e.providers.Get(method)
	if err != nil {
		return Result{}, err
	}

	ev, err := events.Decode(method, body)
	if err != nil {
		e.logger.Warn("rejected malformed webhook", slog.String("provider", string(method)), slog.Any("error", err))
		return Result{}, apperr.Validation(apperr.CodeInvalidRequest, err.Error())
	}

	candidate := normalizer.Normalize(method, ev)
	if candidate.IsUnhandled() {
		e.logger.Info("ignoring unhandled webhook event", slog.String("provider", string(method)))
		return Result{Outcome: resolver.Unhandled}, nil
	}

	t := target{provider: provider, candidate: &candidate}
	if candidate.Lineage == status.LineageTransfer {
		corr, err := e.store.GetCorrelation(ctx, refundID(ev))
		if err != nil {
			e.logger.Warn("no correlation for refund webhook",
				slog.String("provider", string(method)), slog.String("correlation_id", refundID(ev)))
			return Result{}, storeError(err)
		}
		t.correlation = corr
		if t.tx, err = e.store.GetTransaction(ctx, corr.TransactionId); err != nil {
			return Result{}, storeError(err)
		}
	} else {
		if t.tx, err = e.chargeTransaction(ctx, ev); err != nil {
			return Result{}, err
		}
	}

	if t.tx.PaymentMethod != method {
		return Result{}, apperr.Validation(apperr.CodeInvalidRequest, "callback provider does not match the transaction's payment method")
	}
	return e.resolve(ctx, t)
}

// chargeTransaction finds the transaction a charge callback belongs to.
func (e *Engine) chargeTransaction(ctx context.Context, ev events.Event) (*models.Transaction, error) {
	var (
		tx  *models.Transaction
		err error
	)
	switch ev := ev.(type) {
	case *events.CardEvent:
		if ev.Metadata.TransactionId != "" {
			tx, err = e.store.GetTransaction(ctx, ev.Metadata.TransactionId)
		} else {
			tx, err = e.store.GetTransactionByUniqueID(ctx, ev.Id)
		}
	case *events.MobileMoneyAEvent:
		tx, err = e.store.GetTransaction(ctx, ev.ExternalId)
	case *events.MobileMoneyBEvent:
		tx, err = e.store.GetTransactionByUniqueID(ctx, ev.Data.PayToken)
	default:
		return nil, apperr.Unsupported(apperr.CodeUnsupportedProvider, "unsupported webhook event")
	}
	if err != nil {
		return nil, storeError(err)
	}
	return tx, nil
}

// refundID is the provider sub-transaction id a refund callback carries.
func refundID(ev events.Event) string {
	switch ev := ev.(type) {
	case *events.CardEvent:
		return ev.SubTransactionId()
	case *events.MobileMoneyAEvent:
		return ev.ExternalId
	case *events.MobileMoneyBEvent:
		return ev.Data.PayToken
	}
	return ""
}
