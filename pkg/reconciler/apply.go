package reconciler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/chris/payment-reconciliation/pkg/apperr"
	"github.com/chris/payment-reconciliation/pkg/metrics"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/providers"
	"github.com/chris/payment-reconciliation/pkg/refunds"
	"github.com/chris/payment-reconciliation/pkg/resolver"
	"github.com/chris/payment-reconciliation/pkg/status"
	"github.com/chris/payment-reconciliation/pkg/storage"
)

// maxConflictRetries bounds how often a refund lineage write is re-resolved
// after losing a version race.
const maxConflictRetries = 3

// target is one lineage of one transaction to resolve.
type target struct {
	tx          *models.Transaction
	provider    providers.Provider
	correlation *models.Correlation // nil for the charge lineage
	candidate   *status.Canonical   // nil for a direct re-check
}

func (t target) lineageKey() string {
	if t.correlation != nil {
		return t.correlation.CorrelationId
	}
	return models.ChargeLineageKey
}

func (t target) persisted() string {
	if t.correlation != nil {
		return t.tx.Lineages[t.correlation.CorrelationId]
	}
	return t.tx.ChargeStatus()
}

func (t target) input() resolver.Input {
	in := resolver.Input{
		TransactionId: t.tx.TransactionId,
		LineageKey:    t.lineageKey(),
		Persisted:     t.persisted(),
		Candidate:     t.candidate,
	}

	tx, provider := t.tx, t.provider
	if t.correlation == nil {
		in.Fetch = func(ctx context.Context) (status.Canonical, map[string]any, error) {
			res, err := provider.FetchChargeStatus(ctx, tx)
			if err != nil {
				return status.Canonical{}, nil, err
			}
			return res.Status, res.Raw, nil
		}
		return in
	}

	corr := t.correlation
	in.Project, _ = refunds.Lineage(corr.RefundType)
	in.HistoryPath = refunds.ResponsePath(corr.RefundType)
	in.Fetch = func(ctx context.Context) (status.Canonical, map[string]any, error) {
		res, err := provider.FetchRefundStatus(ctx, tx, corr.CorrelationId)
		if err != nil {
			return status.Canonical{}, nil, err
		}
		return res.Status, res.Raw, nil
	}
	return in
}

// resolve re-checks the target's lineage with its provider and writes the
// confirmed status when it moves the lineage forward.
func (e *Engine) resolve(ctx context.Context, t target) (Result, error) {
	logger := e.logger.With(slog.String("transaction_id", t.tx.TransactionId), slog.String("lineage", t.lineageKey()))

	for attempt := 0; ; attempt++ {
		d, err := resolver.Resolve(ctx, t.input())
		if err != nil {
			logger.Warn("status check failed", slog.Any("error", err))
			return Result{}, providerError(err)
		}

		result := Result{
			TransactionId: t.tx.TransactionId,
			LineageKey:    t.lineageKey(),
			Outcome:       d.Outcome,
			Status:        d.Status.Name,
			Previous:      t.persisted(),
		}

		if !d.Apply {
			metrics.StatusUpdatesTotal.WithLabelValues(lineageLabel(d), string(d.Outcome)).Inc()
			logger.Info("status unchanged",
				slog.String("outcome", string(d.Outcome)),
				slog.String("candidate", d.Candidate.Name),
				slog.String("authoritative", d.Status.Name),
				slog.String("persisted", result.Previous))
			e.cleanupCorrelation(ctx, logger, t, d)
			return result, nil
		}

		update, eventType := e.buildUpdate(t, d)
		err = e.store.UpdateTransaction(ctx, t.tx.TransactionId, update)
		if errors.Is(err, storage.ErrVersionConflict) && attempt < maxConflictRetries {
			logger.Info("transaction changed concurrently, re-resolving", slog.Int("attempt", attempt+1))
			if t.tx, err = e.store.GetTransaction(ctx, t.tx.TransactionId); err != nil {
				return Result{}, storeError(err)
			}
			continue
		}
		if err != nil {
			logger.Error("failed to store status", slog.Any("error", err))
			return Result{}, storeError(err)
		}

		metrics.StatusUpdatesTotal.WithLabelValues(lineageLabel(d), string(d.Outcome)).Inc()
		logger.Info("status updated", slog.String("from", result.Previous), slog.String("to", d.Status.Name))

		if t.correlation != nil && d.Status.IsTerminal() {
			e.deleteCorrelation(ctx, logger, t.correlation.CorrelationId)
		}
		e.emitResolved(ctx, t, d, eventType)
		return result, nil
	}
}

// buildUpdate completes the resolver's update with the fields derived from
// the new status.
func (e *Engine) buildUpdate(t target, d *resolver.Decision) (*storage.Update, models.EventType) {
	u := d.Update
	eventType := models.EventUpdate

	if t.correlation == nil {
		u.Set(storage.AttrStatus, d.Status.Name)
		if d.Status.IsFailed() {
			eventType = models.EventFailed
			u.Set(storage.AttrTransactionError, &models.TransactionError{
				ErrorCode:    d.Status.Name,
				ErrorMessage: failureReason(d.Raw),
				ErrorType:    string(apperr.KindProvider),
				ErrorSource:  string(t.tx.PaymentMethod),
			})
		}
		return u, eventType
	}

	corr := t.correlation
	u.ExpectVersion(t.tx.Version)

	if !d.Status.IsTerminal() {
		u.Set(storage.AttrStatus, d.Status.Name)
		return u, eventType
	}

	var delta int64
	switch {
	case d.Status.IsFailed():
		eventType = models.EventFailed
		refunds.Release(u, corr.RefundType, corr.Amount)
		delta = -corr.Amount
	case d.Previous.IsFailed():
		// released when the lineage failed
		u.Add(refunds.TotalPath(corr.RefundType), corr.Amount)
		delta = corr.Amount
	}
	projected := refunds.Project(t.tx, corr.RefundType, t.lineageKey(), d.Status, delta)
	u.Set(storage.AttrStatus, refunds.ParentStatus(projected, d.Status))
	return u, eventType
}

func (e *Engine) emitResolved(ctx context.Context, t target, d *resolver.Decision, eventType models.EventType) {
	tx, err := e.store.GetTransaction(ctx, t.tx.TransactionId)
	if err != nil {
		e.logger.Error("failed to reload transaction for change event",
			slog.String("transaction_id", t.tx.TransactionId), slog.Any("error", err))
		return
	}
	if t.correlation == nil {
		e.emit(ctx, changeEvent(tx, eventType))
		return
	}
	ev := refundEvent(tx, t.correlation.CorrelationId, t.correlation.Amount, d.Status.Name, eventType)
	if eventType == models.EventFailed {
		ev.TransactionError = &models.TransactionError{
			ErrorCode:    d.Status.Name,
			ErrorMessage: failureReason(d.Raw),
			ErrorType:    string(apperr.KindProvider),
			ErrorSource:  string(tx.PaymentMethod),
		}
	}
	e.emit(ctx, ev)
}

// cleanupCorrelation removes a correlation whose lineage is already terminal,
// left behind when an earlier delete failed.
func (e *Engine) cleanupCorrelation(ctx context.Context, logger *slog.Logger, t target, d *resolver.Decision) {
	if t.correlation == nil || d.Outcome != resolver.Duplicate || !d.Previous.IsTerminal() {
		return
	}
	e.deleteCorrelation(ctx, logger, t.correlation.CorrelationId)
}

func (e *Engine) deleteCorrelation(ctx context.Context, logger *slog.Logger, correlationID string) {
	if err := e.store.DeleteCorrelation(ctx, correlationID); err != nil {
		logger.Warn("failed to delete correlation", slog.String("correlation_id", correlationID), slog.Any("error", err))
	}
}

// failureReason digs a human readable reason out of a raw provider payload.
func failureReason(raw map[string]any) string {
	for _, key := range []string{"reason", "failure_reason", "last_payment_error", "message", "status"} {
		switch v := raw[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && msg != "" {
				return msg
			}
			if code, ok := v["code"].(string); ok && code != "" {
				return code
			}
		}
	}
	if data, ok := raw["data"].(map[string]any); ok {
		return failureReason(data)
	}
	return "provider reported failure"
}

func lineageLabel(d *resolver.Decision) string {
	switch {
	case d.Status.Lineage != status.LineageNone:
		return string(d.Status.Lineage)
	case d.Candidate.Lineage != status.LineageNone:
		return string(d.Candidate.Lineage)
	}
	return "unhandled"
}
