package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/resolver"
	"github.com/chris/payment-reconciliation/pkg/status"
	"github.com/chris/payment-reconciliation/pkg/storage"
)

// StuckStatuses are the charge statuses the stuck-transaction sweep re-checks.
var StuckStatuses = []string{status.ChargeCreated.Name, status.ChargePending.Name}

// Reconcile asks the provider for the current state of a transaction and
// records whatever moved forward: the charge first, then every refund still
// open. The first result is the charge's.
func (e *Engine) Reconcile(ctx context.Context, txID string) ([]Result, error) {
	tx, err := e.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, storeError(err)
	}
	provider, err := e.providers.Get(tx.PaymentMethod)
	if err != nil {
		return nil, err
	}

	charge, err := e.resolve(ctx, target{tx: tx, provider: provider})
	if err != nil {
		return nil, err
	}
	results := []Result{charge}

	for _, key := range storage.SortedKeys(tx.Lineages) {
		if key == models.ChargeLineageKey {
			continue
		}
		if s, ok := status.Parse(tx.Lineages[key]); ok && s.IsTerminal() {
			continue
		}

		corr, err := e.store.GetCorrelation(ctx, key)
		if errors.Is(err, storage.ErrCorrelationNotFound) {
			e.logger.Warn("open refund has no correlation", slog.String("transaction_id", txID), slog.String("refund_id", key))
			continue
		}
		if err != nil {
			return results, storeError(err)
		}

		current, err := e.store.GetTransaction(ctx, txID)
		if err != nil {
			return results, storeError(err)
		}
		refund, err := e.resolve(ctx, target{tx: current, provider: provider, correlation: corr})
		if err != nil {
			return results, err
		}
		results = append(results, refund)
	}
	return results, nil
}

// ReconcileStuck re-checks every charge that has been waiting longer than
// maxAge and returns how many moved. A failure on one transaction is logged
// and does not stop the rest.
func (e *Engine) ReconcileStuck(ctx context.Context, maxAge time.Duration) (int, error) {
	stuck, err := e.store.GetStuckTransactions(ctx, StuckStatuses, maxAge)
	if err != nil {
		e.logger.Error("failed to get stuck transactions", slog.Any("error", err))
		return 0, storeError(err)
	}

	if len(stuck) == 0 {
		e.logger.Info("no stuck transactions found")
		return 0, nil
	}
	e.logger.Info("reconciling stuck transactions", slog.Int("count", len(stuck)))

	moved := 0
	for _, tx := range stuck {
		if err := ctx.Err(); err != nil {
			return moved, err
		}
		results, err := e.Reconcile(ctx, tx.TransactionId)
		if err != nil {
			e.logger.Error("failed to reconcile transaction", slog.String("transaction_id", tx.TransactionId), slog.Any("error", err))
			continue
		}
		if len(results) > 0 && results[0].Outcome == resolver.Applied {
			moved++
		}
	}

	e.logger.Info("reconciliation finished", slog.Int("count", len(stuck)), slog.Int("moved", moved))
	return moved, nil
}
