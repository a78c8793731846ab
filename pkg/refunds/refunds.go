// Package refunds decides whether a refund may be taken from a charge and
// how much of it.
package refunds

import (
	"fmt"
	"maps"

	"github.com/chris/payment-reconciliation/pkg/apperr"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/status"
	"github.com/chris/payment-reconciliation/pkg/storage"
)

// Lineage returns the status lineage a refund of type rt moves along.
func Lineage(rt models.RefundType) (status.Lineage, bool) {
	switch rt {
	case models.CUSTOMER:
		return status.LineageCustomerRefund, true
	case models.MERCHANT:
		return status.LineageMerchantRefund, true
	}
	return status.LineageNone, false
}

// RequestCreated is the first status of a refund lineage.
func RequestCreated(rt models.RefundType) status.Canonical {
	if rt == models.MERCHANT {
		return status.MerchantRefundRequestCreated
	}
	return status.CustomerRefundRequestCreated
}

// Validate checks a refund request of type rt against tx and returns the
// amount to refund. A nil requested amount means everything still refundable.
// Nothing is mutated.
func Validate(tx *models.Transaction, rt models.RefundType, requested *int64) (int64, error) {
	if tx == nil {
		return 0, apperr.NotFound(apperr.CodeTransactionNotFound, "transaction not found")
	}
	if _, ok := Lineage(rt); !ok {
		return 0, apperr.Validation(apperr.CodeInvalidRequest, fmt.Sprintf("unknown refund type %q", rt))
	}
	if tx.TransactionType != models.CHARGE {
		return 0, apperr.Unsupported(apperr.CodeUnsupportedTransactionType, fmt.Sprintf("transaction type %q cannot be refunded", tx.TransactionType))
	}

	charge, _ := status.Parse(tx.ChargeStatus())
	if !status.AtOrPast(charge, status.ChargeSuccessful) {
		return 0, apperr.Validation(apperr.CodeTransactionNotRefundable,
			fmt.Sprintf("transaction %s is not refundable in status %s", tx.TransactionId, tx.ChargeStatus()))
	}

	remaining := tx.RefundableAmount()
	if remaining <= 0 {
		return 0, apperr.Validation(apperr.CodeTransactionAlreadyRefunded,
			fmt.Sprintf("transaction %s has already been fully refunded", tx.TransactionId))
	}

	if requested == nil {
		return remaining, nil
	}
	amount := *requested
	if amount <= 0 {
		return 0, apperr.Validation(apperr.CodeInvalidRefundAmount, "refund amount must be greater than zero")
	}
	if amount+tx.TotalRefunded() > tx.Amount {
		return 0, apperr.Validation(apperr.CodeRefundAmountExceedsOriginal,
			fmt.Sprintf("refund of %d exceeds the remaining refundable amount of %d", amount, remaining))
	}
	return amount, nil
}

// Failed is the terminal failure status of a refund lineage.
func Failed(rt models.RefundType) status.Canonical {
	if rt == models.MERCHANT {
		return status.MerchantRefundFailed
	}
	return status.CustomerRefundFailed
}

// Reservation builds the update that holds amount against tx before the
// provider is asked for the refund. The lineage is keyed by our reference id
// and the write only succeeds if tx has not changed since it was read.
func Reservation(tx *models.Transaction, rt models.RefundType, amount int64, lineageKey string) *storage.Update {
	created := RequestCreated(rt).Name
	u := storage.NewUpdate().
		Set(storage.AttrStatus, created).
		Set(storage.LineagePath(lineageKey), created).
		ExpectVersion(tx.Version)
	return u.Add(TotalPath(rt), amount)
}

// Confirmation records the provider's id and response for a reserved refund.
// When the provider assigned its own id the lineage is moved under it so that
// webhooks and re-checks find it.
func Confirmation(rt models.RefundType, lineageKey, refundID string, response map[string]any) *storage.Update {
	u := storage.NewUpdate().Append(ResponsePath(rt), response)
	if rt == models.MERCHANT {
		u.Set(storage.AttrMerchantRefundId, refundID)
	} else {
		u.Set(storage.AttrCustomerRefundId, refundID)
	}
	if refundID != lineageKey {
		u.Remove(storage.LineagePath(lineageKey)).
			Set(storage.LineagePath(refundID), RequestCreated(rt).Name)
	}
	return u
}

// Cancellation gives back a reservation the provider never took. It fails the
// lineage and only succeeds if tx has not changed since it was read.
func Cancellation(tx *models.Transaction, rt models.RefundType, amount int64, lineageKey string) *storage.Update {
	failed := Failed(rt)
	u := storage.NewUpdate().
		Set(storage.LineagePath(lineageKey), failed.Name).
		Set(storage.AttrStatus, ParentStatus(Project(tx, rt, lineageKey, failed, -amount), failed)).
		ExpectVersion(tx.Version)
	return Release(u, rt, amount)
}

// Release gives back the amount of a failed refund so it can be requested again.
func Release(u *storage.Update, rt models.RefundType, amount int64) *storage.Update {
	return u.Add(TotalPath(rt), -amount)
}

// TotalPath is the running total refunds of type rt are added to.
func TotalPath(rt models.RefundType) string {
	if rt == models.MERCHANT {
		return storage.AttrTotalMerchantRefundAmount
	}
	return storage.AttrTotalCustomerRefundAmount
}

// Project returns a copy of tx as it will read once the refund lineage
// lineageKey is at s and delta has been added to the refund total of type rt.
func Project(tx *models.Transaction, rt models.RefundType, lineageKey string, s status.Canonical, delta int64) *models.Transaction {
	projected := *tx
	projected.Lineages = maps.Clone(tx.Lineages)
	if projected.Lineages == nil {
		projected.Lineages = map[string]string{}
	}
	projected.Lineages[lineageKey] = s.Name
	if rt == models.MERCHANT {
		projected.TotalMerchantRefundAmount += delta
	} else {
		projected.TotalCustomerRefundAmount += delta
	}
	return &projected
}

// ResponsePath is the history array refund responses of type rt are appended to.
func ResponsePath(rt models.RefundType) string {
	if rt == models.MERCHANT {
		return storage.AttrMerchantRefundResponse
	}
	return storage.AttrCustomerRefundResponse
}

// ParentStatus is the status a transaction shows once a refund lineage reached
// terminal. A charge shows the refund's success only when it is fully refunded
// and no other refund is still in flight; anything else falls back to the
// charge status.
func ParentStatus(tx *models.Transaction, refund status.Canonical) string {
	if refund.IsSuccessful() && tx.RefundableAmount() <= 0 && !hasOpenRefund(tx) {
		return refund.Name
	}
	return tx.ChargeStatus()
}

func hasOpenRefund(tx *models.Transaction) bool {
	for key, value := range tx.Lineages {
		if key == models.ChargeLineageKey {
			continue
		}
		if s, ok := status.Parse(value); !ok || !s.IsTerminal() {
			return true
		}
	}
	return false
}
