package mapping

import (
	"github.com/chris/payment-reconciliation/pkg/api"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/reconciler"
)

// ToApiTransaction converts a domain Transaction model to an API Transaction model.
func ToApiTransaction(tx *models.Transaction) *api.Transaction {
	out := &api.Transaction{
		TransactionId:             tx.TransactionId,
		Amount:                    tx.Amount,
		Currency:                  tx.Currency,
		PaymentMethod:             string(tx.PaymentMethod),
		TransactionType:           string(tx.TransactionType),
		Status:                    tx.Status,
		Lineages:                  tx.Lineages,
		Fee:                       tx.Fee.String(),
		SettlementAmount:          tx.SettlementAmount.String(),
		MerchantId:                tx.MerchantId,
		CustomerReference:         optional(tx.CustomerReference),
		MerchantReference:         optional(tx.MerchantReference),
		MetaData:                  tx.MetaData,
		UniqueId:                  optional(tx.UniqueId),
		CustomerRefundId:          optional(tx.CustomerRefundId),
		MerchantRefundId:          optional(tx.MerchantRefundId),
		TotalCustomerRefundAmount: tx.TotalCustomerRefundAmount,
		TotalMerchantRefundAmount: tx.TotalMerchantRefundAmount,
		RefundableAmount:          tx.RefundableAmount(),
		CreatedOn:                 tx.CreatedOn,
		UpdatedOn:                 tx.UpdatedOn,
	}
	if e := tx.TransactionError; e != nil {
		out.TransactionError = &api.TransactionError{
			ErrorCode:    e.ErrorCode,
			ErrorMessage: e.ErrorMessage,
			ErrorType:    e.ErrorType,
			ErrorSource:  e.ErrorSource,
		}
	}
	return out
}

// ToApiTransactions converts a list of domain transactions.
func ToApiTransactions(txs []models.Transaction) []*api.Transaction {
	out := make([]*api.Transaction, len(txs))
	for i := range txs {
		out[i] = ToApiTransaction(&txs[i])
	}
	return out
}

// ToChargeRequest converts an API NewCharge model to an engine charge request.
func ToChargeRequest(c *api.NewCharge) reconciler.ChargeRequest {
	return reconciler.ChargeRequest{
		TransactionId:     value(c.TransactionId),
		Amount:            c.Amount,
		Currency:          c.Currency,
		PaymentMethod:     models.PaymentMethod(c.PaymentMethod),
		TransactionType:   models.TransactionType(value(c.TransactionType)),
		MerchantId:        c.MerchantId,
		CustomerReference: value(c.CustomerReference),
		MerchantReference: value(c.MerchantReference),
		Description:       value(c.Description),
		MetaData:          c.MetaData,
	}
}

// ToRefundRequest converts an API NewRefund model to an engine refund request.
func ToRefundRequest(transactionID string, r *api.NewRefund) reconciler.RefundRequest {
	return reconciler.RefundRequest{
		TransactionId: transactionID,
		RefundType:    models.RefundType(r.RefundType),
		Amount:        r.Amount,
	}
}

// ToApiResult converts an engine result to its API form.
func ToApiResult(r reconciler.Result) *api.ReconcileResult {
	return &api.ReconcileResult{
		TransactionId: r.TransactionId,
		LineageKey:    optional(r.LineageKey),
		Outcome:       string(r.Outcome),
		Status:        optional(r.Status),
		Previous:      optional(r.Previous),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
