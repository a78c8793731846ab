// Package api holds the JSON shapes of the HTTP surface.
package api

import "time"

// NewCharge is the body of POST /transactions.
type NewCharge struct {
	TransactionId     *string        `json:"transactionId,omitempty"`
	Amount            int64          `json:"amount"`
	Currency          string         `json:"currency"`
	PaymentMethod     string         `json:"paymentMethod"`
	TransactionType   *string        `json:"transactionType,omitempty"`
	MerchantId        string         `json:"merchantId"`
	CustomerReference *string        `json:"customerReference,omitempty"`
	MerchantReference *string        `json:"merchantReference,omitempty"`
	Description       *string        `json:"description,omitempty"`
	MetaData          map[string]any `json:"metaData,omitempty"`
}

// NewRefund is the body of POST /transactions/{transactionId}/refunds.
type NewRefund struct {
	RefundType string `json:"refundType"`
	Amount     *int64 `json:"amount,omitempty"`
}

// Transaction is a transaction as returned to API clients. Decimal amounts
// are strings so no precision is lost in JSON.
type Transaction struct {
	TransactionId             string            `json:"transactionId"`
	Amount                    int64             `json:"amount"`
	Currency                  string            `json:"currency"`
	PaymentMethod             string            `json:"paymentMethod"`
	TransactionType           string            `json:"transactionType"`
	Status                    string            `json:"status"`
	Lineages                  map[string]string `json:"lineages"`
	Fee                       string            `json:"fee"`
	SettlementAmount          string            `json:"settlementAmount"`
	MerchantId                string            `json:"merchantId"`
	CustomerReference         *string           `json:"customerReference,omitempty"`
	MerchantReference         *string           `json:"merchantReference,omitempty"`
	MetaData                  map[string]any    `json:"metaData,omitempty"`
	UniqueId                  *string           `json:"uniqueId,omitempty"`
	CustomerRefundId          *string           `json:"customerRefundId,omitempty"`
	MerchantRefundId          *string           `json:"merchantRefundId,omitempty"`
	TotalCustomerRefundAmount int64             `json:"totalCustomerRefundAmount"`
	TotalMerchantRefundAmount int64             `json:"totalMerchantRefundAmount"`
	RefundableAmount          int64             `json:"refundableAmount"`
	TransactionError          *TransactionError `json:"transactionError,omitempty"`
	CreatedOn                 time.Time         `json:"createdOn"`
	UpdatedOn                 time.Time         `json:"updatedOn"`
}

// TransactionError explains a failed transaction.
type TransactionError struct {
	ErrorCode    string `json:"ErrorCode"`
	ErrorMessage string `json:"ErrorMessage"`
	ErrorType    string `json:"ErrorType"`
	ErrorSource  string `json:"ErrorSource"`
}

// ReconcileResult is the outcome of one status resolution.
type ReconcileResult struct {
	TransactionId string  `json:"transactionId"`
	LineageKey    *string `json:"lineageKey,omitempty"`
	Outcome       string  `json:"outcome"`
	Status        *string `json:"status,omitempty"`
	Previous      *string `json:"previous,omitempty"`
}

// Response is the envelope of webhook responses and of every error.
type Response struct {
	StatusCode      int              `json:"statusCode"`
	Message         string           `json:"message"`
	Code            *string          `json:"code,omitempty"`
	Retryable       *bool            `json:"retryable,omitempty"`
	SuggestedAction *string          `json:"suggestedAction,omitempty"`
	Result          *ReconcileResult `json:"result,omitempty"`
}
