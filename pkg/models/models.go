package models

import (
	"time"
)

// PaymentMethod identifies which provider carries a transaction.
type PaymentMethod string

const (
	CARD           PaymentMethod = "CARD"
	MOBILE_MONEY_A PaymentMethod = "MOBILE_MONEY_A"
	MOBILE_MONEY_B PaymentMethod = "MOBILE_MONEY_B"
)

// Valid reports whether m is one of the supported payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case CARD, MOBILE_MONEY_A, MOBILE_MONEY_B:
		return true
	}
	return false
}

// TransactionType is the kind of operation a transaction record represents.
type TransactionType string

const (
	CHARGE TransactionType = "CHARGE"
)

// RefundType says who initiated a refund.
type RefundType string

const (
	CUSTOMER RefundType = "CUSTOMER"
	MERCHANT RefundType = "MERCHANT"
)

// ChargeLineageKey is the key of the charge lineage inside Transaction.Lineages.
const ChargeLineageKey = "charge"

// Transaction is the aggregate root of record.
// It includes dynamodbav tags for marshalling.
type Transaction struct {
	TransactionId             string            `json:"transactionId" dynamodbav:"transaction_id"`
	Amount                    int64             `json:"amount" dynamodbav:"amount"`
	Currency                  string            `json:"currency" dynamodbav:"currency"`
	PaymentMethod             PaymentMethod     `json:"paymentMethod" dynamodbav:"payment_method"`
	TransactionType           TransactionType   `json:"transactionType" dynamodbav:"transaction_type"`
	Status                    string            `json:"status" dynamodbav:"status"`
	Lineages                  map[string]string `json:"lineages" dynamodbav:"lineages"`
	Fee                       Decimal           `json:"fee" dynamodbav:"fee"`
	SettlementAmount          Decimal           `json:"settlementAmount" dynamodbav:"settlement_amount"`
	MerchantId                string            `json:"merchantId" dynamodbav:"merchant_id"`
	CustomerReference         string            `json:"customerReference,omitempty" dynamodbav:"customer_reference,omitempty"`
	MerchantReference         string            `json:"merchantReference,omitempty" dynamodbav:"merchant_reference,omitempty"`
	MetaData                  map[string]any    `json:"metaData,omitempty" dynamodbav:"meta_data,omitempty"`
	ProviderResponse          map[string]any    `json:"providerResponse,omitempty" dynamodbav:"provider_response,omitempty"`
	UniqueId                  string            `json:"uniqueId,omitempty" dynamodbav:"unique_id,omitempty"`
	CustomerRefundId          string            `json:"customerRefundId,omitempty" dynamodbav:"customer_refund_id,omitempty"`
	MerchantRefundId          string            `json:"merchantRefundId,omitempty" dynamodbav:"merchant_refund_id,omitempty"`
	TotalCustomerRefundAmount int64             `json:"totalCustomerRefundAmount" dynamodbav:"total_customer_refund_amount"`
	TotalMerchantRefundAmount int64             `json:"totalMerchantRefundAmount" dynamodbav:"total_merchant_refund_amount"`
	CustomerRefundResponse    []map[string]any  `json:"customerRefundResponse,omitempty" dynamodbav:"customer_refund_response,omitempty"`
	MerchantRefundResponse    []map[string]any  `json:"merchantRefundResponse,omitempty" dynamodbav:"merchant_refund_response,omitempty"`
	TransactionError          *TransactionError `json:"transactionError,omitempty" dynamodbav:"transaction_error,omitempty"`
	Version                   int64             `json:"version" dynamodbav:"version"`
	CreatedOn                 time.Time         `json:"createdOn" dynamodbav:"created_on"`
	UpdatedOn                 time.Time         `json:"updatedOn" dynamodbav:"updated_on"`
}

// ChargeStatus returns the persisted status of the charge lineage.
func (tx *Transaction) ChargeStatus() string {
	if s, ok := tx.Lineages[ChargeLineageKey]; ok {
		return s
	}
	return tx.Status
}

// TotalRefunded is the amount already reserved or paid out by refunds of either kind.
func (tx *Transaction) TotalRefunded() int64 {
	return tx.TotalCustomerRefundAmount + tx.TotalMerchantRefundAmount
}

// RefundableAmount is what is left of the original charge after refunds.
func (tx *Transaction) RefundableAmount() int64 {
	return tx.Amount - tx.TotalRefunded()
}

// TransactionError describes why a transaction ended up failed.
type TransactionError struct {
	ErrorCode    string `json:"ErrorCode" dynamodbav:"error_code"`
	ErrorMessage string `json:"ErrorMessage" dynamodbav:"error_message"`
	ErrorType    string `json:"ErrorType" dynamodbav:"error_type"`
	ErrorSource  string `json:"ErrorSource" dynamodbav:"error_source"`
}

// Correlation is a temporary record mapping a provider sub-transaction id
// (a refund or disbursement transfer) back to its parent transaction.
type Correlation struct {
	CorrelationId string        `json:"correlationId" dynamodbav:"correlation_id"`
	TransactionId string        `json:"transactionId" dynamodbav:"transaction_id"`
	RefundType    RefundType    `json:"refundType" dynamodbav:"refund_type"`
	Amount        int64         `json:"amount" dynamodbav:"amount"`
	PaymentMethod PaymentMethod `json:"paymentMethod" dynamodbav:"payment_method"`
	CreatedOn     time.Time     `json:"createdOn" dynamodbav:"created_on"`
	TTL           int64         `json:"-" dynamodbav:"ttl,omitempty"`
}

// EventType classifies a change notification.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventUpdate EventType = "UPDATE"
	EventFailed EventType = "FAILED"
)

// ChangeEvent is published to downstream consumers once a change is accepted.
type ChangeEvent struct {
	TransactionId         string            `json:"transactionId"`
	OriginalTransactionId string            `json:"originalTransactionId,omitempty"`
	Status                string            `json:"status"`
	Type                  EventType         `json:"type"`
	Amount                int64             `json:"amount"`
	MerchantId            string            `json:"merchantId"`
	TransactionType       TransactionType   `json:"transactionType"`
	Currency              string            `json:"currency"`
	MetaData              map[string]any    `json:"metaData,omitempty"`
	Fee                   *Decimal          `json:"fee,omitempty"`
	CreatedOn             time.Time         `json:"createdOn"`
	TransactionError      *TransactionError `json:"TransactionError,omitempty"`
}
