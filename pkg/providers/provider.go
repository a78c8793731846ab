package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/chris/payment-reconciliation/pkg/apperr"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/status"
)

//go:generate mockery --name Provider --output ./mocks --outpkg mocks

// Provider is a payment provider's REST API, reduced to what reconciliation needs.
// Every status it returns is already normalized.
type Provider interface {
	Name() models.PaymentMethod

	// Charge initiates a collection from the customer.
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)

	// FetchChargeStatus asks the provider for the authoritative status of a charge.
	FetchChargeStatus(ctx context.Context, tx *models.Transaction) (*StatusResult, error)

	// Refund issues a transfer of funds back for a refund.
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)

	// FetchRefundStatus asks the provider for the authoritative status of a refund transfer.
	FetchRefundStatus(ctx context.Context, tx *models.Transaction, refundID string) (*StatusResult, error)
}

// Config holds the connection settings of one provider.
type Config struct {
	BaseURL           string
	APIKey            string
	TargetEnvironment string
	Timeout           time.Duration
}

type ChargeRequest struct {
	TransactionId     string
	Amount            int64
	Currency          string
	CustomerReference string
	MerchantReference string
	Description       string
	MetaData          map[string]any
}

type ChargeResult struct {
	// ProviderId is the provider's own id for the charge, stored as the transaction's unique id.
	ProviderId string
	Status     status.Canonical
	Raw        map[string]any
}

type StatusResult struct {
	Status status.Canonical
	Raw    map[string]any
}

type RefundRequest struct {
	Transaction *models.Transaction
	RefundType  models.RefundType
	Amount      int64
	// ReferenceId is our id for the transfer. Providers that let the caller
	// choose the transfer id use it as the refund id.
	ReferenceId string
}

type RefundResult struct {
	// RefundId is the sub-transaction id the provider's callbacks will carry.
	RefundId string
	Status   status.Canonical
	Raw      map[string]any
}

// Error is a failed provider call.
type Error struct {
	Provider   models.PaymentMethod
	Operation  string
	StatusCode int
	Message    string
	Raw        map[string]any
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed with status %d: %s", e.Provider, e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Provider, e.Operation, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether calling again later may succeed: network
// failures, throttling and server errors.
func (e *Error) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// Registry resolves a payment method to its provider.
type Registry map[models.PaymentMethod]Provider

// NewRegistry indexes providers by name.
func NewRegistry(providers ...Provider) Registry {
	r := Registry{}
	for _, p := range providers {
		r[p.Name()] = p
	}
	return r
}

// Get returns the provider for method or an unsupported-provider error.
func (r Registry) Get(method models.PaymentMethod) (Provider, error) {
	p, ok := r[method]
	if !ok {
		return nil, apperr.Unsupported(apperr.CodeUnsupportedProvider, fmt.Sprintf("payment method %q is not supported", method))
	}
	return p, nil
}
