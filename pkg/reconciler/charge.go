package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/chris/payment-reconciliation/pkg/apperr"
	"github.com/chris/payment-reconciliation/pkg/fees"
	"github.com/chris/payment-reconciliation/pkg/metrics"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/providers"
	"github.com/chris/payment-reconciliation/pkg/status"
)

// ChargeRequest asks for a new charge.
type ChargeRequest struct {
	// TransactionId is optional; a UUID is assigned when empty.
	TransactionId     string                 `json:"transactionId,omitempty"`
	Amount            int64                  `json:"amount"`
	Currency          string                 `json:"currency"`
	PaymentMethod     models.PaymentMethod   `json:"paymentMethod"`
	TransactionType   models.TransactionType `json:"transactionType,omitempty"`
	MerchantId        string                 `json:"merchantId"`
	CustomerReference string                 `json:"customerReference,omitempty"`
	MerchantReference string                 `json:"merchantReference,omitempty"`
	Description       string                 `json:"description,omitempty"`
	MetaData          map[string]any         `json:"metaData,omitempty"`
}

func (r *ChargeRequest) validate() error {
	if r.TransactionType == "" {
		r.TransactionType = models.CHARGE
	}
	if r.TransactionType != models.CHARGE {
		return apperr.Unsupported(apperr.CodeUnsupportedTransactionType, fmt.Sprintf("unsupported transaction type %q", r.TransactionType))
	}
	if r.Amount <= 0 {
		return apperr.Validation(apperr.CodeInvalidRequest, "amount must be greater than zero")
	}
	if r.Currency == "" {
		return apperr.Validation(apperr.CodeInvalidRequest, "currency is required")
	}
	if r.MerchantId == "" {
		return apperr.Validation(apperr.CodeInvalidRequest, "merchantId is required")
	}
	if !r.PaymentMethod.Valid() {
		return apperr.Unsupported(apperr.CodeUnsupportedProvider, fmt.Sprintf("unsupported payment method %q", r.PaymentMethod))
	}
	return nil
}

// CreateCharge starts a charge with the provider and records it. When the
// provider refuses, the transaction is recorded as failed and the provider
// error is returned.
func (e *Engine) CreateCharge(ctx context.Context, req ChargeRequest) (*models.Transaction, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	provider, err := e.providers.Get(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if req.TransactionId == "" {
		req.TransactionId = e.newID()
	}

	split := fees.Compute(req.Amount, e.feePercentage, req.PaymentMethod)
	now := e.now().UTC()
	tx := &models.Transaction{
		TransactionId:     req.TransactionId,
		Amount:            req.Amount,
		Currency:          req.Currency,
		PaymentMethod:     req.PaymentMethod,
		TransactionType:   req.TransactionType,
		Fee:               models.NewDecimal(split.Fee),
		SettlementAmount:  models.NewDecimal(split.SettlementAmount),
		MerchantId:        req.MerchantId,
		CustomerReference: req.CustomerReference,
		MerchantReference: req.MerchantReference,
		MetaData:          req.MetaData,
		CreatedOn:         now,
		UpdatedOn:         now,
	}

	logger := e.logger.With(slog.String("transaction_id", tx.TransactionId), slog.String("payment_method", string(tx.PaymentMethod)))

	res, chargeErr := provider.Charge(ctx, providers.ChargeRequest{
		TransactionId:     tx.TransactionId,
		Amount:            tx.Amount,
		Currency:          tx.Currency,
		CustomerReference: tx.CustomerReference,
		MerchantReference: tx.MerchantReference,
		Description:       req.Description,
		MetaData:          tx.MetaData,
	})
	if chargeErr != nil {
		return nil, e.recordFailedCharge(ctx, logger, tx, chargeErr)
	}

	initial := status.ChargeCreated
	if res.Status.Lineage == status.LineageCharge && !res.Status.IsUnhandled() {
		initial = res.Status
	}
	tx.Status = initial.Name
	tx.Lineages = map[string]string{models.ChargeLineageKey: initial.Name}
	tx.UniqueId = res.ProviderId
	tx.ProviderResponse = res.Raw

	if err := e.store.CreateTransaction(ctx, tx); err != nil {
		logger.Error("failed to store charge", slog.Any("error", err))
		return nil, storeError(err)
	}

	logger.Info("charge created", slog.String("status", tx.Status), slog.String("unique_id", tx.UniqueId))
	metrics.StatusUpdatesTotal.WithLabelValues(string(status.LineageCharge), "created").Inc()
	e.emit(ctx, changeEvent(tx, models.EventCreate))
	return tx, nil
}

// recordFailedCharge stores a charge the provider refused and returns the
// error to surface.
func (e *Engine) recordFailedCharge(ctx context.Context, logger *slog.Logger, tx *models.Transaction, chargeErr error) error {
	perr := providerError(chargeErr)

	tx.Status = status.ChargeFailed.Name
	tx.Lineages = map[string]string{models.ChargeLineageKey: status.ChargeFailed.Name}
	tx.TransactionError = &models.TransactionError{
		ErrorCode:    apperr.CodeProviderError,
		ErrorMessage: perr.Message,
		ErrorType:    string(apperr.KindProvider),
		ErrorSource:  string(tx.PaymentMethod),
	}

	var raw *providers.Error
	if errors.As(chargeErr, &raw) {
		tx.ProviderResponse = raw.Raw
		if raw.StatusCode != 0 {
			tx.TransactionError.ErrorCode = strconv.Itoa(raw.StatusCode)
		}
	}

	logger.Warn("provider rejected charge", slog.Any("error", chargeErr))

	if err := e.store.CreateTransaction(ctx, tx); err != nil {
		logger.Error("failed to store failed charge", slog.Any("error", err))
		return storeError(err)
	}

	metrics.StatusUpdatesTotal.WithLabelValues(string(status.LineageCharge), "failed").Inc()
	e.emit(ctx, changeEvent(tx, models.EventFailed))
	return perr
}
