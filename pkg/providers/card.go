package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/chris/payment-reconciliation/pkg/events"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/normalizer"
)

// Card talks to the card-network gateway.
type Card struct {
	client *restClient
}

// NewCard creates a card-network client authenticated with a bearer secret key.
func NewCard(cfg Config) *Card {
	return &Card{
		client: newRestClient(models.CARD, cfg, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
		}),
	}
}

var _ Provider = (*Card)(nil)

type cardObject struct {
	Id     string `json:"id"`
	Object string `json:"object"`
	Status string `json:"status"`
}

type cardPaymentIntentRequest struct {
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	Description   string            `json:"description,omitempty"`
	Confirm       bool              `json:"confirm"`
	Metadata      map[string]string `json:"metadata"`
}

type cardRefundRequest struct {
	PaymentIntent string            `json:"payment_intent"`
	Amount        int64             `json:"amount"`
	Metadata      map[string]string `json:"metadata"`
}

func (c *Card) Name() models.PaymentMethod { return models.CARD }

func (c *Card) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	body := cardPaymentIntentRequest{
		Amount:        req.Amount,
		Currency:      strings.ToLower(req.Currency),
		PaymentMethod: req.CustomerReference,
		Description:   req.Description,
		Confirm:       true,
		Metadata:      map[string]string{"transactionId": req.TransactionId},
	}

	var intent cardObject
	raw, err := c.client.do(ctx, "charge", http.MethodPost, "/v1/payment_intents", nil, body, &intent)
	if err != nil {
		return nil, err
	}

	return &ChargeResult{
		ProviderId: intent.Id,
		Status:     normalizer.Card(events.ObjectPaymentIntent, intent.Status),
		Raw:        raw,
	}, nil
}

func (c *Card) FetchChargeStatus(ctx context.Context, tx *models.Transaction) (*StatusResult, error) {
	if tx.UniqueId == "" {
		return nil, fmt.Errorf("transaction %s has no payment intent id", tx.TransactionId)
	}

	var intent cardObject
	raw, err := c.client.do(ctx, "fetch charge status", http.MethodGet, "/v1/payment_intents/"+url.PathEscape(tx.UniqueId), nil, nil, &intent)
	if err != nil {
		return nil, err
	}

	return &StatusResult{Status: normalizer.Card(events.ObjectPaymentIntent, intent.Status), Raw: raw}, nil
}

func (c *Card) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	body := cardRefundRequest{
		PaymentIntent: req.Transaction.UniqueId,
		Amount:        req.Amount,
		Metadata: map[string]string{
			"transactionId": req.Transaction.TransactionId,
			"refundType":    string(req.RefundType),
		},
	}

	var refund cardObject
	raw, err := c.client.do(ctx, "refund", http.MethodPost, "/v1/refunds", nil, body, &refund)
	if err != nil {
		return nil, err
	}

	return &RefundResult{
		RefundId: refund.Id,
		Status:   normalizer.Card(events.ObjectRefund, refund.Status),
		Raw:      raw,
	}, nil
}

func (c *Card) FetchRefundStatus(ctx context.Context, _ *models.Transaction, refundID string) (*StatusResult, error) {
	var refund cardObject
	raw, err := c.client.do(ctx, "fetch refund status", http.MethodGet, "/v1/refunds/"+url.PathEscape(refundID), nil, nil, &refund)
	if err != nil {
		return nil, err
	}

	return &StatusResult{Status: normalizer.Card(events.ObjectRefund, refund.Status), Raw: raw}, nil
}
