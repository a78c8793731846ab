package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/chris/payment-reconciliation/pkg/events"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/normalizer"
)

// MobileMoneyB talks to mobile-money provider B. Every operation is
// identified by the payToken the provider hands back.
type MobileMoneyB struct {
	client *restClient
}

// NewMobileMoneyB creates a mobile-money B client.
func NewMobileMoneyB(cfg Config) *MobileMoneyB {
	return &MobileMoneyB{
		client: newRestClient(models.MOBILE_MONEY_B, cfg, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
		}),
	}
}

var _ Provider = (*MobileMoneyB)(nil)

type mobileMoneyBRequest struct {
	SubscriberMsisdn string `json:"subscriberMsisdn"`
	Amount           string `json:"amount"`
	OrderId          string `json:"orderId"`
	Description      string `json:"description,omitempty"`
}

type mobileMoneyBResponse struct {
	Message string                  `json:"message"`
	Data    events.MobileMoneyBData `json:"data"`
}

func (m *MobileMoneyB) Name() models.PaymentMethod { return models.MOBILE_MONEY_B }

func (m *MobileMoneyB) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	body := mobileMoneyBRequest{
		SubscriberMsisdn: req.CustomerReference,
		Amount:           fmt.Sprintf("%d", req.Amount),
		OrderId:          req.TransactionId,
		Description:      req.Description,
	}

	var resp mobileMoneyBResponse
	raw, err := m.client.do(ctx, "charge", http.MethodPost, "/mp/pay", nil, body, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Data.PayToken == "" {
		return nil, m.client.fail("charge", 0, "response carried no payToken", raw, nil)
	}

	return &ChargeResult{
		ProviderId: resp.Data.PayToken,
		Status:     normalizer.MobileMoneyB(events.MobileMoneyBTypePayment, resp.Data),
		Raw:        raw,
	}, nil
}

func (m *MobileMoneyB) FetchChargeStatus(ctx context.Context, tx *models.Transaction) (*StatusResult, error) {
	if tx.UniqueId == "" {
		return nil, fmt.Errorf("transaction %s has no pay token", tx.TransactionId)
	}

	var resp mobileMoneyBResponse
	raw, err := m.client.do(ctx, "fetch charge status", http.MethodGet, "/mp/paymentstatus/"+url.PathEscape(tx.UniqueId), nil, nil, &resp)
	if err != nil {
		return nil, err
	}

	return &StatusResult{Status: normalizer.MobileMoneyB(events.MobileMoneyBTypePayment, resp.Data), Raw: raw}, nil
}

// Refund pays the amount back into the customer's wallet through a cash-in.
func (m *MobileMoneyB) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	body := mobileMoneyBRequest{
		SubscriberMsisdn: req.Transaction.CustomerReference,
		Amount:           fmt.Sprintf("%d", req.Amount),
		OrderId:          req.ReferenceId,
		Description:      "Refund for " + req.Transaction.TransactionId,
	}

	var resp mobileMoneyBResponse
	raw, err := m.client.do(ctx, "refund", http.MethodPost, "/cashin/pay", nil, body, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Data.PayToken == "" {
		return nil, m.client.fail("refund", 0, "response carried no payToken", raw, nil)
	}

	return &RefundResult{
		RefundId: resp.Data.PayToken,
		Status:   normalizer.MobileMoneyB(events.MobileMoneyBTypeCashIn, resp.Data),
		Raw:      raw,
	}, nil
}

func (m *MobileMoneyB) FetchRefundStatus(ctx context.Context, _ *models.Transaction, refundID string) (*StatusResult, error) {
	var resp mobileMoneyBResponse
	raw, err := m.client.do(ctx, "fetch refund status", http.MethodGet, "/cashin/paymentstatus/"+url.PathEscape(refundID), nil, nil, &resp)
	if err != nil {
		return nil, err
	}

	return &StatusResult{Status: normalizer.MobileMoneyB(events.MobileMoneyBTypeCashIn, resp.Data), Raw: raw}, nil
}
