package providers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/chris/payment-reconciliation/pkg/events"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/normalizer"
	"github.com/chris/payment-reconciliation/pkg/status"
)

// MobileMoneyA talks to the collection and disbursement APIs of mobile-money
// provider A. The caller picks the id of every operation through the
// X-Reference-Id header, and callbacks echo back externalId.
type MobileMoneyA struct {
	client            *restClient
	targetEnvironment string
}

// NewMobileMoneyA creates a mobile-money A client.
func NewMobileMoneyA(cfg Config) *MobileMoneyA {
	env := cfg.TargetEnvironment
	if env == "" {
		env = "sandbox"
	}
	return &MobileMoneyA{
		client: newRestClient(models.MOBILE_MONEY_A, cfg, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
		}),
		targetEnvironment: env,
	}
}

var _ Provider = (*MobileMoneyA)(nil)

type mobileMoneyARequest struct {
	Amount       string        `json:"amount"`
	Currency     string        `json:"currency"`
	ExternalId   string        `json:"externalId"`
	Payer        *events.Party `json:"payer,omitempty"`
	Payee        *events.Party `json:"payee,omitempty"`
	PayerMessage string        `json:"payerMessage,omitempty"`
	PayeeNote    string        `json:"payeeNote,omitempty"`
}

func (m *MobileMoneyA) Name() models.PaymentMethod { return models.MOBILE_MONEY_A }

func (m *MobileMoneyA) headers(referenceID string) map[string]string {
	h := map[string]string{"X-Target-Environment": m.targetEnvironment}
	if referenceID != "" {
		h["X-Reference-Id"] = referenceID
	}
	return h
}

// Charge requests a payment from the customer's wallet. The transaction id
// doubles as the reference id and as externalId.
func (m *MobileMoneyA) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	body := mobileMoneyARequest{
		Amount:       strconv.FormatInt(req.Amount, 10),
		Currency:     req.Currency,
		ExternalId:   req.TransactionId,
		Payer:        &events.Party{PartyIdType: "MSISDN", PartyId: req.CustomerReference},
		PayerMessage: req.Description,
		PayeeNote:    req.MerchantReference,
	}

	if _, err := m.client.do(ctx, "charge", http.MethodPost, "/collection/v1_0/requesttopay", m.headers(req.TransactionId), body, nil); err != nil {
		return nil, err
	}

	return &ChargeResult{
		ProviderId: req.TransactionId,
		Status:     status.ChargePending,
		Raw:        map[string]any{"referenceId": req.TransactionId, "status": "PENDING"},
	}, nil
}

func (m *MobileMoneyA) FetchChargeStatus(ctx context.Context, tx *models.Transaction) (*StatusResult, error) {
	referenceID := tx.UniqueId
	if referenceID == "" {
		referenceID = tx.TransactionId
	}

	var ev events.MobileMoneyAEvent
	raw, err := m.client.do(ctx, "fetch charge status", http.MethodGet, "/collection/v1_0/requesttopay/"+url.PathEscape(referenceID), m.headers(""), nil, &ev)
	if err != nil {
		return nil, err
	}

	return &StatusResult{Status: normalizer.MobileMoneyA(ev.Status, false), Raw: raw}, nil
}

// Refund sends a disbursement transfer back to the customer. The transfer's
// reference id is both the refund id and the externalId its callback carries.
func (m *MobileMoneyA) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	body := mobileMoneyARequest{
		Amount:     strconv.FormatInt(req.Amount, 10),
		Currency:   req.Transaction.Currency,
		ExternalId: req.ReferenceId,
		Payee:      &events.Party{PartyIdType: "MSISDN", PartyId: req.Transaction.CustomerReference},
		PayeeNote:  "Refund for " + req.Transaction.TransactionId,
	}

	if _, err := m.client.do(ctx, "refund", http.MethodPost, "/disbursement/v1_0/transfer", m.headers(req.ReferenceId), body, nil); err != nil {
		return nil, err
	}

	return &RefundResult{
		RefundId: req.ReferenceId,
		Status:   status.TransferPending,
		Raw:      map[string]any{"referenceId": req.ReferenceId, "status": "PENDING"},
	}, nil
}

func (m *MobileMoneyA) FetchRefundStatus(ctx context.Context, _ *models.Transaction, refundID string) (*StatusResult, error) {
	var ev events.MobileMoneyAEvent
	raw, err := m.client.do(ctx, "fetch refund status", http.MethodGet, "/disbursement/v1_0/transfer/"+url.PathEscape(refundID), m.headers(""), nil, &ev)
	if err != nil {
		return nil, err
	}

	return &StatusResult{Status: normalizer.MobileMoneyA(ev.Status, true), Raw: raw}, nil
}
