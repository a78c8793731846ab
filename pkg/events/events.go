package events

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chris/payment-reconciliation/pkg/models"
)

// Event is a decoded provider callback.
type Event interface {
	Provider() models.PaymentMethod
}

// Card-network object types.
const (
	ObjectPaymentIntent = "payment_intent"
	ObjectCharge        = "charge"
	ObjectRefund        = "refund"
)

// CardMetadata is echoed back by the card network from what we sent at creation time.
type CardMetadata struct {
	TransactionId string `json:"transactionId"`
	RefundId      string `json:"refundId,omitempty"`
}

// CardEvent is the card-network callback object.
type CardEvent struct {
	Id       string       `json:"id"`
	Object   string       `json:"object"`
	Status   string       `json:"status"`
	Metadata CardMetadata `json:"metadata"`
}

func (e *CardEvent) Provider() models.PaymentMethod { return models.CARD }

// SubTransactionId is the refund id a refund callback refers to.
func (e *CardEvent) SubTransactionId() string {
	if e.Metadata.RefundId != "" {
		return e.Metadata.RefundId
	}
	return e.Id
}

// cardEnvelope accepts the event either bare or wrapped as {type, data: {object: {...}}}.
type cardEnvelope struct {
	Type string `json:"type"`
	Data *struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Party is the payer or payee of a mobile-money A operation.
type Party struct {
	PartyIdType string `json:"partyIdType"`
	PartyId     string `json:"partyId"`
}

// MobileMoneyAEvent is the mobile-money A callback. Collections carry a payer,
// disbursement transfers carry a payee.
type MobileMoneyAEvent struct {
	FinancialTransactionId string          `json:"financialTransactionId"`
	ExternalId             string          `json:"externalId"`
	Amount                 string          `json:"amount"`
	Currency               string          `json:"currency"`
	Status                 string          `json:"status"`
	Reason                 json.RawMessage `json:"reason,omitempty"`
	Payer                  *Party          `json:"payer,omitempty"`
	Payee                  *Party          `json:"payee,omitempty"`
}

func (e *MobileMoneyAEvent) Provider() models.PaymentMethod { return models.MOBILE_MONEY_A }

// IsTransfer reports whether the callback is for a disbursement transfer.
func (e *MobileMoneyAEvent) IsTransfer() bool {
	return e.Payee != nil && e.Payer == nil
}

// ReasonText flattens the reason, which arrives either as a string or as {code, message}.
func (e *MobileMoneyAEvent) ReasonText() string {
	if len(e.Reason) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Reason, &s); err == nil {
		return s
	}
	var obj struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Reason, &obj); err == nil {
		return strings.TrimSpace(obj.Code + " " + obj.Message)
	}
	return string(e.Reason)
}

// Mobile-money B notification types.
const (
	MobileMoneyBTypePayment = "payment"
	MobileMoneyBTypeCashIn  = "cashin"
)

// MobileMoneyBData is the body of a mobile-money B notification.
type MobileMoneyBData struct {
	PayToken         string `json:"payToken"`
	Status           string `json:"status"`
	InitTxnStatus    string `json:"inittxnstatus"`
	ConfirmTxnStatus string `json:"confirmtxnstatus"`
}

// MobileMoneyBEvent is the mobile-money B callback.
type MobileMoneyBEvent struct {
	Type string           `json:"type"`
	Data MobileMoneyBData `json:"data"`
}

func (e *MobileMoneyBEvent) Provider() models.PaymentMethod { return models.MOBILE_MONEY_B }

// IsTransfer reports whether the callback is for a cash-in transfer back to a customer.
func (e *MobileMoneyBEvent) IsTransfer() bool {
	return strings.EqualFold(e.Type, MobileMoneyBTypeCashIn)
}

// Decode parses a raw callback body for the given provider.
func Decode(method models.PaymentMethod, body []byte) (Event, error) {
	switch method {
	case models.CARD:
		var env cardEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("failed to decode card event: %w", err)
		}
		raw := body
		if env.Data != nil && len(env.Data.Object) > 0 {
			raw = env.Data.Object
		}
		var ev CardEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode card event: %w", err)
		}
		if ev.Id == "" || ev.Object == "" {
			return nil, fmt.Errorf("card event is missing id or object")
		}
		return &ev, nil
	case models.MOBILE_MONEY_A:
		var ev MobileMoneyAEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode mobile money A event: %w", err)
		}
		if ev.ExternalId == "" {
			return nil, fmt.Errorf("mobile money A event is missing externalId")
		}
		return &ev, nil
	case models.MOBILE_MONEY_B:
		var ev MobileMoneyBEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode mobile money B event: %w", err)
		}
		if ev.Data.PayToken == "" {
			return nil, fmt.Errorf("mobile money B event is missing payToken")
		}
		return &ev, nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", method)
	}
}
