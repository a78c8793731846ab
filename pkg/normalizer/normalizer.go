// Package normalizer maps each provider's event vocabulary onto the shared
// canonical statuses. It is a pure mapping: anything it does not recognise
// becomes status.Unhandled.
package normalizer

import (
	"strings"

	"github.com/chris/payment-reconciliation/pkg/events"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/status"
)

// Normalize maps a decoded provider event onto a canonical status. An event
// that does not belong to the named provider is unhandled.
func Normalize(provider models.PaymentMethod, ev events.Event) status.Canonical {
	if ev == nil || ev.Provider() != provider {
		return status.Unhandled
	}

	switch e := ev.(type) {
	case *events.CardEvent:
		return Card(e.Object, e.Status)
	case *events.MobileMoneyAEvent:
		return MobileMoneyA(e.Status, e.IsTransfer())
	case *events.MobileMoneyBEvent:
		return MobileMoneyB(e.Type, e.Data)
	}
	return status.Unhandled
}

// Card maps a card-network object status.
func Card(object, raw string) status.Canonical {
	raw = strings.ToLower(raw)

	switch object {
	case events.ObjectPaymentIntent:
		switch raw {
		case "requires_payment_method", "requires_confirmation", "requires_action", "requires_capture", "processing":
			return status.ChargePending
		case "succeeded":
			return status.ChargeSuccessful
		case "canceled":
			return status.ChargeFailed
		}
	case events.ObjectCharge:
		switch raw {
		case "pending":
			return status.ChargePending
		case "succeeded":
			return status.ChargeSuccessful
		case "failed":
			return status.ChargeFailed
		}
	case events.ObjectRefund:
		switch raw {
		case "pending", "requires_action":
			return status.TransferPending
		case "succeeded":
			return status.TransferSuccessful
		case "failed", "canceled":
			return status.TransferFailed
		}
	}
	return status.Unhandled
}

// MobileMoneyA maps a mobile-money A status. Collections land in the charge
// lineage and disbursement transfers in the transfer lineage.
func MobileMoneyA(raw string, transfer bool) status.Canonical {
	var pending, successful, failed status.Canonical
	if transfer {
		pending, successful, failed = status.TransferPending, status.TransferSuccessful, status.TransferFailed
	} else {
		pending, successful, failed = status.ChargePending, status.ChargeSuccessful, status.ChargeFailed
	}

	switch strings.ToUpper(raw) {
	case "PENDING", "CREATED":
		return pending
	case "SUCCESSFUL":
		return successful
	case "FAILED", "REJECTED", "TIMEOUT", "EXPIRED":
		return failed
	}
	return status.Unhandled
}

// MobileMoneyB maps a mobile-money B notification. The provider sometimes
// omits the top-level status and only reports the init/confirm step codes.
func MobileMoneyB(typ string, data events.MobileMoneyBData) status.Canonical {
	var pending, successful, failed status.Canonical
	switch strings.ToLower(typ) {
	case events.MobileMoneyBTypePayment:
		pending, successful, failed = status.ChargePending, status.ChargeSuccessful, status.ChargeFailed
	case events.MobileMoneyBTypeCashIn:
		pending, successful, failed = status.TransferPending, status.TransferSuccessful, status.TransferFailed
	default:
		return status.Unhandled
	}

	switch strings.ToUpper(data.Status) {
	case "PENDING", "INITIATED":
		return pending
	case "SUCCESSFULL", "SUCCESSFUL", "SUCCESS":
		return successful
	case "FAILED", "CANCELLED", "EXPIRED":
		return failed
	case "":
		switch {
		case data.ConfirmTxnStatus == "200":
			return successful
		case data.ConfirmTxnStatus != "":
			return failed
		case data.InitTxnStatus == "200":
			return pending
		case data.InitTxnStatus != "":
			return failed
		}
	}
	return status.Unhandled
}
