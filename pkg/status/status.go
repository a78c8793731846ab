package status

// Lineage identifies one logical sub-process of a transaction. Statuses of
// different lineages are never compared with each other.
type Lineage string

const (
	LineageNone           Lineage = ""
	LineageCharge         Lineage = "CHARGE"
	LineageCustomerRefund Lineage = "CUSTOMER_REFUND"
	LineageMerchantRefund Lineage = "MERCHANT_REFUND"
	LineageTransfer       Lineage = "TRANSFER"
)

// Canonical is a provider-independent status tagged with the lineage it belongs to.
type Canonical struct {
	Lineage Lineage
	Name    string
}

func (c Canonical) String() string {
	return c.Name
}

// Unhandled is returned by the normalizer for event subtypes it does not know.
var Unhandled = Canonical{Lineage: LineageNone, Name: "UNHANDLED"}

// Charge lineage.
var (
	ChargeCreated    = Canonical{LineageCharge, "CHARGE_CREATED"}
	ChargePending    = Canonical{LineageCharge, "CHARGE_PENDING"}
	ChargeFailed     = Canonical{LineageCharge, "CHARGE_FAILED"}
	ChargeSuccessful = Canonical{LineageCharge, "CHARGE_SUCCESSFUL"}
)

// Customer refund lineage.
var (
	CustomerRefundRequestCreated = Canonical{LineageCustomerRefund, "CUSTOMER_REFUND_REQUEST_CREATED"}
	CustomerRefundPending        = Canonical{LineageCustomerRefund, "CUSTOMER_REFUND_PENDING"}
	CustomerRefundFailed         = Canonical{LineageCustomerRefund, "CUSTOMER_REFUND_FAILED"}
	CustomerRefundSuccessful     = Canonical{LineageCustomerRefund, "CUSTOMER_REFUND_SUCCESSFUL"}
)

// Merchant refund lineage.
var (
	MerchantRefundRequestCreated = Canonical{LineageMerchantRefund, "MERCHANT_REFUND_REQUEST_CREATED"}
	MerchantRefundPending        = Canonical{LineageMerchantRefund, "MERCHANT_REFUND_PENDING"}
	MerchantRefundFailed         = Canonical{LineageMerchantRefund, "MERCHANT_REFUND_FAILED"}
	MerchantRefundSuccessful     = Canonical{LineageMerchantRefund, "MERCHANT_REFUND_SUCCESSFUL"}
)

// Transfer lineage, reported by providers for disbursements and refund objects.
var (
	TransferCreated    = Canonical{LineageTransfer, "TRANSFER_CREATED"}
	TransferPending    = Canonical{LineageTransfer, "TRANSFER_PENDING"}
	TransferFailed     = Canonical{LineageTransfer, "TRANSFER_FAILED"}
	TransferSuccessful = Canonical{LineageTransfer, "TRANSFER_SUCCESSFUL"}
)

// vocabulary lists each lineage in priority order, lowest first.
var vocabulary = map[Lineage][]Canonical{
	LineageCharge:         {ChargeCreated, ChargePending, ChargeFailed, ChargeSuccessful},
	LineageCustomerRefund: {CustomerRefundRequestCreated, CustomerRefundPending, CustomerRefundFailed, CustomerRefundSuccessful},
	LineageMerchantRefund: {MerchantRefundRequestCreated, MerchantRefundPending, MerchantRefundFailed, MerchantRefundSuccessful},
	LineageTransfer:       {TransferCreated, TransferPending, TransferFailed, TransferSuccessful},
}

var (
	priorities = map[Canonical]int{}
	byName     = map[string]Canonical{}
)

func init() {
	for _, statuses := range vocabulary {
		for i, s := range statuses {
			priorities[s] = i + 1
			byName[s.Name] = s
		}
	}
}

// Priority returns the position of s within its lineage, starting at 1.
// Unknown statuses and Unhandled have priority 0.
func Priority(s Canonical) int {
	return priorities[s]
}

// Parse looks up a canonical status by its persisted name.
func Parse(name string) (Canonical, bool) {
	s, ok := byName[name]
	return s, ok
}

// Comparable reports whether a and b belong to the same, known lineage.
func Comparable(a, b Canonical) bool {
	return a.Lineage != LineageNone && a.Lineage == b.Lineage && Priority(a) > 0 && Priority(b) > 0
}

// IsUnhandled reports whether s carries no lineage information.
func (c Canonical) IsUnhandled() bool {
	return Priority(c) == 0
}

// IsTerminal reports whether s is the last failed or successful state of its lineage.
func (c Canonical) IsTerminal() bool {
	switch c {
	case ChargeFailed, ChargeSuccessful,
		CustomerRefundFailed, CustomerRefundSuccessful,
		MerchantRefundFailed, MerchantRefundSuccessful,
		TransferFailed, TransferSuccessful:
		return true
	}
	return false
}

// IsRefund reports whether s belongs to one of the refund lineages.
func (c Canonical) IsRefund() bool {
	return c.Lineage == LineageCustomerRefund || c.Lineage == LineageMerchantRefund
}

// IsFailed reports whether s is the failed state of its lineage.
func (c Canonical) IsFailed() bool {
	switch c {
	case ChargeFailed, CustomerRefundFailed, MerchantRefundFailed, TransferFailed:
		return true
	}
	return false
}

// IsSuccessful reports whether s is the successful state of its lineage.
func (c Canonical) IsSuccessful() bool {
	switch c {
	case ChargeSuccessful, CustomerRefundSuccessful, MerchantRefundSuccessful, TransferSuccessful:
		return true
	}
	return false
}

// ProjectTransfer maps a transfer status onto the given refund lineage so it
// can be compared with what is persisted for that refund. Statuses that are
// not in the transfer lineage are returned unchanged.
func ProjectTransfer(s Canonical, refund Lineage) Canonical {
	if s.Lineage != LineageTransfer {
		return s
	}
	target, ok := vocabulary[refund]
	if !ok || refund == LineageCharge || refund == LineageTransfer {
		return Unhandled
	}
	return target[Priority(s)-1]
}

// AtOrPast reports whether s has reached at least the priority of milestone in
// the same lineage.
func AtOrPast(s, milestone Canonical) bool {
	return Comparable(s, milestone) && Priority(s) >= Priority(milestone)
}
