package storage

import (
	"maps"
	"reflect"
	"slices"
	"strings"
	"time"
)

// Attribute names written through partial updates.
const (
	AttrStatus                    = "status"
	AttrLineages                  = "lineages"
	AttrProviderResponse          = "provider_response"
	AttrTransactionError          = "transaction_error"
	AttrCustomerRefundId          = "customer_refund_id"
	AttrMerchantRefundId          = "merchant_refund_id"
	AttrTotalCustomerRefundAmount = "total_customer_refund_amount"
	AttrTotalMerchantRefundAmount = "total_merchant_refund_amount"
	AttrCustomerRefundResponse    = "customer_refund_response"
	AttrMerchantRefundResponse    = "merchant_refund_response"
	AttrVersion                   = "version"
	AttrUpdatedOn                 = "updated_on"
)

// LineagePath is the document path of one lineage entry inside the lineages map.
func LineagePath(lineageKey string) string {
	return AttrLineages + "." + lineageKey
}

// SplitPath splits a document path into its attribute names.
func SplitPath(path string) []string {
	return strings.Split(path, ".")
}

// Update describes a partial update of a transaction. Only what is named here
// is written; everything else on the stored record is left alone.
type Update struct {
	sets            map[string]any
	appends         map[string][]any
	adds            map[string]int64
	removes         map[string]struct{}
	expectedVersion *int64
}

// NewUpdate returns an empty update.
func NewUpdate() *Update {
	return &Update{
		sets:    map[string]any{},
		appends: map[string][]any{},
		adds:    map[string]int64{},
		removes: map[string]struct{}{},
	}
}

// Set writes value at path. Nil values, including typed nil pointers, maps and
// slices, are dropped so that an omitted field is never cleared.
func (u *Update) Set(path string, value any) *Update {
	if isNil(value) {
		return u
	}
	u.sets[path] = value
	return u
}

// SetFields calls Set for every entry of fields.
func (u *Update) SetFields(fields map[string]any) *Update {
	for path, value := range fields {
		u.Set(path, value)
	}
	return u
}

// Append adds items to the end of the list at path, creating the list if it
// does not exist yet.
func (u *Update) Append(path string, items ...any) *Update {
	for _, item := range items {
		if isNil(item) {
			continue
		}
		u.appends[path] = append(u.appends[path], item)
	}
	return u
}

// Add increments the number at path by delta. A negative delta decrements.
func (u *Update) Add(path string, delta int64) *Update {
	if delta == 0 {
		return u
	}
	u.adds[path] += delta
	return u
}

// Remove deletes the attribute at path. A pending Set of the same path is dropped.
func (u *Update) Remove(path string) *Update {
	delete(u.sets, path)
	u.removes[path] = struct{}{}
	return u
}

// ExpectVersion makes the update conditional on the stored version being v.
func (u *Update) ExpectVersion(v int64) *Update {
	u.expectedVersion = &v
	return u
}

// Stamp sets updated_on to now.
func (u *Update) Stamp(now time.Time) *Update {
	u.sets[AttrUpdatedOn] = now.UTC()
	return u
}

// Empty reports whether the update would write nothing besides the timestamp.
func (u *Update) Empty() bool {
	for path := range u.sets {
		if path != AttrUpdatedOn {
			return false
		}
	}
	return len(u.appends) == 0 && len(u.adds) == 0 && len(u.removes) == 0
}

// Sets returns the assignments keyed by path.
func (u *Update) Sets() map[string]any {
	return maps.Clone(u.sets)
}

// Appends returns the list appends keyed by path.
func (u *Update) Appends() map[string][]any {
	return maps.Clone(u.appends)
}

// Adds returns the numeric increments keyed by path.
func (u *Update) Adds() map[string]int64 {
	return maps.Clone(u.adds)
}

// Removes returns the removed paths in a stable order.
func (u *Update) Removes() []string {
	return SortedKeys(u.removes)
}

// ExpectedVersion returns the version the update is conditional on, if any.
func (u *Update) ExpectedVersion() (int64, bool) {
	if u.expectedVersion == nil {
		return 0, false
	}
	return *u.expectedVersion, true
}

// SortedKeys returns the keys of m in a stable order, for building
// deterministic expressions.
func SortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
