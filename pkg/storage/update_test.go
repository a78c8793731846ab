package storage

import (
	"testing"
	"time"

	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestUpdate(t *testing.T) {
	t.Run("Strips Nil Values", func(t *testing.T) {
		var txErr *models.TransactionError
		var response map[string]any

		u := NewUpdate().
			Set(AttrStatus, "CHARGE_SUCCESSFUL").
			Set(AttrTransactionError, txErr).
			Set(AttrProviderResponse, response).
			Set("meta_data", nil)

		assert.Equal(t, map[string]any{AttrStatus: "CHARGE_SUCCESSFUL"}, u.Sets())
	})

	t.Run("SetFields Strips Nil Values", func(t *testing.T) {
		u := NewUpdate().SetFields(map[string]any{
			AttrStatus:           "CHARGE_PENDING",
			AttrTransactionError: nil,
		})

		assert.Equal(t, map[string]any{AttrStatus: "CHARGE_PENDING"}, u.Sets())
	})

	t.Run("Keeps Zero Values", func(t *testing.T) {
		u := NewUpdate().Set("amount", int64(0)).Set("currency", "")

		assert.Len(t, u.Sets(), 2)
	})

	t.Run("Append And Add", func(t *testing.T) {
		u := NewUpdate().
			Append(AttrCustomerRefundResponse, map[string]any{"id": "re_1"}, nil).
			Add(AttrTotalCustomerRefundAmount, 500).
			Add(AttrTotalCustomerRefundAmount, -200).
			Add(AttrTotalMerchantRefundAmount, 0)

		assert.Equal(t, map[string][]any{AttrCustomerRefundResponse: {map[string]any{"id": "re_1"}}}, u.Appends())
		assert.Equal(t, map[string]int64{AttrTotalCustomerRefundAmount: 300}, u.Adds())
	})

	t.Run("Empty Ignores Timestamp", func(t *testing.T) {
		u := NewUpdate().Stamp(time.Now())
		assert.True(t, u.Empty())

		u.Set(LineagePath("charge"), "CHARGE_PENDING")
		assert.False(t, u.Empty())
	})

	t.Run("Remove Drops Pending Set", func(t *testing.T) {
		u := NewUpdate().
			Set(LineagePath("ref-1"), "CUSTOMER_REFUND_REQUEST_CREATED").
			Set(LineagePath("re_1"), "CUSTOMER_REFUND_REQUEST_CREATED").
			Remove(LineagePath("ref-1"))

		assert.Equal(t, []string{"lineages.ref-1"}, u.Removes())
		assert.Equal(t, map[string]any{"lineages.re_1": "CUSTOMER_REFUND_REQUEST_CREATED"}, u.Sets())
		assert.False(t, NewUpdate().Remove(LineagePath("ref-1")).Empty())
	})

	t.Run("Expected Version", func(t *testing.T) {
		u := NewUpdate()
		_, ok := u.ExpectedVersion()
		assert.False(t, ok)

		u.ExpectVersion(3)
		v, ok := u.ExpectedVersion()
		assert.True(t, ok)
		assert.Equal(t, int64(3), v)
	})

	t.Run("Stamp Uses UTC", func(t *testing.T) {
		loc := time.FixedZone("EAT", 3*60*60)
		now := time.Date(2024, 5, 1, 12, 0, 0, 0, loc)

		u := NewUpdate().Stamp(now)

		assert.Equal(t, now.UTC(), u.Sets()[AttrUpdatedOn])
	})
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "lineages.re_123", LineagePath("re_123"))
	assert.Equal(t, []string{"lineages", "re_123"}, SplitPath(LineagePath("re_123")))
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
}
