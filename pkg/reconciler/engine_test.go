package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chris/payment-reconciliation/pkg/apperr"
	"github.com/chris/payment-reconciliation/pkg/models"
	notifiermocks "github.com/chris/payment-reconciliation/pkg/notifier/mocks"
	"github.com/chris/payment-reconciliation/pkg/providers"
	providermocks "github.com/chris/payment-reconciliation/pkg/providers/mocks"
	"github.com/chris/payment-reconciliation/pkg/resolver"
	"github.com/chris/payment-reconciliation/pkg/retry"
	"github.com/chris/payment-reconciliation/pkg/status"
	"github.com/chris/payment-reconciliation/pkg/storage"
	"github.com/chris/payment-reconciliation/pkg/storage/memory"
	storagemocks "github.com/chris/payment-reconciliation/pkg/storage/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (r *recorder) Notify(_ context.Context, ev models.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EventType
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) last() models.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fixture struct {
	engine *Engine
	store  *memory.Store
	events *recorder
	card   *providermocks.Provider
	momoA  *providermocks.Provider
	momoB  *providermocks.Provider
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		store:  memory.New(),
		events: &recorder{},
		card:   providermocks.NewProvider(t),
		momoA:  providermocks.NewProvider(t),
		momoB:  providermocks.NewProvider(t),
	}
	registry := providers.Registry{
		models.CARD:           f.card,
		models.MOBILE_MONEY_A: f.momoA,
		models.MOBILE_MONEY_B: f.momoB,
	}
	f.engine = New(f.store, registry, f.events, decimal.RequireFromString("2.5"), nil)

	ids := 0
	f.engine.newID = func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}
	return f
}

func (f *fixture) seed(t *testing.T, id string, method models.PaymentMethod, amount int64, charge status.Canonical) *models.Transaction {
	created := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	tx := &models.Transaction{
		TransactionId:   id,
		Amount:          amount,
		Currency:        "UGX",
		PaymentMethod:   method,
		TransactionType: models.CHARGE,
		Status:          charge.Name,
		Lineages:        map[string]string{models.ChargeLineageKey: charge.Name},
		MerchantId:      "m-1",
		UniqueId:        "u-" + id,
		CreatedOn:       created,
		UpdatedOn:       created,
	}
	require.NoError(t, f.store.CreateTransaction(context.Background(), tx))
	return tx
}

func (f *fixture) get(t *testing.T, id string) *models.Transaction {
	tx, err := f.store.GetTransaction(context.Background(), id)
	require.NoError(t, err)
	return tx
}

func statusResult(s status.Canonical) *providers.StatusResult {
	return &providers.StatusResult{Status: s, Raw: map[string]any{"status": s.Name}}
}

func amount(v int64) *int64 { return &v }

func TestCreateCharge(t *testing.T) {
	ctx := context.Background()

	t.Run("Computes Fee And Stores Charge", func(t *testing.T) {
		f := newFixture(t)
		f.card.On("Charge", mock.Anything, mock.MatchedBy(func(req providers.ChargeRequest) bool {
			return req.TransactionId == "id-1" && req.Amount == 10000
		})).Return(&providers.ChargeResult{ProviderId: "pi_1", Status: status.ChargePending, Raw: map[string]any{"id": "pi_1"}}, nil).Once()

		tx, err := f.engine.CreateCharge(ctx, ChargeRequest{Amount: 10000, Currency: "KES", PaymentMethod: models.CARD, MerchantId: "m-1"})

		require.NoError(t, err)
		assert.Equal(t, "id-1", tx.TransactionId)
		assert.True(t, tx.Fee.Equal(decimal.NewFromInt(250)))
		assert.True(t, tx.SettlementAmount.Equal(decimal.NewFromInt(9750)))

		stored := f.get(t, "id-1")
		assert.Equal(t, "CHARGE_PENDING", stored.Status)
		assert.Equal(t, "CHARGE_PENDING", stored.Lineages["charge"])
		assert.Equal(t, "pi_1", stored.UniqueId)
		assert.Equal(t, models.CHARGE, stored.TransactionType)
		assert.Equal(t, []models.EventType{models.EventCreate}, f.events.types())
		assert.True(t, f.events.last().Fee.Equal(decimal.NewFromInt(250)))
	})

	t.Run("Mobile Money Fee Keeps Fraction", func(t *testing.T) {
		f := newFixture(t)
		f.momoB.On("Charge", mock.Anything, mock.Anything).
			Return(&providers.ChargeResult{ProviderId: "MP1", Status: status.ChargePending}, nil).Once()

		tx, err := f.engine.CreateCharge(ctx, ChargeRequest{Amount: 101, Currency: "XAF", PaymentMethod: models.MOBILE_MONEY_B, MerchantId: "m-1"})

		require.NoError(t, err)
		assert.True(t, tx.Fee.Equal(decimal.RequireFromString("2.525")))
		assert.True(t, tx.SettlementAmount.Equal(decimal.RequireFromString("98.475")))
	})

	t.Run("Unhandled Initial Status Starts At Created", func(t *testing.T) {
		f := newFixture(t)
		f.momoA.On("Charge", mock.Anything, mock.Anything).
			Return(&providers.ChargeResult{ProviderId: "tx-9", Status: status.Unhandled}, nil).Once()

		tx, err := f.engine.CreateCharge(ctx, ChargeRequest{TransactionId: "tx-9", Amount: 100, Currency: "UGX", PaymentMethod: models.MOBILE_MONEY_A, MerchantId: "m-1"})

		require.NoError(t, err)
		assert.Equal(t, "CHARGE_CREATED", tx.Status)
	})

	t.Run("Provider Error Records Failed Charge", func(t *testing.T) {
		f := newFixture(t)
		perr := &providers.Error{Provider: models.CARD, Operation: "charge", StatusCode: 402, Message: "Your card was declined.", Raw: map[string]any{"error": "declined"}}
		f.card.On("Charge", mock.Anything, mock.Anything).Return(nil, perr).Once()

		_, err := f.engine.CreateCharge(ctx, ChargeRequest{TransactionId: "tx-f", Amount: 500, Currency: "KES", PaymentMethod: models.CARD, MerchantId: "m-1"})

		assert.Equal(t, apperr.KindProvider, apperr.KindOf(err))
		assert.ErrorIs(t, err, perr)

		stored := f.get(t, "tx-f")
		assert.Equal(t, "CHARGE_FAILED", stored.Status)
		require.NotNil(t, stored.TransactionError)
		assert.Equal(t, "402", stored.TransactionError.ErrorCode)
		assert.Equal(t, "CARD", stored.TransactionError.ErrorSource)
		assert.Equal(t, "declined", stored.ProviderResponse["error"])
		assert.Equal(t, []models.EventType{models.EventFailed}, f.events.types())
		assert.NotNil(t, f.events.last().TransactionError)
	})

	tests := []struct {
		name string
		req  ChargeRequest
		code string
	}{
		{"Zero Amount", ChargeRequest{Amount: 0, Currency: "KES", PaymentMethod: models.CARD, MerchantId: "m"}, apperr.CodeInvalidRequest},
		{"Missing Merchant", ChargeRequest{Amount: 1, Currency: "KES", PaymentMethod: models.CARD}, apperr.CodeInvalidRequest},
		{"Unknown Transaction Type", ChargeRequest{Amount: 1, Currency: "KES", PaymentMethod: models.CARD, MerchantId: "m", TransactionType: "PAYOUT"}, apperr.CodeUnsupportedTransactionType},
		{"Unknown Payment Method", ChargeRequest{Amount: 1, Currency: "KES", PaymentMethod: "CRYPTO", MerchantId: "m"}, apperr.CodeUnsupportedProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.engine.CreateCharge(ctx, tt.req)

			assert.True(t, apperr.Is(err, tt.code), "got %v", err)
			assert.Empty(t, f.events.types())
		})
	}
}

func TestHandleWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("Duplicate Webhook Is Applied Once", func(t *testing.T) {
		f := newFixture(t)
		f.card.On("Charge", mock.Anything, mock.Anything).
			Return(&providers.ChargeResult{ProviderId: "pi_1", Status: status.ChargePending}, nil).Once()
		f.card.On("FetchChargeStatus", mock.Anything, mock.MatchedBy(func(tx *models.Transaction) bool { return tx.UniqueId == "pi_1" })).
			Return(statusResult(status.ChargeSuccessful), nil).Times(2)

		_, err := f.engine.CreateCharge(ctx, ChargeRequest{TransactionId: "tx-1", Amount: 10000, Currency: "KES", PaymentMethod: models.CARD, MerchantId: "m-1"})
		require.NoError(t, err)

		body := []byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent","status":"succeeded","metadata":{"transactionId":"tx-1"}}}}`)

		first, err := f.engine.HandleWebhook(ctx, models.CARD, body)
		require.NoError(t, err)
		second, err := f.engine.HandleWebhook(ctx, models.CARD, body)
		require.NoError(t, err)

		assert.Equal(t, resolver.Applied, first.Outcome)
		assert.Equal(t, "CHARGE_PENDING", first.Previous)
		assert.Equal(t, resolver.Duplicate, second.Outcome)

		stored := f.get(t, "tx-1")
		assert.Equal(t, "CHARGE_SUCCESSFUL", stored.Status)
		assert.Equal(t, int64(1), stored.Version)
		assert.True(t, stored.Fee.Equal(decimal.NewFromInt(250)))
		assert.True(t, stored.SettlementAmount.Equal(decimal.NewFromInt(9750)))
		assert.Equal(t, []models.EventType{models.EventCreate, models.EventUpdate}, f.events.types())
	})

	t.Run("Stale Webhook After Failure", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tx-2", models.MOBILE_MONEY_A, 5000, status.ChargeFailed)
		f.momoA.On("FetchChargeStatus", mock.Anything, mock.Anything).Return(statusResult(status.ChargeFailed), nil).Once()

		res, err := f.engine.HandleWebhook(ctx, models.MOBILE_MONEY_A,
			[]byte(`{"financialTransactionId":"1","externalId":"tx-2","amount":"5000","currency":"UGX","status":"SUCCESSFUL","payer":{"partyIdType":"MSISDN","partyId":"256"}}`))

		require.NoError(t, err)
		assert.False(t, res.Outcome == resolver.Applied)
		stored := f.get(t, "tx-2")
		assert.Equal(t, "CHARGE_FAILED", stored.Status)
		assert.Equal(t, int64(0), stored.Version)
		assert.Empty(t, f.events.types())
	})

	t.Run("Failed Charge Records Error", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tx-3", models.MOBILE_MONEY_B, 5000, status.ChargePending)
		f.momoB.On("FetchChargeStatus", mock.Anything, mock.Anything).
			Return(&providers.StatusResult{Status: status.ChargeFailed, Raw: map[string]any{"data": map[string]any{"reason": "insufficient funds"}}}, nil).Once()

		res, err := f.engine.HandleWebhook(ctx, models.MOBILE_MONEY_B, []byte(`{"type":"payment","data":{"payToken":"u-tx-3","status":"FAILED"}}`))

		require.NoError(t, err)
		assert.Equal(t, resolver.Applied, res.Outcome)
		stored := f.get(t, "tx-3")
		assert.Equal(t, "CHARGE_FAILED", stored.Status)
		require.NotNil(t, stored.TransactionError)
		assert.Equal(t, "insufficient funds", stored.TransactionError.ErrorMessage)
		assert.Equal(t, []models.EventType{models.EventFailed}, f.events.types())
	})

	t.Run("Missing Correlation", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tx-4", models.MOBILE_MONEY_B, 5000, status.ChargeSuccessful)

		_, err := f.engine.HandleWebhook(ctx, models.MOBILE_MONEY_B, []byte(`{"type":"cashin","data":{"payToken":"CI404","status":"SUCCESSFULL"}}`))

		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
		assert.True(t, apperr.Is(err, apperr.CodeCorrelationNotFound))
		assert.Equal(t, int64(0), f.get(t, "tx-4").Version)
	})

	t.Run("Status Check Failure Writes Nothing", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tx-5", models.CARD, 5000, status.ChargePending)
		f.card.On("FetchChargeStatus", mock.Anything, mock.Anything).
			Return(nil, &providers.Error{Provider: models.CARD, Operation: "fetch charge status", StatusCode: 503}).Once()

		_, err := f.engine.HandleWebhook(ctx, models.CARD, []byte(`{"id":"u-tx-5","object":"charge","status":"succeeded","metadata":{"transactionId":"tx-5"}}`))

		var ae *apperr.Error
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, apperr.KindProvider, ae.Kind)
		assert.True(t, ae.Retryable)
		assert.Equal(t, "CHARGE_PENDING", f.get(t, "tx-5").Status)
	})

	t.Run("Unhandled Event", func(t *testing.T) {
		f := newFixture(t)

		res, err := f.engine.HandleWebhook(ctx, models.CARD, []byte(`{"id":"pi_1","object":"payment_intent","status":"requires_something_new"}`))

		require.NoError(t, err)
		assert.Equal(t, resolver.Unhandled, res.Outcome)
	})

	t.Run("Malformed Body", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.engine.HandleWebhook(ctx, models.MOBILE_MONEY_A, []byte(`{"status":"SUCCESSFUL"}`))

		assert.True(t, apperr.Is(err, apperr.CodeInvalidRequest))
	})

	t.Run("Unsupported Provider", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.engine.HandleWebhook(ctx, models.PaymentMethod("PAYPAL"), []byte(`{}`))

		assert.True(t, apperr.Is(err, apperr.CodeUnsupportedProvider))
	})

	t.Run("Unknown Transaction", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.engine.HandleWebhook(ctx, models.MOBILE_MONEY_A, []byte(`{"externalId":"nope","status":"SUCCESSFUL","payer":{"partyId":"1"}}`))

		assert.True(t, apperr.Is(err, apperr.CodeTransactionNotFound))
	})
}

func TestRequestRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("Partial Refund Sequence", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tx-1", models.CARD, 12000, status.ChargeSuccessful)
		f.card.On("Refund", mock.Anything, mock.MatchedBy(func(req providers.RefundRequest) bool { return req.Amount == 500 })).
			Return(&providers.RefundResult{RefundId: "re_1", Status: status.TransferPending, Raw: map[string]any{"id": "re_1"}}, nil).Once()
		f.card.On("Refund", mock.Anything, mock.MatchedBy(func(req providers.RefundRequest) bool { return req.Amount == 500 })).
			Return(&providers.RefundResult{RefundId: "re_2", Status: status.TransferPending, Raw: map[string]any{"id": "re_2"}}, nil).Once()

		tx, err := f.engine.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.CUSTOMER, Amount: amount(500)})
		require.NoError(t, err)
		assert.Equal(t, int64(500), tx.TotalCustomerRefundAmount)
		assert.Equal(t, "CUSTOMER_REFUND_REQUEST_CREATED", tx.Status)
		assert.Equal(t, "CUSTOMER_REFUND_REQUEST_CREATED", tx.Lineages["re_1"])
		assert.Equal(t, "re_1", tx.CustomerRefundId)
		assert.NotContains(t, tx.Lineages, "id-1")

		tx, err = f.engine.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.CUSTOMER, Amount: amount(500)})
		require.NoError(t, err)
		assert.Equal(t, int64(1000), tx.TotalCustomerRefundAmount)

		_, err = f.engine.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.CUSTOMER, Amount: amount(11500)})
		assert.True(t, apperr.Is(err, apperr.CodeRefundAmountExceedsOriginal))
		assert.Equal(t, int64(1000), f.get(t, "tx-1").TotalCustomerRefundAmount)

		corr, err := f.store.GetCorrelation(ctx, "re_2")
		require.NoError(t, err)
		assert.Equal(t, "tx-1", corr.TransactionId)
		assert.Equal(t, int64(500), corr.Amount)
		assert.Equal(t, models.CUSTOMER, corr.RefundType)

		ev := f.events.last()
		assert.Equal(t, "re_2", ev.TransactionId)
		assert.Equal(t, "tx-1", ev.OriginalTransactionId)
		assert.Equal(t, int64(500), ev.Amount)
	})

	t.Run("Successful Refund Returns To Charge Status", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tx-1", models.CARD, 12000, status.ChargeSuccessful)
		f.card.On("Refund", mock.Anything, mock.Anything).
			Return(&providers.RefundResult{RefundId: "re_1", Status: status.TransferPending, Raw: map[string]any{"id": "re_1"}}, nil).Once()
		f.card.On("FetchRefundStatus", mock.Anything, mock.Anything, "re_1").Return(statusResult(status.TransferSuccessful), nil).Once()

		_, err := f.engine.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.CUSTOMER, Amount: amount(500)})
		require.NoError(t, err)

		res, err := f.engine.HandleWebhook(ctx, models.CARD, []byte(`{"id":"re_1","object":"refund","status":"succeeded","metadata":{"transactionId":"tx-1"}}`))
		require.NoError(t, err)
		assert.Equal(t, resolver.Applied, res.Outcome)
		assert.Equal(t, "CUSTOMER_REFUND_SUCCESSFUL", res.Status)

		stored := f.get(t, "tx-1")
		assert.Equal(t, "CHARGE_SUCCESSFUL", stored.Status)
		assert.Equal(t, "CUSTOMER_REFUND_SUCCESSFUL", stored.Lineages["re_1"])
		assert.Equal(t, int64(500), stored.TotalCustomerRefundAmount)
		assert.Len(t, stored.CustomerRefundResponse, 2)

		_, err = f.store.GetCorrelation(ctx, "re_1")
		assert.ErrorIs(t, err, storage.ErrCorrelationNotFound)
	})

	t.Run("Full Refund", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tx-1", models.MOBILE_MONEY_B, 3000, status.ChargeSuccessful)
		f.momoB.On("Refund", mock.Anything, mock.MatchedBy(func(req providers.RefundRequest) bool { return req.Amount == 3000 })).
			Return(&providers.RefundResult{RefundId: "CI1", Status: status.TransferPending}, nil).Once()
		f.momoB.On("FetchRefundStatus", mock.Anything, mock.Anything, "CI1").Return(statusResult(status.TransferSuccessful), nil).Once()

		_, err := f.engine.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.MERCHANT})
		require.NoError(t, err)

		_, err = f.engine.HandleWebhook(ctx, models.MOBILE_MONEY_B, []byte(`{"type":"cashin","data":{"payToken":"CI1","status":"SUCCESSFULL"}}`))
		require.NoError(t, err)

		stored := f.get(t, "tx-1")
		assert.Equal(t, "MERCHANT_REFUND_SUCCESSFUL", stored.Status)
		assert.Equal(t, int64(3000), stored.TotalMerchantRefundAmount)

		_, err = f.engine.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.CUSTOMER})
		assert.True(t, apperr.Is(err, apperr.CodeTransactionAlreadyRefunded))
	})

	t.Run("Failed Transfer Releases Amount", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tx-1", models.MOBILE_MONEY_A, 12000, status.ChargeSuccessful)
		f.momoA.On("Refund", mock.Anything, mock.MatchedBy(func(req providers.RefundRequest) bool { return req.ReferenceId == "id-1" })).
			Return(&providers.RefundResult{RefundId: "id-1", Status: status.TransferPending}, nil).Once()
		f.momoA.On("FetchRefundStatus", mock.Anything, mock.Anything, "id-1").
			Return(&providers.StatusResult{Status: status.TransferFailed, Raw: map[string]any{"reason": "PAYEE_NOT_FOUND"}}, nil).Once()

		_, err := f.engine.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.CUSTOMER, Amount: amount(2000)})
		require.NoError(t, err)
		assert.Equal(t, int64(2000), f.get(t, "tx-1").TotalCustomerRefundAmount)

		res, err := f.engine.HandleWebhook(ctx, models.MOBILE_MONEY_A,
			[]byte(`{"externalId":"id-1","amount":"2000","currency":"UGX","status":"FAILED","payee":{"partyIdType":"MSISDN","partyId":"256"}}`))
		require.NoError(t, err)
		assert.Equal(t, "CUSTOMER_REFUND_FAILED", res.Status)

		stored := f.get(t, "tx-1")
		assert.Equal(t, int64(0), stored.TotalCustomerRefundAmount)
		assert.Equal(t, "CHARGE_SUCCESSFUL", stored.Status)
		assert.Equal(t, "CUSTOMER_REFUND_FAILED", stored.Lineages["id-1"])

		ev := f.events.last()
		assert.Equal(t, models.EventFailed, ev.Type)
		assert.Equal(t, "id-1", ev.TransactionId)
		require.NotNil(t, ev.TransactionError)
		assert.Equal(t, "PAYEE_NOT_FOUND", ev.TransactionError.ErrorMessage)

		_, err = f.store.GetCorrelation(ctx, "id-1")
		assert.ErrorIs(t, err, storage.ErrCorrelationNotFound)
	})

	t.Run("Provider Error Releases Reservation", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tx-1", models.CARD, 12000, status.ChargeSuccessful)
		f.card.On("Refund", mock.Anything, mock.MatchedBy(func(req providers.RefundRequest) bool { return req.ReferenceId == "id-1" })).
			Return(nil, &providers.Error{Provider: models.CARD, Operation: "refund", StatusCode: 500, Message: "boom"}).Once()

		_, err := f.engine.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.CUSTOMER, Amount: amount(100)})

		var ae *apperr.Error
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, apperr.KindProvider, ae.Kind)
		assert.True(t, ae.Retryable)
		stored := f.get(t, "tx-1")
		assert.Equal(t, int64(0), stored.TotalRefunded())
		assert.Equal(t, "CHARGE_SUCCESSFUL", stored.Status)
		assert.Equal(t, "CUSTOMER_REFUND_FAILED", stored.Lineages["id-1"])
		assert.Empty(t, stored.CustomerRefundId)
		assert.Empty(t, f.events.types())

		f.card.On("Refund", mock.Anything, mock.Anything).
			Return(&providers.RefundResult{RefundId: "re_1", Status: status.TransferPending}, nil).Once()
		_, err = f.engine.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.CUSTOMER})
		require.NoError(t, err)
		assert.Equal(t, int64(12000), f.get(t, "tx-1").TotalCustomerRefundAmount)
	})

	t.Run("Pending Charge Is Not Refundable", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tx-1", models.CARD, 12000, status.ChargePending)

		_, err := f.engine.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.CUSTOMER})

		assert.True(t, apperr.Is(err, apperr.CodeTransactionNotRefundable))
	})

	t.Run("Unknown Transaction", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.engine.RequestRefund(ctx, RefundRequest{TransactionId: "missing", RefundType: models.CUSTOMER})

		assert.True(t, apperr.Is(err, apperr.CodeTransactionNotFound))
	})

	t.Run("Request Losing A Version Race Never Reaches Provider", func(t *testing.T) {
		store := new(storagemocks.Storage)
		card := providermocks.NewProvider(t)
		e := New(store, providers.Registry{models.CARD: card}, notifiermocks.NewNotifier(t), decimal.RequireFromString("2.5"), nil)
		e.newID = func() string { return "ref" }

		before := &models.Transaction{TransactionId: "tx-1", Amount: 1000, PaymentMethod: models.CARD, TransactionType: models.CHARGE,
			Status: "CHARGE_SUCCESSFUL", Lineages: map[string]string{"charge": "CHARGE_SUCCESSFUL"}, Version: 1}
		concurrent := *before
		concurrent.TotalMerchantRefundAmount = 800
		concurrent.Lineages = map[string]string{"charge": "CHARGE_SUCCESSFUL", "re_9": "MERCHANT_REFUND_REQUEST_CREATED"}
		concurrent.Version = 2

		store.On("GetTransaction", ctx, "tx-1").Return(before, nil).Once()
		store.On("UpdateTransaction", ctx, "tx-1", mock.MatchedBy(func(u *storage.Update) bool {
			v, ok := u.ExpectedVersion()
			return ok && v == 1 && u.Adds()[storage.AttrTotalCustomerRefundAmount] == 500
		})).Return(fmt.Errorf("wrapped: %w", storage.ErrVersionConflict)).Once()
		store.On("GetTransaction", ctx, "tx-1").Return(&concurrent, nil).Once()

		_, err := e.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.CUSTOMER, Amount: amount(500)})

		assert.True(t, apperr.Is(err, apperr.CodeRefundAmountExceedsOriginal))
		card.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("Concurrent Requests Issue One Provider Refund", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tx-1", models.CARD, 1000, status.ChargeSuccessful)
		var ids atomic.Int64
		f.engine.newID = func() string { return fmt.Sprintf("ref-%d", ids.Add(1)) }
		f.card.On("Refund", mock.Anything, mock.Anything).
			Return(&providers.RefundResult{RefundId: "re_1", Status: status.TransferPending}, nil).Once()

		errs := make([]error, 2)
		var wg sync.WaitGroup
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = f.engine.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.CUSTOMER, Amount: amount(600)})
			}()
		}
		wg.Wait()

		var accepted, rejected int
		for _, err := range errs {
			switch {
			case err == nil:
				accepted++
			case apperr.Is(err, apperr.CodeRefundAmountExceedsOriginal):
				rejected++
			}
		}
		assert.Equal(t, 1, accepted)
		assert.Equal(t, 1, rejected)
		f.card.AssertNumberOfCalls(t, "Refund", 1)

		stored := f.get(t, "tx-1")
		assert.Equal(t, int64(600), stored.TotalCustomerRefundAmount)
		assert.Equal(t, "CUSTOMER_REFUND_REQUEST_CREATED", stored.Lineages["re_1"])
		_, err := f.store.GetCorrelation(ctx, "re_1")
		assert.NoError(t, err)
	})

	t.Run("Reservation Retried After It Landed", func(t *testing.T) {
		tests := []struct {
			name      string
			requested *int64
			total     int64
		}{
			{name: "Partial", requested: amount(500), total: 500},
			{name: "Full", requested: nil, total: 1000},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := &landedThenConflict{Store: memory.New()}
				card := providermocks.NewProvider(t)
				e := New(store, providers.Registry{models.CARD: card}, nil, decimal.RequireFromString("2.5"), nil)
				e.newID = func() string { return "ref-1" }
				created := time.Now().UTC().Add(-time.Hour)
				require.NoError(t, store.CreateTransaction(ctx, &models.Transaction{TransactionId: "tx-1", Amount: 1000, PaymentMethod: models.CARD,
					TransactionType: models.CHARGE, Status: "CHARGE_SUCCESSFUL", Lineages: map[string]string{"charge": "CHARGE_SUCCESSFUL"},
					CreatedOn: created, UpdatedOn: created}))
				card.On("Refund", mock.Anything, mock.MatchedBy(func(req providers.RefundRequest) bool { return req.Amount == tt.total })).
					Return(&providers.RefundResult{RefundId: "re_1", Status: status.TransferPending}, nil).Once()

				tx, err := e.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.CUSTOMER, Amount: tt.requested})

				require.NoError(t, err)
				assert.Equal(t, tt.total, tx.TotalCustomerRefundAmount)
				assert.Equal(t, map[string]string{"charge": "CHARGE_SUCCESSFUL", "re_1": "CUSTOMER_REFUND_REQUEST_CREATED"}, tx.Lineages)
				corr, err := store.GetCorrelation(ctx, "re_1")
				require.NoError(t, err)
				assert.Equal(t, tt.total, corr.Amount)
			})
		}
	})

	t.Run("Success After Failure Restores Amount", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tx-1", models.MOBILE_MONEY_A, 12000, status.ChargeSuccessful)
		f.momoA.On("Refund", mock.Anything, mock.Anything).
			Return(&providers.RefundResult{RefundId: "id-1", Status: status.TransferPending}, nil).Once()
		f.momoA.On("FetchRefundStatus", mock.Anything, mock.Anything, "id-1").Return(statusResult(status.TransferFailed), nil).Once()
		f.momoA.On("FetchRefundStatus", mock.Anything, mock.Anything, "id-1").Return(statusResult(status.TransferSuccessful), nil).Once()

		_, err := f.engine.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.CUSTOMER, Amount: amount(2000)})
		require.NoError(t, err)
		corr, err := f.store.GetCorrelation(ctx, "id-1")
		require.NoError(t, err)

		_, err = f.engine.HandleWebhook(ctx, models.MOBILE_MONEY_A, []byte(`{"externalId":"id-1","amount":"2000","currency":"UGX","status":"FAILED","payee":{"partyIdType":"MSISDN","partyId":"256"}}`))
		require.NoError(t, err)
		assert.Equal(t, int64(0), f.get(t, "tx-1").TotalCustomerRefundAmount)

		// correlation left behind by a failed delete
		require.NoError(t, f.store.PutCorrelation(ctx, corr))

		res, err := f.engine.HandleWebhook(ctx, models.MOBILE_MONEY_A, []byte(`{"externalId":"id-1","amount":"2000","currency":"UGX","status":"SUCCESSFUL","payee":{"partyIdType":"MSISDN","partyId":"256"}}`))
		require.NoError(t, err)
		assert.Equal(t, resolver.Applied, res.Outcome)

		stored := f.get(t, "tx-1")
		assert.Equal(t, "CUSTOMER_REFUND_SUCCESSFUL", stored.Lineages["id-1"])
		assert.Equal(t, int64(2000), stored.TotalCustomerRefundAmount)
		assert.Equal(t, "CHARGE_SUCCESSFUL", stored.Status)
	})

	t.Run("Parent Waits For Every Open Refund", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tx-1", models.CARD, 1000, status.ChargeSuccessful)
		f.card.On("Refund", mock.Anything, mock.MatchedBy(func(req providers.RefundRequest) bool { return req.Amount == 400 })).
			Return(&providers.RefundResult{RefundId: "re_1", Status: status.TransferPending}, nil).Once()
		f.card.On("Refund", mock.Anything, mock.MatchedBy(func(req providers.RefundRequest) bool { return req.Amount == 600 })).
			Return(&providers.RefundResult{RefundId: "re_2", Status: status.TransferPending}, nil).Once()
		f.card.On("FetchRefundStatus", mock.Anything, mock.Anything, "re_1").Return(statusResult(status.TransferSuccessful), nil).Once()
		f.card.On("FetchRefundStatus", mock.Anything, mock.Anything, "re_2").Return(statusResult(status.TransferSuccessful), nil).Once()

		_, err := f.engine.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.CUSTOMER, Amount: amount(400)})
		require.NoError(t, err)
		_, err = f.engine.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.MERCHANT, Amount: amount(600)})
		require.NoError(t, err)

		_, err = f.engine.HandleWebhook(ctx, models.CARD, []byte(`{"id":"re_2","object":"refund","status":"succeeded","metadata":{"transactionId":"tx-1"}}`))
		require.NoError(t, err)
		assert.Equal(t, "CHARGE_SUCCESSFUL", f.get(t, "tx-1").Status)

		_, err = f.engine.HandleWebhook(ctx, models.CARD, []byte(`{"id":"re_1","object":"refund","status":"succeeded","metadata":{"transactionId":"tx-1"}}`))
		require.NoError(t, err)
		assert.Equal(t, "CUSTOMER_REFUND_SUCCESSFUL", f.get(t, "tx-1").Status)
	})
}

// landedThenConflict applies the first versioned write and still reports a
// version conflict, as a retried write whose first attempt landed would.
type landedThenConflict struct {
	*memory.Store
	once sync.Once
}

func (s *landedThenConflict) UpdateTransaction(ctx context.Context, txID string, u *storage.Update) error {
	if _, versioned := u.ExpectedVersion(); versioned {
		first := false
		s.once.Do(func() { first = true })
		if first {
			if err := s.Store.UpdateTransaction(ctx, txID, u); err != nil {
				return err
			}
			return fmt.Errorf("retried write: %w", storage.ErrVersionConflict)
		}
	}
	return s.Store.UpdateTransaction(ctx, txID, u)
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("Direct Recheck", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tx-1", models.MOBILE_MONEY_A, 5000, status.ChargeCreated)
		f.momoA.On("FetchChargeStatus", mock.Anything, mock.Anything).Return(statusResult(status.ChargeSuccessful), nil).Once()

		results, err := f.engine.Reconcile(ctx, "tx-1")

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, resolver.Applied, results[0].Outcome)
		assert.Equal(t, "CHARGE_CREATED", results[0].Previous)
		assert.Equal(t, "CHARGE_SUCCESSFUL", f.get(t, "tx-1").Status)
	})

	t.Run("Open Refunds Are Rechecked", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tx-1", models.CARD, 5000, status.ChargeSuccessful)
		f.card.On("Refund", mock.Anything, mock.Anything).Return(&providers.RefundResult{RefundId: "re_1", Status: status.TransferPending}, nil).Once()
		f.card.On("FetchChargeStatus", mock.Anything, mock.Anything).Return(statusResult(status.ChargeSuccessful), nil).Once()
		f.card.On("FetchRefundStatus", mock.Anything, mock.Anything, "re_1").Return(statusResult(status.TransferPending), nil).Once()

		_, err := f.engine.RequestRefund(ctx, RefundRequest{TransactionId: "tx-1", RefundType: models.MERCHANT, Amount: amount(100)})
		require.NoError(t, err)

		results, err := f.engine.Reconcile(ctx, "tx-1")

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, resolver.Duplicate, results[0].Outcome)
		assert.Equal(t, "re_1", results[1].LineageKey)
		assert.Equal(t, "MERCHANT_REFUND_PENDING", results[1].Status)
		assert.Equal(t, "MERCHANT_REFUND_PENDING", f.get(t, "tx-1").Lineages["re_1"])
	})

	t.Run("Unknown Transaction", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.engine.Reconcile(ctx, "missing")

		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestReconcileStuck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "tx-1", models.CARD, 1000, status.ChargePending)
	f.seed(t, "tx-2", models.MOBILE_MONEY_B, 1000, status.ChargeCreated)
	f.seed(t, "tx-3", models.MOBILE_MONEY_A, 1000, status.ChargeSuccessful)

	f.card.On("FetchChargeStatus", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()
	f.momoB.On("FetchChargeStatus", mock.Anything, mock.Anything).Return(statusResult(status.ChargeSuccessful), nil).Once()

	moved, err := f.engine.ReconcileStuck(ctx, 20*time.Minute)

	require.NoError(t, err)
	assert.Equal(t, 1, moved)
	assert.Equal(t, "CHARGE_PENDING", f.get(t, "tx-1").Status)
	assert.Equal(t, "CHARGE_SUCCESSFUL", f.get(t, "tx-2").Status)
}

func TestStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := new(storagemocks.Storage)
	e := New(store, providers.Registry{}, nil, decimal.Zero, nil)

	store.On("GetTransaction", ctx, "tx-1").Return(nil, fmt.Errorf("get: %w", retry.ErrExhausted)).Once()

	_, err := e.GetTransaction(ctx, "tx-1")

	assert.Equal(t, apperr.KindTransientStore, apperr.KindOf(err))
	store.AssertExpectations(t)
}

func TestNotifyFailureIsNotReturned(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	card := providermocks.NewProvider(t)
	n := notifiermocks.NewNotifier(t)
	e := New(store, providers.Registry{models.CARD: card}, n, decimal.RequireFromString("2.5"), nil)

	card.On("Charge", mock.Anything, mock.Anything).Return(&providers.ChargeResult{ProviderId: "pi_1", Status: status.ChargePending}, nil).Once()
	n.On("Notify", mock.Anything, mock.Anything).Return(errors.New("queue down")).Once()

	tx, err := e.CreateCharge(ctx, ChargeRequest{Amount: 100, Currency: "KES", PaymentMethod: models.CARD, MerchantId: "m-1"})

	require.NoError(t, err)
	_, err = store.GetTransaction(ctx, tx.TransactionId)
	assert.NoError(t, err)
}
