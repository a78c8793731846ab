package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chris/payment-reconciliation/pkg/api"
	"github.com/chris/payment-reconciliation/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse(t *testing.T) {
	t.Run("Validation", func(t *testing.T) {
		resp := ErrorResponse(apperr.Validation(apperr.CodeInvalidRefundAmount, "amount must be positive"))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "amount must be positive", resp.Message)
		assert.Equal(t, apperr.CodeInvalidRefundAmount, *resp.Code)
		assert.Nil(t, resp.Retryable)
		assert.Nil(t, resp.SuggestedAction)
	})

	t.Run("Transient Store", func(t *testing.T) {
		resp := ErrorResponse(apperr.TransientStore(errors.New("throttled")))

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		require.NotNil(t, resp.Retryable)
		assert.True(t, *resp.Retryable)
		assert.Equal(t, "Retry the request later", *resp.SuggestedAction)
	})

	t.Run("Internal", func(t *testing.T) {
		resp := ErrorResponse(errors.New("table arn:aws:dynamodb:eu-west-1:1234:table/transactions"))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Internal server error", resp.Message)
		assert.Nil(t, resp.Code)
	})
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()

	WriteError(rr, slog.New(slog.DiscardHandler), apperr.NotFound(apperr.CodeTransactionNotFound, "transaction not found"))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var resp api.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
