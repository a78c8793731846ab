package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chris/payment-reconciliation/pkg/api"
	"github.com/chris/payment-reconciliation/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(middleware.RequestID, NewStructuredLogger(logger))
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "server error", entry["msg"])
	req := entry["request"].(map[string]any)
	assert.NotEmpty(t, req["id"])
	assert.Equal(t, "/boom", req["path"])
	assert.Equal(t, float64(http.StatusBadGateway), entry["response"].(map[string]any)["status"])
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(NewStructuredLogger(logger, "/metrics"))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/transactions/{transactionId}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Zero(t, buf.Len())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/transactions/tx-1", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "/transactions/{transactionId}", entry["request"].(map[string]any)["route"])
}

func TestRecover(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := middleware.RequestID(Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map")
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var resp api.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Internal server error", resp.Message)
	assert.NotContains(t, rr.Body.String(), "nil map")
	assert.Contains(t, buf.String(), "nil map")
	assert.Contains(t, buf.String(), "request_id")
}

func TestHTTPMetrics(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetrics)
	r.Get("/transactions/{transactionId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.CollectAndCount(metrics.HTTPLatency)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/transactions/tx-metrics", nil))

	assert.Equal(t, before+1, testutil.CollectAndCount(metrics.HTTPLatency))
}
