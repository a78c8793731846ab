package webhooks

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/chris/payment-reconciliation/pkg/api"
	"github.com/chris/payment-reconciliation/pkg/apperr"
	"github.com/chris/payment-reconciliation/pkg/handlers"
	"github.com/chris/payment-reconciliation/pkg/mapping"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// maxBodyBytes caps the size of a provider callback.
const maxBodyBytes = 1 << 20

// WebhooksHandler takes provider callbacks over plain HTTP or API Gateway.
// Every response is a {statusCode, message} envelope.
type WebhooksHandler struct {
	Engine handlers.Engine
	Logger *slog.Logger
}

// NewWebhooksHandler creates a new WebhooksHandler.
func NewWebhooksHandler(engine handlers.Engine, logger *slog.Logger) *WebhooksHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WebhooksHandler{Engine: engine, Logger: logger}
}

// Routes mounts the webhook endpoint.
func (h *WebhooksHandler) Routes(r chi.Router) {
	r.Post("/webhooks/{provider}", h.HandleWebhook)
}

// ParseProvider accepts a payment method name or its lowercase, dashed form
// ("mobile-money-a").
func ParseProvider(s string) (models.PaymentMethod, error) {
	method := models.PaymentMethod(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if !method.Valid() {
		return "", apperr.Unsupported(apperr.CodeUnsupportedProvider, fmt.Sprintf("unsupported provider %q", s))
	}
	return method, nil
}

// HandleWebhook handles POST /webhooks/{provider}.
func (h *WebhooksHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var provider string
	if err := runtime.BindStyledParameterWithLocation("simple", false, "provider", runtime.ParamLocationPath, chi.URLParam(r, "provider"), &provider); err != nil {
		handlers.WriteError(w, h.Logger, apperr.Validation(apperr.CodeInvalidRequest, fmt.Sprintf("invalid format for parameter provider: %v", err)))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		handlers.WriteError(w, h.Logger, apperr.Validation(apperr.CodeInvalidRequest, "could not read request body"))
		return
	}

	resp := h.handle(r.Context(), provider, body)
	handlers.WriteJSON(w, resp.StatusCode, resp)
}

// HandleAPIGateway is the API Gateway proxy entrypoint. Failures are reported
// in the response; the returned error is always nil so API Gateway never
// answers with its own 502.
func (h *WebhooksHandler) HandleAPIGateway(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return gatewayResponse(handlers.ErrorResponse(apperr.Validation(apperr.CodeInvalidRequest, "body is not valid base64"))), nil
		}
		body = decoded
	}

	return gatewayResponse(h.handle(ctx, req.PathParameters["provider"], body)), nil
}

func (h *WebhooksHandler) handle(ctx context.Context, provider string, body []byte) api.Response {
	logger := h.Logger.With(slog.String("provider", provider))

	method, err := ParseProvider(provider)
	if err != nil {
		logger.Info("webhook rejected", slog.Any("error", err))
		return handlers.ErrorResponse(err)
	}

	result, err := h.Engine.HandleWebhook(ctx, method, body)
	if err != nil {
		resp := handlers.ErrorResponse(err)
		if resp.StatusCode >= http.StatusInternalServerError {
			logger.Error("webhook failed", slog.Int("status", resp.StatusCode), slog.Any("error", err))
		} else {
			logger.Info("webhook rejected", slog.Int("status", resp.StatusCode), slog.Any("error", err))
		}
		return resp
	}

	logger.Info("webhook processed",
		slog.String("transaction_id", result.TransactionId),
		slog.String("outcome", string(result.Outcome)),
		slog.String("status", result.Status))
	return api.Response{
		StatusCode: http.StatusOK,
		Message:    "webhook processed",
		Result:     mapping.ToApiResult(result),
	}
}

func gatewayResponse(resp api.Response) events.APIGatewayProxyResponse {
	body, err := json.Marshal(resp)
	if err != nil {
		body = []byte(`{"statusCode":500,"message":"Internal server error"}`)
		resp.StatusCode = http.StatusInternalServerError
	}
	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}
