package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chris/payment-reconciliation/pkg/models"
)

const defaultTimeout = 10 * time.Second

// restClient is the JSON-over-HTTP plumbing shared by the provider clients.
type restClient struct {
	name      models.PaymentMethod
	baseURL   string
	http      *http.Client
	authorize func(req *http.Request)
}

func newRestClient(name models.PaymentMethod, cfg Config, authorize func(req *http.Request)) *restClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &restClient{
		name:      name,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      &http.Client{Timeout: timeout},
		authorize: authorize,
	}
}

// do sends body as JSON and decodes a successful response into out. It
// returns the response decoded as a generic map so callers can keep the raw
// provider payload.
func (c *restClient) do(ctx context.Context, operation, method, path string, headers map[string]string, body, out any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, c.fail(operation, 0, fmt.Sprintf("failed to marshal request: %v", err), nil, err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, c.fail(operation, 0, fmt.Sprintf("failed to build request: %v", err), nil, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authorize != nil {
		c.authorize(req)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(operation, 0, err.Error(), nil, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(operation, resp.StatusCode, fmt.Sprintf("failed to read response: %v", err), nil, err)
	}

	raw := decodeRaw(data)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.fail(operation, resp.StatusCode, errorMessage(raw, data, resp.Status), raw, nil)
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, c.fail(operation, 0, fmt.Sprintf("failed to decode response: %v", err), raw, err)
		}
	}
	return raw, nil
}

func (c *restClient) fail(operation string, statusCode int, message string, raw map[string]any, err error) *Error {
	return &Error{
		Provider:   c.name,
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Raw:        raw,
		Err:        err,
	}
}

func decodeRaw(data []byte) map[string]any {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return map[string]any{"body": string(data)}
	}
	return raw
}

// errorMessage picks the most specific message a provider error body offers.
func errorMessage(raw map[string]any, data []byte, fallback string) string {
	if raw != nil {
		if nested, ok := raw["error"].(map[string]any); ok {
			if msg, ok := nested["message"].(string); ok && msg != "" {
				return msg
			}
		}
		for _, key := range []string{"message", "error", "reason"} {
			if msg, ok := raw[key].(string); ok && msg != "" {
				return msg
			}
		}
	}
	if len(data) > 0 && len(data) < 512 {
		return string(data)
	}
	return fallback
}
