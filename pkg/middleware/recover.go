package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/chris/payment-reconciliation/pkg/api"
	"github.com/chris/payment-reconciliation/pkg/handlers"
)

// Recover turns a panic into a generic 500 envelope.
func Recover(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				RequestLogger(r.Context(), logger).Error("panic",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())))
				handlers.WriteJSON(w, http.StatusInternalServerError, api.Response{
					StatusCode: http.StatusInternalServerError,
					Message:    "Internal server error",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
