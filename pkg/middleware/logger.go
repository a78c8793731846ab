package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// NewStructuredLogger logs one line per request, tagged with the id set by
// middleware.RequestID. Paths in skip (e.g. /metrics) are not logged.
func NewStructuredLogger(logger *slog.Logger, skip ...string) func(next http.Handler) http.Handler {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if skipped[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				logger.LogAttrs(r.Context(), levelFor(status), messageFor(status),
					slog.Group("request",
						slog.String("id", middleware.GetReqID(r.Context())),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("route", routePattern(r)),
						slog.String("remote_addr", r.RemoteAddr),
					),
					slog.Group("response",
						slog.Int("status", status),
						slog.Int("bytes", ww.BytesWritten()),
						slog.Duration("latency", time.Since(start)),
					),
				)
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func messageFor(status int) string {
	switch {
	case status >= 500:
		return "server error"
	case status >= 400:
		return "request rejected"
	default:
		return "request completed"
	}
}

// RequestLogger returns logger tagged with the request id carried by ctx.
func RequestLogger(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := middleware.GetReqID(ctx); id != "" {
		return logger.With(slog.String("request_id", id))
	}
	return logger
}
