package middleware

import (
	"log/slog"
	"net/http"

	"github.com/safouanmatmati/ratingboard/pkg/logger"
)

// RequestLogger puts a per-request logger in the context, retrievable with
// logger.FromContext. It carries the method and path plus whatever of
// correlation_id, trace_id and span_id the earlier middleware stored, so it
// must be mounted after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.WithContext(ctx, base).With(
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			next.ServeHTTP(w, r.WithContext(logger.NewContext(ctx, l)))
		})
	}
}
