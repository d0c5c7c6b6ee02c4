package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/safouanmatmati/ratingboard/pkg/httputil"
	"github.com/safouanmatmati/ratingboard/pkg/logger"
)

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RatingIDFromPath stores the {id} path parameter in the request context and
// adds it to the request-scoped logger.
func RatingIDFromPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.WithRatingID(r.Context(), id)
		if l := logger.FromContext(ctx); l != slog.Default() {
			ctx = logger.NewContext(ctx, l.With(slog.String("rating_id", id)))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
