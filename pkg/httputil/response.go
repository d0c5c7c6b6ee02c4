package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/safouanmatmati/ratingboard/pkg/errors"
	"github.com/safouanmatmati/ratingboard/pkg/logger"
	"github.com/safouanmatmati/ratingboard/pkg/validator"
)

// Response is the JSON envelope used by every endpoint.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse describes a failed request.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Fields    any    `json:"fields,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// fieldDetailer is implemented by errors that carry per-field details.
type fieldDetailer interface {
	FieldDetails() any
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status code and writes the error envelope. Server
// errors are logged with the request-scoped logger when one is mounted.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var details fieldDetailer
	if errors.As(err, &details) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:      "VALIDATION_ERROR",
				Message:   err.Error(),
				Fields:    details.FieldDetails(),
				RequestID: requestID,
			},
		})
		return
	}

	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		logServerError(l, r, err)
	}
	WriteJSON(w, appErr.Status, Response{
		Error: &ErrorResponse{Code: appErr.Code, Message: appErr.Message, RequestID: requestID},
	})
}

// toAppError maps bare sentinel errors onto their AppError form. Anything
// unrecognized becomes an opaque internal error.
func toAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch status := apperrors.HTTPStatus(err); status {
	case http.StatusNotFound:
		return &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: "resource not found",
			Status:  status,
			Err:     err,
		}
	case http.StatusBadRequest:
		return apperrors.InvalidInput(err.Error())
	case http.StatusServiceUnavailable:
		return apperrors.Unavailable(err)
	default:
		return apperrors.Internal(err)
	}
}

func logServerError(l *slog.Logger, r *http.Request, err error) {
	l.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}

// WriteValidationError writes a 400 response for a request body or query
// that failed struct validation.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:      "VALIDATION_ERROR",
				Message:   "request validation failed",
				Fields:    valErr.Fields(),
				RequestID: requestID,
			},
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error(), RequestID: requestID},
	})
}
