package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safouanmatmati/ratingboard/internal/domain"
	"github.com/safouanmatmati/ratingboard/internal/service"
	apperrors "github.com/safouanmatmati/ratingboard/pkg/errors"
	"github.com/safouanmatmati/ratingboard/pkg/httputil"
	"github.com/safouanmatmati/ratingboard/pkg/validator"
)

// maxBodyBytes caps request bodies; a rating is a handful of short fields.
const maxBodyBytes = 64 << 10

// useDefaultPositionKey is a request-only flag on create bodies. It is
// stripped before validation.
const useDefaultPositionKey = "use_default_position"

// RatingHandler handles HTTP requests for rating endpoints.
type RatingHandler struct {
	service *service.RatingService
	logger  *slog.Logger
}

// NewRatingHandler creates a new rating HTTP handler.
func NewRatingHandler(svc *service.RatingService, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request / response DTOs ---

// ListQuery holds the query parameters of the list endpoint.
type ListQuery struct {
	Sort string `json:"sort" validate:"omitempty,oneof=score_asc score_desc"`
}

// ModerationRequest is the JSON request body for accepting or rejecting a rating.
type ModerationRequest struct {
	Allowed *bool `json:"allowed" validate:"required"`
}

// CreatedResponse is returned by the create endpoint.
type CreatedResponse struct {
	Identifier string `json:"identifier"`
}

// --- Handlers ---

// List handles GET /api/v1/ratings
func (h *RatingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := ListQuery{Sort: r.URL.Query().Get("sort")}
	if err := validator.Validate(q); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	ratings := h.service.List(r.Context(), q.Sort)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ratings})
}

// Statistics handles GET /api/v1/ratings/statistics
func (h *RatingHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats := h.service.Statistics(r.Context())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}

// Get handles GET /api/v1/ratings/{id}
func (h *RatingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rating, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: domain.IdentifiedRating{ID: id, Rating: rating},
	})
}

// Create handles POST /api/v1/ratings
func (h *RatingHandler) Create(w http.ResponseWriter, r *http.Request) {
	data, err := decodeObject(w, r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if useDefault, _ := data[useDefaultPositionKey].(bool); useDefault {
		domain.DefaultPosition.FillMissing(data)
	}
	delete(data, useDefaultPositionKey)

	id, err := h.service.Create(r.Context(), data)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Location", r.URL.Path+"/"+id)
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: CreatedResponse{Identifier: id}})
}

// Replace handles PUT /api/v1/ratings/{id}
func (h *RatingHandler) Replace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	data, err := decodeObject(w, r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	rating, err := h.service.Replace(r.Context(), id, data)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: domain.IdentifiedRating{ID: id, Rating: rating},
	})
}

// Patch handles PATCH /api/v1/ratings/{id}
func (h *RatingHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	data, err := decodeObject(w, r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	patch, err := domain.NewRatingPatch(data)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	rating, err := h.service.Patch(r.Context(), id, patch)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: domain.IdentifiedRating{ID: id, Rating: rating},
	})
}

// Moderate handles PUT /api/v1/ratings/{id}/moderation
func (h *RatingHandler) Moderate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ModerationRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	rating, err := h.service.SetAllowed(r.Context(), id, *req.Allowed)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: domain.IdentifiedRating{ID: id, Rating: rating},
	})
}

// Delete handles DELETE /api/v1/ratings/{id}
func (h *RatingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeObject reads a JSON object body without binding it to a struct, so
// that the rating validator sees the raw values and can coerce them. Numbers
// are kept as json.Number.
func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.InvalidInput("request body is required")
		}
		return nil, apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	if data == nil {
		return nil, apperrors.InvalidInput("request body must be a JSON object")
	}
	return data, nil
}
