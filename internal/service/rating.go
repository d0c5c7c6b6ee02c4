package service

import (
	"context"
	"log/slog"

	"github.com/safouanmatmati/ratingboard/internal/domain"
	"github.com/safouanmatmati/ratingboard/internal/event"
)

// RatingRepository is the rating collection the service operates on.
// *store.Store satisfies it.
type RatingRepository interface {
	GetAll() domain.Ratings
	Get(id string) (domain.Rating, error)
	Post(data map[string]any) (string, error)
	Put(id string, data map[string]any) (domain.Rating, error)
	Patch(id string, patch domain.RatingPatch) (domain.Rating, error)
	Delete(id string) error
}

// RatingService implements the business logic for rating operations.
type RatingService struct {
	store  RatingRepository
	events event.Publisher
	logger *slog.Logger
}

// NewRatingService creates a new rating service.
func NewRatingService(store RatingRepository, events event.Publisher, logger *slog.Logger) *RatingService {
	return &RatingService{
		store:  store,
		events: events,
		logger: logger,
	}
}

// Create validates data and stores it as a new rating. data is coerced in
// place. It returns the new identifier.
func (s *RatingService) Create(ctx context.Context, data map[string]any) (string, error) {
	id, err := s.store.Post(data)
	if err != nil {
		return "", err
	}

	r, err := s.store.Get(id)
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "rating created",
		slog.String("rating_id", id),
		slog.String("business", r.Business),
	)

	if err := s.events.PublishRatingCreated(ctx, id, r); err != nil {
		s.logPublishError(ctx, "rating.created", id, err)
	}

	return id, nil
}

// Get returns a single rating.
func (s *RatingService) Get(_ context.Context, id string) (domain.Rating, error) {
	return s.store.Get(id)
}

// List returns every rating ordered by score.
func (s *RatingService) List(_ context.Context, order string) []domain.IdentifiedRating {
	return domain.SortByScore(s.store.GetAll(), order)
}

// Replace overwrites an existing rating with data, validated like Create.
func (s *RatingService) Replace(ctx context.Context, id string, data map[string]any) (domain.Rating, error) {
	r, err := s.store.Put(id, data)
	if err != nil {
		return domain.Rating{}, err
	}

	s.logger.InfoContext(ctx, "rating replaced", slog.String("rating_id", id))

	if err := s.events.PublishRatingUpdated(ctx, id, r); err != nil {
		s.logPublishError(ctx, "rating.updated", id, err)
	}

	return r, nil
}

// Patch merges patch into an existing rating.
func (s *RatingService) Patch(ctx context.Context, id string, patch domain.RatingPatch) (domain.Rating, error) {
	r, err := s.store.Patch(id, patch)
	if err != nil {
		return domain.Rating{}, err
	}

	s.logger.InfoContext(ctx, "rating patched", slog.String("rating_id", id))

	if err := s.events.PublishRatingUpdated(ctx, id, r); err != nil {
		s.logPublishError(ctx, "rating.updated", id, err)
	}

	return r, nil
}

// SetAllowed records a moderation decision. Only allowed ratings count
// towards the statistics.
func (s *RatingService) SetAllowed(ctx context.Context, id string, allowed bool) (domain.Rating, error) {
	r, err := s.store.Patch(id, domain.RatingPatch{Allowed: &allowed})
	if err != nil {
		return domain.Rating{}, err
	}

	s.logger.InfoContext(ctx, "rating moderated",
		slog.String("rating_id", id),
		slog.Bool("allowed", allowed),
	)

	if err := s.events.PublishRatingModerated(ctx, id, allowed); err != nil {
		s.logPublishError(ctx, "rating.moderated", id, err)
	}

	return r, nil
}

// Delete removes a rating.
func (s *RatingService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "rating deleted", slog.String("rating_id", id))

	if err := s.events.PublishRatingDeleted(ctx, id); err != nil {
		s.logPublishError(ctx, "rating.deleted", id, err)
	}

	return nil
}

// Statistics aggregates the allowed ratings.
func (s *RatingService) Statistics(_ context.Context) domain.Statistics {
	return domain.ComputeStatistics(s.store.GetAll())
}

func (s *RatingService) logPublishError(ctx context.Context, eventType, id string, err error) {
	s.logger.ErrorContext(ctx, "failed to publish "+eventType+" event",
		slog.String("rating_id", id),
		slog.String("error", err.Error()),
	)
}
