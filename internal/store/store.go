// Package store holds the in-memory rating collection and its persistence to
// a blob.Store.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/safouanmatmati/ratingboard/internal/blob"
	"github.com/safouanmatmati/ratingboard/internal/domain"
	apperrors "github.com/safouanmatmati/ratingboard/pkg/errors"
)

// DefaultKey is the blob key the whole collection is persisted under.
const DefaultKey = "ratings"

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the blob key used by Load and Save.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// Store is the authoritative rating collection. Identifiers are decimal
// strings handed out from a counter that never goes backwards.
type Store struct {
	mu             sync.RWMutex
	ratings        domain.Ratings
	lastIdentifier int64

	blobs  blob.Store
	key    string
	logger *slog.Logger
}

// New creates an empty store persisting to blobs.
func New(blobs blob.Store, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		ratings: make(domain.Ratings),
		blobs:   blobs,
		key:     DefaultKey,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fill replaces the whole collection. The identifier counter restarts from
// the largest numeric key; non-numeric keys are kept but never counted.
func (s *Store) Fill(ratings domain.Ratings) {
	s.fillWithFloor(ratings, 0)
}

// fillWithFloor is Fill with a lower bound on the identifier counter, so
// identifiers of entries dropped on load are not handed out again.
func (s *Store) fillWithFloor(ratings domain.Ratings, floor int64) {
	next := make(domain.Ratings, len(ratings))
	last := floor
	for id, r := range ratings {
		next[id] = r
		if n, ok := numericID(id); ok && n > last {
			last = n
		}
	}

	s.mu.Lock()
	s.ratings = next
	s.lastIdentifier = last
	s.mu.Unlock()

	ratingsStored.Set(float64(len(next)))
}

// GetAll returns a snapshot of the collection.
func (s *Store) GetAll() domain.Ratings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(domain.Ratings, len(s.ratings))
	for id, r := range s.ratings {
		out[id] = r
	}
	return out
}

// Len returns the number of stored ratings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ratings)
}

// Get returns the rating stored under id.
func (s *Store) Get(id string) (domain.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.ratings[id]
	if !ok {
		return domain.Rating{}, apperrors.NotFound("rating", id)
	}
	return r, nil
}

// Post validates data, stores it under a fresh identifier and returns that
// identifier. Numeric strings in data are coerced in place.
func (s *Store) Post(data map[string]any) (string, error) {
	if err := domain.Validate(data); err != nil {
		return "", err
	}
	r := domain.Create(data)

	s.mu.Lock()
	s.lastIdentifier++
	id := strconv.FormatInt(s.lastIdentifier, 10)
	s.ratings[id] = r
	n := len(s.ratings)
	s.mu.Unlock()

	ratingsStored.Set(float64(n))
	return id, nil
}

// Put replaces the rating stored under id with data, validated like Post.
func (s *Store) Put(id string, data map[string]any) (domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ratings[id]; !ok {
		return domain.Rating{}, apperrors.NotFound("rating", id)
	}
	if err := domain.Validate(data); err != nil {
		return domain.Rating{}, err
	}

	r := domain.Create(data)
	s.ratings[id] = r
	return r, nil
}

// Patch merges patch into the rating stored under id.
func (s *Store) Patch(id string, patch domain.RatingPatch) (domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.ratings[id]
	if !ok {
		return domain.Rating{}, apperrors.NotFound("rating", id)
	}

	updated := patch.Apply(current)
	s.ratings[id] = updated
	return updated, nil
}

// Delete removes the rating stored under id. Its identifier is not reused.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	if _, ok := s.ratings[id]; !ok {
		s.mu.Unlock()
		return apperrors.NotFound("rating", id)
	}
	delete(s.ratings, id)
	n := len(s.ratings)
	s.mu.Unlock()

	ratingsStored.Set(float64(n))
	return nil
}

// Load replaces the collection with the persisted one. Any read or decode
// failure leaves the store empty; entries that fail validation are dropped.
func (s *Store) Load(ctx context.Context) {
	raw, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			s.logger.InfoContext(ctx, "no persisted ratings, starting empty", slog.String("key", s.key))
			persistOps.WithLabelValues("load", "empty").Inc()
		} else {
			s.logger.WarnContext(ctx, "failed to read persisted ratings, starting empty",
				slog.String("key", s.key),
				slog.String("error", err.Error()),
			)
			persistOps.WithLabelValues("load", "error").Inc()
		}
		s.Fill(nil)
		return
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.logger.WarnContext(ctx, "persisted ratings are not valid JSON, starting empty",
			slog.String("key", s.key),
			slog.String("error", err.Error()),
		)
		persistOps.WithLabelValues("load", "error").Inc()
		s.Fill(nil)
		return
	}

	ratings := make(domain.Ratings, len(entries))
	var floor int64
	for id, entry := range entries {
		if n, ok := numericID(id); ok && n > floor {
			floor = n
		}

		var data map[string]any
		if err := json.Unmarshal(entry, &data); err != nil || data == nil {
			s.logger.WarnContext(ctx, "dropping persisted rating that is not an object",
				slog.String("rating_id", id),
			)
			continue
		}
		if err := domain.Validate(data); err != nil {
			s.logger.WarnContext(ctx, "dropping invalid persisted rating",
				slog.String("rating_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		ratings[id] = domain.Create(data)
	}

	s.fillWithFloor(ratings, floor)
	persistOps.WithLabelValues("load", "success").Inc()
	s.logger.InfoContext(ctx, "ratings loaded",
		slog.String("key", s.key),
		slog.Int("count", len(ratings)),
	)
}

// Save writes the whole collection as a single JSON document.
func (s *Store) Save(ctx context.Context) error {
	data, err := json.Marshal(s.GetAll())
	if err != nil {
		persistOps.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("encode ratings: %w", err)
	}

	if err := s.blobs.Set(ctx, s.key, string(data)); err != nil {
		persistOps.WithLabelValues("save", "error").Inc()
		return apperrors.Unavailable(fmt.Errorf("save ratings under %q: %w", s.key, err))
	}

	persistOps.WithLabelValues("save", "success").Inc()
	return nil
}

func numericID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	return n, err == nil
}

// Ping checks the underlying blob store.
func (s *Store) Ping(ctx context.Context) error {
	return s.blobs.Ping(ctx)
}
