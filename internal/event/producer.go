package event

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/safouanmatmati/ratingboard/internal/domain"
	pkgkafka "github.com/safouanmatmati/ratingboard/pkg/kafka"
	"github.com/safouanmatmati/ratingboard/pkg/logger"
)

// Kafka topic constants for rating domain events.
const (
	TopicRatingCreated   = "ratingboard.rating.created"
	TopicRatingUpdated   = "ratingboard.rating.updated"
	TopicRatingModerated = "ratingboard.rating.moderated"
	TopicRatingDeleted   = "ratingboard.rating.deleted"
)

// Aggregate type constant.
const AggregateTypeRating = "rating"

// Source identifier for events originating from this service.
const SourceRatingService = "rating-service"

// RatingCreatedData is the payload for a rating.created event.
type RatingCreatedData struct {
	RatingID string  `json:"rating_id"`
	Business string  `json:"business"`
	User     string  `json:"user"`
	Score    float64 `json:"score"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// RatingUpdatedData is the payload for a rating.updated event. It carries
// the rating as stored after the change.
type RatingUpdatedData struct {
	RatingID string  `json:"rating_id"`
	Business string  `json:"business"`
	User     string  `json:"user"`
	Comment  string  `json:"comment"`
	Score    float64 `json:"score"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Allowed  *bool   `json:"allowed"`
}

// RatingModeratedData is the payload for a rating.moderated event.
type RatingModeratedData struct {
	RatingID string `json:"rating_id"`
	Allowed  bool   `json:"allowed"`
}

// RatingDeletedData is the payload for a rating.deleted event.
type RatingDeletedData struct {
	RatingID string `json:"rating_id"`
}

// Publisher emits rating domain events.
type Publisher interface {
	PublishRatingCreated(ctx context.Context, id string, r domain.Rating) error
	PublishRatingUpdated(ctx context.Context, id string, r domain.Rating) error
	PublishRatingModerated(ctx context.Context, id string, allowed bool) error
	PublishRatingDeleted(ctx context.Context, id string) error
}

// Producer publishes rating domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the rating service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishRatingCreated publishes a rating.created event.
func (p *Producer) PublishRatingCreated(ctx context.Context, id string, r domain.Rating) error {
	data := RatingCreatedData{
		RatingID: id,
		Business: r.Business,
		User:     r.User,
		Score:    r.Score,
		Lat:      r.Lat,
		Lng:      r.Lng,
	}
	return p.publish(ctx, TopicRatingCreated, id, data)
}

// PublishRatingUpdated publishes a rating.updated event.
func (p *Producer) PublishRatingUpdated(ctx context.Context, id string, r domain.Rating) error {
	data := RatingUpdatedData{
		RatingID: id,
		Business: r.Business,
		User:     r.User,
		Comment:  r.Comment,
		Score:    r.Score,
		Lat:      r.Lat,
		Lng:      r.Lng,
		Allowed:  r.Allowed,
	}
	return p.publish(ctx, TopicRatingUpdated, id, data)
}

// PublishRatingModerated publishes a rating.moderated event.
func (p *Producer) PublishRatingModerated(ctx context.Context, id string, allowed bool) error {
	return p.publish(ctx, TopicRatingModerated, id, RatingModeratedData{RatingID: id, Allowed: allowed})
}

// PublishRatingDeleted publishes a rating.deleted event.
func (p *Producer) PublishRatingDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TopicRatingDeleted, id, RatingDeletedData{RatingID: id})
}

func (p *Producer) publish(ctx context.Context, topic, id string, data any) error {
	opts := []pkgkafka.EventOption{pkgkafka.WithCorrelationID(logger.CorrelationIDFromContext(ctx))}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		opts = append(opts, pkgkafka.WithMetadata("trace_id", sc.TraceID().String()))
	}

	event, err := pkgkafka.NewEvent(topic,
		pkgkafka.Aggregate{ID: id, Type: AggregateTypeRating, Source: SourceRatingService},
		data,
		opts...,
	)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published rating event",
		slog.String("topic", topic),
		slog.String("rating_id", id),
	)
	return nil
}

// NopPublisher drops every event. It is used when no Kafka brokers are
// configured.
type NopPublisher struct{}

func (NopPublisher) PublishRatingCreated(context.Context, string, domain.Rating) error { return nil }
func (NopPublisher) PublishRatingUpdated(context.Context, string, domain.Rating) error { return nil }
func (NopPublisher) PublishRatingModerated(context.Context, string, bool) error        { return nil }
func (NopPublisher) PublishRatingDeleted(context.Context, string) error                { return nil }
