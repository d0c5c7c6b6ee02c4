package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/safouanmatmati/ratingboard/pkg/logger"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func testAggregate(id string) Aggregate {
	return Aggregate{ID: id, Type: "rating", Source: "ratingboard"}
}

func header(msg kafka.Message, key string) string {
	return NewHeaderCarrier(&msg).Get(key)
}

func TestNewEvent_Fields(t *testing.T) {
	type created struct {
		Business string  `json:"business"`
		Score    float64 `json:"score"`
	}

	data := created{Business: "Chez Paul", Score: 4}
	event, err := NewEvent("rating.created", testAggregate("7"), data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "rating.created", event.EventType)
	assert.Equal(t, "7", event.AggregateID)
	assert.Equal(t, "rating", event.AggregateType)
	assert.Equal(t, EnvelopeVersion, event.Version)
	assert.Empty(t, event.CorrelationID)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var got created
	require.NoError(t, json.Unmarshal(event.Data, &got))
	assert.Equal(t, data, got)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("rating.created", testAggregate("1"), make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode rating.created payload")
}

func TestEvent_Envelope(t *testing.T) {
	event, err := NewEvent("rating.deleted", testAggregate("2"), map[string]string{"id": "2"},
		WithCorrelationID("corr-1"),
		WithMetadata("storage", "redis"),
	)
	require.NoError(t, err)

	raw, err := event.Encode()
	require.NoError(t, err)

	var restored Event
	require.NoError(t, json.Unmarshal(raw, &restored))
	assert.Equal(t, "corr-1", restored.CorrelationID)
	assert.Equal(t, "redis", restored.Metadata["storage"])

	var payload map[string]string
	require.NoError(t, json.Unmarshal(restored.Data, &payload))
	assert.Equal(t, "2", payload["id"])
}

func TestWithCorrelationID_IgnoresEmpty(t *testing.T) {
	event, err := NewEvent("rating.created", testAggregate("1"), nil, WithCorrelationID(""))
	require.NoError(t, err)
	assert.Empty(t, event.CorrelationID)
}

func TestProducer_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, []string{"localhost:9092"}, logger.Discard())

	event, err := NewEvent("rating.created", testAggregate("3"), map[string]int{"score": 5},
		WithCorrelationID("corr-xyz"),
	)
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), "ratingboard.rating.created", event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "ratingboard.rating.created", msg.Topic)
	assert.Equal(t, "3", string(msg.Key))
	assert.Equal(t, "rating.created", header(msg, "event_type"))
	assert.Equal(t, "ratingboard", header(msg, "source"))
	assert.Equal(t, "corr-xyz", header(msg, "correlation_id"))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.EventID, decoded.EventID)
}

func TestProducer_Publish_InjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	w := &recordingWriter{}
	p := NewProducerWithWriter(w, nil, logger.Discard())
	event, _ := NewEvent("rating.moderated", testAggregate("1"), nil)

	require.NoError(t, p.Publish(ctx, "t", event))
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", header(w.msgs[0], "traceparent"))
}

func TestProducer_Publish_WriterError(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	p := NewProducerWithWriter(w, nil, logger.Discard())
	event, _ := NewEvent("rating.created", testAggregate("1"), nil)

	err := p.Publish(context.Background(), "ratingboard.rating.created", event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish event to ratingboard.rating.created")
}

func TestProducer_CloseAndPing(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, nil, logger.Discard())

	assert.Error(t, p.Ping(context.Background()))
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
