//go:build integration

package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/testsupport"
	"github.com/Lauraredmond/pilates-class-generator-sub000/pkg/events"
)

func TestDispatcherPublishesMessages(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	sequenceID := uuid.NewString()
	seedSequenceEvent(t, ctx, pool, sequenceID, events.TypeSequenceGenerated)

	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	dispatcher := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 5)

	beforeDelivered := testutil.ToFloat64(eventsCounter.WithLabelValues(events.TypeSequenceGenerated, outcomePublished))
	beforeHistogram := histogramSampleCount(t)

	require.NoError(t, dispatcher.processBatch(ctx))

	require.Len(t, producer.writes, 1)
	require.Equal(t, TopicSequenceEvents, producer.writes[0].topic)
	require.Len(t, producer.writes[0].messages, 1)
	require.Equal(t, []byte("user-"+sequenceID), producer.writes[0].messages[0].Key)

	afterDelivered := testutil.ToFloat64(eventsCounter.WithLabelValues(events.TypeSequenceGenerated, outcomePublished))
	require.InDelta(t, beforeDelivered+1, afterDelivered, 0.0001)
	require.Greater(t, histogramSampleCount(t), beforeHistogram)

	var published int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NOT NULL`).Scan(&published))
	require.Equal(t, 1, published)
}

func TestEnqueueIgnoresDuplicateEvents(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	sequenceID := uuid.NewString()
	seedSequenceEvent(t, ctx, pool, sequenceID, events.TypeSequenceGenerated)
	seedSequenceEvent(t, ctx, pool, sequenceID, events.TypeSequenceGenerated)
	seedSequenceEvent(t, ctx, pool, sequenceID, events.TypeSequenceValidationFailed)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE aggregate_id = $1`, sequenceID).Scan(&count))
	require.Equal(t, 2, count)
}

func TestDispatcherRoutesMessagesToDLQOnFailure(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	sequenceID := uuid.NewString()
	seedSequenceEvent(t, ctx, pool, sequenceID, events.TypeSequenceValidationFailed)

	producer := &stubProducer{err: errors.New("kafka write failed")}
	registry := &stubRegistry{id: 7}
	dispatcher := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 5)

	deadLettered := eventsCounter.WithLabelValues(events.TypeSequenceValidationFailed, outcomeDeadLettered)
	parked := dlqEntriesCounter.WithLabelValues(events.TypeSequenceValidationFailed, StagePublish, actionParked)
	beforeDeadLettered := testutil.ToFloat64(deadLettered)
	beforeParked := testutil.ToFloat64(parked)

	require.NoError(t, dispatcher.processBatch(ctx))

	require.InDelta(t, beforeDeadLettered+1, testutil.ToFloat64(deadLettered), 0.0001)
	require.InDelta(t, beforeParked+1, testutil.ToFloat64(parked), 0.0001)

	var (
		dlqCount int
		subject  string
		stage    string
	)
	err := pool.QueryRow(ctx, `SELECT COUNT(*), MAX(schema_subject), MAX(failed_stage) FROM outbox_dlq WHERE aggregate_id = $1`, sequenceID).Scan(&dlqCount, &subject, &stage)
	require.NoError(t, err)
	require.Equal(t, 1, dlqCount)
	require.Equal(t, "sequence_validation_failed-value", subject)
	require.Equal(t, StagePublish, stage)

	var published int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NOT NULL`).Scan(&published))
	require.Equal(t, 1, published)
}

func TestDispatcherCachesSchemaIDsAcrossBatch(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	seedSequenceEvent(t, ctx, pool, uuid.NewString(), events.TypeSequenceGenerated)
	seedSequenceEvent(t, ctx, pool, uuid.NewString(), events.TypeSequenceGenerated)

	producer := &stubProducer{}
	registry := &stubRegistry{id: 21}
	dispatcher := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 5)

	require.NoError(t, dispatcher.processBatch(ctx))

	require.Len(t, producer.writes, 1)
	require.Len(t, producer.writes[0].messages, 2)
	require.Len(t, registry.calls, 1, "schema registry should be invoked once due to cache")
}

func TestDispatcherUnknownSchemaMovesEventsToDLQ(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	var eventID int64
	err := pool.QueryRow(ctx,
		`INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
         VALUES ('sequence', $1, 'sequence.unknown', $2, 'sequence_unknown-value', $1, '{}')
         RETURNING event_id`,
		uuid.NewString(), TopicSequenceEvents,
	).Scan(&eventID)
	require.NoError(t, err)

	producer := &stubProducer{}
	registry := &stubRegistry{id: 99}
	dispatcher := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 5)

	require.NoError(t, dispatcher.processBatch(ctx))

	require.Empty(t, producer.writes, "unknown schema should skip kafka writes")
	require.Empty(t, registry.calls, "schema registry should not be invoked when metadata missing")

	var reason string
	require.NoError(t, pool.QueryRow(ctx, `SELECT reason FROM outbox_dlq WHERE event_id = $1`, eventID).Scan(&reason))
	require.Contains(t, reason, "no schema metadata for event_type=sequence.unknown")

	var publishedAt *time.Time
	require.NoError(t, pool.QueryRow(ctx, `SELECT published_at FROM outbox WHERE event_id = $1`, eventID).Scan(&publishedAt))
	require.NotNil(t, publishedAt, "event should still be marked as published")
}

func histogramSampleCount(t *testing.T) uint64 {
	t.Helper()

	metric := &dto.Metric{}
	require.NoError(t, batchDuration.Write(metric))
	hist := metric.GetHistogram()
	require.NotNil(t, hist)
	return hist.GetSampleCount()
}

func seedSequenceEvent(t *testing.T, ctx context.Context, pool *pgxpool.Pool, sequenceID, eventType string) {
	t.Helper()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	var payload interface{}
	switch eventType {
	case events.TypeSequenceValidationFailed:
		payload = events.SequenceValidationFailed{
			SequenceID:  sequenceID,
			UserID:      "user-" + sequenceID,
			Violations:  []string{"empty sequence"},
			SafetyScore: 0.8,
			OccurredAt:  time.Now().UTC(),
		}
	default:
		payload = events.SequenceGenerated{
			SequenceID:    sequenceID,
			UserID:        "user-" + sequenceID,
			Difficulty:    "beginner",
			TargetMinutes: 30,
			Movements: []events.SequenceMovement{
				{MovementID: "the-hundred", Position: 1, DurationSeconds: 240},
			},
			SafetyScore: 1,
			Outcome:     "completed",
			GeneratedAt: time.Now().UTC(),
		}
	}

	require.NoError(t, Enqueue(ctx, tx, Event{
		AggregateType: "sequence",
		AggregateID:   sequenceID,
		EventType:     eventType,
		PartitionKey:  "user-" + sequenceID,
		Payload:       payload,
	}))
	require.NoError(t, tx.Commit(ctx))
}
