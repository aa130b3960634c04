package outbox

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Stages at which a sequence event can fail.
const (
	StagePublish = "publish"
	StageConsume = "consume"
)

// DeadLetter is a sequence event parked in outbox_dlq. Publish failures come from the dispatcher,
// consume failures from the usage consumer. The DLQ manager replays both through the outbox.
type DeadLetter struct {
	EventID       int64
	EventType     string
	Topic         string
	AggregateType string
	AggregateID   string
	SchemaSubject string
	PartitionKey  string
	Payload       json.RawMessage
	Stage         string
	Reason        string
}

func (m Message) deadLetter(reason string) DeadLetter {
	return DeadLetter{
		EventID:       m.EventID,
		EventType:     m.EventType,
		Topic:         m.Topic,
		AggregateType: m.AggregateType,
		AggregateID:   m.AggregateID,
		SchemaSubject: m.SchemaSubject,
		PartitionKey:  m.PartitionKey,
		Payload:       m.Payload,
		Stage:         StagePublish,
		Reason:        reason,
	}
}

// DLQWriter persists dead letters for replay.
type DLQWriter struct {
	pool *pgxpool.Pool
}

func NewDLQWriter(pool *pgxpool.Pool) *DLQWriter {
	return &DLQWriter{pool: pool}
}

// Write parks letter in outbox_dlq, due for its first replay immediately.
func (w *DLQWriter) Write(ctx context.Context, letter DeadLetter) error {
	stage := letter.Stage
	if stage == "" {
		stage = StagePublish
	}
	_, err := w.pool.Exec(ctx,
		`INSERT INTO outbox_dlq (event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, failed_stage, next_retry_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, NOW())`,
		letter.EventID, letter.EventType, letter.Topic, letter.Payload, letter.Reason,
		letter.AggregateType, letter.AggregateID, letter.SchemaSubject, letter.PartitionKey, stage,
	)
	if err != nil {
		return err
	}
	recordDLQAction(letter.EventType, stage, actionParked)
	return nil
}
