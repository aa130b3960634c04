package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Event is a domain event staged for delivery.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	PartitionKey  string
	Payload       interface{}
}

// Enqueue stages an event inside the caller's transaction. A replay of the same
// (aggregate, event type) pair is ignored.
func Enqueue(ctx context.Context, tx pgx.Tx, event Event) error {
	spec, ok := Spec(event.EventType)
	if !ok {
		return fmt.Errorf("unknown event type: %s", event.EventType)
	}
	body, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	partitionKey := event.PartitionKey
	if partitionKey == "" {
		partitionKey = event.AggregateID
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (dedupe_key) DO NOTHING`

	_, err = tx.Exec(ctx, stmt,
		event.AggregateType,
		event.AggregateID,
		event.EventType,
		spec.Topic,
		spec.SchemaSubject,
		partitionKey,
		body,
		fmt.Sprintf("%s:%s", event.AggregateID, event.EventType),
	)
	return err
}
