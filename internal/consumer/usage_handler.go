package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/outbox"
	"github.com/Lauraredmond/pilates-class-generator-sub000/pkg/events"
)

// UsageHandler appends one usage record per placed movement of every generated sequence.
type UsageHandler struct {
	writer domain.UsageWriter
}

// NewUsageHandler constructs a handler writing through w.
func NewUsageHandler(w domain.UsageWriter) *UsageHandler {
	return &UsageHandler{writer: w}
}

// Handle implements Handler. Events other than sequence.generated and anonymous sequences are
// acknowledged without writes. A payload under the wrong schema subject is rejected as invalid.
func (h *UsageHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.TypeSequenceGenerated {
		recordSkipped("event_type")
		return nil
	}

	if spec, _ := outbox.Spec(msg.EventType); msg.SchemaSubject != spec.SchemaSubject {
		return fmt.Errorf("%w: %s registered under %q, want %q", domain.ErrInvalidInput, msg.EventType, msg.SchemaSubject, spec.SchemaSubject)
	}

	var evt events.SequenceGenerated
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrInvalidInput, msg.EventType, err)
	}
	if evt.UserID == "" {
		recordSkipped("anonymous")
		return nil
	}
	if evt.SequenceID == "" {
		return fmt.Errorf("%w: %s without sequence_id", domain.ErrInvalidInput, msg.EventType)
	}

	sessionAt := evt.GeneratedAt
	if sessionAt.IsZero() {
		sessionAt = msg.Timestamp
	}
	if sessionAt.IsZero() {
		sessionAt = time.Now().UTC()
	}

	records := UsageRecords(evt, sessionAt)
	if len(records) == 0 {
		recordSkipped("empty")
		return nil
	}
	return h.writer.AppendUsage(ctx, records)
}

// UsageRecords converts a generated sequence into ledger entries, one per distinct movement.
func UsageRecords(evt events.SequenceGenerated, sessionAt time.Time) []domain.UsageRecord {
	records := make([]domain.UsageRecord, 0, len(evt.Movements))
	seen := make(map[string]struct{}, len(evt.Movements))
	for _, m := range evt.Movements {
		if m.MovementID == "" {
			continue
		}
		if _, dup := seen[m.MovementID]; dup {
			continue
		}
		seen[m.MovementID] = struct{}{}
		records = append(records, domain.UsageRecord{
			UserID:     evt.UserID,
			MovementID: m.MovementID,
			SessionID:  evt.SequenceID,
			SessionAt:  sessionAt.UTC(),
		})
	}
	return records
}
