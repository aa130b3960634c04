package outbox

import "github.com/Lauraredmond/pilates-class-generator-sub000/pkg/events"

// TopicSequenceEvents carries every sequence lifecycle event.
const TopicSequenceEvents = "sequence_events"

// EventSpec maps an event type to its topic and registered JSON schema.
type EventSpec struct {
	Topic         string
	SchemaSubject string
	Schema        string
}

var eventCatalog = map[string]EventSpec{
	events.TypeSequenceGenerated: {
		Topic:         TopicSequenceEvents,
		SchemaSubject: "sequence_generated-value",
		Schema:        sequenceGeneratedSchema,
	},
	events.TypeSequenceValidationFailed: {
		Topic:         TopicSequenceEvents,
		SchemaSubject: "sequence_validation_failed-value",
		Schema:        sequenceValidationFailedSchema,
	},
}

// Spec returns the catalog entry for an event type.
func Spec(eventType string) (EventSpec, bool) {
	spec, ok := eventCatalog[eventType]
	return spec, ok
}

const sequenceGeneratedSchema = `{
  "type": "object",
  "title": "SequenceGenerated",
  "properties": {
    "sequence_id": {"type": "string"},
    "user_id": {"type": "string"},
    "difficulty": {"type": "string", "enum": ["beginner", "intermediate", "advanced"]},
    "target_minutes": {"type": "integer", "minimum": 12, "maximum": 120},
    "movements": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "movement_id": {"type": "string"},
          "position": {"type": "integer"},
          "duration_seconds": {"type": "integer"}
        },
        "required": ["movement_id", "position", "duration_seconds"],
        "additionalProperties": false
      }
    },
    "safety_score": {"type": "number", "minimum": 0, "maximum": 1},
    "outcome": {"type": "string", "enum": ["completed", "stopped_early"]},
    "outcome_reason": {"type": "string"},
    "generated_at": {"type": "string", "format": "date-time"}
  },
  "required": ["sequence_id", "difficulty", "target_minutes", "movements", "safety_score", "outcome", "generated_at"],
  "additionalProperties": false
}`

const sequenceValidationFailedSchema = `{
  "type": "object",
  "title": "SequenceValidationFailed",
  "properties": {
    "sequence_id": {"type": "string"},
    "user_id": {"type": "string"},
    "violations": {"type": "array", "items": {"type": "string"}},
    "safety_score": {"type": "number", "minimum": 0, "maximum": 1},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["sequence_id", "violations", "safety_score", "occurred_at"],
  "additionalProperties": false
}`
