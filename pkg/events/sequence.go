// Package events defines the payloads published on the sequence event stream.
package events

import "time"

// Event types carried in the event_type header.
const (
	TypeSequenceGenerated        = "sequence.generated"
	TypeSequenceValidationFailed = "sequence.validation_failed"
)

// SequenceMovement is one placed movement in a generated class.
type SequenceMovement struct {
	MovementID      string `json:"movement_id"`
	Position        int    `json:"position"`
	DurationSeconds int    `json:"duration_seconds"`
}

// SequenceGenerated is emitted for every class written to the quality log.
type SequenceGenerated struct {
	SequenceID    string             `json:"sequence_id"`
	UserID        string             `json:"user_id,omitempty"`
	Difficulty    string             `json:"difficulty"`
	TargetMinutes int                `json:"target_minutes"`
	Movements     []SequenceMovement `json:"movements"`
	SafetyScore   float64            `json:"safety_score"`
	Outcome       string             `json:"outcome"`
	OutcomeReason string             `json:"outcome_reason,omitempty"`
	GeneratedAt   time.Time          `json:"generated_at"`
}

// SequenceValidationFailed is emitted alongside SequenceGenerated when the validator reports violations.
type SequenceValidationFailed struct {
	SequenceID  string    `json:"sequence_id"`
	UserID      string    `json:"user_id,omitempty"`
	Violations  []string  `json:"violations"`
	SafetyScore float64   `json:"safety_score"`
	OccurredAt  time.Time `json:"occurred_at"`
}
