package domain

import "time"

// UsageRecord is one historical appearance of a movement in a generated class.
type UsageRecord struct {
	UserID     string    `json:"user_id"`
	MovementID string    `json:"movement_id"`
	SessionID  string    `json:"session_id"`
	SessionAt  time.Time `json:"session_at"`
}

// SessionKey identifies the class the record belongs to.
func (r UsageRecord) SessionKey() string {
	if r.SessionID != "" {
		return r.SessionID
	}
	return r.SessionAt.UTC().Format(time.RFC3339Nano)
}

// MuscleBalance maps a muscle group to its share of movement time, in percent.
type MuscleBalance map[string]float64

// FamilyBalance maps a movement family to its share of the movement count, in percent.
type FamilyBalance map[string]float64

// ValidationResult is the post-hoc safety report for a generated class.
type ValidationResult struct {
	IsValid       bool          `json:"is_valid"`
	SafetyScore   float64       `json:"safety_score"`
	Violations    []string      `json:"violations"`
	Warnings      []string      `json:"warnings"`
	FamilyBalance FamilyBalance `json:"family_balance"`
}

// OutcomeStatus distinguishes a full build from a legitimate early stop.
type OutcomeStatus string

const (
	OutcomeCompleted    OutcomeStatus = "completed"
	OutcomeStoppedEarly OutcomeStatus = "stopped_early"
)

// Reasons attached to an early stop.
const (
	ReasonMuscleOverlap       = "muscle_overlap_exhausted"
	ReasonFamilyBalance       = "family_balance_exhausted"
	ReasonCandidatesExhausted = "candidates_exhausted"
	ReasonNoCooldown          = "no_cooldown_candidate"
)

// BuildOutcome reports how the sequence builder terminated.
type BuildOutcome struct {
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// Completed is the outcome of a build that filled every slot.
func Completed() BuildOutcome {
	return BuildOutcome{Status: OutcomeCompleted}
}

// StoppedEarly is the outcome of a build cut short by the hard constraints.
func StoppedEarly(reason string) BuildOutcome {
	return BuildOutcome{Status: OutcomeStoppedEarly, Reason: reason}
}

// QualityRecord is the telemetry written to the quality log for every generated class.
type QualityRecord struct {
	SequenceID    string
	UserID        string
	Difficulty    Difficulty
	TargetMinutes int
	Items         []SequenceItem
	MuscleBalance MuscleBalance
	FamilyBalance FamilyBalance
	Validation    ValidationResult
	Outcome       BuildOutcome
	GeneratedAt   time.Time
}

// MovementIDs lists the movements of the record in playback order.
func (r QualityRecord) MovementIDs() []string {
	ids := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		if item.Movement != nil {
			ids = append(ids, item.Movement.ID)
		}
	}
	return ids
}

// SequenceSummary is a logged class as listed back to callers.
type SequenceSummary struct {
	SequenceID    string     `json:"sequence_id"`
	UserID        string     `json:"user_id"`
	Difficulty    Difficulty `json:"difficulty"`
	TargetMinutes int        `json:"target_minutes"`
	MovementIDs   []string   `json:"movement_ids"`
	SafetyScore   float64    `json:"safety_score"`
	IsValid       bool       `json:"is_valid"`
	Outcome       string     `json:"outcome"`
	GeneratedAt   time.Time  `json:"generated_at"`
}

// Cursor models the pagination token for sequence listings.
type Cursor struct {
	GeneratedAt time.Time
	ID          string
}
