package domain

import (
	"context"
	"errors"
)

var (
	// ErrInvalidInput indicates a request outside the supported range.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientDuration indicates section overhead leaves no time for movements.
	ErrInsufficientDuration = errors.New("insufficient duration")
	// ErrNoMovementsAvailable indicates the catalog returned nothing to build from.
	ErrNoMovementsAvailable = errors.New("no movements available")
)

// MovementRepository supplies candidate movements at or below a difficulty tier.
type MovementRepository interface {
	ListMovements(ctx context.Context, difficulty Difficulty, excludedIDs []string) ([]Movement, error)
}

// UsageHistoryRepository supplies the usage ledger of a user.
type UsageHistoryRepository interface {
	ListUsage(ctx context.Context, userID string) ([]UsageRecord, error)
}

// UsageWriter appends usage records. Records are never updated.
type UsageWriter interface {
	AppendUsage(ctx context.Context, records []UsageRecord) error
}

// TransitionRepository looks up the narrated transition between two setup positions.
// It returns nil and no error when the pair is unknown.
type TransitionRepository interface {
	GetTransition(ctx context.Context, fromPosition, toPosition string) (*Transition, error)
}

// SectionPlanner estimates the minutes consumed by non-movement class sections.
type SectionPlanner interface {
	SectionOverheadMinutes(ctx context.Context, targetMinutes int) (int, error)
}

// ProfileRepository exposes the user facts the usage weighter needs.
type ProfileRepository interface {
	IsBeginner(ctx context.Context, userID string) (bool, error)
	FoundationalMovementID(ctx context.Context) (string, error)
}

// QualityLogger records rule-compliance telemetry for a generated class.
type QualityLogger interface {
	LogQuality(ctx context.Context, record QualityRecord) error
}

// SequenceLog lists previously logged classes for a user.
type SequenceLog interface {
	ListByUser(ctx context.Context, userID string, cursor *Cursor, limit int) ([]SequenceSummary, *Cursor, error)
}
