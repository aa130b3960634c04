package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/sequencing"
)

func TestSequenceGeneratedNumbersMovementsOnly(t *testing.T) {
	generatedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	record := domain.QualityRecord{
		SequenceID:    "seq-1",
		UserID:        "user-1",
		Difficulty:    domain.Intermediate,
		TargetMinutes: 45,
		Items: []domain.SequenceItem{
			domain.MovementItem(domain.Select(domain.Movement{ID: "the-hundred"}, 300)),
			domain.TransitionItem(domain.Transition{FromPosition: "supine", ToPosition: "seated", DurationSeconds: 60}),
			domain.MovementItem(domain.Select(domain.Movement{ID: "spine-stretch"}, 300)),
		},
		Validation:  domain.ValidationResult{IsValid: true, SafetyScore: 0.95},
		Outcome:     domain.StoppedEarly(domain.ReasonMuscleOverlap),
		GeneratedAt: generatedAt,
	}

	event := sequenceGenerated(record)
	require.Equal(t, "seq-1", event.SequenceID)
	require.Equal(t, "intermediate", event.Difficulty)
	require.Equal(t, "stopped_early", event.Outcome)
	require.Equal(t, domain.ReasonMuscleOverlap, event.OutcomeReason)
	require.Equal(t, time.UTC, event.GeneratedAt.Location())
	require.Len(t, event.Movements, 2)
	require.Equal(t, "the-hundred", event.Movements[0].MovementID)
	require.Equal(t, 1, event.Movements[0].Position)
	require.Equal(t, "spine-stretch", event.Movements[1].MovementID)
	require.Equal(t, 2, event.Movements[1].Position)
	require.Equal(t, 300, event.Movements[1].DurationSeconds)
}

func TestDefaultSectionBandsMatchStaticPlanner(t *testing.T) {
	planner := sequencing.StaticSectionPlanner{}
	bands := DefaultSectionBands()
	require.Len(t, bands, 4)

	for _, band := range bands {
		want, err := planner.SectionOverheadMinutes(context.Background(), band.MaxTargetMinutes)
		require.NoError(t, err)
		got := band.Preparation + band.Warmup + band.Cooldown + band.Meditation + band.Homecare
		require.Equal(t, want, got, "band %d", band.MaxTargetMinutes)
	}
	require.Zero(t, bands[0].Preparation+bands[0].Warmup)
}

func TestNonNilHelpers(t *testing.T) {
	require.Equal(t, []string{}, nonNilStrings(nil))
	require.Equal(t, domain.MuscleBalance{}, nonNilBalance(domain.MuscleBalance(nil)))
	require.Equal(t, domain.FamilyBalance{"rolling": 50}, nonNilBalance(domain.FamilyBalance{"rolling": 50}))
}
