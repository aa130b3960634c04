package sequencing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
)

func TestValidateBalancedSequence(t *testing.T) {
	movements := selected(
		mv("a", "A", "f1", "supine", domain.Beginner, "Core"),
		mv("b", "B", "f2", "supine", domain.Beginner, "Glutes"),
		mv("c", "C", "f3", "supine", domain.Beginner, "Obliques"),
	)
	result := Validate(movements, MuscleBalanceOf(movements), FamilyBalanceOf(movements))
	require.True(t, result.IsValid)
	require.Equal(t, 1.0, result.SafetyScore)
	require.Empty(t, result.Violations)
	require.Empty(t, result.Warnings)
}

func TestValidateWarnsOnImbalance(t *testing.T) {
	movements := selected(
		mv("a", "A", "rolling", "supine", domain.Beginner, "Core"),
		mv("b", "B", "rolling", "supine", domain.Beginner, "Glutes"),
	)
	result := Validate(movements, MuscleBalanceOf(movements), FamilyBalanceOf(movements))
	require.True(t, result.IsValid)
	// Core 50%, Glutes 50%, rolling 100%
	require.Len(t, result.Warnings, 3)
	require.Contains(t, result.Warnings[0], "Core")
	require.Contains(t, result.Warnings[1], "Glutes")
	require.Contains(t, result.Warnings[2], "rolling")
	require.InDelta(t, 0.85, result.SafetyScore, 1e-9)
}

func TestValidateFlagsOverlapAndEmpty(t *testing.T) {
	movements := selected(
		mv("a", "A", "f1", "supine", domain.Beginner, "Core", "Glutes"),
		mv("b", "B", "f2", "supine", domain.Beginner, "Core"),
	)
	result := Validate(movements, nil, nil)
	require.False(t, result.IsValid)
	require.Len(t, result.Violations, 1)

	empty := Validate(nil, MuscleBalanceOf(nil), FamilyBalanceOf(nil))
	require.False(t, empty.IsValid)
	require.InDelta(t, 0.8, empty.SafetyScore, 1e-9)
}

func TestSafetyScoreClamps(t *testing.T) {
	require.Equal(t, 0.0, SafetyScore(10, 0))
	require.Equal(t, 1.0, SafetyScore(0, 0))
	require.InDelta(t, 0.55, SafetyScore(2, 1), 1e-9)
}
