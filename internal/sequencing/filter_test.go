package sequencing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
)

func selected(movements ...domain.Movement) []domain.SelectedMovement {
	out := make([]domain.SelectedMovement, len(movements))
	for i, m := range movements {
		out[i] = domain.Select(m, 240)
	}
	return out
}

func TestOverlapPercent(t *testing.T) {
	require.Equal(t, 100.0, OverlapPercent([]string{"Core", "Hip Flexors"}, []string{"Core"}))
	require.Equal(t, 50.0, OverlapPercent([]string{"core"}, []string{"Core", "Glutes"}))
	require.Equal(t, 0.0, OverlapPercent([]string{"Core"}, []string{"Glutes"}))
	require.Equal(t, 0.0, OverlapPercent([]string{"Core"}, nil))
}

func TestFilterCandidatesRejectsFullOverlap(t *testing.T) {
	prev := mv("hundred", "The Hundred", "core_activation", "supine", domain.Beginner, "Core", "Hip Flexors")
	core := mv("plank", "Plank", "plank", "prone", domain.Beginner, "Core")

	out, reason := FilterCandidates(selected(prev), []domain.Movement{core}, nil)
	require.Empty(t, out)
	require.Equal(t, domain.ReasonMuscleOverlap, reason)
}

func TestFilterCandidatesSkipsFamilyRuleForSingleMovement(t *testing.T) {
	prev := mv("roll-up", "Roll Up", "rolling", "supine", domain.Beginner, "Spine Flexors")
	seal := mv("seal", "Seal", "rolling", "seated", domain.Beginner, "Balance")

	out, reason := FilterCandidates(selected(prev), []domain.Movement{seal}, nil)
	require.Empty(t, reason)
	require.Len(t, out, 1)
}

func TestFilterCandidatesExcludesSaturatedFamilies(t *testing.T) {
	prefix := selected(
		mv("roll-up", "Roll Up", "rolling", "supine", domain.Beginner, "Spine Flexors"),
		mv("seal", "Seal", "rolling", "seated", domain.Beginner, "Balance"),
	)
	rollOver := mv("roll-over", "Roll Over", "rolling", "supine", domain.Beginner, "Hamstrings")
	swan := mv("swan", "Swan", "extension", "prone", domain.Beginner, "Back Extensors")

	out, reason := FilterCandidates(prefix, []domain.Movement{rollOver, swan}, nil)
	require.Empty(t, reason)
	require.Equal(t, []domain.Movement{swan}, out)

	out, reason = FilterCandidates(prefix, []domain.Movement{rollOver}, nil)
	require.Empty(t, out)
	require.Equal(t, domain.ReasonFamilyBalance, reason)
}

func TestFilterCandidatesFocusNarrowsOnlyWhenMatched(t *testing.T) {
	pool := []domain.Movement{
		mv("swan", "Swan", "extension", "prone", domain.Beginner, "Back Extensors", "Glutes"),
		mv("saw", "Saw", "rotation", "seated", domain.Beginner, "Obliques", "Hamstrings"),
	}

	out, _ := FilterCandidates(nil, pool, []string{"glutes"})
	require.Len(t, out, 1)
	require.Equal(t, "swan", out[0].ID)

	out, _ = FilterCandidates(nil, pool, []string{"Neck Flexors"})
	require.Len(t, out, 2)
}

func TestFilterCandidatesEmptyPool(t *testing.T) {
	out, reason := FilterCandidates(nil, nil, nil)
	require.Empty(t, out)
	require.Equal(t, domain.ReasonCandidatesExhausted, reason)
}
