package sequencing

import (
	"strings"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
)

const (
	// MaxOverlapPercent rejects candidates sharing this much of their muscles with the previous movement.
	MaxOverlapPercent = 50.0
	// MaxFamilyPercent excludes families already holding this share of the selected movements.
	MaxFamilyPercent = 40.0
)

// OverlapPercent is the share of the candidate's muscle groups already worked by prev.
func OverlapPercent(prev, candidate []string) float64 {
	if len(candidate) == 0 {
		return 0
	}
	prevSet := muscleSet(prev)
	candSet := muscleSet(candidate)
	if len(candSet) == 0 {
		return 0
	}
	shared := 0
	for group := range candSet {
		if _, ok := prevSet[group]; ok {
			shared++
		}
	}
	return 100 * float64(shared) / float64(len(candSet))
}

// FilterCandidates applies the muscle-overlap rule and then the family-balance rule against
// the selected prefix. When a rule empties the pool the returned reason names it; the rules are
// never loosened. Focus areas narrow the survivors only if at least one candidate remains.
func FilterCandidates(selected []domain.SelectedMovement, pool []domain.Movement, focusAreas []string) ([]domain.Movement, string) {
	if len(pool) == 0 {
		return nil, domain.ReasonCandidatesExhausted
	}

	candidates := pool
	if len(selected) > 0 {
		candidates = passOverlap(selected[len(selected)-1], pool)
		if len(candidates) == 0 {
			return nil, domain.ReasonMuscleOverlap
		}
	}

	if len(selected) >= 2 {
		saturated := make(map[string]struct{})
		for family, pct := range FamilyBalanceOf(selected) {
			if pct >= MaxFamilyPercent {
				saturated[family] = struct{}{}
			}
		}
		if len(saturated) > 0 {
			kept := make([]domain.Movement, 0, len(candidates))
			for _, c := range candidates {
				if _, blocked := saturated[familyOf(c)]; !blocked {
					kept = append(kept, c)
				}
			}
			if len(kept) == 0 {
				return nil, domain.ReasonFamilyBalance
			}
			candidates = kept
		}
	}

	if focused := narrowToFocus(candidates, focusAreas); len(focused) > 0 {
		candidates = focused
	}
	return candidates, ""
}

func passOverlap(prev domain.SelectedMovement, pool []domain.Movement) []domain.Movement {
	kept := make([]domain.Movement, 0, len(pool))
	for _, c := range pool {
		if OverlapPercent(prev.MuscleGroups, c.MuscleGroups) < MaxOverlapPercent {
			kept = append(kept, c)
		}
	}
	return kept
}

func narrowToFocus(candidates []domain.Movement, focusAreas []string) []domain.Movement {
	focus := muscleSet(focusAreas)
	if len(focus) == 0 {
		return nil
	}
	var out []domain.Movement
	for _, c := range candidates {
		for _, group := range c.MuscleGroups {
			if _, ok := focus[normalizeTag(group)]; ok {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func muscleSet(groups []string) map[string]struct{} {
	set := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		if key := normalizeTag(g); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
