package sequencing

import (
	"fmt"
	"sort"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
)

const (
	// BalanceWarningPercent flags any muscle group or family above this share.
	BalanceWarningPercent = 40.0

	violationPenalty = 0.2
	warningPenalty   = 0.05
)

// Validate runs the final safety checks over a built class.
func Validate(movements []domain.SelectedMovement, muscles domain.MuscleBalance, families domain.FamilyBalance) domain.ValidationResult {
	violations := make([]string, 0)
	warnings := make([]string, 0)

	if len(movements) == 0 {
		violations = append(violations, "sequence contains no movements")
	}
	for i := 1; i < len(movements); i++ {
		prev, cur := movements[i-1], movements[i]
		if pct := OverlapPercent(prev.MuscleGroups, cur.MuscleGroups); pct >= MaxOverlapPercent {
			violations = append(violations, fmt.Sprintf("%s follows %s with %.0f%% muscle overlap (limit %.0f%%)", cur.Name, prev.Name, pct, MaxOverlapPercent))
		}
	}

	for _, group := range sortedKeys(muscles) {
		if pct := muscles[group]; pct > BalanceWarningPercent {
			warnings = append(warnings, fmt.Sprintf("muscle group %s takes %.1f%% of movement time (limit %.0f%%)", group, pct, BalanceWarningPercent))
		}
	}
	for _, family := range sortedKeys(families) {
		if pct := families[family]; pct > BalanceWarningPercent {
			warnings = append(warnings, fmt.Sprintf("movement family %s makes up %.1f%% of movements (limit %.0f%%)", family, pct, BalanceWarningPercent))
		}
	}

	return domain.ValidationResult{
		IsValid:       len(violations) == 0,
		SafetyScore:   SafetyScore(len(violations), len(warnings)),
		Violations:    violations,
		Warnings:      warnings,
		FamilyBalance: families,
	}
}

// SafetyScore is 1 minus the penalties, clamped to [0, 1].
func SafetyScore(violations, warnings int) float64 {
	score := 1.0 - violationPenalty*float64(violations) - warningPenalty*float64(warnings)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func sortedKeys[M ~map[string]float64](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
