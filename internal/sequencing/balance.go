package sequencing

import (
	"strings"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
)

// MuscleBalanceOf attributes each movement's duration to every one of its muscle groups.
func MuscleBalanceOf(movements []domain.SelectedMovement) domain.MuscleBalance {
	balance := make(domain.MuscleBalance)
	total := 0
	for _, m := range movements {
		total += m.DurationSeconds
	}
	if total == 0 {
		return balance
	}
	seconds := make(map[string]int)
	for _, m := range movements {
		for _, group := range m.MuscleGroups {
			seconds[group] += m.DurationSeconds
		}
	}
	for group, s := range seconds {
		balance[group] = 100 * float64(s) / float64(total)
	}
	return balance
}

// FamilyBalanceOf returns each movement family's share of the movement count. It backs both
// the live family rule and the final report.
func FamilyBalanceOf(movements []domain.SelectedMovement) domain.FamilyBalance {
	balance := make(domain.FamilyBalance)
	if len(movements) == 0 {
		return balance
	}
	counts := make(map[string]int)
	for _, m := range movements {
		counts[familyOf(m.Movement)]++
	}
	for family, count := range counts {
		balance[family] = 100 * float64(count) / float64(len(movements))
	}
	return balance
}

// MovementsOf extracts the movements of a stitched sequence.
func MovementsOf(items []domain.SequenceItem) []domain.SelectedMovement {
	out := make([]domain.SelectedMovement, 0, len(items))
	for _, item := range items {
		if item.Movement != nil {
			out = append(out, *item.Movement)
		}
	}
	return out
}

func familyOf(m domain.Movement) string {
	family := strings.TrimSpace(m.Family)
	if family == "" {
		return domain.DefaultFamily
	}
	return family
}
