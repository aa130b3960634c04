// Package sequencing builds Pilates class sequences under hard safety constraints.
package sequencing

import (
	"fmt"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
)

const (
	// MinTargetMinutes is the shortest class that can be requested.
	MinTargetMinutes = 12
	// MaxTargetMinutes is the longest class that can be requested.
	MaxTargetMinutes = 120

	// QuickPracticeMinutes always yields QuickPracticeMovements and no section overhead.
	QuickPracticeMinutes   = 12
	QuickPracticeMovements = 3

	// ShortClassMinutes never yields fewer than ShortClassMinMovements.
	ShortClassMinutes      = 30
	ShortClassMinMovements = 4

	// TransitionMinutes is reserved between consecutive movements.
	TransitionMinutes = 1
)

var teachingMinutes = map[domain.Difficulty]int{
	domain.Beginner:     4,
	domain.Intermediate: 5,
	domain.Advanced:     6,
}

// TeachingMinutes returns the per-movement instruction time for a tier.
func TeachingMinutes(d domain.Difficulty) int {
	return teachingMinutes[d]
}

// Budget is the time plan for a class.
type Budget struct {
	TargetMinutes     int  `json:"target_minutes"`
	OverheadMinutes   int  `json:"overhead_minutes"`
	AvailableMinutes  int  `json:"available_minutes"`
	TeachingMinutes   int  `json:"teaching_minutes"`
	TransitionMinutes int  `json:"transition_minutes"`
	MaxMovements      int  `json:"max_movements"`
	QuickPractice     bool `json:"quick_practice"`
}

// TeachingSeconds is the resolved duration stamped on every movement.
func (b Budget) TeachingSeconds() int {
	return b.TeachingMinutes * 60
}

// ValidateTarget checks the requested class length.
func ValidateTarget(targetMinutes int) error {
	if targetMinutes < MinTargetMinutes || targetMinutes > MaxTargetMinutes {
		return fmt.Errorf("%w: target duration %d outside %d-%d minutes", domain.ErrInvalidInput, targetMinutes, MinTargetMinutes, MaxTargetMinutes)
	}
	return nil
}

// PlanBudget converts a target length and section overhead into a movement count.
func PlanBudget(targetMinutes int, difficulty domain.Difficulty, overheadMinutes int) (Budget, error) {
	if err := ValidateTarget(targetMinutes); err != nil {
		return Budget{}, err
	}
	if !difficulty.Valid() {
		return Budget{}, fmt.Errorf("%w: unknown difficulty", domain.ErrInvalidInput)
	}

	budget := Budget{
		TargetMinutes:     targetMinutes,
		TeachingMinutes:   TeachingMinutes(difficulty),
		TransitionMinutes: TransitionMinutes,
	}

	if targetMinutes == QuickPracticeMinutes {
		budget.QuickPractice = true
		budget.AvailableMinutes = targetMinutes
		budget.MaxMovements = QuickPracticeMovements
		return budget, nil
	}

	budget.OverheadMinutes = overheadMinutes
	budget.AvailableMinutes = targetMinutes - overheadMinutes
	if budget.AvailableMinutes <= 0 {
		return Budget{}, fmt.Errorf("%w: %d minutes of section overhead leaves nothing of a %d minute class", domain.ErrInsufficientDuration, overheadMinutes, targetMinutes)
	}

	budget.MaxMovements = (budget.AvailableMinutes + budget.TransitionMinutes) / (budget.TeachingMinutes + budget.TransitionMinutes)
	if targetMinutes == ShortClassMinutes && budget.MaxMovements < ShortClassMinMovements {
		budget.MaxMovements = ShortClassMinMovements
	}
	if budget.MaxMovements < 1 {
		return Budget{}, fmt.Errorf("%w: %d available minutes cannot fit one %d minute movement", domain.ErrInsufficientDuration, budget.AvailableMinutes, budget.TeachingMinutes)
	}
	return budget, nil
}
