package sequencing

import (
	"context"
	"fmt"
	"log"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
)

// FallbackTransitionSeconds is used when no transition is stored for a position pair.
const FallbackTransitionSeconds = 60

// DefaultTransition synthesises the narration for an unknown position pair.
func DefaultTransition(from, to string) domain.Transition {
	return domain.Transition{
		FromPosition:    from,
		ToPosition:      to,
		Narrative:       fmt.Sprintf("Transition from %s to %s position with control.", from, to),
		DurationSeconds: FallbackTransitionSeconds,
	}
}

// StitchTransitions interleaves a transition between every consecutive pair of movements.
// Lookup failures are logged and replaced by the default transition.
func StitchTransitions(ctx context.Context, movements []domain.SelectedMovement, transitions domain.TransitionRepository, logger *log.Logger) []domain.SequenceItem {
	items := make([]domain.SequenceItem, 0, 2*len(movements))
	for i, m := range movements {
		if i > 0 {
			items = append(items, domain.TransitionItem(lookupTransition(ctx, movements[i-1], m, transitions, logger)))
		}
		items = append(items, domain.MovementItem(m))
	}
	return items
}

func lookupTransition(ctx context.Context, from, to domain.SelectedMovement, transitions domain.TransitionRepository, logger *log.Logger) domain.Transition {
	fallback := DefaultTransition(from.SetupPosition, to.SetupPosition)
	if transitions == nil {
		return fallback
	}
	stored, err := transitions.GetTransition(ctx, from.SetupPosition, to.SetupPosition)
	if err != nil {
		if logger != nil {
			logger.Printf("transition lookup %s -> %s failed, using default: %v", from.SetupPosition, to.SetupPosition, err)
		}
		return fallback
	}
	if stored == nil {
		return fallback
	}
	return domain.Transition{
		FromPosition:    from.SetupPosition,
		ToPosition:      to.SetupPosition,
		Narrative:       stored.Narrative,
		DurationSeconds: stored.DurationSeconds,
	}
}
