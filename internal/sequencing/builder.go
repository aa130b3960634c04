package sequencing

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
)

// BuildState is a step of the sequence builder state machine.
type BuildState int

const (
	StateEmpty BuildState = iota
	StateWarmupPlaced
	StateRequiredFilled
	StateFilling
	StateCooldownPlaced
	StateDone
)

func (s BuildState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateWarmupPlaced:
		return "warmup_placed"
	case StateRequiredFilled:
		return "required_filled"
	case StateFilling:
		return "filling"
	case StateCooldownPlaced:
		return "cooldown_placed"
	case StateDone:
		return "done"
	}
	return "unknown"
}

var warmupKeywords = []string{"warm", "breath", "hundred"}

// BuildInput carries everything the builder needs; it performs no I/O.
type BuildInput struct {
	Candidates        []domain.Movement
	Budget            Budget
	RequiredIDs       []string
	FocusAreas        []string
	Weights           map[string]float64
	DurationOverrides map[string]int
}

// BuildResult is the ordered movement list produced by Build.
type BuildResult struct {
	Movements       []domain.SelectedMovement
	Outcome         domain.BuildOutcome
	SkippedRequired []string
}

type builder struct {
	in       BuildInput
	rng      *rand.Rand
	state    BuildState
	selected []domain.SelectedMovement
	used     map[string]struct{}
	outcome  domain.BuildOutcome
	skipped  []string
}

// Build runs the state machine from EMPTY to DONE. A result shorter than the budget is a
// success; the outcome says why the builder stopped.
func Build(in BuildInput, rng *rand.Rand) BuildResult {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	b := &builder{
		in:      in,
		rng:     rng,
		used:    make(map[string]struct{}),
		outcome: domain.Completed(),
	}
	for b.state != StateDone {
		b.step()
	}
	return BuildResult{Movements: b.selected, Outcome: b.outcome, SkippedRequired: b.skipped}
}

func (b *builder) step() {
	switch b.state {
	case StateEmpty:
		if !b.placeWarmup() {
			b.stop(domain.ReasonCandidatesExhausted)
			b.state = StateDone
			return
		}
		b.state = StateWarmupPlaced
	case StateWarmupPlaced:
		b.placeRequired()
		b.state = StateRequiredFilled
	case StateRequiredFilled:
		b.state = StateFilling
	case StateFilling:
		if b.hasFillSlot() && b.fillOne() {
			return
		}
		b.placeCooldown()
		b.state = StateCooldownPlaced
	case StateCooldownPlaced:
		b.state = StateDone
	}
}

// hasFillSlot reports whether a slot other than the reserved cooldown slot remains.
func (b *builder) hasFillSlot() bool {
	return len(b.selected) < b.in.Budget.MaxMovements-1
}

func (b *builder) placeWarmup() bool {
	if len(b.in.Candidates) == 0 || b.in.Budget.MaxMovements < 1 {
		return false
	}
	pick := b.in.Candidates[0]
	for _, c := range b.in.Candidates {
		if isWarmup(c) {
			pick = c
			break
		}
	}
	b.add(pick)
	return true
}

func (b *builder) placeRequired() {
	byID := make(map[string]domain.Movement, len(b.in.Candidates))
	for _, c := range b.in.Candidates {
		byID[c.ID] = c
	}
	for _, id := range b.in.RequiredIDs {
		if _, done := b.used[id]; done {
			continue
		}
		movement, ok := byID[id]
		if !ok {
			b.skipped = append(b.skipped, id)
			continue
		}
		if !b.hasFillSlot() {
			b.skipped = append(b.skipped, id)
			continue
		}
		b.add(movement)
	}
}

// fillOne places one weighted draw from the filtered pool. It returns false when the hard
// rules leave nothing to choose from.
func (b *builder) fillOne() bool {
	candidates, reason := FilterCandidates(b.selected, b.unused(), b.in.FocusAreas)
	if len(candidates) == 0 {
		b.stop(reason)
		return false
	}
	b.add(weightedChoice(b.rng, candidates, b.in.Weights))
	return true
}

// placeCooldown takes the first unused movement clearing the overlap rule. The family rule
// does not apply to this slot.
func (b *builder) placeCooldown() {
	if len(b.selected) == 0 || len(b.selected) >= b.in.Budget.MaxMovements {
		return
	}
	candidates := passOverlap(b.selected[len(b.selected)-1], b.unused())
	if len(candidates) == 0 {
		b.stop(domain.ReasonNoCooldown)
		return
	}
	b.add(candidates[0])
}

func (b *builder) unused() []domain.Movement {
	out := make([]domain.Movement, 0, len(b.in.Candidates))
	for _, c := range b.in.Candidates {
		if _, ok := b.used[c.ID]; !ok {
			out = append(out, c)
		}
	}
	return out
}

func (b *builder) add(m domain.Movement) {
	b.used[m.ID] = struct{}{}
	b.selected = append(b.selected, domain.Select(m, b.durationFor(m.ID)))
}

func (b *builder) durationFor(id string) int {
	if seconds, ok := b.in.DurationOverrides[id]; ok && seconds > 0 {
		return seconds
	}
	return b.in.Budget.TeachingSeconds()
}

// stop records the first reason the builder ran short.
func (b *builder) stop(reason string) {
	if b.outcome.Status == domain.OutcomeCompleted {
		b.outcome = domain.StoppedEarly(reason)
	}
}

func isWarmup(m domain.Movement) bool {
	text := strings.ToLower(m.Name + " " + m.Category)
	for _, kw := range warmupKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// weightedChoice draws one candidate with probability proportional to its weight. Candidates
// missing from weights count as 1.
func weightedChoice(rng *rand.Rand, candidates []domain.Movement, weights map[string]float64) domain.Movement {
	values := make([]float64, len(candidates))
	total := 0.0
	for i, c := range candidates {
		w, ok := weights[c.ID]
		switch {
		case !ok:
			w = 1
		case w < 0 || math.IsNaN(w):
			w = 0
		}
		values[i] = w
		total += w
	}
	if total <= 0 || math.IsInf(total, 0) {
		return candidates[rng.IntN(len(candidates))]
	}
	target := rng.Float64() * total
	for i, w := range values {
		target -= w
		if target < 0 {
			return candidates[i]
		}
	}
	return candidates[len(candidates)-1]
}
