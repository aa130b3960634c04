// Package domain defines the value types and collaborator contracts for class sequencing.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Difficulty is the ordered difficulty tier of a movement or a class.
type Difficulty int

const (
	Beginner Difficulty = iota + 1
	Intermediate
	Advanced
)

// ParseDifficulty maps a tier name onto Difficulty.
func ParseDifficulty(value string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "beginner":
		return Beginner, nil
	case "intermediate":
		return Intermediate, nil
	case "advanced":
		return Advanced, nil
	}
	return 0, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidInput, value)
}

func (d Difficulty) String() string {
	switch d {
	case Beginner:
		return "beginner"
	case Intermediate:
		return "intermediate"
	case Advanced:
		return "advanced"
	}
	return "unknown"
}

// Valid reports whether d is one of the known tiers.
func (d Difficulty) Valid() bool {
	return d >= Beginner && d <= Advanced
}

// MarshalText encodes the tier by name.
func (d Difficulty) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid difficulty %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a tier name.
func (d *Difficulty) UnmarshalText(text []byte) error {
	parsed, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DefaultFamily is used for movements without a family tag.
const DefaultFamily = "other"

// Movement is a catalog entry supplied by a MovementRepository.
type Movement struct {
	ID                  string     `json:"id" yaml:"id"`
	Name                string     `json:"name" yaml:"name"`
	Difficulty          Difficulty `json:"difficulty" yaml:"difficulty"`
	SetupPosition       string     `json:"setup_position" yaml:"setup_position"`
	Family              string     `json:"movement_family" yaml:"family"`
	Category            string     `json:"category,omitempty" yaml:"category"`
	MuscleGroups        []string   `json:"muscle_groups" yaml:"muscle_groups"`
	BaseDurationSeconds int        `json:"base_duration_seconds" yaml:"base_duration_seconds"`
}

// Validate checks the fields the sequencing engine depends on.
func (m Movement) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return errors.New("movement id is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("movement %s: name is required", m.ID)
	}
	if !m.Difficulty.Valid() {
		return fmt.Errorf("movement %s: invalid difficulty", m.ID)
	}
	return nil
}

// Normalized returns a copy with trimmed tags and a family fallback applied.
func (m Movement) Normalized() Movement {
	out := m
	out.Family = strings.TrimSpace(m.Family)
	if out.Family == "" {
		out.Family = DefaultFamily
	}
	out.SetupPosition = strings.TrimSpace(m.SetupPosition)
	out.MuscleGroups = make([]string, 0, len(m.MuscleGroups))
	seen := make(map[string]struct{}, len(m.MuscleGroups))
	for _, group := range m.MuscleGroups {
		clean := strings.TrimSpace(group)
		if clean == "" {
			continue
		}
		key := strings.ToLower(clean)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out.MuscleGroups = append(out.MuscleGroups, clean)
	}
	return out
}

// ItemKind tags the variant held by a SequenceItem.
type ItemKind string

const (
	KindMovement   ItemKind = "movement"
	KindTransition ItemKind = "transition"
)

// SelectedMovement is the engine's working copy of a movement placed in a class.
type SelectedMovement struct {
	Movement
	Type            ItemKind `json:"type"`
	DurationSeconds int      `json:"duration_seconds"`
}

// Select stamps the runtime type tag and resolved duration onto a copy of m.
func Select(m Movement, durationSeconds int) SelectedMovement {
	groups := make([]string, len(m.MuscleGroups))
	copy(groups, m.MuscleGroups)
	m.MuscleGroups = groups
	return SelectedMovement{Movement: m, Type: KindMovement, DurationSeconds: durationSeconds}
}

// Transition is the narrated change between two setup positions.
type Transition struct {
	FromPosition    string `json:"from_position" yaml:"from"`
	ToPosition      string `json:"to_position" yaml:"to"`
	Narrative       string `json:"narrative" yaml:"narrative"`
	DurationSeconds int    `json:"duration_seconds" yaml:"duration_seconds"`
}

// SequenceItem holds either a movement or a transition, in playback order.
type SequenceItem struct {
	Kind       ItemKind          `json:"type"`
	Movement   *SelectedMovement `json:"movement,omitempty"`
	Transition *Transition       `json:"transition,omitempty"`
}

// MovementItem wraps a selected movement.
func MovementItem(m SelectedMovement) SequenceItem {
	return SequenceItem{Kind: KindMovement, Movement: &m}
}

// TransitionItem wraps a transition.
func TransitionItem(t Transition) SequenceItem {
	return SequenceItem{Kind: KindTransition, Transition: &t}
}

// DurationSeconds returns the playback time of the item.
func (i SequenceItem) DurationSeconds() int {
	switch {
	case i.Movement != nil:
		return i.Movement.DurationSeconds
	case i.Transition != nil:
		return i.Transition.DurationSeconds
	}
	return 0
}
