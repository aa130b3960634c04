package sequencing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
)

func mv(id, name, family, position string, difficulty domain.Difficulty, muscles ...string) domain.Movement {
	return domain.Movement{
		ID:            id,
		Name:          name,
		Difficulty:    difficulty,
		SetupPosition: position,
		Family:        family,
		MuscleGroups:  muscles,
	}
}

func testCatalog() []domain.Movement {
	return []domain.Movement{
		mv("roll-up", "Roll Up", "rolling", "supine", domain.Beginner, "Spine Flexors", "Abdominals"),
		mv("hundred", "The Hundred", "core_activation", "supine", domain.Beginner, "Core", "Hip Flexors"),
		mv("single-leg-circle", "Single Leg Circle", "hip_mobility", "supine", domain.Beginner, "Hip Flexors", "Adductors"),
		mv("swan", "Swan", "extension", "prone", domain.Beginner, "Back Extensors", "Glutes"),
		mv("side-kick", "Side Kick", "side_lying", "side", domain.Beginner, "Abductors", "Obliques"),
		mv("saw", "Saw", "rotation", "seated", domain.Beginner, "Obliques", "Hamstrings"),
		mv("spine-stretch", "Spine Stretch Forward", "stretching", "seated", domain.Beginner, "Hamstrings", "Spine Flexors"),
		mv("shoulder-bridge", "Shoulder Bridge", "bridging", "supine", domain.Intermediate, "Glutes", "Hamstrings"),
		mv("leg-pull-front", "Leg Pull Front", "plank", "prone", domain.Intermediate, "Shoulders", "Core"),
		mv("mermaid", "Mermaid", "side_bending", "seated", domain.Beginner, "Lats", "Obliques"),
		mv("seal", "Seal", "rolling", "seated", domain.Intermediate, "Abdominals", "Balance"),
		mv("swimming", "Swimming", "extension", "prone", domain.Intermediate, "Back Extensors", "Shoulders"),
		mv("teaser", "Teaser", "balance", "seated", domain.Advanced, "Abdominals", "Hip Flexors"),
		mv("chest-lift", "Chest Lift", "core_activation", "supine", domain.Beginner, "Abdominals", "Neck Flexors"),
	}
}

func movementIDs(movements []domain.SelectedMovement) []string {
	ids := make([]string, len(movements))
	for i, m := range movements {
		ids[i] = m.ID
	}
	return ids
}

type stubMovements struct {
	movements []domain.Movement
	err       error
}

func (s *stubMovements) ListMovements(_ context.Context, difficulty domain.Difficulty, excluded []string) ([]domain.Movement, error) {
	if s.err != nil {
		return nil, s.err
	}
	skip := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}
	var out []domain.Movement
	for _, m := range s.movements {
		if _, ok := skip[m.ID]; ok || m.Difficulty > difficulty {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

type stubHistory struct {
	records []domain.UsageRecord
	err     error
}

func (s *stubHistory) ListUsage(context.Context, string) ([]domain.UsageRecord, error) {
	return s.records, s.err
}

type stubTransitions struct {
	pairs map[[2]string]domain.Transition
	err   error
}

func (s *stubTransitions) GetTransition(_ context.Context, from, to string) (*domain.Transition, error) {
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.pairs[[2]string{from, to}]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

type stubSections struct {
	minutes int
	err     error
}

func (s stubSections) SectionOverheadMinutes(context.Context, int) (int, error) {
	return s.minutes, s.err
}

// recordingProfiles counts lookups so tests can tell whether the beginner boost ran.
type recordingProfiles struct {
	mu                sync.Mutex
	beginner          bool
	foundational      string
	beginnerCalls     int
	foundationalCalls int
}

func (r *recordingProfiles) IsBeginner(context.Context, string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beginnerCalls++
	return r.beginner, nil
}

func (r *recordingProfiles) FoundationalMovementID(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.foundationalCalls++
	return r.foundational, nil
}

func sessionHistory(userID string, sessions int) []domain.UsageRecord {
	records := make([]domain.UsageRecord, 0, sessions)
	for i := 0; i < sessions; i++ {
		records = append(records, domain.UsageRecord{
			UserID:     userID,
			MovementID: "roll-up",
			SessionID:  fmt.Sprintf("session-%02d", i),
			SessionAt:  fixedNow.Add(-time.Duration(i+1) * 24 * time.Hour),
		})
	}
	return records
}

type recordingQuality struct {
	mu      sync.Mutex
	records []domain.QualityRecord
	err     error
}

func (r *recordingQuality) LogQuality(_ context.Context, record domain.QualityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, record)
	return nil
}

var errBoom = errors.New("boom")
