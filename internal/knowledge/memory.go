package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/persistence"
)

type positionPair struct {
	from string
	to   string
}

func pairOf(from, to string) positionPair {
	return positionPair{from: strings.ToLower(strings.TrimSpace(from)), to: strings.ToLower(strings.TrimSpace(to))}
}

// InMemoryRepository serves the catalog and keeps usage and quality logs in memory for local
// development and tests.
type InMemoryRepository struct {
	mu           sync.RWMutex
	movements    map[string]domain.Movement
	order        []string
	transitions  map[positionPair]domain.Transition
	usage        map[string][]domain.UsageRecord
	usageKeys    map[string]struct{}
	beginners    map[string]bool
	foundational string
	quality      []domain.QualityRecord
}

// NewInMemoryRepository constructs a repository populated from catalog.
func NewInMemoryRepository(catalog Catalog) *InMemoryRepository {
	repo := &InMemoryRepository{
		movements:    make(map[string]domain.Movement),
		transitions:  make(map[positionPair]domain.Transition),
		usage:        make(map[string][]domain.UsageRecord),
		usageKeys:    make(map[string]struct{}),
		beginners:    make(map[string]bool),
		foundational: catalog.FoundationalMovement,
	}
	for _, m := range catalog.Movements {
		repo.putMovement(m)
	}
	for _, t := range catalog.Transitions {
		repo.transitions[pairOf(t.FromPosition, t.ToPosition)] = t
	}
	return repo
}

func (r *InMemoryRepository) putMovement(m domain.Movement) {
	if _, ok := r.movements[m.ID]; !ok {
		r.order = append(r.order, m.ID)
	}
	r.movements[m.ID] = m.Normalized()
}

// UpsertMovement adds or replaces a catalog entry.
func (r *InMemoryRepository) UpsertMovement(_ context.Context, m domain.Movement) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putMovement(m)
	return nil
}

// ListMovements implements domain.MovementRepository. Catalog order is preserved.
func (r *InMemoryRepository) ListMovements(_ context.Context, difficulty domain.Difficulty, excludedIDs []string) ([]domain.Movement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	excluded := make(map[string]struct{}, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = struct{}{}
	}
	out := make([]domain.Movement, 0, len(r.order))
	for _, id := range r.order {
		m := r.movements[id]
		if m.Difficulty > difficulty {
			continue
		}
		if _, skip := excluded[id]; skip {
			continue
		}
		out = append(out, cloneMovement(m))
	}
	return out, nil
}

// Movement returns a single catalog entry.
func (r *InMemoryRepository) Movement(_ context.Context, id string) (*domain.Movement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.movements[id]
	if !ok {
		return nil, nil
	}
	clone := cloneMovement(m)
	return &clone, nil
}

// GetTransition implements domain.TransitionRepository.
func (r *InMemoryRepository) GetTransition(_ context.Context, from, to string) (*domain.Transition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transitions[pairOf(from, to)]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// ListUsage implements domain.UsageHistoryRepository.
func (r *InMemoryRepository) ListUsage(_ context.Context, userID string) ([]domain.UsageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := r.usage[userID]
	out := make([]domain.UsageRecord, len(records))
	copy(out, records)
	return out, nil
}

// AppendUsage implements domain.UsageWriter. Replayed (session, movement) pairs are ignored.
func (r *InMemoryRepository) AppendUsage(_ context.Context, records []domain.UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendUsageLocked(records)
	return nil
}

func (r *InMemoryRepository) appendUsageLocked(records []domain.UsageRecord) {
	for _, record := range records {
		key := record.UserID + "|" + record.SessionKey() + "|" + record.MovementID
		if _, dup := r.usageKeys[key]; dup {
			continue
		}
		r.usageKeys[key] = struct{}{}
		r.usage[record.UserID] = append(r.usage[record.UserID], record)
	}
}

// SetBeginner flags a user profile as beginner.
func (r *InMemoryRepository) SetBeginner(userID string, beginner bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beginners[userID] = beginner
}

// IsBeginner implements domain.ProfileRepository.
func (r *InMemoryRepository) IsBeginner(_ context.Context, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.beginners[userID], nil
}

// FoundationalMovementID implements domain.ProfileRepository.
func (r *InMemoryRepository) FoundationalMovementID(context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.foundational, nil
}

// LogQuality implements domain.QualityLogger. Without an event pipeline the generated
// movements are appended to the user's usage ledger directly.
func (r *InMemoryRepository) LogQuality(_ context.Context, record domain.QualityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quality = append(r.quality, record)
	if record.UserID == "" {
		return nil
	}
	usage := make([]domain.UsageRecord, 0, len(record.Items))
	for _, id := range record.MovementIDs() {
		usage = append(usage, domain.UsageRecord{
			UserID:     record.UserID,
			MovementID: id,
			SessionID:  record.SequenceID,
			SessionAt:  record.GeneratedAt,
		})
	}
	r.appendUsageLocked(usage)
	return nil
}

// ListByUser implements domain.SequenceLog, newest first.
func (r *InMemoryRepository) ListByUser(_ context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.SequenceSummary, *domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]domain.QualityRecord, 0)
	for _, record := range r.quality {
		if record.UserID == userID && persistence.After(cursor, record.GeneratedAt, record.SequenceID) {
			matches = append(matches, record)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].GeneratedAt.Equal(matches[j].GeneratedAt) {
			return matches[i].SequenceID > matches[j].SequenceID
		}
		return matches[i].GeneratedAt.After(matches[j].GeneratedAt)
	})

	var next *domain.Cursor
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
		last := matches[limit-1]
		next = &domain.Cursor{GeneratedAt: last.GeneratedAt, ID: last.SequenceID}
	}
	out := make([]domain.SequenceSummary, 0, len(matches))
	for _, record := range matches {
		out = append(out, Summarize(record))
	}
	return out, next, nil
}

// Summarize projects a quality record onto its listing form.
func Summarize(record domain.QualityRecord) domain.SequenceSummary {
	return domain.SequenceSummary{
		SequenceID:    record.SequenceID,
		UserID:        record.UserID,
		Difficulty:    record.Difficulty,
		TargetMinutes: record.TargetMinutes,
		MovementIDs:   record.MovementIDs(),
		SafetyScore:   record.Validation.SafetyScore,
		IsValid:       record.Validation.IsValid,
		Outcome:       string(record.Outcome.Status),
		GeneratedAt:   record.GeneratedAt,
	}
}

func cloneMovement(m domain.Movement) domain.Movement {
	groups := make([]string, len(m.MuscleGroups))
	copy(groups, m.MuscleGroups)
	m.MuscleGroups = groups
	return m
}
