package sequencing

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/observability"
)

// Dependencies are the collaborators consulted once per request before selection starts.
type Dependencies struct {
	Movements   domain.MovementRepository
	History     domain.UsageHistoryRepository
	Transitions domain.TransitionRepository
	Sections    domain.SectionPlanner
	Profiles    domain.ProfileRepository
	Quality     domain.QualityLogger
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithLogger overrides the logger used to report degraded collaborators.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for recency weighting.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service generates class sequences.
type Service struct {
	deps   Dependencies
	logger *log.Logger
	now    func() time.Time
}

// NewService constructs a Service. Movements is required; every other collaborator is optional.
func NewService(deps Dependencies, opts ...Option) *Service {
	s := &Service{
		deps:   deps,
		logger: log.New(log.Writer(), "[sequencing] ", log.LstdFlags|log.Lshortfile),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateRequest captures the caller's class parameters.
type GenerateRequest struct {
	TargetMinutes       int
	Difficulty          string
	FocusAreas          []string
	RequiredMovementIDs []string
	ExcludedMovementIDs []string
	UserID              string
	Seed                *uint64
	DurationOverrides   map[string]int
}

// GeneratedSequence is the self-contained result of one generation request.
type GeneratedSequence struct {
	ID                   string                  `json:"sequence_id"`
	UserID               string                  `json:"user_id,omitempty"`
	Difficulty           domain.Difficulty       `json:"difficulty"`
	Budget               Budget                  `json:"budget"`
	Items                []domain.SequenceItem   `json:"sequence"`
	MuscleBalance        domain.MuscleBalance    `json:"muscle_balance"`
	Validation           domain.ValidationResult `json:"validation"`
	Outcome              domain.BuildOutcome     `json:"outcome"`
	SkippedRequired      []string                `json:"skipped_required_ids,omitempty"`
	TotalDurationSeconds int                     `json:"total_duration_seconds"`
	Seed                 uint64                  `json:"seed"`
	GeneratedAt          time.Time               `json:"generated_at"`
}

// Movements returns the movement items of the sequence in order.
func (g *GeneratedSequence) Movements() []domain.SelectedMovement {
	return MovementsOf(g.Items)
}

// GenerateSequence plans, builds, stitches and validates a class. Early termination by the
// hard constraints is reported through Outcome, not as an error.
func (s *Service) GenerateSequence(ctx context.Context, req GenerateRequest) (*GeneratedSequence, error) {
	if err := ValidateTarget(req.TargetMinutes); err != nil {
		return nil, err
	}
	difficulty, err := domain.ParseDifficulty(req.Difficulty)
	if err != nil {
		return nil, err
	}

	overhead := 0
	if req.TargetMinutes != QuickPracticeMinutes {
		overhead = s.sectionOverhead(ctx, req.TargetMinutes)
	}
	budget, err := PlanBudget(req.TargetMinutes, difficulty, overhead)
	if err != nil {
		return nil, err
	}

	candidates := s.loadMovements(ctx, difficulty, req.ExcludedMovementIDs)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no %s movements after exclusions", domain.ErrNoMovementsAvailable, difficulty)
	}

	now := s.now()
	history := s.loadHistory(ctx, req.UserID)
	weights := ComputeUsageWeights(history, candidates, now)
	if s.isBeginner(ctx, req.UserID, history) {
		ApplyFoundationalBoost(weights, s.foundationalID(ctx))
	}

	seed := rand.Uint64()
	if req.Seed != nil {
		seed = *req.Seed
	}
	result := Build(BuildInput{
		Candidates:        candidates,
		Budget:            budget,
		RequiredIDs:       req.RequiredMovementIDs,
		FocusAreas:        req.FocusAreas,
		Weights:           weights,
		DurationOverrides: req.DurationOverrides,
	}, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
	if len(result.SkippedRequired) > 0 {
		s.logger.Printf("required movements not placed: %s", strings.Join(result.SkippedRequired, ","))
	}

	items := StitchTransitions(ctx, result.Movements, s.deps.Transitions, s.logger)
	muscles := MuscleBalanceOf(result.Movements)
	families := FamilyBalanceOf(result.Movements)
	validation := Validate(result.Movements, muscles, families)

	total := 0
	for _, item := range items {
		total += item.DurationSeconds()
	}

	generated := &GeneratedSequence{
		ID:                   uuid.NewString(),
		UserID:               req.UserID,
		Difficulty:           difficulty,
		Budget:               budget,
		Items:                items,
		MuscleBalance:        muscles,
		Validation:           validation,
		Outcome:              result.Outcome,
		SkippedRequired:      result.SkippedRequired,
		TotalDurationSeconds: total,
		Seed:                 seed,
		GeneratedAt:          now,
	}
	observability.RecordSequenceGenerated(difficulty.String(), string(result.Outcome.Status), len(result.Movements), validation.SafetyScore, now)

	s.logQuality(ctx, generated, families)
	return generated, nil
}

func (s *Service) sectionOverhead(ctx context.Context, targetMinutes int) int {
	if s.deps.Sections != nil {
		minutes, err := s.deps.Sections.SectionOverheadMinutes(ctx, targetMinutes)
		if err == nil {
			return minutes
		}
		s.logger.Printf("section overhead lookup failed, using static plan: %v", err)
		observability.RecordRepositoryFallback("sections")
	}
	minutes, _ := StaticSectionPlanner{}.SectionOverheadMinutes(ctx, targetMinutes)
	return minutes
}

func (s *Service) loadMovements(ctx context.Context, difficulty domain.Difficulty, excluded []string) []domain.Movement {
	movements, err := s.deps.Movements.ListMovements(ctx, difficulty, excluded)
	if err != nil {
		s.logger.Printf("movement fetch failed: %v", err)
		observability.RecordRepositoryFallback("movements")
		return nil
	}
	skip := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}
	out := make([]domain.Movement, 0, len(movements))
	seen := make(map[string]struct{}, len(movements))
	for _, m := range movements {
		if err := m.Validate(); err != nil {
			s.logger.Printf("skipping catalog entry: %v", err)
			continue
		}
		if _, ok := skip[m.ID]; ok {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		if m.Difficulty > difficulty {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m.Normalized())
	}
	return out
}

func (s *Service) loadHistory(ctx context.Context, userID string) []domain.UsageRecord {
	if userID == "" || s.deps.History == nil {
		return nil
	}
	history, err := s.deps.History.ListUsage(ctx, userID)
	if err != nil {
		s.logger.Printf("usage history fetch failed for %s, weighting as unseen: %v", userID, err)
		observability.RecordRepositoryFallback("history")
		return nil
	}
	return history
}

func (s *Service) isBeginner(ctx context.Context, userID string, history []domain.UsageRecord) bool {
	if userID == "" {
		return false
	}
	if DistinctSessions(history) < BeginnerSessionThreshold {
		return true
	}
	if s.deps.Profiles == nil {
		return false
	}
	beginner, err := s.deps.Profiles.IsBeginner(ctx, userID)
	if err != nil {
		s.logger.Printf("profile lookup failed for %s: %v", userID, err)
		observability.RecordRepositoryFallback("profiles")
		return false
	}
	return beginner
}

func (s *Service) foundationalID(ctx context.Context) string {
	if s.deps.Profiles == nil {
		return ""
	}
	id, err := s.deps.Profiles.FoundationalMovementID(ctx)
	if err != nil {
		s.logger.Printf("foundational movement lookup failed: %v", err)
		observability.RecordRepositoryFallback("profiles")
		return ""
	}
	return id
}

func (s *Service) logQuality(ctx context.Context, generated *GeneratedSequence, families domain.FamilyBalance) {
	if s.deps.Quality == nil {
		return
	}
	err := s.deps.Quality.LogQuality(ctx, domain.QualityRecord{
		SequenceID:    generated.ID,
		UserID:        generated.UserID,
		Difficulty:    generated.Difficulty,
		TargetMinutes: generated.Budget.TargetMinutes,
		Items:         generated.Items,
		MuscleBalance: generated.MuscleBalance,
		FamilyBalance: families,
		Validation:    generated.Validation,
		Outcome:       generated.Outcome,
		GeneratedAt:   generated.GeneratedAt,
	})
	if err != nil {
		s.logger.Printf("quality log write failed for sequence %s: %v", generated.ID, err)
		observability.RecordQualityLogFailure()
	}
}
