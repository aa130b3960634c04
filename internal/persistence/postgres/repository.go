package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/observability"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/outbox"
	"github.com/Lauraredmond/pilates-class-generator-sub000/pkg/events"
)

const (
	foundationalSettingKey = "foundational_movement"
	defaultListLimit       = 50
)

// Repository provides Postgres-backed persistence for the movement catalog, usage history,
// the quality log and its outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListMovements implements domain.MovementRepository, in catalog order.
func (r *Repository) ListMovements(ctx context.Context, difficulty domain.Difficulty, excludedIDs []string) ([]domain.Movement, error) {
	if excludedIDs == nil {
		excludedIDs = []string{}
	}

	const query = `SELECT m.movement_id, m.name, m.difficulty, m.setup_position, m.movement_family, m.category, m.base_duration_seconds,
            COALESCE(array_agg(g.muscle_group ORDER BY g.group_rank) FILTER (WHERE g.muscle_group IS NOT NULL), '{}')
        FROM movements m
        LEFT JOIN movement_muscle_groups g ON g.movement_id = m.movement_id
        WHERE m.difficulty <= $1 AND NOT (m.movement_id = ANY($2))
        GROUP BY m.movement_id
        ORDER BY m.catalog_rank, m.movement_id`

	rows, err := r.pool.Query(ctx, query, int(difficulty), excludedIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Movement, 0)
	for rows.Next() {
		var (
			m    domain.Movement
			tier int
		)
		if err := rows.Scan(&m.ID, &m.Name, &tier, &m.SetupPosition, &m.Family, &m.Category, &m.BaseDurationSeconds, &m.MuscleGroups); err != nil {
			return nil, err
		}
		m.Difficulty = domain.Difficulty(tier)
		results = append(results, m)
	}
	return results, rows.Err()
}

// UpsertMovement inserts or replaces a catalog entry and its muscle groups.
func (r *Repository) UpsertMovement(ctx context.Context, m domain.Movement, rank int) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = upsertMovement(ctx, tx, m.Normalized(), rank); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func upsertMovement(ctx context.Context, tx pgx.Tx, m domain.Movement, rank int) error {
	const stmt = `INSERT INTO movements (movement_id, name, difficulty, setup_position, movement_family, category, base_duration_seconds, catalog_rank)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (movement_id) DO UPDATE SET
            name = EXCLUDED.name,
            difficulty = EXCLUDED.difficulty,
            setup_position = EXCLUDED.setup_position,
            movement_family = EXCLUDED.movement_family,
            category = EXCLUDED.category,
            base_duration_seconds = EXCLUDED.base_duration_seconds,
            catalog_rank = EXCLUDED.catalog_rank,
            updated_at = NOW()`

	if _, err := tx.Exec(ctx, stmt, m.ID, m.Name, int(m.Difficulty), m.SetupPosition, m.Family, m.Category, m.BaseDurationSeconds, rank); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM movement_muscle_groups WHERE movement_id = $1`, m.ID); err != nil {
		return err
	}
	for i, group := range m.MuscleGroups {
		if _, err := tx.Exec(ctx,
			`INSERT INTO movement_muscle_groups (movement_id, muscle_group, group_rank) VALUES ($1,$2,$3)
             ON CONFLICT (movement_id, muscle_group) DO NOTHING`,
			m.ID, group, i,
		); err != nil {
			return err
		}
	}
	return nil
}

// GetTransition implements domain.TransitionRepository. Positions match case-insensitively.
func (r *Repository) GetTransition(ctx context.Context, fromPosition, toPosition string) (*domain.Transition, error) {
	const query = `SELECT from_position, to_position, narrative, duration_seconds
        FROM transitions WHERE from_position = $1 AND to_position = $2`

	var t domain.Transition
	err := r.pool.QueryRow(ctx, query, positionKey(fromPosition), positionKey(toPosition)).
		Scan(&t.FromPosition, &t.ToPosition, &t.Narrative, &t.DurationSeconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func upsertTransition(ctx context.Context, tx pgx.Tx, t domain.Transition) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO transitions (from_position, to_position, narrative, duration_seconds)
         VALUES ($1,$2,$3,$4)
         ON CONFLICT (from_position, to_position) DO UPDATE SET narrative = EXCLUDED.narrative, duration_seconds = EXCLUDED.duration_seconds`,
		positionKey(t.FromPosition), positionKey(t.ToPosition), t.Narrative, t.DurationSeconds,
	)
	return err
}

func positionKey(position string) string {
	return strings.ToLower(strings.TrimSpace(position))
}

// ListUsage implements domain.UsageHistoryRepository, oldest first.
func (r *Repository) ListUsage(ctx context.Context, userID string) ([]domain.UsageRecord, error) {
	const query = `SELECT user_id, movement_id, session_id, session_at
        FROM usage_history WHERE user_id = $1
        ORDER BY session_at, usage_id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.UsageRecord, 0)
	for rows.Next() {
		var rec domain.UsageRecord
		if err := rows.Scan(&rec.UserID, &rec.MovementID, &rec.SessionID, &rec.SessionAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AppendUsage implements domain.UsageWriter. Replayed (user, session, movement) triples are ignored.
func (r *Repository) AppendUsage(ctx context.Context, records []domain.UsageRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const stmt = `INSERT INTO usage_history (user_id, movement_id, session_id, session_at)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (user_id, session_id, movement_id) DO NOTHING`

	var latest time.Time
	for _, rec := range records {
		if rec.UserID == "" || rec.MovementID == "" {
			return fmt.Errorf("%w: usage record requires user and movement", domain.ErrInvalidInput)
		}
		if _, err = tx.Exec(ctx, stmt, rec.UserID, rec.MovementID, rec.SessionKey(), rec.SessionAt.UTC()); err != nil {
			return err
		}
		if rec.SessionAt.After(latest) {
			latest = rec.SessionAt
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordUsageAppended(latest)
	return nil
}

// SectionOverheadMinutes implements domain.SectionPlanner using the narrowest band covering targetMinutes.
func (r *Repository) SectionOverheadMinutes(ctx context.Context, targetMinutes int) (int, error) {
	const query = `SELECT preparation_minutes + warmup_minutes + cooldown_minutes + meditation_minutes + homecare_minutes
        FROM section_overheads
        WHERE max_target_minutes >= $1
        ORDER BY max_target_minutes
        LIMIT 1`

	var minutes int
	if err := r.pool.QueryRow(ctx, query, targetMinutes).Scan(&minutes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("no section overhead band covers %d minutes", targetMinutes)
		}
		return 0, err
	}
	return minutes, nil
}

// SectionBand is one row of the section overhead table.
type SectionBand struct {
	MaxTargetMinutes int
	Preparation      int
	Warmup           int
	Cooldown         int
	Meditation       int
	Homecare         int
}

func upsertSectionBand(ctx context.Context, tx pgx.Tx, band SectionBand) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO section_overheads (max_target_minutes, preparation_minutes, warmup_minutes, cooldown_minutes, meditation_minutes, homecare_minutes)
         VALUES ($1,$2,$3,$4,$5,$6)
         ON CONFLICT (max_target_minutes) DO UPDATE SET
            preparation_minutes = EXCLUDED.preparation_minutes,
            warmup_minutes = EXCLUDED.warmup_minutes,
            cooldown_minutes = EXCLUDED.cooldown_minutes,
            meditation_minutes = EXCLUDED.meditation_minutes,
            homecare_minutes = EXCLUDED.homecare_minutes`,
		band.MaxTargetMinutes, band.Preparation, band.Warmup, band.Cooldown, band.Meditation, band.Homecare,
	)
	return err
}

// IsBeginner implements domain.ProfileRepository. Users without a profile row are not flagged.
func (r *Repository) IsBeginner(ctx context.Context, userID string) (bool, error) {
	var beginner bool
	err := r.pool.QueryRow(ctx, `SELECT is_beginner FROM user_profiles WHERE user_id = $1`, userID).Scan(&beginner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return beginner, nil
}

// SetBeginner upserts the beginner flag of a user profile.
func (r *Repository) SetBeginner(ctx context.Context, userID string, beginner bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_profiles (user_id, is_beginner) VALUES ($1,$2)
         ON CONFLICT (user_id) DO UPDATE SET is_beginner = EXCLUDED.is_beginner, updated_at = NOW()`,
		userID, beginner,
	)
	return err
}

// FoundationalMovementID implements domain.ProfileRepository.
func (r *Repository) FoundationalMovementID(ctx context.Context) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `SELECT setting_value FROM catalog_settings WHERE setting_key = $1`, foundationalSettingKey).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return id, nil
}

// LogQuality implements domain.QualityLogger. The quality row and its outbox events are written in
// one transaction; a replayed sequence id is ignored.
func (r *Repository) LogQuality(ctx context.Context, record domain.QualityRecord) (err error) {
	items, err := json.Marshal(record.Items)
	if err != nil {
		return err
	}
	muscles, err := json.Marshal(nonNilBalance(record.MuscleBalance))
	if err != nil {
		return err
	}
	families, err := json.Marshal(nonNilBalance(record.FamilyBalance))
	if err != nil {
		return err
	}
	violations, err := json.Marshal(nonNilStrings(record.Validation.Violations))
	if err != nil {
		return err
	}
	warnings, err := json.Marshal(nonNilStrings(record.Validation.Warnings))
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insertQuality = `INSERT INTO sequence_quality_log (sequence_id, user_id, difficulty, target_minutes, movement_ids, items,
            muscle_balance, family_balance, is_valid, safety_score, violations, warnings, outcome, outcome_reason, generated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        ON CONFLICT (sequence_id) DO NOTHING`

	tag, err := tx.Exec(ctx, insertQuality,
		record.SequenceID,
		record.UserID,
		int(record.Difficulty),
		record.TargetMinutes,
		nonNilStrings(record.MovementIDs()),
		items,
		muscles,
		families,
		record.Validation.IsValid,
		record.Validation.SafetyScore,
		violations,
		warnings,
		string(record.Outcome.Status),
		record.Outcome.Reason,
		record.GeneratedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}

	partitionKey := record.UserID
	if partitionKey == "" {
		partitionKey = record.SequenceID
	}

	if err = outbox.Enqueue(ctx, tx, outbox.Event{
		AggregateType: "sequence",
		AggregateID:   record.SequenceID,
		EventType:     events.TypeSequenceGenerated,
		PartitionKey:  partitionKey,
		Payload:       sequenceGenerated(record),
	}); err != nil {
		return err
	}

	if !record.Validation.IsValid {
		if err = outbox.Enqueue(ctx, tx, outbox.Event{
			AggregateType: "sequence",
			AggregateID:   record.SequenceID,
			EventType:     events.TypeSequenceValidationFailed,
			PartitionKey:  partitionKey,
			Payload: events.SequenceValidationFailed{
				SequenceID:  record.SequenceID,
				UserID:      record.UserID,
				Violations:  nonNilStrings(record.Validation.Violations),
				SafetyScore: record.Validation.SafetyScore,
				OccurredAt:  record.GeneratedAt.UTC(),
			},
		}); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func sequenceGenerated(record domain.QualityRecord) events.SequenceGenerated {
	movements := make([]events.SequenceMovement, 0, len(record.Items))
	for _, item := range record.Items {
		if item.Movement == nil {
			continue
		}
		movements = append(movements, events.SequenceMovement{
			MovementID:      item.Movement.ID,
			Position:        len(movements) + 1,
			DurationSeconds: item.Movement.DurationSeconds,
		})
	}
	return events.SequenceGenerated{
		SequenceID:    record.SequenceID,
		UserID:        record.UserID,
		Difficulty:    record.Difficulty.String(),
		TargetMinutes: record.TargetMinutes,
		Movements:     movements,
		SafetyScore:   record.Validation.SafetyScore,
		Outcome:       string(record.Outcome.Status),
		OutcomeReason: record.Outcome.Reason,
		GeneratedAt:   record.GeneratedAt.UTC(),
	}
}

// ListByUser implements domain.SequenceLog, newest first. A next cursor is returned only when
// more rows remain.
func (r *Repository) ListByUser(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.SequenceSummary, *domain.Cursor, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	args := []interface{}{userID, limit + 1}
	query := `SELECT sequence_id, user_id, difficulty, target_minutes, movement_ids, safety_score, is_valid, outcome, generated_at
        FROM sequence_quality_log WHERE user_id = $1`

	if cursor != nil {
		query += ` AND (generated_at, sequence_id) < ($3, $4)`
		args = append(args, cursor.GeneratedAt, cursor.ID)
	}
	query += ` ORDER BY generated_at DESC, sequence_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.SequenceSummary, 0, limit)
	for rows.Next() {
		var (
			summary domain.SequenceSummary
			tier    int
		)
		if err := rows.Scan(&summary.SequenceID, &summary.UserID, &tier, &summary.TargetMinutes, &summary.MovementIDs,
			&summary.SafetyScore, &summary.IsValid, &summary.Outcome, &summary.GeneratedAt); err != nil {
			return nil, nil, err
		}
		summary.Difficulty = domain.Difficulty(tier)
		results = append(results, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if len(results) > limit {
		results = results[:limit]
		last := results[len(results)-1]
		next = &domain.Cursor{GeneratedAt: last.GeneratedAt, ID: last.SequenceID}
	}
	return results, next, nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilBalance[M ~map[string]float64](balance M) M {
	if balance == nil {
		return M{}
	}
	return balance
}
