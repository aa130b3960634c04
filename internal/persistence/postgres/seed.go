package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/knowledge"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/sequencing"
)

// DefaultSectionBands mirrors the static section plan so a freshly seeded database and the
// fallback planner agree.
func DefaultSectionBands() []SectionBand {
	planner := sequencing.StaticSectionPlanner{}
	bands := make([]SectionBand, 0, 4)
	for _, upper := range []int{sequencing.QuickPracticeMinutes, 30, 60, sequencing.MaxTargetMinutes} {
		s := planner.Sections(upper)
		bands = append(bands, SectionBand{
			MaxTargetMinutes: upper,
			Preparation:      s.Preparation,
			Warmup:           s.Warmup,
			Cooldown:         s.Cooldown,
			Meditation:       s.Meditation,
			Homecare:         s.Homecare,
		})
	}
	return bands
}

// SeedCatalog upserts every movement, transition and section band of the catalog in one
// transaction. Movements keep their catalog position as rank.
func (r *Repository) SeedCatalog(ctx context.Context, catalog knowledge.Catalog, bands []SectionBand) (err error) {
	if err = catalog.Validate(); err != nil {
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

	for i, m := range catalog.Movements {
		if err = upsertMovement(ctx, tx, m.Normalized(), i); err != nil {
			return err
		}
	}
	for _, t := range catalog.Transitions {
		if err = upsertTransition(ctx, tx, t); err != nil {
			return err
		}
	}
	for _, band := range bands {
		if err = upsertSectionBand(ctx, tx, band); err != nil {
			return err
		}
	}
	if catalog.FoundationalMovement != "" {
		if _, err = tx.Exec(ctx,
			`INSERT INTO catalog_settings (setting_key, setting_value) VALUES ($1,$2)
             ON CONFLICT (setting_key) DO UPDATE SET setting_value = EXCLUDED.setting_value`,
			foundationalSettingKey, catalog.FoundationalMovement,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
