package phase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/movevote/movevote/internal/shared"
)

// OverrideRepository persists per-period phase overrides.
type OverrideRepository interface {
	Get(ctx context.Context, monthYear string) (*Override, error)
	Upsert(ctx context.Context, monthYear string, p Phase, expiresAt *time.Time) error
	Delete(ctx context.Context, monthYear string) error
}

// PGOverrideRepository implements OverrideRepository using PostgreSQL.
type PGOverrideRepository struct {
	pool *pgxpool.Pool
}

// NewOverrideRepository constructs a PostgreSQL repository.
func NewOverrideRepository(pool *pgxpool.Pool) *PGOverrideRepository {
	return &PGOverrideRepository{pool: pool}
}

// Get returns the override for a period, or nil when none exists.
func (r *PGOverrideRepository) Get(ctx context.Context, monthYear string) (*Override, error) {
	var o Override
	err := r.pool.QueryRow(ctx,
		`SELECT month_year, phase, expires_at, created_at, updated_at
		 FROM phase_overrides WHERE month_year = $1`, monthYear).
		Scan(&o.MonthYear, &o.Phase, &o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, shared.StoreError("phase: get override", err)
	}
	return &o, nil
}

// Upsert creates or replaces the override for a period.
func (r *PGOverrideRepository) Upsert(ctx context.Context, monthYear string, p Phase, expiresAt *time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO phase_overrides (month_year, phase, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, now(), now())
		 ON CONFLICT (month_year)
		 DO UPDATE SET phase = EXCLUDED.phase, expires_at = EXCLUDED.expires_at, updated_at = now()`,
		monthYear, string(p), expiresAt)
	if err != nil {
		return shared.StoreError("phase: upsert override", err)
	}
	return nil
}

// Delete removes the override for a period. Deleting an absent row is a
// no-op so the lazy expiry sweep is safe to race.
func (r *PGOverrideRepository) Delete(ctx context.Context, monthYear string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM phase_overrides WHERE month_year = $1`, monthYear)
	if err != nil {
		return shared.StoreError("phase: delete override", err)
	}
	return nil
}

var _ OverrideRepository = (*PGOverrideRepository)(nil)
