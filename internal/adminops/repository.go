// Package adminops implements the admin surface: phase overrides, winner
// recomputation, period data scrubbing and the blocked-user list.
package adminops

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/movevote/movevote/internal/platform/db"
	"github.com/movevote/movevote/internal/shared"
)

// ClearScope selects which ledgers a clear-data request scrubs.
type ClearScope string

const (
	ScopeAll         ClearScope = "all"
	ScopeSubmissions ClearScope = "submissions"
	ScopeVotes       ClearScope = "votes"
	ScopeWinners     ClearScope = "winners"
)

// Valid reports whether the scope is one of the known values.
func (s ClearScope) Valid() bool {
	switch s {
	case ScopeAll, ScopeSubmissions, ScopeVotes, ScopeWinners:
		return true
	}
	return false
}

// ClearCounts reports how many rows each ledger lost.
type ClearCounts struct {
	Votes       int64 `json:"votes"`
	Submissions int64 `json:"submissions"`
	Winners     int64 `json:"winners"`
}

// Repository performs the destructive admin writes.
type Repository interface {
	ClearPeriod(ctx context.Context, monthYear string, scope ClearScope) (ClearCounts, error)
	DeleteSubmission(ctx context.Context, submissionID string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ClearPeriod scrubs the selected ledgers for a period in one transaction.
// Votes go before submissions so no vote row ever references a removed
// nomination mid-scrub.
func (r *PGRepository) ClearPeriod(ctx context.Context, monthYear string, scope ClearScope) (ClearCounts, error) {
	var counts ClearCounts
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if scope == ScopeAll || scope == ScopeVotes || scope == ScopeSubmissions {
			tag, err := tx.Exec(ctx,
				`DELETE FROM votes WHERE month_year = $1`, monthYear)
			if err != nil {
				return shared.StoreError("adminops: clear votes", err)
			}
			counts.Votes = tag.RowsAffected()
		}
		if scope == ScopeAll || scope == ScopeSubmissions {
			tag, err := tx.Exec(ctx,
				`DELETE FROM submissions WHERE month_year = $1`, monthYear)
			if err != nil {
				return shared.StoreError("adminops: clear submissions", err)
			}
			counts.Submissions = tag.RowsAffected()
		}
		if scope == ScopeAll || scope == ScopeWinners {
			tag, err := tx.Exec(ctx,
				`DELETE FROM winners WHERE month_year = $1`, monthYear)
			if err != nil {
				return shared.StoreError("adminops: clear winners", err)
			}
			counts.Winners = tag.RowsAffected()
		}
		return nil
	})
	return counts, err
}

// DeleteSubmission removes one nomination and the votes cast for its
// collection in the same period.
func (r *PGRepository) DeleteSubmission(ctx context.Context, submissionID string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var collectionID, monthYear string
		err := tx.QueryRow(ctx,
			`SELECT collection_id, month_year FROM submissions WHERE id = $1`,
			submissionID).Scan(&collectionID, &monthYear)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return shared.StoreError("adminops: load submission", err)
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM votes WHERE collection_id = $1 AND month_year = $2`,
			collectionID, monthYear); err != nil {
			return shared.StoreError("adminops: delete votes", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM submissions WHERE id = $1`, submissionID); err != nil {
			return shared.StoreError("adminops: delete submission", err)
		}
		return nil
	})
}

var _ Repository = (*PGRepository)(nil)
