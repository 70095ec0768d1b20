package vote

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/movevote/movevote/internal/platform/db"
	"github.com/movevote/movevote/internal/shared"
)

// Repository defines persistence operations for the vote ledger.
type Repository interface {
	Toggle(ctx context.Context, userID, collectionID, monthYear string, maxVotes int) (*ToggleResult, error)
	UserVotes(ctx context.Context, userID, monthYear string) ([]string, error)
	CollectionCount(ctx context.Context, collectionID, monthYear string) (int, error)
	ListByPeriod(ctx context.Context, monthYear string) ([]Detail, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Toggle flips the (user, collection, period) vote inside one transaction.
// The user row is locked first so concurrent toggles from the same user are
// serialized; the unique constraint on the triple backstops double-clicks
// that slip past the existence check.
func (r *PGRepository) Toggle(ctx context.Context, userID, collectionID, monthYear string, maxVotes int) (*ToggleResult, error) {
	var result ToggleResult
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var lockedID string
		if err := tx.QueryRow(ctx,
			`SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&lockedID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return shared.StoreError("vote: lock user", err)
		}

		var existingID string
		err := tx.QueryRow(ctx,
			`SELECT id FROM votes WHERE user_id = $1 AND collection_id = $2 AND month_year = $3`,
			userID, collectionID, monthYear).Scan(&existingID)
		switch {
		case err == nil:
			if _, err := tx.Exec(ctx, `DELETE FROM votes WHERE id = $1`, existingID); err != nil {
				return shared.StoreError("vote: delete", err)
			}
			result.Action = ActionRemoved
		case errors.Is(err, pgx.ErrNoRows):
			var used int
			if err := tx.QueryRow(ctx,
				`SELECT count(*) FROM votes WHERE user_id = $1 AND month_year = $2`,
				userID, monthYear).Scan(&used); err != nil {
				return shared.StoreError("vote: count", err)
			}
			if used >= maxVotes {
				return fmt.Errorf("all %d votes used this period: %w", maxVotes, shared.ErrBudgetExceeded)
			}
			_, err = tx.Exec(ctx,
				`INSERT INTO votes (id, user_id, collection_id, month_year, created_at)
				 VALUES ($1, $2, $3, $4, now())`,
				uuid.NewString(), userID, collectionID, monthYear)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					return shared.ErrDuplicate
				}
				return shared.StoreError("vote: insert", err)
			}
			result.Action = ActionAdded
		default:
			return shared.StoreError("vote: existence check", err)
		}

		var used int
		if err := tx.QueryRow(ctx,
			`SELECT count(*) FROM votes WHERE user_id = $1 AND month_year = $2`,
			userID, monthYear).Scan(&used); err != nil {
			return shared.StoreError("vote: recount", err)
		}
		result.VotesRemaining = maxVotes - used
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UserVotes returns the collection ids the user voted for in a period.
func (r *PGRepository) UserVotes(ctx context.Context, userID, monthYear string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT collection_id FROM votes WHERE user_id = $1 AND month_year = $2`,
		userID, monthYear)
	if err != nil {
		return nil, shared.StoreError("vote: user votes", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CollectionCount returns the live vote count for a collection in a period.
func (r *PGRepository) CollectionCount(ctx context.Context, collectionID, monthYear string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM votes WHERE collection_id = $1 AND month_year = $2`,
		collectionID, monthYear).Scan(&count)
	if err != nil {
		return 0, shared.StoreError("vote: collection count", err)
	}
	return count, nil
}

// ListByPeriod returns all votes for a period, newest first.
func (r *PGRepository) ListByPeriod(ctx context.Context, monthYear string) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT v.id, v.user_id, v.collection_id, v.month_year, v.created_at,
			u.username, u.discord_id, c.name
		FROM votes v
		JOIN users u ON u.id = v.user_id
		JOIN collections c ON c.id = v.collection_id
		WHERE v.month_year = $1
		ORDER BY v.created_at DESC`, monthYear)
	if err != nil {
		return nil, shared.StoreError("vote: list", err)
	}
	defer rows.Close()
	var out []Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.UserID, &d.CollectionID, &d.MonthYear,
			&d.Vote.CreatedAt, &d.Username, &d.DiscordID, &d.CollectionName); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
