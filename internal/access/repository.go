package access

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/movevote/movevote/internal/shared"
)

// BlockedRepository persists the blocked-user list.
type BlockedRepository interface {
	Exists(ctx context.Context, discordID string) (bool, error)
	Insert(ctx context.Context, blocked BlockedUser) error
	Delete(ctx context.Context, discordID string) error
	List(ctx context.Context) ([]BlockedUser, error)
}

// PGBlockedRepository implements BlockedRepository using PostgreSQL.
type PGBlockedRepository struct {
	pool *pgxpool.Pool
}

// NewBlockedRepository constructs a PostgreSQL repository.
func NewBlockedRepository(pool *pgxpool.Pool) *PGBlockedRepository {
	return &PGBlockedRepository{pool: pool}
}

// Exists reports whether the id is blocked.
func (r *PGBlockedRepository) Exists(ctx context.Context, discordID string) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx,
		`SELECT 1 FROM blocked_users WHERE discord_id = $1`, discordID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, shared.StoreError("access: blocked lookup", err)
	}
	return true, nil
}

// Insert blocks an id. Blocking an already-blocked id is a conflict.
func (r *PGBlockedRepository) Insert(ctx context.Context, blocked BlockedUser) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO blocked_users (discord_id, reason, blocked_by, created_at)
		 VALUES ($1, $2, $3, now())`,
		blocked.DiscordID, blocked.Reason, blocked.BlockedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrDuplicate
		}
		return shared.StoreError("access: block user", err)
	}
	return nil
}

// Delete unblocks an id; unblocking an absent id is a no-op.
func (r *PGBlockedRepository) Delete(ctx context.Context, discordID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM blocked_users WHERE discord_id = $1`, discordID)
	if err != nil {
		return shared.StoreError("access: unblock user", err)
	}
	return nil
}

// List returns all blocked users.
func (r *PGBlockedRepository) List(ctx context.Context) ([]BlockedUser, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT discord_id, COALESCE(reason, ''), blocked_by, created_at
		 FROM blocked_users ORDER BY created_at DESC`)
	if err != nil {
		return nil, shared.StoreError("access: list blocked", err)
	}
	defer rows.Close()
	var out []BlockedUser
	for rows.Next() {
		var b BlockedUser
		if err := rows.Scan(&b.DiscordID, &b.Reason, &b.BlockedBy, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

var _ BlockedRepository = (*PGBlockedRepository)(nil)
