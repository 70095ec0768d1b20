package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/movevote/movevote/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	UpsertByDiscordID(ctx context.Context, discordID, username, avatar string) (*User, error)
	FindByDiscordID(ctx context.Context, discordID string) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// UpsertByDiscordID creates the user on first login and refreshes the
// profile fields on every subsequent one.
func (r *PGRepository) UpsertByDiscordID(ctx context.Context, discordID, username, avatar string) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, discord_id, username, avatar, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now())
		 ON CONFLICT (discord_id)
		 DO UPDATE SET username = EXCLUDED.username, avatar = EXCLUDED.avatar, updated_at = now()
		 RETURNING id, discord_id, username, COALESCE(avatar, ''), created_at, updated_at`,
		uuid.NewString(), discordID, username, nullable(avatar)).
		Scan(&u.ID, &u.DiscordID, &u.Username, &u.Avatar, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, shared.StoreError("auth: upsert user", err)
	}
	return &u, nil
}

// FindByDiscordID fetches a user by their external id.
func (r *PGRepository) FindByDiscordID(ctx context.Context, discordID string) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx,
		`SELECT id, discord_id, username, COALESCE(avatar, ''), created_at, updated_at
		 FROM users WHERE discord_id = $1`, discordID).
		Scan(&u.ID, &u.DiscordID, &u.Username, &u.Avatar, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.StoreError("auth: find user", err)
	}
	return &u, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repository = (*PGRepository)(nil)
