package submission

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/movevote/movevote/internal/platform/db"
	"github.com/movevote/movevote/internal/shared"
	"github.com/movevote/movevote/internal/tradeport"
)

// Repository defines persistence operations for the submission ledger.
type Repository interface {
	FindUserSubmission(ctx context.Context, userID, monthYear string) (*Detail, error)
	CollectionSubmitted(ctx context.Context, normalizedAddress, monthYear string) (bool, error)
	CreateWithCollection(ctx context.Context, userID, monthYear string, meta tradeport.Metadata) (*Detail, error)
	ListByPeriod(ctx context.Context, monthYear string) ([]Detail, error)
	ListPeriodCollections(ctx context.Context, monthYear string) ([]CollectionView, error)
	UpdateCollectionMetadata(ctx context.Context, collectionID string, meta tradeport.Metadata) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const detailColumns = `s.id, s.user_id, s.collection_id, s.month_year, s.created_at,
	c.id, c.contract_address, c.name, COALESCE(c.image_url, ''), COALESCE(c.description, ''),
	COALESCE(c.twitter_url, ''), COALESCE(c.tradeport_url, ''), c.floor_price, c.volume, c.created_at,
	u.username, u.discord_id`

// FindUserSubmission returns the user's submission for a period, or nil.
func (r *PGRepository) FindUserSubmission(ctx context.Context, userID, monthYear string) (*Detail, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+detailColumns+`
		FROM submissions s
		JOIN collections c ON c.id = s.collection_id
		JOIN users u ON u.id = s.user_id
		WHERE s.user_id = $1 AND s.month_year = $2`, userID, monthYear)
	d, err := scanDetail(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, shared.StoreError("submission: find user submission", err)
	}
	return d, nil
}

// CollectionSubmitted reports whether the address was already nominated
// this period by anyone.
func (r *PGRepository) CollectionSubmitted(ctx context.Context, normalizedAddress, monthYear string) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx, `
		SELECT 1 FROM submissions s
		JOIN collections c ON c.id = s.collection_id
		WHERE c.contract_address = $1 AND s.month_year = $2`, normalizedAddress, monthYear).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, shared.StoreError("submission: collection submitted", err)
	}
	return true, nil
}

// CreateWithCollection inserts the collection on first sighting and the
// submission row, atomically. The conditional insert keyed on the contract
// address makes concurrent first-time nominations of the same collection
// converge on one row; the submission unique constraints backstop the
// precondition checks and surface as ErrDuplicate.
func (r *PGRepository) CreateWithCollection(ctx context.Context, userID, monthYear string, meta tradeport.Metadata) (*Detail, error) {
	var submissionID string
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO collections (id, contract_address, name, image_url, description,
				twitter_url, tradeport_url, floor_price, volume, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
			ON CONFLICT (contract_address) DO NOTHING`,
			uuid.NewString(), meta.ContractAddress, meta.Name,
			nullable(meta.ImageURL), nullable(meta.Description),
			nullable(meta.TwitterURL), nullable(meta.TradeportURL),
			meta.FloorPrice, meta.Volume)
		if err != nil {
			return shared.StoreError("submission: upsert collection", err)
		}

		var collectionID string
		if err := tx.QueryRow(ctx,
			`SELECT id FROM collections WHERE contract_address = $1`,
			meta.ContractAddress).Scan(&collectionID); err != nil {
			return shared.StoreError("submission: load collection", err)
		}

		submissionID = uuid.NewString()
		_, err = tx.Exec(ctx, `
			INSERT INTO submissions (id, user_id, collection_id, month_year, created_at)
			VALUES ($1, $2, $3, $4, now())`,
			submissionID, userID, collectionID, monthYear)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return shared.ErrDuplicate
			}
			return shared.StoreError("submission: insert", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.findByID(ctx, submissionID)
}

// ListByPeriod returns all submissions for a period, newest first.
func (r *PGRepository) ListByPeriod(ctx context.Context, monthYear string) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+detailColumns+`
		FROM submissions s
		JOIN collections c ON c.id = s.collection_id
		JOIN users u ON u.id = s.user_id
		WHERE s.month_year = $1
		ORDER BY s.created_at DESC`, monthYear)
	if err != nil {
		return nil, shared.StoreError("submission: list", err)
	}
	defer rows.Close()

	var out []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// ListPeriodCollections returns the period's nominated collections in
// submission order. Vote counts are not queried here; the service fills
// them through the vote ledger.
func (r *PGRepository) ListPeriodCollections(ctx context.Context, monthYear string) ([]CollectionView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.contract_address, c.name, COALESCE(c.image_url, ''),
			COALESCE(c.description, ''), COALESCE(c.twitter_url, ''),
			COALESCE(c.tradeport_url, ''), c.floor_price, c.volume, c.created_at
		FROM submissions s
		JOIN collections c ON c.id = s.collection_id
		WHERE s.month_year = $1
		ORDER BY s.created_at`, monthYear)
	if err != nil {
		return nil, shared.StoreError("submission: list collections", err)
	}
	defer rows.Close()

	var out []CollectionView
	for rows.Next() {
		var v CollectionView
		if err := rows.Scan(&v.ID, &v.ContractAddress, &v.Name, &v.ImageURL,
			&v.Description, &v.TwitterURL, &v.TradeportURL, &v.FloorPrice,
			&v.Volume, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateCollectionMetadata stores freshly fetched marketplace fields.
func (r *PGRepository) UpdateCollectionMetadata(ctx context.Context, collectionID string, meta tradeport.Metadata) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE collections
		SET name = $2, image_url = $3, description = $4,
			twitter_url = $5, tradeport_url = $6, floor_price = $7, volume = $8
		WHERE id = $1`,
		collectionID, meta.Name, nullable(meta.ImageURL), nullable(meta.Description),
		nullable(meta.TwitterURL), nullable(meta.TradeportURL), meta.FloorPrice, meta.Volume)
	if err != nil {
		return shared.StoreError("submission: update collection metadata", err)
	}
	return nil
}

func (r *PGRepository) findByID(ctx context.Context, id string) (*Detail, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+detailColumns+`
		FROM submissions s
		JOIN collections c ON c.id = s.collection_id
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1`, id)
	d, err := scanDetail(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.StoreError("submission: find by id", err)
	}
	return d, nil
}

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	if err := row.Scan(&d.ID, &d.UserID, &d.Submission.CollectionID, &d.MonthYear, &d.Submission.CreatedAt,
		&d.Collection.ID, &d.Collection.ContractAddress, &d.Collection.Name,
		&d.Collection.ImageURL, &d.Collection.Description, &d.Collection.TwitterURL,
		&d.Collection.TradeportURL, &d.Collection.FloorPrice, &d.Collection.Volume,
		&d.Collection.CreatedAt, &d.Username, &d.DiscordID); err != nil {
		return nil, err
	}
	return &d, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repository = (*PGRepository)(nil)
