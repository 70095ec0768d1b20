package winner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/movevote/movevote/internal/platform/db"
	"github.com/movevote/movevote/internal/shared"
)

// Repository defines persistence operations for winner snapshots.
type Repository interface {
	RankedSubmissions(ctx context.Context, monthYear string) ([]Ranked, error)
	ReplaceForPeriod(ctx context.Context, monthYear string, ranked []Ranked) error
	ListByPeriod(ctx context.Context, monthYear string) ([]Entry, error)
	ListPeriods(ctx context.Context) ([]PeriodSummary, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// RankedSubmissions aggregates the period's vote ledger, highest count
// first. Ties break on collection id ascending so reruns over the same
// ledger produce the same order.
func (r *PGRepository) RankedSubmissions(ctx context.Context, monthYear string) ([]Ranked, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.collection_id,
			(SELECT count(*) FROM votes v
				WHERE v.collection_id = s.collection_id AND v.month_year = s.month_year)
		FROM submissions s
		WHERE s.month_year = $1
		ORDER BY 2 DESC, s.collection_id ASC`, monthYear)
	if err != nil {
		return nil, shared.StoreError("winner: rank submissions", err)
	}
	defer rows.Close()

	var out []Ranked
	for rows.Next() {
		var rk Ranked
		if err := rows.Scan(&rk.CollectionID, &rk.VoteCount); err != nil {
			return nil, err
		}
		out = append(out, rk)
	}
	return out, rows.Err()
}

// ReplaceForPeriod swaps the period's snapshot in one transaction. Readers
// see either the old snapshot or the new one, never a mix.
func (r *PGRepository) ReplaceForPeriod(ctx context.Context, monthYear string, ranked []Ranked) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM winners WHERE month_year = $1`, monthYear); err != nil {
			return shared.StoreError("winner: clear period", err)
		}
		for i, rk := range ranked {
			_, err := tx.Exec(ctx, `
				INSERT INTO winners (id, collection_id, month_year, rank, vote_count, created_at)
				VALUES ($1, $2, $3, $4, $5, now())`,
				uuid.NewString(), rk.CollectionID, monthYear, i+1, rk.VoteCount)
			if err != nil {
				return shared.StoreError(fmt.Sprintf("winner: insert rank %d", i+1), err)
			}
		}
		return nil
	})
}

// ListByPeriod returns the stored snapshot for a period in rank order.
func (r *PGRepository) ListByPeriod(ctx context.Context, monthYear string) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT w.id, w.collection_id, w.month_year, w.rank, w.vote_count, w.created_at,
			c.contract_address, c.name, COALESCE(c.image_url, ''), COALESCE(c.description, ''),
			COALESCE(c.twitter_url, ''), COALESCE(c.tradeport_url, ''), c.floor_price, c.volume,
			COALESCE(u.username, '')
		FROM winners w
		JOIN collections c ON c.id = w.collection_id
		LEFT JOIN submissions s ON s.collection_id = w.collection_id AND s.month_year = w.month_year
		LEFT JOIN users u ON u.id = s.user_id
		WHERE w.month_year = $1
		ORDER BY w.rank`, monthYear)
	if err != nil {
		return nil, shared.StoreError("winner: list", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CollectionID, &e.MonthYear, &e.Rank,
			&e.VoteCount, &e.CreatedAt, &e.ContractAddress, &e.Name,
			&e.ImageURL, &e.Description, &e.TwitterURL, &e.TradeportURL,
			&e.FloorPrice, &e.Volume, &e.SubmittedBy); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListPeriods returns every period with a stored snapshot, newest first.
func (r *PGRepository) ListPeriods(ctx context.Context) ([]PeriodSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT month_year, count(*)
		FROM winners
		GROUP BY month_year
		ORDER BY month_year DESC`)
	if err != nil {
		return nil, shared.StoreError("winner: list periods", err)
	}
	defer rows.Close()

	var out []PeriodSummary
	for rows.Next() {
		var p PeriodSummary
		if err := rows.Scan(&p.MonthYear, &p.Count); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
