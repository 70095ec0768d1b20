package winner

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/movevote/movevote/internal/shared"
)

// Service computes and serves winner snapshots.
type Service struct {
	repo   Repository
	lock   *shared.PeriodLock
	logger *slog.Logger
	topN   int
}

// NewService constructs a winner service.
func NewService(repo Repository, lock *shared.PeriodLock, logger *slog.Logger, topN int) *Service {
	return &Service{repo: repo, lock: lock, logger: logger, topN: topN}
}

// Calculate recomputes the snapshot for a period from the vote ledger and
// persists it, replacing any prior snapshot. Recomputation over an unchanged
// ledger is idempotent. A redis lock keeps concurrent recalculations of the
// same period from interleaving their delete and insert phases.
func (s *Service) Calculate(ctx context.Context, monthYear string) (int, error) {
	if !shared.ValidPeriod(monthYear) {
		return 0, fmt.Errorf("winner: %w: invalid period %q", shared.ErrPhaseMismatch, monthYear)
	}

	key := shared.WinnerLockKey(monthYear)
	if err := s.lock.Acquire(ctx, key); err != nil {
		return 0, fmt.Errorf("winner: acquire lock: %w", err)
	}
	defer s.lock.Release(ctx, key)

	ranked, err := s.repo.RankedSubmissions(ctx, monthYear)
	if err != nil {
		return 0, err
	}
	if len(ranked) > s.topN {
		ranked = ranked[:s.topN]
	}
	if err := s.repo.ReplaceForPeriod(ctx, monthYear, ranked); err != nil {
		return 0, err
	}

	s.logger.Info("winners calculated",
		slog.String("month_year", monthYear),
		slog.Int("count", len(ranked)))
	return len(ranked), nil
}

// List returns the stored snapshot for a period.
func (s *Service) List(ctx context.Context, monthYear string) ([]Entry, error) {
	if !shared.ValidPeriod(monthYear) {
		return nil, fmt.Errorf("winner: %w: invalid period %q", shared.ErrNotFound, monthYear)
	}
	return s.repo.ListByPeriod(ctx, monthYear)
}

// historyTop caps how many entries each period carries on the history page.
const historyTop = 3

// History lists every period with a stored snapshot, newest first, each
// with its leading entries.
func (s *Service) History(ctx context.Context) ([]PeriodSummary, error) {
	periods, err := s.repo.ListPeriods(ctx)
	if err != nil {
		return nil, err
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := range periods {
		periods[i].MonthLabel = shared.MonthLabel(periods[i].MonthYear)
		g.Go(func() error {
			entries, err := s.repo.ListByPeriod(ctx, periods[i].MonthYear)
			if err != nil {
				return err
			}
			if len(entries) > historyTop {
				entries = entries[:historyTop]
			}
			periods[i].Top = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return periods, nil
}
