package winner

import (
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/movevote/movevote/internal/shared"
)

type memoryRepo struct {
	ranked    map[string][]Ranked
	snapshots map[string][]Entry
	replaces  int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		ranked:    make(map[string][]Ranked),
		snapshots: make(map[string][]Entry),
	}
}

func (r *memoryRepo) RankedSubmissions(ctx context.Context, monthYear string) ([]Ranked, error) {
	return r.ranked[monthYear], nil
}

func (r *memoryRepo) ReplaceForPeriod(ctx context.Context, monthYear string, ranked []Ranked) error {
	r.replaces++
	entries := make([]Entry, 0, len(ranked))
	for i, rk := range ranked {
		entries = append(entries, Entry{Winner: Winner{
			ID:           uuid.NewString(),
			CollectionID: rk.CollectionID,
			MonthYear:    monthYear,
			Rank:         i + 1,
			VoteCount:    rk.VoteCount,
		}})
	}
	r.snapshots[monthYear] = entries
	return nil
}

func (r *memoryRepo) ListByPeriod(ctx context.Context, monthYear string) ([]Entry, error) {
	return r.snapshots[monthYear], nil
}

func (r *memoryRepo) ListPeriods(ctx context.Context) ([]PeriodSummary, error) {
	var out []PeriodSummary
	for monthYear, entries := range r.snapshots {
		out = append(out, PeriodSummary{MonthYear: monthYear, Count: len(entries)})
	}
	return out, nil
}

func newTestService(repo Repository, topN int) *Service {
	return NewService(repo, nil, slog.Default(), topN)
}

func TestCalculateSnapshotsRanking(t *testing.T) {
	repo := newMemoryRepo()
	repo.ranked["2025-03"] = []Ranked{
		{CollectionID: "a", VoteCount: 9},
		{CollectionID: "b", VoteCount: 4},
		{CollectionID: "c", VoteCount: 0},
	}
	svc := newTestService(repo, 50)

	count, err := svc.Calculate(context.Background(), "2025-03")
	require.NoError(t, err)
	require.Equal(t, 3, count)

	entries, err := svc.List(context.Background(), "2025-03")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, "a", entries[0].CollectionID)
	require.Equal(t, 3, entries[2].Rank)
}

func TestCalculateTruncatesToTopN(t *testing.T) {
	repo := newMemoryRepo()
	for i := 0; i < 60; i++ {
		repo.ranked["2025-03"] = append(repo.ranked["2025-03"],
			Ranked{CollectionID: uuid.NewString(), VoteCount: 60 - i})
	}
	svc := newTestService(repo, 50)

	count, err := svc.Calculate(context.Background(), "2025-03")
	require.NoError(t, err)
	require.Equal(t, 50, count)
	require.Len(t, repo.snapshots["2025-03"], 50)
}

func TestCalculateIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	repo.ranked["2025-03"] = []Ranked{
		{CollectionID: "a", VoteCount: 2},
		{CollectionID: "b", VoteCount: 1},
	}
	svc := newTestService(repo, 50)

	_, err := svc.Calculate(context.Background(), "2025-03")
	require.NoError(t, err)
	first := repo.snapshots["2025-03"]

	_, err = svc.Calculate(context.Background(), "2025-03")
	require.NoError(t, err)
	second := repo.snapshots["2025-03"]

	require.Equal(t, 2, repo.replaces)
	require.Len(t, second, len(first))
	for i := range first {
		require.Equal(t, first[i].CollectionID, second[i].CollectionID)
		require.Equal(t, first[i].Rank, second[i].Rank)
		require.Equal(t, first[i].VoteCount, second[i].VoteCount)
	}
}

func TestCalculateRejectsMalformedPeriod(t *testing.T) {
	svc := newTestService(newMemoryRepo(), 50)
	_, err := svc.Calculate(context.Background(), "march-2025")
	require.Error(t, err)
}

func TestCalculateFailsFastWhenLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lock := shared.NewPeriodLock(client, 0)
	ctx := context.Background()
	require.NoError(t, lock.Acquire(ctx, shared.WinnerLockKey("2025-03")))

	repo := newMemoryRepo()
	svc := NewService(repo, lock, slog.Default(), 50)
	_, err := svc.Calculate(ctx, "2025-03")
	require.ErrorIs(t, err, shared.ErrLockHeld)
	require.Zero(t, repo.replaces)

	lock.Release(ctx, shared.WinnerLockKey("2025-03"))
	_, err = svc.Calculate(ctx, "2025-03")
	require.NoError(t, err)
}

func TestHistoryCapsTopEntries(t *testing.T) {
	repo := newMemoryRepo()
	repo.ranked["2025-02"] = []Ranked{
		{CollectionID: "a", VoteCount: 5},
		{CollectionID: "b", VoteCount: 4},
		{CollectionID: "c", VoteCount: 3},
		{CollectionID: "d", VoteCount: 2},
	}
	svc := newTestService(repo, 50)
	_, err := svc.Calculate(context.Background(), "2025-02")
	require.NoError(t, err)

	periods, err := svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, periods, 1)
	require.Equal(t, "2025-02", periods[0].MonthYear)
	require.Equal(t, "February 2025", periods[0].MonthLabel)
	require.Equal(t, 4, periods[0].Count)
	require.Len(t, periods[0].Top, 3)
}
