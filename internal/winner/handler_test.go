package winner

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestListWinnersDefaultsToCurrentPeriod(t *testing.T) {
	repo := newMemoryRepo()
	repo.snapshots["2025-03"] = []Entry{
		{Winner: Winner{CollectionID: "c1", MonthYear: "2025-03", Rank: 1, VoteCount: 9}},
	}
	svc := NewService(repo, nil, slog.Default(), 50)

	r := chi.NewRouter()
	NewHandler(slog.Default(), svc).WithNow(func() time.Time {
		return time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)
	}).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/winners", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		MonthYear  string  `json:"monthYear"`
		MonthLabel string  `json:"monthLabel"`
		Winners    []Entry `json:"winners"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "2025-03", resp.MonthYear)
	require.Equal(t, "March 2025", resp.MonthLabel)
	require.Len(t, resp.Winners, 1)
	require.Equal(t, "c1", resp.Winners[0].CollectionID)
}

func TestListWinnersRejectsMalformedPeriod(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, slog.Default(), 50)

	r := chi.NewRouter()
	NewHandler(slog.Default(), svc).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/winners?monthYear=2025-3", nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	repo.snapshots["2025-02"] = []Entry{
		{Winner: Winner{CollectionID: "c1", MonthYear: "2025-02", Rank: 1, VoteCount: 5}},
	}
	svc := NewService(repo, nil, slog.Default(), 50)

	r := chi.NewRouter()
	NewHandler(slog.Default(), svc).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Periods []PeriodSummary `json:"periods"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Periods, 1)
	require.Equal(t, "February 2025", resp.Periods[0].MonthLabel)
	require.Len(t, resp.Periods[0].Top, 1)
}
