package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/movevote/movevote/internal/jobs"
	"github.com/movevote/movevote/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskWinnersRecalc recomputes a period's winner snapshot.
	TaskWinnersRecalc = "winners:recalc"
	// TaskMetadataRefresh re-fetches marketplace metadata for a period's
	// nominated collections.
	TaskMetadataRefresh = "collections:refresh"
)

// WinnersRecalcPayload names the period to recompute. An empty MonthYear
// means the period before the one the task runs in, which is what the
// monthly cron wants.
type WinnersRecalcPayload struct {
	MonthYear string `json:"monthYear,omitempty"`
}

// NewWinnersRecalcTask constructs a winners recompute task.
func NewWinnersRecalcTask(payload WinnersRecalcPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWinnersRecalc, data), nil
}

// WinnerCalculator recomputes a period's snapshot.
type WinnerCalculator interface {
	Calculate(ctx context.Context, monthYear string) (int, error)
}

// NewWinnersRecalcHandler builds the handler for TaskWinnersRecalc. A nil
// metrics value disables instrumentation.
func NewWinnersRecalcHandler(calc WinnerCalculator, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload WinnersRecalcPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		monthYear := payload.MonthYear
		if monthYear == "" {
			prev, err := shared.PreviousPeriod(shared.PeriodKey(time.Now().UTC()))
			if err != nil {
				return asynq.SkipRetry
			}
			monthYear = prev
		}
		tr := metrics.Track(TaskWinnersRecalc)
		count, err := calc.Calculate(ctx, monthYear)
		if err := tr.End(err); err != nil {
			logger.Error("winners recalc failed",
				slog.String("month_year", monthYear),
				slog.Any("error", err))
			return err
		}
		logger.Info("winners recalc done",
			slog.String("month_year", monthYear),
			slog.Int("count", count))
		return nil
	}
}

// MetadataRefreshPayload names the period whose collections to refresh.
type MetadataRefreshPayload struct {
	MonthYear string `json:"monthYear,omitempty"`
}

// NewMetadataRefreshTask constructs a metadata refresh task.
func NewMetadataRefreshTask(payload MetadataRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMetadataRefresh, data), nil
}

// MetadataRefresher re-fetches marketplace data for a period's collections.
type MetadataRefresher interface {
	RefreshPeriod(ctx context.Context, monthYear string) (int, error)
}

// NewMetadataRefreshHandler builds the handler for TaskMetadataRefresh.
func NewMetadataRefreshHandler(ref MetadataRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload MetadataRefreshPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		monthYear := payload.MonthYear
		if monthYear == "" {
			monthYear = shared.PeriodKey(time.Now().UTC())
		}
		tr := metrics.Track(TaskMetadataRefresh)
		refreshed, err := ref.RefreshPeriod(ctx, monthYear)
		if err := tr.End(err); err != nil {
			logger.Error("metadata refresh failed",
				slog.String("month_year", monthYear),
				slog.Any("error", err))
			return err
		}
		logger.Info("metadata refresh done",
			slog.String("month_year", monthYear),
			slog.Int("refreshed", refreshed))
		return nil
	}
}
