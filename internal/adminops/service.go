package adminops

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/movevote/movevote/internal/access"
	"github.com/movevote/movevote/internal/phase"
	"github.com/movevote/movevote/internal/shared"
	"github.com/movevote/movevote/internal/vote"
	"github.com/movevote/movevote/jobs"
)

// PhaseControl is the slice of the phase engine admins drive.
type PhaseControl interface {
	Current(ctx context.Context) (phase.Info, error)
	SetOverride(ctx context.Context, monthYear string, p phase.Phase, durationHours int) (*time.Time, error)
	ClearOverride(ctx context.Context, monthYear string) error
}

// TaskQueue enqueues background work.
type TaskQueue interface {
	EnqueueWinnersRecalc(ctx context.Context, payload jobs.WinnersRecalcPayload) (*asynq.TaskInfo, error)
	EnqueueMetadataRefresh(ctx context.Context, payload jobs.MetadataRefreshPayload) (*asynq.TaskInfo, error)
}

// VoteLister exposes the raw vote ledger for admin listings.
type VoteLister interface {
	List(ctx context.Context, monthYear string) ([]vote.Detail, error)
}

// Service runs admin-only operations. Every entry point re-checks the
// caller against the admin allow-list.
type Service struct {
	repo    Repository
	gate    *access.Gate
	phases  PhaseControl
	blocked access.BlockedRepository
	votes   VoteLister
	queue   TaskQueue
	logger  *slog.Logger
}

// NewService constructs an admin service.
func NewService(repo Repository, gate *access.Gate, phases PhaseControl, blocked access.BlockedRepository, votes VoteLister, queue TaskQueue, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		gate:    gate,
		phases:  phases,
		blocked: blocked,
		votes:   votes,
		queue:   queue,
		logger:  logger,
	}
}

func (s *Service) requireAdmin(user shared.SessionUser) error {
	if !s.gate.IsAdmin(user.DiscordID) {
		return fmt.Errorf("admin access required: %w", shared.ErrForbidden)
	}
	return nil
}

// OverridePhase forces the effective phase for a period. An empty monthYear
// targets the current natural period.
func (s *Service) OverridePhase(ctx context.Context, user shared.SessionUser, monthYear string, p phase.Phase, durationHours int) (string, *time.Time, error) {
	if err := s.requireAdmin(user); err != nil {
		return "", nil, err
	}
	if monthYear == "" {
		info, err := s.phases.Current(ctx)
		if err != nil {
			return "", nil, err
		}
		monthYear = info.MonthYear
	}
	expiresAt, err := s.phases.SetOverride(ctx, monthYear, p, durationHours)
	if err != nil {
		return "", nil, err
	}
	s.logger.Info("phase override set",
		slog.String("admin", user.DiscordID),
		slog.String("month_year", monthYear),
		slog.String("phase", string(p)))
	return monthYear, expiresAt, nil
}

// ClearOverride removes any override for the period, restoring the calendar.
func (s *Service) ClearOverride(ctx context.Context, user shared.SessionUser, monthYear string) (string, error) {
	if err := s.requireAdmin(user); err != nil {
		return "", err
	}
	if monthYear == "" {
		info, err := s.phases.Current(ctx)
		if err != nil {
			return "", err
		}
		monthYear = info.MonthYear
	}
	if err := s.phases.ClearOverride(ctx, monthYear); err != nil {
		return "", err
	}
	s.logger.Info("phase override cleared",
		slog.String("admin", user.DiscordID),
		slog.String("month_year", monthYear))
	return monthYear, nil
}

// CalculateWinners queues a snapshot recompute for the period. An empty
// monthYear targets the current natural period.
func (s *Service) CalculateWinners(ctx context.Context, user shared.SessionUser, monthYear string) (string, error) {
	if err := s.requireAdmin(user); err != nil {
		return "", err
	}
	if monthYear == "" {
		info, err := s.phases.Current(ctx)
		if err != nil {
			return "", err
		}
		monthYear = info.MonthYear
	}
	if !shared.ValidPeriod(monthYear) {
		return "", fmt.Errorf("invalid period %q: %w", monthYear, shared.ErrNotFound)
	}
	if _, err := s.queue.EnqueueWinnersRecalc(ctx, jobs.WinnersRecalcPayload{MonthYear: monthYear}); err != nil {
		return "", fmt.Errorf("adminops: enqueue recalc: %w", err)
	}
	s.logger.Info("winners recalc queued",
		slog.String("admin", user.DiscordID),
		slog.String("month_year", monthYear))
	return monthYear, nil
}

// RefreshMetadata queues a marketplace metadata refresh for the period. An
// empty monthYear targets the current natural period.
func (s *Service) RefreshMetadata(ctx context.Context, user shared.SessionUser, monthYear string) (string, error) {
	if err := s.requireAdmin(user); err != nil {
		return "", err
	}
	if monthYear == "" {
		info, err := s.phases.Current(ctx)
		if err != nil {
			return "", err
		}
		monthYear = info.MonthYear
	}
	if !shared.ValidPeriod(monthYear) {
		return "", fmt.Errorf("invalid period %q: %w", monthYear, shared.ErrNotFound)
	}
	if _, err := s.queue.EnqueueMetadataRefresh(ctx, jobs.MetadataRefreshPayload{MonthYear: monthYear}); err != nil {
		return "", fmt.Errorf("adminops: enqueue refresh: %w", err)
	}
	s.logger.Info("metadata refresh queued",
		slog.String("admin", user.DiscordID),
		slog.String("month_year", monthYear))
	return monthYear, nil
}

// ClearData scrubs the selected ledgers for a period.
func (s *Service) ClearData(ctx context.Context, user shared.SessionUser, monthYear string, scope ClearScope) (ClearCounts, error) {
	if err := s.requireAdmin(user); err != nil {
		return ClearCounts{}, err
	}
	if !shared.ValidPeriod(monthYear) {
		return ClearCounts{}, fmt.Errorf("invalid period %q: %w", monthYear, shared.ErrNotFound)
	}
	if !scope.Valid() {
		return ClearCounts{}, fmt.Errorf("unknown scope %q: %w", scope, shared.ErrNotFound)
	}
	counts, err := s.repo.ClearPeriod(ctx, monthYear, scope)
	if err != nil {
		return counts, err
	}
	s.logger.Warn("period data cleared",
		slog.String("admin", user.DiscordID),
		slog.String("month_year", monthYear),
		slog.String("scope", string(scope)),
		slog.Int64("votes", counts.Votes),
		slog.Int64("submissions", counts.Submissions),
		slog.Int64("winners", counts.Winners))
	return counts, nil
}

// DeleteSubmission removes one nomination and its votes.
func (s *Service) DeleteSubmission(ctx context.Context, user shared.SessionUser, submissionID string) error {
	if err := s.requireAdmin(user); err != nil {
		return err
	}
	if err := s.repo.DeleteSubmission(ctx, submissionID); err != nil {
		return err
	}
	s.logger.Warn("submission deleted",
		slog.String("admin", user.DiscordID),
		slog.String("submission_id", submissionID))
	return nil
}

// BlockUser bars a discord id from acting. Blocking an already-blocked id
// reports a conflict.
func (s *Service) BlockUser(ctx context.Context, user shared.SessionUser, discordID, reason string) error {
	if err := s.requireAdmin(user); err != nil {
		return err
	}
	err := s.blocked.Insert(ctx, access.BlockedUser{
		DiscordID: discordID,
		Reason:    reason,
		BlockedBy: user.DiscordID,
	})
	if err != nil {
		return err
	}
	s.logger.Warn("user blocked",
		slog.String("admin", user.DiscordID),
		slog.String("discord_id", discordID))
	return nil
}

// UnblockUser lifts a block. Unblocking an absent id succeeds.
func (s *Service) UnblockUser(ctx context.Context, user shared.SessionUser, discordID string) error {
	if err := s.requireAdmin(user); err != nil {
		return err
	}
	if err := s.blocked.Delete(ctx, discordID); err != nil {
		return err
	}
	s.logger.Info("user unblocked",
		slog.String("admin", user.DiscordID),
		slog.String("discord_id", discordID))
	return nil
}

// ListBlocked returns the blocked-user list.
func (s *Service) ListBlocked(ctx context.Context, user shared.SessionUser) ([]access.BlockedUser, error) {
	if err := s.requireAdmin(user); err != nil {
		return nil, err
	}
	return s.blocked.List(ctx)
}

// ListVotes returns the period's raw vote ledger.
func (s *Service) ListVotes(ctx context.Context, user shared.SessionUser, monthYear string) ([]vote.Detail, error) {
	if err := s.requireAdmin(user); err != nil {
		return nil, err
	}
	return s.votes.List(ctx, monthYear)
}
