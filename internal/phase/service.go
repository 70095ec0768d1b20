package phase

import (
	"context"
	"log/slog"
	"time"

	"github.com/movevote/movevote/internal/shared"
)

// Service is the single source of truth for the effective phase. It prefers
// a live override for the natural period and falls back to the calendar
// resolver, lazily evicting overrides that have lapsed.
type Service struct {
	repo   OverrideRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo OverrideRepository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Current returns the effective phase right now.
func (s *Service) Current(ctx context.Context) (Info, error) {
	now := s.now()
	natural := Resolve(now)

	override, err := s.repo.Get(ctx, natural.MonthYear)
	if err != nil {
		// The schedule must keep answering even when the override store
		// is unreachable.
		if s.logger != nil {
			s.logger.Warn("phase override lookup failed", slog.Any("error", err))
		}
		return natural, nil
	}
	if override == nil {
		return natural, nil
	}

	if override.Expired(now) {
		// Evict before computing the fallback so a concurrent reader
		// cannot observe the stale override after this point. The
		// delete is a no-op when another request got there first.
		if err := s.repo.Delete(ctx, natural.MonthYear); err != nil && s.logger != nil {
			s.logger.Warn("expired override eviction failed", slog.Any("error", err))
		}
		return natural, nil
	}

	endTime := naturalEnd(override.Phase, now)
	if override.ExpiresAt != nil {
		endTime = *override.ExpiresAt
	}

	return Info{
		Phase:         override.Phase,
		PhaseLabel:    override.Phase.Label(),
		MonthYear:     natural.MonthYear,
		MonthLabel:    natural.MonthLabel,
		StartTime:     now,
		EndTime:       endTime,
		TimeRemaining: remainingMillis(now, endTime),
		IsOverridden:  true,
	}, nil
}

// SetOverride upserts an override for the period. A zero durationHours means
// the override holds until explicitly cleared.
func (s *Service) SetOverride(ctx context.Context, monthYear string, p Phase, durationHours int) (*time.Time, error) {
	if !shared.ValidPeriod(monthYear) {
		return nil, ErrInvalidPeriod
	}
	if !p.Valid() {
		return nil, ErrInvalidPhase
	}
	var expiresAt *time.Time
	if durationHours > 0 {
		t := s.now().Add(time.Duration(durationHours) * time.Hour)
		expiresAt = &t
	}
	if err := s.repo.Upsert(ctx, monthYear, p, expiresAt); err != nil {
		return nil, err
	}
	return expiresAt, nil
}

// ClearOverride deletes the override; subsequent queries follow the calendar.
func (s *Service) ClearOverride(ctx context.Context, monthYear string) error {
	if !shared.ValidPeriod(monthYear) {
		return ErrInvalidPeriod
	}
	return s.repo.Delete(ctx, monthYear)
}

// RequirePhase verifies the effective phase matches want.
func (s *Service) RequirePhase(ctx context.Context, want Phase) (Info, error) {
	info, err := s.Current(ctx)
	if err != nil {
		return Info{}, err
	}
	if info.Phase != want {
		return info, shared.ErrPhaseMismatch
	}
	return info, nil
}
