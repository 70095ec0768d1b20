package vote

import (
	"context"
	"errors"
	"fmt"

	"github.com/movevote/movevote/internal/access"
	"github.com/movevote/movevote/internal/phase"
	"github.com/movevote/movevote/internal/shared"
)

// PhaseService is the slice of the phase engine the ledger consumes.
type PhaseService interface {
	RequirePhase(ctx context.Context, want phase.Phase) (phase.Info, error)
}

// Service enforces the vote ledger invariants.
type Service struct {
	repo     Repository
	gate     *access.Gate
	phases   PhaseService
	cache    *Cache
	maxVotes int
}

// NewService constructs a Service instance.
func NewService(repo Repository, gate *access.Gate, phases PhaseService, cache *Cache, maxVotes int) *Service {
	return &Service{repo: repo, gate: gate, phases: phases, cache: cache, maxVotes: maxVotes}
}

// Toggle casts or retracts a vote. Toggling twice returns the ledger to its
// original state; the budget invariant holds throughout.
func (s *Service) Toggle(ctx context.Context, user shared.SessionUser, monthYear, collectionID string) (*ToggleResult, error) {
	if err := s.gate.Authorize(ctx, user.DiscordID, user.Roles); err != nil {
		return nil, err
	}

	info, err := s.phases.RequirePhase(ctx, phase.PhaseVoting)
	if err != nil {
		if errors.Is(err, shared.ErrPhaseMismatch) {
			return nil, fmt.Errorf("voting is only allowed during the voting phase: %w", err)
		}
		return nil, err
	}
	if monthYear == "" {
		monthYear = info.MonthYear
	}
	if monthYear != info.MonthYear {
		return nil, fmt.Errorf("period %s is not open for voting: %w", monthYear, shared.ErrPhaseMismatch)
	}
	if collectionID == "" {
		return nil, fmt.Errorf("collection id required: %w", shared.ErrNotFound)
	}

	result, err := s.repo.Toggle(ctx, user.UserID, collectionID, monthYear, s.maxVotes)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, collectionID, monthYear)
	return result, nil
}

// UserVotes returns the collection ids the user voted for in a period.
func (s *Service) UserVotes(ctx context.Context, userID, monthYear string) ([]string, error) {
	return s.repo.UserVotes(ctx, userID, monthYear)
}

// CollectionCount returns the vote count for a collection, served from the
// cache when warm.
func (s *Service) CollectionCount(ctx context.Context, collectionID, monthYear string) (int, error) {
	return s.cache.Count(ctx, collectionID, monthYear, func(ctx context.Context) (int, error) {
		return s.repo.CollectionCount(ctx, collectionID, monthYear)
	})
}

// List returns all votes for a period.
func (s *Service) List(ctx context.Context, monthYear string) ([]Detail, error) {
	return s.repo.ListByPeriod(ctx, monthYear)
}

// MaxVotes exposes the configured budget.
func (s *Service) MaxVotes() int {
	return s.maxVotes
}
