package submission

import (
	"context"
	"errors"
	"fmt"

	"github.com/movevote/movevote/internal/access"
	"github.com/movevote/movevote/internal/phase"
	"github.com/movevote/movevote/internal/shared"
	"github.com/movevote/movevote/internal/tradeport"
)

// PhaseService is the slice of the phase engine the ledger consumes.
type PhaseService interface {
	RequirePhase(ctx context.Context, want phase.Phase) (phase.Info, error)
}

// VoteReader supplies vote data for the collections listing. Counts come
// through here so listings share the vote ledger's count cache.
type VoteReader interface {
	UserVotes(ctx context.Context, userID, monthYear string) ([]string, error)
	CollectionCount(ctx context.Context, collectionID, monthYear string) (int, error)
}

// Service enforces the submission ledger invariants.
type Service struct {
	repo   Repository
	gate   *access.Gate
	phases PhaseService
	source tradeport.Source
	votes  VoteReader
}

// NewService constructs a Service instance.
func NewService(repo Repository, gate *access.Gate, phases PhaseService, source tradeport.Source, votes VoteReader) *Service {
	return &Service{repo: repo, gate: gate, phases: phases, source: source, votes: votes}
}

// Submit records a nomination. Preconditions run in order and the first
// failure wins; the external metadata lookup happens before the
// transactional write so no lock is held across the network call.
func (s *Service) Submit(ctx context.Context, user shared.SessionUser, monthYear, contractAddress string) (*Detail, error) {
	if err := s.gate.Authorize(ctx, user.DiscordID, user.Roles); err != nil {
		return nil, err
	}

	info, err := s.phases.RequirePhase(ctx, phase.PhaseSubmission)
	if err != nil {
		if errors.Is(err, shared.ErrPhaseMismatch) {
			return nil, fmt.Errorf("submissions are only allowed during the submission phase: %w", err)
		}
		return nil, err
	}
	if monthYear == "" {
		monthYear = info.MonthYear
	}
	if monthYear != info.MonthYear {
		return nil, fmt.Errorf("period %s is not open for submissions: %w", monthYear, shared.ErrPhaseMismatch)
	}

	address := tradeport.NormalizeAddress(contractAddress)
	if !tradeport.ValidAddress(address) {
		return nil, fmt.Errorf("invalid contract address format: %w", shared.ErrExternalValidation)
	}

	existing, err := s.repo.FindUserSubmission(ctx, user.UserID, monthYear)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("already submitted %q this period: %w", existing.Collection.Name, shared.ErrDuplicate)
	}

	taken, err := s.repo.CollectionSubmitted(ctx, address, monthYear)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("collection was already submitted this period: %w", shared.ErrDuplicate)
	}

	validation, err := s.source.Lookup(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("submission: metadata lookup: %w", err)
	}
	if !validation.Exists {
		return nil, fmt.Errorf("collection not found on the marketplace: %w", shared.ErrExternalValidation)
	}
	if !validation.Verified {
		return nil, fmt.Errorf("only verified collections can be submitted: %w", shared.ErrExternalValidation)
	}

	return s.repo.CreateWithCollection(ctx, user.UserID, monthYear, *validation.Metadata)
}

// RefreshPeriod re-fetches marketplace metadata for every collection
// nominated in the period. Lookup failures for individual collections are
// skipped so one flaky address does not starve the rest.
func (s *Service) RefreshPeriod(ctx context.Context, monthYear string) (int, error) {
	views, err := s.repo.ListPeriodCollections(ctx, monthYear)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, v := range views {
		validation, err := s.source.Lookup(ctx, v.ContractAddress)
		if err != nil || !validation.Exists || validation.Metadata == nil {
			continue
		}
		if err := s.repo.UpdateCollectionMetadata(ctx, v.ID, *validation.Metadata); err != nil {
			return refreshed, err
		}
		refreshed++
	}
	return refreshed, nil
}

// List returns all submissions for a period.
func (s *Service) List(ctx context.Context, monthYear string) ([]Detail, error) {
	return s.repo.ListByPeriod(ctx, monthYear)
}

// ListCollections composes the voting-page listing: every nominated
// collection with its vote count, plus the caller's votes and own
// nomination when authenticated.
func (s *Service) ListCollections(ctx context.Context, monthYear string, user *shared.SessionUser) (*Listing, error) {
	views, err := s.repo.ListPeriodCollections(ctx, monthYear)
	if err != nil {
		return nil, err
	}
	for i := range views {
		count, err := s.votes.CollectionCount(ctx, views[i].ID, monthYear)
		if err != nil {
			return nil, err
		}
		views[i].VoteCount = count
	}

	listing := &Listing{Collections: views}
	if user == nil {
		return listing, nil
	}

	voted, err := s.votes.UserVotes(ctx, user.UserID, monthYear)
	if err != nil {
		return nil, err
	}
	votedSet := make(map[string]bool, len(voted))
	for _, id := range voted {
		votedSet[id] = true
	}
	for i := range listing.Collections {
		listing.Collections[i].HasVoted = votedSet[listing.Collections[i].ID]
	}
	listing.UserVoteCount = len(voted)

	own, err := s.repo.FindUserSubmission(ctx, user.UserID, monthYear)
	if err != nil {
		return nil, err
	}
	listing.UserSubmission = own

	return listing, nil
}
