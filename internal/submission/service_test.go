package submission

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/movevote/movevote/internal/access"
	"github.com/movevote/movevote/internal/phase"
	"github.com/movevote/movevote/internal/shared"
	"github.com/movevote/movevote/internal/tradeport"
)

type memoryRepo struct {
	details []Detail
	updated map[string]tradeport.Metadata
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{updated: make(map[string]tradeport.Metadata)}
}

func (r *memoryRepo) FindUserSubmission(ctx context.Context, userID, monthYear string) (*Detail, error) {
	for i := range r.details {
		if r.details[i].UserID == userID && r.details[i].MonthYear == monthYear {
			return &r.details[i], nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) CollectionSubmitted(ctx context.Context, normalizedAddress, monthYear string) (bool, error) {
	for _, d := range r.details {
		if d.Collection.ContractAddress == normalizedAddress && d.MonthYear == monthYear {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) CreateWithCollection(ctx context.Context, userID, monthYear string, meta tradeport.Metadata) (*Detail, error) {
	for _, d := range r.details {
		if d.MonthYear != monthYear {
			continue
		}
		if d.UserID == userID || d.Collection.ContractAddress == meta.ContractAddress {
			return nil, shared.ErrDuplicate
		}
	}
	d := Detail{
		Submission: Submission{
			ID:           uuid.NewString(),
			UserID:       userID,
			CollectionID: uuid.NewString(),
			MonthYear:    monthYear,
			CreatedAt:    time.Now(),
		},
		Collection: Collection{
			ID:              uuid.NewString(),
			ContractAddress: meta.ContractAddress,
			Name:            meta.Name,
		},
	}
	d.Collection.ID = d.Submission.CollectionID
	r.details = append(r.details, d)
	return &d, nil
}

func (r *memoryRepo) ListByPeriod(ctx context.Context, monthYear string) ([]Detail, error) {
	var out []Detail
	for _, d := range r.details {
		if d.MonthYear == monthYear {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListPeriodCollections(ctx context.Context, monthYear string) ([]CollectionView, error) {
	var out []CollectionView
	for _, d := range r.details {
		if d.MonthYear == monthYear {
			out = append(out, CollectionView{Collection: d.Collection})
		}
	}
	return out, nil
}

func (r *memoryRepo) UpdateCollectionMetadata(ctx context.Context, collectionID string, meta tradeport.Metadata) error {
	r.updated[collectionID] = meta
	return nil
}

type stubPhases struct {
	info phase.Info
}

func (s stubPhases) RequirePhase(ctx context.Context, want phase.Phase) (phase.Info, error) {
	if s.info.Phase != want {
		return s.info, shared.ErrPhaseMismatch
	}
	return s.info, nil
}

type stubSource struct {
	validations map[string]tradeport.Validation
}

func (s stubSource) Lookup(ctx context.Context, address string) (tradeport.Validation, error) {
	return s.validations[address], nil
}

type stubVotes struct {
	votes  map[string][]string
	counts map[string]int
}

func (s stubVotes) UserVotes(ctx context.Context, userID, monthYear string) ([]string, error) {
	return s.votes[userID], nil
}

func (s stubVotes) CollectionCount(ctx context.Context, collectionID, monthYear string) (int, error) {
	return s.counts[collectionID], nil
}

type blockedRepoStub struct{ blocked map[string]bool }

func (r blockedRepoStub) Exists(ctx context.Context, discordID string) (bool, error) {
	return r.blocked[discordID], nil
}
func (r blockedRepoStub) Insert(ctx context.Context, b access.BlockedUser) error { return nil }
func (r blockedRepoStub) Delete(ctx context.Context, discordID string) error     { return nil }
func (r blockedRepoStub) List(ctx context.Context) ([]access.BlockedUser, error) { return nil, nil }

const testAddress = "0x00112233445566778899aabbccddeeff0011223344556677"

func verifiedSource(addr string) stubSource {
	return stubSource{validations: map[string]tradeport.Validation{
		addr: {
			Exists:   true,
			Verified: true,
			Metadata: &tradeport.Metadata{ContractAddress: addr, Name: "Test Collection"},
		},
	}}
}

func submissionInfo() phase.Info {
	return phase.Info{Phase: phase.PhaseSubmission, MonthYear: "2025-03"}
}

func newTestService(repo Repository, info phase.Info, source tradeport.Source, blocked map[string]bool) *Service {
	gate := access.NewGate(blockedRepoStub{blocked: blocked}, access.Config{})
	return NewService(repo, gate, stubPhases{info: info}, source, stubVotes{})
}

func testUser() shared.SessionUser {
	return shared.SessionUser{UserID: uuid.NewString(), DiscordID: "1000", Username: "alice"}
}

func TestSubmitHappyPath(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, submissionInfo(), verifiedSource(testAddress), nil)

	detail, err := svc.Submit(context.Background(), testUser(), "", strings.ToUpper(testAddress))
	require.NoError(t, err)
	require.Equal(t, "2025-03", detail.MonthYear)
	require.Equal(t, testAddress, detail.Collection.ContractAddress)
}

func TestSubmitOutsideSubmissionPhase(t *testing.T) {
	repo := newMemoryRepo()
	info := phase.Info{Phase: phase.PhaseVoting, MonthYear: "2025-03"}
	svc := newTestService(repo, info, verifiedSource(testAddress), nil)

	_, err := svc.Submit(context.Background(), testUser(), "", testAddress)
	require.ErrorIs(t, err, shared.ErrPhaseMismatch)
}

func TestSubmitPeriodMismatch(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, submissionInfo(), verifiedSource(testAddress), nil)

	_, err := svc.Submit(context.Background(), testUser(), "2025-04", testAddress)
	require.ErrorIs(t, err, shared.ErrPhaseMismatch)
}

func TestSubmitRejectsSecondSubmission(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, submissionInfo(), verifiedSource(testAddress), nil)
	user := testUser()

	_, err := svc.Submit(context.Background(), user, "", testAddress)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), user, "", testAddress)
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestSubmitRejectsTakenCollection(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, submissionInfo(), verifiedSource(testAddress), nil)

	_, err := svc.Submit(context.Background(), testUser(), "", testAddress)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), testUser(), "", testAddress)
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestSubmitRejectsMalformedAddress(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, submissionInfo(), verifiedSource(testAddress), nil)

	_, err := svc.Submit(context.Background(), testUser(), "", "not-an-address")
	require.ErrorIs(t, err, shared.ErrExternalValidation)
	require.Empty(t, repo.details)
}

func TestSubmitRejectsUnknownCollection(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, submissionInfo(), stubSource{}, nil)

	_, err := svc.Submit(context.Background(), testUser(), "", testAddress)
	require.ErrorIs(t, err, shared.ErrExternalValidation)
}

func TestSubmitRejectsUnverifiedCollection(t *testing.T) {
	repo := newMemoryRepo()
	source := stubSource{validations: map[string]tradeport.Validation{
		testAddress: {Exists: true, Verified: false, Metadata: &tradeport.Metadata{ContractAddress: testAddress}},
	}}
	svc := newTestService(repo, submissionInfo(), source, nil)

	_, err := svc.Submit(context.Background(), testUser(), "", testAddress)
	require.ErrorIs(t, err, shared.ErrExternalValidation)
}

func TestSubmitRejectsBlockedUser(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, submissionInfo(), verifiedSource(testAddress), map[string]bool{"1000": true})

	_, err := svc.Submit(context.Background(), testUser(), "", testAddress)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestListCollectionsCountsComeFromVoteLedger(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, submissionInfo(), verifiedSource(testAddress), nil)
	user := testUser()

	detail, err := svc.Submit(context.Background(), user, "", testAddress)
	require.NoError(t, err)

	votes := stubVotes{
		votes:  map[string][]string{user.UserID: {detail.Collection.ID}},
		counts: map[string]int{detail.Collection.ID: 12},
	}
	gate := access.NewGate(blockedRepoStub{}, access.Config{})
	svc = NewService(repo, gate, stubPhases{info: submissionInfo()}, verifiedSource(testAddress), votes)

	listing, err := svc.ListCollections(context.Background(), "2025-03", &user)
	require.NoError(t, err)
	require.Len(t, listing.Collections, 1)
	require.Equal(t, 12, listing.Collections[0].VoteCount)
	require.True(t, listing.Collections[0].HasVoted)
	require.Equal(t, 1, listing.UserVoteCount)
	require.NotNil(t, listing.UserSubmission)
}

func TestRefreshPeriodSkipsFailedLookups(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, submissionInfo(), verifiedSource(testAddress), nil)

	detail, err := svc.Submit(context.Background(), testUser(), "", testAddress)
	require.NoError(t, err)

	// A collection whose marketplace lookup no longer resolves.
	repo.details = append(repo.details, Detail{
		Submission: Submission{ID: uuid.NewString(), UserID: uuid.NewString(), MonthYear: "2025-03"},
		Collection: Collection{ID: uuid.NewString(), ContractAddress: "0x" + strings.Repeat("ff", 24)},
	})

	refreshed, err := svc.RefreshPeriod(context.Background(), "2025-03")
	require.NoError(t, err)
	require.Equal(t, 1, refreshed)
	require.Contains(t, repo.updated, detail.Collection.ID)
}
