package auth

import (
	"context"
	"fmt"

	"github.com/movevote/movevote/internal/discord"
	"github.com/movevote/movevote/internal/shared"
)

// IdentityProvider is the contract consumed from the OAuth collaborator.
type IdentityProvider interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (discord.Profile, error)
	FetchGuildRoles(ctx context.Context, accessToken string) ([]string, error)
}

// Service wraps the login flow: code exchange, profile and role lookup, and
// the user upsert. Every step must succeed before a session is established.
type Service struct {
	provider IdentityProvider
	repo     Repository
}

// NewService constructs a new Service.
func NewService(provider IdentityProvider, repo Repository) *Service {
	return &Service{provider: provider, repo: repo}
}

// LoginURL returns the provider redirect for the given CSRF state.
func (s *Service) LoginURL(state string) string {
	return s.provider.AuthURL(state)
}

// CompleteLogin runs the full callback flow and returns the session payload.
func (s *Service) CompleteLogin(ctx context.Context, code string) (shared.SessionUser, error) {
	token, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return shared.SessionUser{}, fmt.Errorf("auth: exchange: %w", err)
	}

	profile, err := s.provider.FetchProfile(ctx, token)
	if err != nil {
		return shared.SessionUser{}, fmt.Errorf("auth: profile: %w", err)
	}

	roles, err := s.provider.FetchGuildRoles(ctx, token)
	if err != nil {
		return shared.SessionUser{}, fmt.Errorf("auth: roles: %w", err)
	}

	user, err := s.repo.UpsertByDiscordID(ctx, profile.ID, profile.Username, profile.Avatar)
	if err != nil {
		return shared.SessionUser{}, err
	}

	return shared.SessionUser{
		UserID:    user.ID,
		DiscordID: user.DiscordID,
		Username:  user.Username,
		Avatar:    user.Avatar,
		Roles:     roles,
	}, nil
}

// Lookup returns the stored user for an external id.
func (s *Service) Lookup(ctx context.Context, discordID string) (*User, error) {
	return s.repo.FindByDiscordID(ctx, discordID)
}
