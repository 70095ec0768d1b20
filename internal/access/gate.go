package access

import (
	"context"
	"fmt"

	"github.com/movevote/movevote/internal/shared"
)

// Gate derives authorization decisions. Block status is read from storage on
// every call; role and admin checks run against the injected config. Nothing
// is cached between requests.
type Gate struct {
	blocked BlockedRepository
	cfg     Config
}

// NewGate constructs a Gate.
func NewGate(blocked BlockedRepository, cfg Config) *Gate {
	return &Gate{blocked: blocked, cfg: cfg}
}

// IsBlocked reports whether the external id is barred from acting.
func (g *Gate) IsBlocked(ctx context.Context, discordID string) (bool, error) {
	return g.blocked.Exists(ctx, discordID)
}

// IsAdmin reports whether the external id is in the admin allow-list.
func (g *Gate) IsAdmin(discordID string) bool {
	for _, id := range g.cfg.AdminIDs {
		if id == discordID {
			return true
		}
	}
	return false
}

// HasRequiredRole reports whether roles satisfies the configured role set.
// An empty configured set means no restriction.
func (g *Gate) HasRequiredRole(roles []string) bool {
	if len(g.cfg.RequiredRoleIDs) == 0 {
		return true
	}
	for _, required := range g.cfg.RequiredRoleIDs {
		for _, have := range roles {
			if required == have {
				return true
			}
		}
	}
	return false
}

// Authorize runs the blocked and role predicates for a mutating request.
func (g *Gate) Authorize(ctx context.Context, discordID string, roles []string) error {
	blocked, err := g.IsBlocked(ctx, discordID)
	if err != nil {
		return err
	}
	if blocked {
		return fmt.Errorf("account is blocked: %w", shared.ErrForbidden)
	}
	if !g.HasRequiredRole(roles) {
		return fmt.Errorf("missing required role: %w", shared.ErrForbidden)
	}
	return nil
}
