// Package access holds the authorization predicates gating every ledger
// mutation: blocked users, the admin allow-list, and the required-role set.
package access

import "time"

// BlockedUser bars an external id from submitting and voting.
type BlockedUser struct {
	DiscordID string    `json:"discordId"`
	Reason    string    `json:"reason,omitempty"`
	BlockedBy string    `json:"blockedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Config carries the allow-lists read from the environment at startup. It is
// injected so tests can supply arbitrary sets.
type Config struct {
	AdminIDs        []string
	RequiredRoleIDs []string
}
