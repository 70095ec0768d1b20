package auth

import "time"

// User is a community member known to the service, keyed internally by uuid
// and externally by their Discord id.
type User struct {
	ID        string    `json:"id"`
	DiscordID string    `json:"discordId"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
