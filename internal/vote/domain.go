// Package vote implements the vote ledger: a per-user budget of toggleable
// votes, one per collection per period.
package vote

import "time"

// Vote links one user to one collection within one period.
type Vote struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	CollectionID string    `json:"collectionId"`
	MonthYear    string    `json:"monthYear"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ToggleAction names the outcome of a toggle.
type ToggleAction string

const (
	ActionAdded   ToggleAction = "added"
	ActionRemoved ToggleAction = "removed"
)

// ToggleResult reports the toggle outcome and the caller's remaining budget.
type ToggleResult struct {
	Action         ToggleAction `json:"action"`
	VotesRemaining int          `json:"votesRemaining"`
}

// Detail is a vote joined with voter and collection names, for admin listings.
type Detail struct {
	Vote
	Username       string `json:"username"`
	DiscordID      string `json:"discordId"`
	CollectionName string `json:"collectionName"`
}
