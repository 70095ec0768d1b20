// Package submission implements the nomination ledger: one submission per
// user per period, one submission per collection per period.
package submission

import "time"

// Collection is a nominated NFT collection, identified by its normalized
// contract address and shared across periods.
type Collection struct {
	ID              string    `json:"id"`
	ContractAddress string    `json:"contractAddress"`
	Name            string    `json:"name"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	Description     string    `json:"description,omitempty"`
	TwitterURL      string    `json:"twitterUrl,omitempty"`
	TradeportURL    string    `json:"tradeportUrl,omitempty"`
	FloorPrice      *int64    `json:"floorPrice,omitempty"`
	Volume          *int64    `json:"volume,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Submission links one user to one collection within one period.
type Submission struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	CollectionID string    `json:"collectionId"`
	MonthYear    string    `json:"monthYear"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Detail is a submission joined with its collection and submitter.
type Detail struct {
	Submission
	Collection Collection `json:"collection"`
	Username   string     `json:"username"`
	DiscordID  string     `json:"discordId"`
}

// CollectionView is the listing shape for the voting page: the collection
// with its live vote count and whether the current user voted for it.
type CollectionView struct {
	Collection
	VoteCount int  `json:"voteCount"`
	HasVoted  bool `json:"hasVoted"`
}

// Listing is the full response for a period's collections.
type Listing struct {
	Collections    []CollectionView `json:"collections"`
	UserVoteCount  int              `json:"userVoteCount"`
	UserSubmission *Detail          `json:"userSubmission,omitempty"`
}
