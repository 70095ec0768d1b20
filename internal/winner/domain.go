// Package winner computes and serves the persisted ranking snapshot for a
// closed voting period.
package winner

import "time"

// Winner is one ranked entry in a period's snapshot.
type Winner struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collectionId"`
	MonthYear    string    `json:"monthYear"`
	Rank         int       `json:"rank"`
	VoteCount    int       `json:"voteCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Entry is a winner joined with its collection and submitter.
type Entry struct {
	Winner
	ContractAddress string `json:"contractAddress"`
	Name            string `json:"name"`
	ImageURL        string `json:"imageUrl,omitempty"`
	Description     string `json:"description,omitempty"`
	TwitterURL      string `json:"twitterUrl,omitempty"`
	TradeportURL    string `json:"tradeportUrl,omitempty"`
	FloorPrice      *int64 `json:"floorPrice,omitempty"`
	Volume          *int64 `json:"volume,omitempty"`
	SubmittedBy     string `json:"submittedBy"`
}

// Ranked is a candidate row read from the vote ledger before snapshotting.
type Ranked struct {
	CollectionID string
	VoteCount    int
}

// PeriodSummary names a past period that has a stored snapshot, with its
// leading entries for the history page.
type PeriodSummary struct {
	MonthYear  string  `json:"monthYear"`
	MonthLabel string  `json:"monthLabel"`
	Count      int     `json:"count"`
	Top        []Entry `json:"top,omitempty"`
}
