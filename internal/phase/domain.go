// Package phase implements the monthly lifecycle engine: a pure calendar
// resolver, the persisted override store, and the service composing them.
package phase

import (
	"errors"
	"time"
)

// Phase enumerates the three lifecycle stages of a monthly cycle.
type Phase string

const (
	PhaseSubmission Phase = "submission"
	PhaseVoting     Phase = "voting"
	PhaseDisplay    Phase = "display"
)

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseSubmission, PhaseVoting, PhaseDisplay:
		return true
	default:
		return false
	}
}

// Label returns the user-facing name of the phase.
func (p Phase) Label() string {
	switch p {
	case PhaseSubmission:
		return "Submission Phase"
	case PhaseVoting:
		return "Voting Phase"
	case PhaseDisplay:
		return "Winners Display"
	default:
		return "Unknown"
	}
}

// Info describes the effective phase at a point in time. TimeRemaining is
// carried in milliseconds, clamped at zero.
type Info struct {
	Phase         Phase     `json:"phase"`
	PhaseLabel    string    `json:"phaseLabel"`
	MonthYear     string    `json:"monthYear"`
	MonthLabel    string    `json:"monthLabel"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	TimeRemaining int64     `json:"timeRemaining"`
	IsOverridden  bool      `json:"isOverridden"`
}

// Override forces a phase for one period, optionally until ExpiresAt.
// A nil ExpiresAt means the override holds until explicitly cleared.
type Override struct {
	MonthYear string
	Phase     Phase
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the override has lapsed at now.
func (o Override) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && o.ExpiresAt.Before(now)
}

// ErrInvalidPhase indicates an unknown phase name in an override request.
var ErrInvalidPhase = errors.New("phase: invalid phase")

// ErrInvalidPeriod indicates a malformed YYYY-MM period key.
var ErrInvalidPeriod = errors.New("phase: invalid period")
