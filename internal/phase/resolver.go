package phase

import (
	"time"

	"github.com/movevote/movevote/internal/shared"
)

// The schedule hangs off the end of the month so the pair of active windows
// always lands in the final week regardless of month length:
//
//	submission: days [dim-7, dim-5]   (3 days)
//	voting:     days [dim-4, dim-1]   (4 days)
//	display:    everything else, split at the month boundary
//
// Month length is recomputed on every call; nothing here touches storage.

// Resolve computes the natural calendar phase at now.
func Resolve(now time.Time) Info {
	year, month, day := now.Date()
	loc := now.Location()
	dim := shared.DaysInMonth(now)

	submissionStart := dim - 7
	submissionEnd := dim - 5
	votingStart := dim - 4
	votingEnd := dim - 1
	displayStart := dim

	monthYear := shared.PeriodKey(now)

	var (
		p         Phase
		startTime time.Time
		endTime   time.Time
	)

	switch {
	case day >= submissionStart && day <= submissionEnd:
		p = PhaseSubmission
		startTime = time.Date(year, month, submissionStart, 0, 0, 0, 0, loc)
		endTime = endOfDay(year, month, submissionEnd, loc)
	case day >= votingStart && day <= votingEnd:
		p = PhaseVoting
		startTime = time.Date(year, month, votingStart, 0, 0, 0, 0, loc)
		endTime = endOfDay(year, month, votingEnd, loc)
	case day >= displayStart:
		// Tail of the month: display runs until the day before next
		// month's submission window opens.
		p = PhaseDisplay
		startTime = time.Date(year, month, displayStart, 0, 0, 0, 0, loc)
		nextMonth := time.Date(year, month, 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
		dimNext := shared.DaysInMonth(nextMonth)
		endTime = endOfDay(nextMonth.Year(), nextMonth.Month(), dimNext-7-1, loc)
	default:
		// Head of the month: display of the period just decided, until
		// this month's submission window opens.
		p = PhaseDisplay
		startTime = time.Date(year, month, 1, 0, 0, 0, 0, loc)
		endTime = endOfDay(year, month, submissionStart-1, loc)
	}

	return Info{
		Phase:         p,
		PhaseLabel:    p.Label(),
		MonthYear:     monthYear,
		MonthLabel:    shared.MonthLabel(monthYear),
		StartTime:     startTime,
		EndTime:       endTime,
		TimeRemaining: remainingMillis(now, endTime),
		IsOverridden:  false,
	}
}

// naturalEnd returns when the given phase would end in now's month, used as
// the end time for overrides without an expiry.
func naturalEnd(p Phase, now time.Time) time.Time {
	year, month, _ := now.Date()
	loc := now.Location()
	dim := shared.DaysInMonth(now)

	switch p {
	case PhaseSubmission:
		return endOfDay(year, month, dim-5, loc)
	case PhaseVoting:
		return endOfDay(year, month, dim-1, loc)
	default:
		return endOfDay(year, month, dim, loc)
	}
}

func endOfDay(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, 23, 59, 59, 0, loc)
}

func remainingMillis(now, end time.Time) int64 {
	ms := end.Sub(now).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
