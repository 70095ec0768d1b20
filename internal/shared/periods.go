package shared

import (
	"fmt"
	"regexp"
	"time"
)

// Periods are monthly cycles keyed by "YYYY-MM". Every ledger row and phase
// computation is scoped by one of these keys.

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidPeriod reports whether key is a well-formed YYYY-MM period.
func ValidPeriod(key string) bool {
	return periodPattern.MatchString(key)
}

// PeriodKey returns the period containing t.
func PeriodKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// PeriodStart returns midnight on the first day of the period, in loc.
func PeriodStart(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("shared: parse period %q: %w", key, err)
	}
	return t, nil
}

// PreviousPeriod returns the period immediately before key.
func PreviousPeriod(key string) (string, error) {
	t, err := PeriodStart(key, time.UTC)
	if err != nil {
		return "", err
	}
	return PeriodKey(t.AddDate(0, -1, 0)), nil
}

// MonthLabel renders a period as a human label, e.g. "March 2025".
func MonthLabel(key string) string {
	t, err := PeriodStart(key, time.UTC)
	if err != nil {
		return key
	}
	return t.Format("January 2006")
}

// DaysInMonth returns the number of days in the month containing t.
func DaysInMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, 1, -1).Day()
}
