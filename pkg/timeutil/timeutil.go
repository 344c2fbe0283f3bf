// Package timeutil holds the portal's calendar helpers. Session and placement
// dates are calendar days in the campus timezone; request and decision stamps
// are instants.
package timeutil

import (
	"sync"
	"time"
)

const (
	// FormatDate is the wire and storage layout for calendar days.
	FormatDate = "2006-01-02"
	// FormatDateTime is used in human-facing reports.
	FormatDateTime = "2006-01-02 15:04"
)

var (
	locMu    sync.RWMutex
	location = time.UTC
)

// SetLocation changes the campus timezone. It is called once at startup.
func SetLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	locMu.Lock()
	location = loc
	locMu.Unlock()
}

// LoadLocation resolves an IANA name and installs it as the campus timezone.
func LoadLocation(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	SetLocation(loc)
	return nil
}

// Location returns the campus timezone.
func Location() *time.Location {
	locMu.RLock()
	defer locMu.RUnlock()
	return location
}

// Now returns the current time in the campus timezone.
func Now() time.Time {
	return time.Now().In(Location())
}

// Date builds midnight of the given day in the campus timezone.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, Location())
}

// StartOfDay truncates t to midnight in the campus timezone.
func StartOfDay(t time.Time) time.Time {
	local := t.In(Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Location())
}

// ParseDate parses YYYY-MM-DD in the campus timezone.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, Location())
}

// FormatDateStr formats t as YYYY-MM-DD in the campus timezone.
func FormatDateStr(t time.Time) string {
	return t.In(Location()).Format(FormatDate)
}

// IsSameDay reports whether both instants fall on the same campus day.
func IsSameDay(t1, t2 time.Time) bool {
	return StartOfDay(t1).Equal(StartOfDay(t2))
}
