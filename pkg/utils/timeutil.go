package utils

import (
	"time"

	"cloud.google.com/go/civil"
)

// DateLayout is the ISO calendar-date layout used for output.
const DateLayout = "2006-01-02"

// TodayIn returns the calendar date of now in loc. A nil loc means local
// time.
func TodayIn(now time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.Local
	}
	return civil.DateOf(now.In(loc))
}

// Clock returns a function that reports today's date in loc.
func Clock(loc *time.Location) func() civil.Date {
	return func() civil.Date { return TodayIn(time.Now(), loc) }
}

// FixedClock returns a function that always reports d.
func FixedClock(d civil.Date) func() civil.Date {
	return func() civil.Date { return d }
}

// ParseDate parses a "2006-01-02" date.
func ParseDate(s string) (civil.Date, error) {
	return civil.ParseDate(s)
}

// FormatDateTime formats a time.Time to "2006-01-02 15:04:05 MST" in loc.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01-02 15:04:05 MST")
}
