// msgboard/utils/system.go
package utils

import (
	"fmt"
	"time"
)

// GetTime returns the current time. Useful for mocking in tests.
func GetTime() time.Time {
	return time.Now()
}

// GetSQLTime returns the current time in UTC for database storage.
func GetSQLTime() time.Time {
	return time.Now().UTC()
}

// HumanTimeDiff renders the distance between two times as "5 mins", "2 days" and so on.
func HumanTimeDiff(from, to time.Time) string {
	d := to.Sub(from)
	if d < 0 {
		d = -d
	}
	plural := func(n int64, unit string) string {
		if n <= 1 {
			return fmt.Sprintf("1 %s", unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	switch {
	case d < time.Hour:
		return plural(int64(d/time.Minute), "min")
	case d < 24*time.Hour:
		return plural(int64(d/time.Hour), "hour")
	case d < 7*24*time.Hour:
		return plural(int64(d/(24*time.Hour)), "day")
	case d < 30*24*time.Hour:
		return plural(int64(d/(7*24*time.Hour)), "week")
	case d < 365*24*time.Hour:
		return plural(int64(d/(30*24*time.Hour)), "month")
	default:
		return plural(int64(d/(365*24*time.Hour)), "year")
	}
}
