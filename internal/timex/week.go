package timex

import "time"

// WeekNumber returns the 1-based week index of now relative to start.
// Dates before start count as week 1.
func WeekNumber(start, now time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(n.Sub(s).Hours() / 24)
	if days < 0 {
		return 1
	}
	return days/7 + 1
}
