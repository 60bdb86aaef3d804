package core

import (
	"math"
	"time"
)

// Midnight truncates t to the start of its calendar day, in UTC.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LastRelapse returns the most recent relapse report.
func LastRelapse(reports []DailyReport) (DailyReport, bool) {
	for _, r := range NewestFirst(reports) {
		if r.DidDrink {
			return r, true
		}
	}
	return DailyReport{}, false
}

// SobrietyStart returns the day after the most recent relapse, or fallback
// when the history holds no relapse.
func SobrietyStart(reports []DailyReport, fallback time.Time) time.Time {
	relapse, ok := LastRelapse(reports)
	if !ok || relapse.At().IsZero() {
		return Midnight(fallback)
	}
	return Midnight(relapse.At().UTC()).AddDate(0, 0, 1)
}

// DaysSober counts whole days from start to today. A start in the future
// counts as zero.
func DaysSober(start, today time.Time) int {
	s := Midnight(start)
	t := Midnight(today)
	if s.After(t) {
		return 0
	}
	diff := math.Abs(float64(t.Sub(s)))
	return int(math.Ceil(diff / float64(24*time.Hour)))
}
