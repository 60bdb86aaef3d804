package core

import (
	"slices"
	"strings"
)

// Streaks summarises a report history.
type Streaks struct {
	TotalDays     int `json:"totalDays"`
	CurrentStreak int `json:"currentStreak"`
	BestStreak    int `json:"bestStreak"`
	RelapseCount  int `json:"relapseCount"`
}

// SortedByDate returns a copy of reports ordered by timestamp, oldest first.
// Reports with the same timestamp keep their relative order.
func SortedByDate(reports []DailyReport) []DailyReport {
	out := append([]DailyReport(nil), reports...)
	slices.SortStableFunc(out, func(a, b DailyReport) int {
		return a.At().Compare(b.At())
	})
	return out
}

// NewestFirst returns a copy of reports ordered newest first.
func NewestFirst(reports []DailyReport) []DailyReport {
	out := append([]DailyReport(nil), reports...)
	slices.SortStableFunc(out, func(a, b DailyReport) int {
		return b.At().Compare(a.At())
	})
	return out
}

func ComputeStreaks(reports []DailyReport) Streaks {
	if len(reports) == 0 {
		return Streaks{}
	}

	var s Streaks
	s.TotalDays = len(reports)

	run := 0
	for _, r := range SortedByDate(reports) {
		if !r.DidDrink {
			run++
			continue
		}
		s.RelapseCount++
		s.BestStreak = max(s.BestStreak, run)
		run = 0
	}
	s.BestStreak = max(s.BestStreak, run)

	for _, r := range NewestFirst(reports) {
		if r.DidDrink {
			break
		}
		s.CurrentStreak++
	}
	return s
}

// ComputeTriggerStats counts triggers of relapse days and of days with a
// craving above 3, most frequent first.
func ComputeTriggerStats(reports []DailyReport, catalog Catalog) []TriggerStat {
	counts := map[string]int{}
	var order []string

	for _, r := range reports {
		if !r.DidDrink && r.CravingLevel <= 3 {
			continue
		}
		for _, id := range r.Triggers {
			key := strings.TrimSpace(id)
			if _, seen := counts[key]; !seen {
				order = append(order, key)
			}
			counts[key]++
		}
	}

	stats := make([]TriggerStat, 0, len(order))
	for _, key := range order {
		if item, ok := catalog.Find(key); ok {
			stats = append(stats, TriggerStat{ID: item.ID, Label: item.Label, Emoji: item.Emoji, Count: counts[key]})
			continue
		}
		stats = append(stats, TriggerStat{ID: key, Label: key, Emoji: CustomTriggerEmoji, Count: counts[key]})
	}

	slices.SortStableFunc(stats, func(a, b TriggerStat) int {
		return b.Count - a.Count
	})
	return stats
}
