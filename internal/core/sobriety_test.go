package core

import (
	"testing"
	"time"
)

func TestSobrietyStart(t *testing.T) {
	fallback := time.Date(2025, 11, 10, 15, 0, 0, 0, time.UTC)

	if got := SobrietyStart(nil, fallback); !got.Equal(time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("no relapse: got %v", got)
	}

	reports := []DailyReport{
		{Date: "2025-12-01T10:00:00.000Z"},
		{Date: "2025-11-20T23:30:00.000Z", DidDrink: true},
		{Date: "2025-11-15T10:00:00.000Z", DidDrink: true},
	}
	want := time.Date(2025, 11, 21, 0, 0, 0, 0, time.UTC)
	if got := SobrietyStart(reports, fallback); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDaysSober(t *testing.T) {
	today := time.Date(2025, 12, 1, 18, 45, 0, 0, time.UTC)
	cases := []struct {
		name  string
		start time.Time
		want  int
	}{
		{"same day", time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), 0},
		{"yesterday", time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC), 1},
		{"month", time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC), 30},
		{"future", time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC), 0},
		{"tomorrow", time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DaysSober(tc.start, today); got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestMotivation(t *testing.T) {
	m := NewMotivation(10, UserSettings{CostPerDay: 500, Currency: "₽"})
	if m.Savings != 5000 {
		t.Fatalf("savings = %v", m.Savings)
	}

	unlocked := 0
	for _, a := range m.Achievements {
		if a.Unlocked {
			unlocked++
		}
	}
	if unlocked != 3 {
		t.Fatalf("expected 3 achievements at 10 days, got %d", unlocked)
	}

	var next []int
	for _, h := range m.Timeline {
		if h.Next {
			next = append(next, h.Days)
		}
		if h.Progress > 100 {
			t.Fatalf("progress above 100: %+v", h)
		}
	}
	if len(next) != 1 || next[0] != 14 {
		t.Fatalf("expected the 14-day milestone to be next, got %v", next)
	}

	fresh := HealthTimeline(0)
	if !fresh[0].Next || fresh[1].Next {
		t.Fatalf("at day 0 only the first milestone is next: %+v", fresh[:2])
	}
}

func TestHeatmap(t *testing.T) {
	today := time.Date(2025, 12, 3, 20, 0, 0, 0, time.UTC) // Wednesday
	reports := []DailyReport{
		{Date: "2025-12-03T08:00:00.000Z", MoodLevel: 9},
		{Date: "2025-12-02T08:00:00.000Z", DidDrink: true},
		{Date: "2025-12-01T08:00:00.000Z", MoodLevel: 2},
	}

	grid := Heatmap(reports, today, 2)
	if len(grid) == 0 {
		t.Fatal("empty grid")
	}
	first := grid[0][0].Date
	start, _ := time.Parse(DayLayout, first)
	if start.Weekday() != time.Monday {
		t.Fatalf("grid starts on %v", start.Weekday())
	}

	last := grid[len(grid)-1]
	if got := last[len(last)-1]; got.Date != "2025-12-03" || got.Level != HeatExcellent {
		t.Fatalf("unexpected last cell %+v", got)
	}
	levels := map[string]HeatLevel{}
	for _, w := range grid {
		for _, d := range w {
			levels[d.Date] = d.Level
		}
	}
	if levels["2025-12-02"] != HeatRelapse || levels["2025-12-01"] != HeatTough || levels["2025-11-30"] != HeatNone {
		t.Fatalf("unexpected levels %v", levels)
	}

	if Heatmap(reports, today, 0) != nil {
		t.Fatal("zero weeks should yield no grid")
	}
}
