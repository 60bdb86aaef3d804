package services

import (
	"context"
	"testing"
	"time"

	"otkaz/internal/core"
	"otkaz/internal/kv/memory"
)

func TestSummarizeThreeReportScenario(t *testing.T) {
	reports := []core.DailyReport{
		{Date: "2025-11-03T09:00:00.000Z"},
		{Date: "2025-11-02T09:00:00.000Z", DidDrink: true, Triggers: []string{"stress"}},
		{Date: "2025-11-01T09:00:00.000Z"},
	}
	fallback := time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)
	today := time.Date(2025, 11, 5, 12, 0, 0, 0, time.UTC)

	ov := Summarize(reports, core.DefaultCatalog(), fallback, today)
	want := core.Streaks{TotalDays: 3, CurrentStreak: 1, BestStreak: 1, RelapseCount: 1}
	if ov.Streaks != want {
		t.Fatalf("streaks = %+v", ov.Streaks)
	}
	if ov.SobrietyStart != "2025-11-03" || ov.DaysSober != 2 {
		t.Fatalf("start=%s days=%d", ov.SobrietyStart, ov.DaysSober)
	}
	if len(ov.Triggers) != 1 || ov.Triggers[0].Label != "стресс" {
		t.Fatalf("triggers = %+v", ov.Triggers)
	}
}

func TestSummarizeFutureStartClamps(t *testing.T) {
	fallback := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	ov := Summarize(nil, nil, fallback, time.Date(2025, 11, 5, 0, 0, 0, 0, time.UTC))
	if ov.DaysSober != 0 {
		t.Fatalf("future start produced %d days", ov.DaysSober)
	}
}

func TestStatsService(t *testing.T) {
	local := memory.New()
	a := NewSyncAdapter(local, nil, nil, DefaultSyncConfig())
	s := NewStatsService(a, a, nil, time.Time{})
	s.now = func() time.Time { return time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC) }

	if got := s.DefaultStart().Format(core.DayLayout); got != DefaultStartDate {
		t.Fatalf("default start = %s", got)
	}
	if len(s.Catalog()) != len(core.DefaultCatalog()) {
		t.Fatal("nil catalog should fall back to the built-in one")
	}

	ctx := context.Background()
	ov, err := s.Overview(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ov.DaysSober != 10 {
		t.Fatalf("days sober = %d", ov.DaysSober)
	}

	m, err := s.Motivation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if m.DaysSober != 10 || m.Savings != 5000 || m.Currency != "₽" {
		t.Fatalf("motivation = %+v", m)
	}

	grid, err := s.Heatmap(ctx, 4)
	if err != nil || len(grid) == 0 {
		t.Fatalf("heatmap: %d weeks, err %v", len(grid), err)
	}
}
