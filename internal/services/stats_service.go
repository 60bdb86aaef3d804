package services

import (
	"context"
	"time"

	"otkaz/internal/core"
)

// DefaultStartDate is used as the sobriety start when the history holds no
// relapse and nothing else is configured.
const DefaultStartDate = "2025-11-10"

type (
	ReportLoader interface {
		LoadReports(ctx context.Context) ([]core.DailyReport, error)
	}

	SettingsLoader interface {
		LoadSettings(ctx context.Context) core.UserSettings
	}

	// Overview is the derived state shown on the main screen.
	Overview struct {
		Streaks       core.Streaks       `json:"streaks"`
		Triggers      []core.TriggerStat `json:"triggers"`
		SobrietyStart string             `json:"sobrietyStart"`
		DaysSober     int                `json:"daysSober"`
	}
)

// Summarize derives the overview of a report history as of today.
func Summarize(reports []core.DailyReport, catalog core.Catalog, fallbackStart, today time.Time) Overview {
	start := core.SobrietyStart(reports, fallbackStart)
	return Overview{
		Streaks:       core.ComputeStreaks(reports),
		Triggers:      core.ComputeTriggerStats(reports, catalog),
		SobrietyStart: start.Format(core.DayLayout),
		DaysSober:     core.DaysSober(start, today),
	}
}

// StatsService derives statistics from the stored history.
type StatsService struct {
	reports      ReportLoader
	settings     SettingsLoader
	catalog      core.Catalog
	defaultStart time.Time
	now          func() time.Time
}

func NewStatsService(reports ReportLoader, settings SettingsLoader, catalog core.Catalog, defaultStart time.Time) *StatsService {
	if defaultStart.IsZero() {
		defaultStart, _ = time.Parse(core.DayLayout, DefaultStartDate)
	}
	if catalog == nil {
		catalog = core.DefaultCatalog()
	}
	return &StatsService{
		reports:      reports,
		settings:     settings,
		catalog:      catalog,
		defaultStart: defaultStart,
		now:          time.Now,
	}
}

func (s *StatsService) Catalog() core.Catalog {
	return s.catalog
}

// DefaultStart is the sobriety start used without any relapse on record.
func (s *StatsService) DefaultStart() time.Time {
	return s.defaultStart
}

func (s *StatsService) Overview(ctx context.Context) (Overview, error) {
	reports, err := s.reports.LoadReports(ctx)
	if err != nil {
		return Overview{}, err
	}
	return Summarize(reports, s.catalog, s.defaultStart, s.now()), nil
}

func (s *StatsService) Motivation(ctx context.Context) (core.Motivation, error) {
	reports, err := s.reports.LoadReports(ctx)
	if err != nil {
		return core.Motivation{}, err
	}
	start := core.SobrietyStart(reports, s.defaultStart)
	days := core.DaysSober(start, s.now())
	return core.NewMotivation(days, s.settings.LoadSettings(ctx)), nil
}

func (s *StatsService) Heatmap(ctx context.Context, weeks int) ([][]core.HeatDay, error) {
	reports, err := s.reports.LoadReports(ctx)
	if err != nil {
		return nil, err
	}
	return core.Heatmap(reports, s.now(), weeks), nil
}
