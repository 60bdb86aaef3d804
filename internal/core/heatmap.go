package core

import "time"

// HeatLevel classifies a calendar day for the history heatmap.
type HeatLevel string

const (
	HeatNone      HeatLevel = "none"
	HeatRelapse   HeatLevel = "relapse"
	HeatExcellent HeatLevel = "excellent"
	HeatGood      HeatLevel = "good"
	HeatTough     HeatLevel = "tough"
)

type HeatDay struct {
	Date   string       `json:"date"`
	Level  HeatLevel    `json:"level"`
	Report *DailyReport `json:"report,omitempty"`
}

// Level grades a report: any relapse first, then by mood.
func Level(r DailyReport) HeatLevel {
	switch {
	case r.DidDrink:
		return HeatRelapse
	case r.MoodLevel >= 8:
		return HeatExcellent
	case r.MoodLevel >= 5:
		return HeatGood
	default:
		return HeatTough
	}
}

// Heatmap lays out the last weeks*7 days up to today, starting on a Monday,
// grouped into weeks. The last week may be short.
func Heatmap(reports []DailyReport, today time.Time, weeks int) [][]HeatDay {
	if weeks <= 0 {
		return nil
	}

	byDay := make(map[string]DailyReport, len(reports))
	for _, r := range reports {
		if day := r.Day(); day != "" {
			byDay[day] = r
		}
	}

	end := Midnight(today)
	start := end.AddDate(0, 0, -weeks*7+1)
	offset := (int(start.Weekday()) + 6) % 7
	start = start.AddDate(0, 0, -offset)

	var grid [][]HeatDay
	var week []HeatDay
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(DayLayout)
		cell := HeatDay{Date: key, Level: HeatNone}
		if r, ok := byDay[key]; ok {
			cell.Level = Level(r)
			cell.Report = &r
		}
		week = append(week, cell)
		if len(week) == 7 {
			grid = append(grid, week)
			week = nil
		}
	}
	if len(week) > 0 {
		grid = append(grid, week)
	}
	return grid
}
