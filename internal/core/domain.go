package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// ReportsKey and SettingsKey name the two serialized slots shared by the
	// local and the remote store.
	ReportsKey  = "otkaz_alco_reports"
	SettingsKey = "otkaz_alco_settings"

	MaxLevel = 10

	// DayLayout is the calendar-day format used for start dates.
	DayLayout = "2006-01-02"
)

type (
	// DailyReport is one logged day. Date is the full timestamp string and is
	// the identity key of the report.
	DailyReport struct {
		Date          string   `json:"date"`
		DidDrink      bool     `json:"didDrink"`
		MoodLevel     int      `json:"moodLevel"`
		CravingLevel  int      `json:"cravingLevel"`
		Triggers      []string `json:"triggers"`
		Note          string   `json:"note"`
		AlcoholType   string   `json:"alcoholType,omitempty"`
		AlcoholAmount string   `json:"alcoholAmount,omitempty"`
	}

	UserSettings struct {
		CostPerDay float64 `json:"costPerDay"`
		Currency   string  `json:"currency"`
		StartDate  string  `json:"startDate,omitempty"`
	}

	TriggerItem struct {
		ID    string `json:"id" yaml:"id"`
		Label string `json:"label" yaml:"label"`
		Emoji string `json:"emoji" yaml:"emoji"`
	}

	TriggerStat struct {
		ID    string `json:"id"`
		Label string `json:"label"`
		Emoji string `json:"emoji"`
		Count int    `json:"count"`
	}
)

var (
	ErrEmptyDate       = errors.New("empty report date")
	ErrInvalidDate     = errors.New("invalid report date")
	ErrInvalidMood     = errors.New("invalid mood level")
	ErrInvalidCraving  = errors.New("invalid craving level")
	ErrInvalidCost     = errors.New("invalid cost per day")
	ErrEmptyCurrency   = errors.New("empty currency")
	ErrInvalidStartDay = errors.New("invalid start date")
)

// ParseTimestamp parses the timestamps produced by the mini app
// (toISOString) as well as plain calendar days.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(DayLayout, s)
}

// At returns the parsed report timestamp, or the zero time when Date does
// not parse.
func (r DailyReport) At() time.Time {
	t, err := ParseTimestamp(r.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Day returns the UTC calendar day of the report.
func (r DailyReport) Day() string {
	t := r.At()
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DayLayout)
}

func (r DailyReport) Validate() error {
	if strings.TrimSpace(r.Date) == "" {
		return ErrEmptyDate
	}
	if _, err := ParseTimestamp(r.Date); err != nil {
		return ErrInvalidDate
	}
	if r.MoodLevel < 0 || r.MoodLevel > MaxLevel {
		return ErrInvalidMood
	}
	if r.CravingLevel < 0 || r.CravingLevel > MaxLevel {
		return ErrInvalidCraving
	}
	return nil
}

// NewReport builds a report stamped with now. Alcohol details are only kept
// for relapse reports.
func NewReport(now time.Time, didDrink bool, mood, craving int, triggers []string, note, alcoholType, alcoholAmount string) DailyReport {
	r := DailyReport{
		Date:         now.UTC().Format("2006-01-02T15:04:05.000Z"),
		DidDrink:     didDrink,
		MoodLevel:    mood,
		CravingLevel: craving,
		Triggers:     append([]string{}, triggers...),
		Note:         note,
	}
	if didDrink {
		r.AlcoholType = alcoholType
		r.AlcoholAmount = alcoholAmount
	}
	return r
}

// Upsert replaces the report with the same Date in place, or prepends it.
func Upsert(reports []DailyReport, r DailyReport) []DailyReport {
	for i := range reports {
		if reports[i].Date == r.Date {
			out := append([]DailyReport(nil), reports...)
			out[i] = r
			return out
		}
	}
	out := make([]DailyReport, 0, len(reports)+1)
	out = append(out, r)
	return append(out, reports...)
}

// DefaultSettings returns the settings of a new user.
func DefaultSettings(today time.Time) UserSettings {
	return UserSettings{
		CostPerDay: 500,
		Currency:   "₽",
		StartDate:  today.Format(DayLayout),
	}
}

func (s UserSettings) Validate() error {
	if s.CostPerDay < 0 {
		return ErrInvalidCost
	}
	if strings.TrimSpace(s.Currency) == "" {
		return ErrEmptyCurrency
	}
	if s.StartDate != "" {
		if _, err := time.Parse(DayLayout, s.StartDate); err != nil {
			return ErrInvalidStartDay
		}
	}
	return nil
}
