package core

import "math"

type (
	Achievement struct {
		Days     int    `json:"days"`
		Title    string `json:"title"`
		Icon     string `json:"icon"`
		Unlocked bool   `json:"unlocked"`
	}

	HealthMilestone struct {
		Days        int     `json:"days"`
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Icon        string  `json:"icon"`
		Completed   bool    `json:"completed"`
		Next        bool    `json:"next"`
		Progress    float64 `json:"progress"`
	}

	// Motivation is everything the motivation screen needs for one day count.
	Motivation struct {
		DaysSober    int               `json:"daysSober"`
		Savings      float64           `json:"savings"`
		CostPerDay   float64           `json:"costPerDay"`
		Currency     string            `json:"currency"`
		Achievements []Achievement     `json:"achievements"`
		Timeline     []HealthMilestone `json:"timeline"`
	}
)

var achievements = []Achievement{
	{Days: 1, Title: "Первый шаг", Icon: "🥉"},
	{Days: 3, Title: "Трое суток", Icon: "🎗️"},
	{Days: 7, Title: "Неделя", Icon: "🥈"},
	{Days: 14, Title: "Две недели", Icon: "🛡️"},
	{Days: 30, Title: "Месяц", Icon: "🥇"},
	{Days: 60, Title: "Два месяца", Icon: "🚀"},
	{Days: 100, Title: "Сотник", Icon: "💎"},
	{Days: 365, Title: "Легенда", Icon: "👑"},
}

var healthTimeline = []HealthMilestone{
	{Days: 1, Title: "Похмелье уходит", Description: "Алкоголь полностью выведен из крови.", Icon: "🩸"},
	{Days: 3, Title: "Возвращение вкуса", Description: "Восстанавливается водный баланс и рецепторы.", Icon: "👅"},
	{Days: 7, Title: "Глубокий сон", Description: "Нормализуются фазы сна, вы начинаете высыпаться.", Icon: "🛌"},
	{Days: 14, Title: "Ясный ум", Description: "Когнитивные способности и память улучшаются.", Icon: "🧠"},
	{Days: 30, Title: "Печень ликует", Description: "Жир в печени уменьшается на 15-20%.", Icon: "🩺"},
	{Days: 90, Title: "Новый уровень", Description: "Риск сердечно-сосудистых заболеваний снижается.", Icon: "❤️"},
}

// Savings is the money not spent on alcohol over daysSober days.
func Savings(daysSober int, costPerDay float64) float64 {
	return float64(daysSober) * costPerDay
}

func Achievements(daysSober int) []Achievement {
	out := make([]Achievement, len(achievements))
	for i, a := range achievements {
		a.Unlocked = daysSober >= a.Days
		out[i] = a
	}
	return out
}

func HealthTimeline(daysSober int) []HealthMilestone {
	out := make([]HealthMilestone, len(healthTimeline))
	for i, m := range healthTimeline {
		m.Completed = daysSober >= m.Days
		m.Next = !m.Completed && (i == 0 || daysSober >= healthTimeline[i-1].Days)
		m.Progress = math.Min(100, float64(daysSober)/float64(m.Days)*100)
		out[i] = m
	}
	return out
}

func NewMotivation(daysSober int, settings UserSettings) Motivation {
	return Motivation{
		DaysSober:    daysSober,
		Savings:      Savings(daysSober, settings.CostPerDay),
		CostPerDay:   settings.CostPerDay,
		Currency:     settings.Currency,
		Achievements: Achievements(daysSober),
		Timeline:     HealthTimeline(daysSober),
	}
}
