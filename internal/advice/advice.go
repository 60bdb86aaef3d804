// Package advice asks a generative model for short coping advice during a
// craving and falls back to fixed messages when it cannot.
package advice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"otkaz/internal/cache"
)

// User-facing fallbacks.
const (
	MissingKeyMessage = "Пожалуйста, настройте API ключ (VITE_API_KEY) для получения советов."
	EmptyReplyMessage = "Держись! Сделай 10 глубоких вдохов. Это пройдет через 15 минут."
	FailureMessage    = "Сейчас сервер перегружен, но помни: ты сильнее этой тяги. Выпей стакан воды и прогуляйся."
)

const noTriggers = "Не указаны"

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Requester builds the SOS prompt and asks the generator. It never returns
// an error: every failure maps to one of the fallback messages.
type Requester struct {
	gen   Generator
	cache cache.Cache[string]
}

// NewRequester returns a requester; gen may be nil when no API key is
// configured, and c may be nil to disable caching.
func NewRequester(gen Generator, c cache.Cache[string]) *Requester {
	return &Requester{gen: gen, cache: c}
}

// Enabled reports whether a generator is configured.
func (r *Requester) Enabled() bool {
	return r.gen != nil
}

func (r *Requester) RequestAdvice(ctx context.Context, cravingLevel int, triggers []string, moodLevel int) string {
	if r.gen == nil {
		return MissingKeyMessage
	}

	prompt := BuildPrompt(cravingLevel, triggers, moodLevel)
	if r.cache != nil {
		if text, ok := r.cache.Get(prompt); ok {
			slog.DebugContext(ctx, "Advice served from cache")
			return text
		}
	}

	text, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		slog.ErrorContext(ctx, "Advice request failed", "error", err)
		return FailureMessage
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return EmptyReplyMessage
	}

	if r.cache != nil {
		r.cache.Set(prompt, text)
	}
	return text
}

// BuildPrompt renders the SOS prompt.
func BuildPrompt(cravingLevel int, triggers []string, moodLevel int) string {
	listed := noTriggers
	if len(triggers) > 0 {
		listed = strings.Join(triggers, ", ")
	}

	var b strings.Builder
	b.WriteString("Ты — опытный психолог и наставник по борьбе с зависимостями.\n")
	b.WriteString("Пользователь сейчас испытывает тягу к алкоголю.\n\n")
	b.WriteString("Данные пользователя:\n")
	fmt.Fprintf(&b, "- Уровень тяги (0-10): %d\n", cravingLevel)
	fmt.Fprintf(&b, "- Настроение (0-10, где 0 плохо, 10 отлично): %d\n", moodLevel)
	fmt.Fprintf(&b, "- Триггеры (причины): %s\n\n", listed)
	b.WriteString("Дай краткий, жесткий, но поддерживающий совет (максимум 3 предложения) о том, как прямо сейчас не сорваться.\n")
	b.WriteString("Используй техники КПТ (когнитивно-поведенческой терапии) или техники заземления.\n")
	b.WriteString("Не используй маркированные списки. Говори как друг.")
	return b.String()
}
