package http

import (
	"errors"
	"net/http"
	"strings"

	"otkaz/internal/core"
)

// validationErrors are the domain errors a client can fix by sending
// different input.
var validationErrors = []error{
	core.ErrEmptyDate,
	core.ErrInvalidDate,
	core.ErrInvalidMood,
	core.ErrInvalidCraving,
	core.ErrInvalidCost,
	core.ErrEmptyCurrency,
	core.ErrInvalidStartDay,
}

// statusForError maps a service error to an HTTP status.
func statusForError(err error) int {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// sanitizeList sanitizes every entry and drops the empty ones.
func sanitizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = sanitizeInput(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
