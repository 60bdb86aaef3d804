// Package http provides HTTP server and handler implementations.
//
// This file implements parsing of request bodies and query parameters into
// the typed requests the handlers work with.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// maxBodyBytes bounds request bodies. A report with a long note stays far
// below it.
const maxBodyBytes = 64 << 10

var errEmptyBody = errors.New("empty request body")

type (
	// ReportRequest is the body of POST /api/reports. An empty Date stamps
	// the report with the current time; a Date equal to an existing
	// report's replaces it.
	ReportRequest struct {
		Date          string   `json:"date"`
		DidDrink      bool     `json:"didDrink"`
		MoodLevel     int      `json:"moodLevel"`
		CravingLevel  int      `json:"cravingLevel"`
		Triggers      []string `json:"triggers"`
		Note          string   `json:"note"`
		AlcoholType   string   `json:"alcoholType"`
		AlcoholAmount string   `json:"alcoholAmount"`
	}

	// SOSRequest is the body of POST /api/sos.
	SOSRequest struct {
		CravingLevel int      `json:"cravingLevel"`
		MoodLevel    int      `json:"moodLevel"`
		Triggers     []string `json:"triggers"`
		Custom       []string `json:"custom"`
	}
)

// DecodeJSON reads one JSON value from the request body into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("malformed JSON: %w", err)
	}
	if dec.More() {
		return errors.New("request body must hold a single JSON value")
	}
	return nil
}

// Sanitize cleans the free-text fields of the request.
func (r *ReportRequest) Sanitize() {
	r.Date = strings.TrimSpace(r.Date)
	r.Note = sanitizeInput(r.Note)
	r.AlcoholType = sanitizeInput(r.AlcoholType)
	r.AlcoholAmount = sanitizeInput(r.AlcoholAmount)
	r.Triggers = sanitizeList(r.Triggers)
}

func (r *SOSRequest) Sanitize() {
	r.Triggers = sanitizeList(r.Triggers)
	r.Custom = sanitizeList(r.Custom)
}

// ParseIntQuery returns the integer query parameter name, def when it is
// absent or not a number, clamped to [min, max].
func ParseIntQuery(query url.Values, name string, def, min, max int) int {
	v := def
	if s := strings.TrimSpace(query.Get(name)); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			v = n
		}
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// RequireMethod returns a 405 response unless r uses one of methods.
func RequireMethod(r *http.Request, methods ...string) *JSONResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}
