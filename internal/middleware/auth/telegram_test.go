package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

const botToken = "123456:TEST-token"

func signed(t *testing.T, userID int64, authDate time.Time) string {
	t.Helper()
	v := url.Values{}
	v.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	v.Set("query_id", "AAH")
	v.Set("user", `{"id":`+strconv.FormatInt(userID, 10)+`,"first_name":"Test","username":"tester"}`)
	v.Set("hash", Sign(v, botToken))
	return v.Encode()
}

func TestValidate(t *testing.T) {
	now := time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)

	user, err := Validate(signed(t, 42, now.Add(-time.Minute)), botToken, time.Hour, now)
	if err != nil {
		t.Fatal(err)
	}
	if user.ID != 42 || user.Username != "tester" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestValidate_Errors(t *testing.T) {
	now := time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)
	good := signed(t, 42, now)

	tampered, _ := url.ParseQuery(good)
	tampered.Set("user", `{"id":1}`)

	noUser := url.Values{"auth_date": {strconv.FormatInt(now.Unix(), 10)}}
	noUser.Set("hash", Sign(noUser, botToken))

	tests := []struct {
		name  string
		raw   string
		token string
		age   time.Duration
		want  error
	}{
		{"empty", "", botToken, 0, ErrMissingInitData},
		{"no hash", "auth_date=1", botToken, 0, ErrMissingHash},
		{"wrong token", good, "other", 0, ErrBadSignature},
		{"tampered", tampered.Encode(), botToken, 0, ErrBadSignature},
		{"expired", signed(t, 42, now.Add(-2*time.Hour)), botToken, time.Hour, ErrExpired},
		{"no user", noUser.Encode(), botToken, 0, ErrNoUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Validate(tt.raw, tt.token, tt.age, now); !errors.Is(err, tt.want) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "tma a=1&hash=x")
	if got := FromRequest(r); got != "a=1&hash=x" {
		t.Fatalf("FromRequest = %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Telegram-Init-Data", "b=2")
	if got := FromRequest(r); got != "b=2" {
		t.Fatalf("FromRequest = %q", got)
	}
}

func TestMiddleware(t *testing.T) {
	var seen User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name    string
		cfg     Config
		header  string
		want    int
		wantUID int64
	}{
		{"disabled", Config{}, "", http.StatusNoContent, 0},
		{"missing", Config{BotToken: botToken}, "", http.StatusUnauthorized, 0},
		{"valid", Config{BotToken: botToken, MaxAge: time.Hour}, signed(t, 42, time.Now()), http.StatusNoContent, 42},
		{"allowed", Config{BotToken: botToken, AllowedUserID: 42}, signed(t, 42, time.Now()), http.StatusNoContent, 42},
		{"forbidden", Config{BotToken: botToken, AllowedUserID: 7}, signed(t, 42, time.Now()), http.StatusForbidden, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = User{}
			r := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", "tma "+tt.header)
			}
			rr := httptest.NewRecorder()
			Middleware(tt.cfg)(next).ServeHTTP(rr, r)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if seen.ID != tt.wantUID {
				t.Fatalf("user id = %d, want %d", seen.ID, tt.wantUID)
			}
			if rr.Code < http.StatusBadRequest {
				return
			}
			if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Fatalf("Content-Type = %q, want JSON", ct)
			}
			var body map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Fatalf("body = %q, %v", rr.Body.String(), err)
			}
		})
	}
}
