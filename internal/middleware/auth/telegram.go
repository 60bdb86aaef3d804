// Package auth verifies Telegram WebApp init data sent by the mini app.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingInitData = errors.New("missing init data")
	ErrMissingHash     = errors.New("init data has no hash")
	ErrBadSignature    = errors.New("init data signature mismatch")
	ErrExpired         = errors.New("init data expired")
	ErrNoUser          = errors.New("init data has no user")
)

// ContextKey type for context keys
type ContextKey string

const UserContextKey ContextKey = "telegram_user"

// User is the subset of the WebApp user object the server needs.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Config holds the verification settings. An empty BotToken disables
// verification.
type Config struct {
	BotToken      string
	AllowedUserID int64
	MaxAge        time.Duration
}

// Validate checks the signature of raw init data against botToken and
// returns the user it carries. A zero maxAge skips the freshness check.
func Validate(raw, botToken string, maxAge time.Duration, now time.Time) (User, error) {
	if raw == "" {
		return User{}, ErrMissingInitData
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return User{}, fmt.Errorf("parse init data: %w", err)
	}
	hash := values.Get("hash")
	if hash == "" {
		return User{}, ErrMissingHash
	}

	expected := Sign(values, botToken)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(hash))) {
		return User{}, ErrBadSignature
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return User{}, fmt.Errorf("parse auth_date: %w", err)
		}
		if now.Sub(time.Unix(authDate, 0)) > maxAge {
			return User{}, ErrExpired
		}
	}

	rawUser := values.Get("user")
	if rawUser == "" {
		return User{}, ErrNoUser
	}
	var user User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return User{}, fmt.Errorf("parse user: %w", err)
	}
	return user, nil
}

// Sign computes the hex hash Telegram attaches to init data: the sorted
// key=value lines except hash, signed with HMAC-SHA256 keyed by
// HMAC-SHA256("WebAppData", botToken).
func Sign(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + values.Get(k)
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

// FromRequest reads init data from "Authorization: tma <data>" or the
// X-Telegram-Init-Data header.
func FromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 4 && strings.EqualFold(h[:4], "tma ") {
		return strings.TrimSpace(h[4:])
	}
	return r.Header.Get("X-Telegram-Init-Data")
}

// UserFromContext returns the verified user, if any.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(UserContextKey).(User)
	return u, ok
}

// Middleware rejects requests without valid init data with 401, and users
// other than AllowedUserID (when set) with 403.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.BotToken == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := Validate(FromRequest(r), cfg.BotToken, cfg.MaxAge, time.Now())
			if err != nil {
				slog.WarnContext(r.Context(), "Rejected init data", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if cfg.AllowedUserID != 0 && user.ID != cfg.AllowedUserID {
				slog.WarnContext(r.Context(), "User not allowed", "user_id", user.ID)
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeError sends the same {"error": ...} envelope as the API handlers.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
