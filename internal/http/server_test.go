package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"otkaz/internal/advice"
	"otkaz/internal/core"
	"otkaz/internal/host"
	"otkaz/internal/kv/memory"
	"otkaz/internal/middleware/auth"
	"otkaz/internal/middleware/ratelimit"
	"otkaz/internal/services"
)

type fakeGenerator struct {
	prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return "Дыши глубже", nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type failingReports struct{ ReportService }

func (failingReports) LoadReports(context.Context) ([]core.DailyReport, error) {
	return nil, errors.New("disk on fire")
}

type testServer struct {
	*Server
	local *memory.Store
	gen   *fakeGenerator
}

func newTestServer(t *testing.T, mutate func(*Options)) *testServer {
	t.Helper()
	local := memory.New()
	adapter := services.NewSyncAdapter(local, nil, nil, services.DefaultSyncConfig())
	start, _ := time.Parse(core.DayLayout, services.DefaultStartDate)
	gen := &fakeGenerator{}

	opts := Options{
		Addr:         ":0",
		Reports:      adapter,
		Stats:        services.NewStatsService(adapter, adapter, core.DefaultCatalog(), start),
		Advice:       advice.NewRequester(gen, nil),
		Capabilities: host.Resolve("7.0"),
		Store:        fakePinger{},
		RateLimit:    ratelimit.Config{Limit: 1000},
	}
	if mutate != nil {
		mutate(&opts)
	}
	srv := NewServer(opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, local: local, gen: gen}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := s.do(t, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s missing request id", path)
		}
	}

	down := newTestServer(t, func(o *Options) { o.Store = fakePinger{err: errors.New("locked")} })
	rr := down.do(t, http.MethodGet, "/readyz", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing store status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "locked") {
		t.Fatalf("readyz body = %s", rr.Body.String())
	}
}

func TestCreateAndListReports(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(t, http.MethodPost, "/api/reports", ReportRequest{
		DidDrink:      false,
		MoodLevel:     7,
		CravingLevel:  3,
		Triggers:      []string{"stress", "  "},
		Note:          "  fine\x00 day ",
		AlcoholType:   "beer",
		AlcoholAmount: "1",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decode[struct {
		Report core.DailyReport `json:"report"`
		Total  int              `json:"total"`
	}](t, rr)
	if created.Total != 1 || created.Report.Note != "fine day" {
		t.Fatalf("created = %+v", created)
	}
	if created.Report.AlcoholType != "" {
		t.Fatal("sober report must not keep alcohol details")
	}
	if len(created.Report.Triggers) != 1 {
		t.Fatalf("triggers = %v", created.Report.Triggers)
	}

	// Same date replaces the report instead of adding one.
	rr = s.do(t, http.MethodPost, "/api/reports", ReportRequest{Date: created.Report.Date, MoodLevel: 9})
	if rr.Code != http.StatusCreated {
		t.Fatalf("update status=%d", rr.Code)
	}

	rr = s.do(t, http.MethodGet, "/api/reports", nil)
	reports := decode[[]core.DailyReport](t, rr)
	if len(reports) != 1 || reports[0].MoodLevel != 9 {
		t.Fatalf("reports = %+v", reports)
	}
}

func TestCreateReport_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"malformed", `{"moodLevel":`, http.StatusBadRequest},
		{"empty", "", http.StatusBadRequest},
		{"two values", `{} {}`, http.StatusBadRequest},
		{"mood too high", ReportRequest{MoodLevel: 11}, http.StatusUnprocessableEntity},
		{"negative craving", ReportRequest{CravingLevel: -1}, http.StatusUnprocessableEntity},
		{"bad date", ReportRequest{Date: "yesterday"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, http.MethodPost, "/api/reports", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
			if body := decode[ErrorBody](t, rr); body.Error == "" || body.RequestID == "" {
				t.Fatalf("error body = %+v", body)
			}
		})
	}

	if s.local.Writes() != 0 {
		t.Fatal("rejected reports must not be stored")
	}
}

func TestReports_StorageFailure(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.Reports = failingReports{} })

	rr := s.do(t, http.MethodGet, "/api/reports", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "disk on fire") {
		t.Fatal("storage errors must not leak to clients")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		method, path, allow string
	}{
		{http.MethodDelete, "/api/reports", "GET, POST"},
		{http.MethodPost, "/api/stats", "GET"},
		{http.MethodPost, "/api/settings", "GET, PUT"},
		{http.MethodGet, "/api/sos", "POST"},
	}
	for _, tt := range tests {
		rr := s.do(t, tt.method, tt.path, nil)
		if rr.Code != http.StatusMethodNotAllowed || rr.Header().Get("Allow") != tt.allow {
			t.Fatalf("%s %s: status=%d allow=%q", tt.method, tt.path, rr.Code, rr.Header().Get("Allow"))
		}
	}
}

func TestStatsAndHeatmap(t *testing.T) {
	s := newTestServer(t, nil)
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02T15:04:05.000Z")
	for _, req := range []ReportRequest{
		{Date: yesterday, DidDrink: true, MoodLevel: 2, CravingLevel: 9, AlcoholType: "wine"},
		{MoodLevel: 8},
	} {
		if rr := s.do(t, http.MethodPost, "/api/reports", req); rr.Code != http.StatusCreated {
			t.Fatalf("seed status=%d", rr.Code)
		}
	}

	overview := decode[services.Overview](t, s.do(t, http.MethodGet, "/api/stats", nil))
	if overview.Streaks.TotalDays != 2 || overview.Streaks.RelapseCount != 1 {
		t.Fatalf("streaks = %+v", overview.Streaks)
	}
	if overview.DaysSober > 1 {
		t.Fatalf("daysSober = %d after yesterday's relapse", overview.DaysSober)
	}

	rr := s.do(t, http.MethodGet, "/api/heatmap?weeks=2", nil)
	grid := decode[struct {
		Weeks [][]core.HeatDay `json:"weeks"`
	}](t, rr)
	if len(grid.Weeks) < 2 || len(grid.Weeks) > 3 {
		t.Fatalf("heatmap has %d weeks", len(grid.Weeks))
	}
}

func TestParseIntQuery(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 20},
		{"abc", 20},
		{"4", 4},
		{"0", 1},
		{"1000", 104},
	}
	for _, tt := range tests {
		q := url.Values{}
		if tt.raw != "" {
			q.Set("weeks", tt.raw)
		}
		if got := ParseIntQuery(q, "weeks", defaultHeatmapWeeks, 1, maxHeatmapWeeks); got != tt.want {
			t.Errorf("ParseIntQuery(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestSettings(t *testing.T) {
	s := newTestServer(t, nil)

	got := decode[core.UserSettings](t, s.do(t, http.MethodGet, "/api/settings", nil))
	if got.CostPerDay != 500 || got.Currency != "₽" {
		t.Fatalf("default settings = %+v", got)
	}

	rr := s.do(t, http.MethodPut, "/api/settings", core.UserSettings{CostPerDay: 300, Currency: " € ", StartDate: "2025-11-01"})
	if rr.Code != http.StatusOK {
		t.Fatalf("put status=%d body=%s", rr.Code, rr.Body.String())
	}

	got = decode[core.UserSettings](t, s.do(t, http.MethodGet, "/api/settings", nil))
	if got.CostPerDay != 300 || got.Currency != "€" || got.StartDate != "2025-11-01" {
		t.Fatalf("saved settings = %+v", got)
	}

	for _, bad := range []core.UserSettings{
		{CostPerDay: -1, Currency: "€"},
		{CostPerDay: 1, Currency: " "},
		{CostPerDay: 1, Currency: "€", StartDate: "01.11.2025"},
	} {
		if rr := s.do(t, http.MethodPut, "/api/settings", bad); rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%+v: status=%d", bad, rr.Code)
		}
	}
}

func TestMotivation(t *testing.T) {
	s := newTestServer(t, nil)
	m := decode[core.Motivation](t, s.do(t, http.MethodGet, "/api/motivation", nil))
	if m.CostPerDay != 500 || len(m.Achievements) == 0 || len(m.Timeline) != 6 {
		t.Fatalf("motivation = %+v", m)
	}
}

func TestSOS(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(t, http.MethodPost, "/api/sos", SOSRequest{
		CravingLevel: 8,
		MoodLevel:    3,
		Triggers:     []string{"stress", "company"},
		Custom:       []string{"дождь", " "},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[struct {
		Advice   string   `json:"advice"`
		Triggers []string `json:"triggers"`
	}](t, rr)
	if got.Advice != "Дыши глубже" {
		t.Fatalf("advice = %q", got.Advice)
	}
	if strings.Join(got.Triggers, ",") != "компания,стресс,дождь" {
		t.Fatalf("triggers = %v", got.Triggers)
	}
	if !strings.Contains(s.gen.prompt, "компания, стресс, дождь") {
		t.Fatalf("prompt = %q", s.gen.prompt)
	}

	rr = s.do(t, http.MethodPost, "/api/sos", SOSRequest{CravingLevel: 11})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid craving status=%d", rr.Code)
	}
}

func TestSOS_NoKey(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.Advice = advice.NewRequester(nil, nil) })
	rr := s.do(t, http.MethodPost, "/api/sos", SOSRequest{CravingLevel: 5, MoodLevel: 5})
	if got := decode[map[string]any](t, rr)["advice"]; got != advice.MissingKeyMessage {
		t.Fatalf("advice = %v", got)
	}
}

func TestHostAndTriggers(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.Capabilities = host.Resolve("6.2") })

	caps := decode[host.Capabilities](t, s.do(t, http.MethodGet, "/api/host", nil))
	if !caps.Expand || caps.CloudStorage {
		t.Fatalf("caps = %+v", caps)
	}

	catalog := decode[[]core.TriggerItem](t, s.do(t, http.MethodGet, "/api/triggers", nil))
	if len(catalog) != len(core.DefaultCatalog()) {
		t.Fatalf("catalog has %d items", len(catalog))
	}
}

func TestAuthRequired(t *testing.T) {
	const token = "42:secret"
	s := newTestServer(t, func(o *Options) { o.Auth = auth.Config{BotToken: token, AllowedUserID: 7} })

	if rr := s.do(t, http.MethodGet, "/api/stats", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("no init data status=%d", rr.Code)
	}
	if rr := s.do(t, http.MethodGet, "/healthz", nil); rr.Code != http.StatusOK {
		t.Fatalf("health must stay public, status=%d", rr.Code)
	}

	v := url.Values{}
	v.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	v.Set("user", `{"id":7,"first_name":"Owner"}`)
	v.Set("hash", auth.Sign(v, token))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "tma "+v.Encode())
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("owner status=%d", rr.Code)
	}
}

func TestRateLimited(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.RateLimit = ratelimit.Config{Limit: 2} })

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = s.do(t, http.MethodGet, "/api/host", nil).Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

func TestSecurityAndNotFound(t *testing.T) {
	s := newTestServer(t, nil)

	if rr := s.do(t, http.MethodGet, "/.git/config", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("scan status=%d", rr.Code)
	}
	rr := s.do(t, http.MethodGet, "/nope", nil)
	if rr.Code != http.StatusNotFound || decode[ErrorBody](t, rr).Error != "not found" {
		t.Fatalf("unknown path: %d %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Fatal("security headers missing")
	}
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodPost, "/api/reports", ReportRequest{MoodLevel: 5})
	s.do(t, http.MethodGet, "/wp-admin/", nil)

	body := s.do(t, http.MethodGet, "/metrics", nil).Body.String()
	for _, want := range []string{
		"reports_saved_total 1\n",
		"blocked_requests_total 1\n",
		"cloud_storage_enabled 1\n",
		"# TYPE http_requests_total counter",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
