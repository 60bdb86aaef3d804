package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestFindRow(t *testing.T) {
	rows := [][]any{
		{},
		{"otkaz_alco_settings", `{"costPerDay":500}`},
		{" otkaz_alco_reports ", "[]"},
		{"lonely"},
	}

	row, value, ok := findRow(rows, "otkaz_alco_reports")
	if !ok || row != 3 || value != "[]" {
		t.Fatalf("got row=%d value=%q ok=%v", row, value, ok)
	}
	if row, value, ok = findRow(rows, "lonely"); !ok || row != 4 || value != "" {
		t.Fatalf("key without value: row=%d value=%q ok=%v", row, value, ok)
	}
	if _, _, ok = findRow(rows, "missing"); ok {
		t.Fatal("missing key found")
	}
}

// fakeSheets serves the three Values calls the client makes.
type fakeSheets struct {
	mu      sync.Mutex
	rows    [][]any
	updates int
	appends int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body struct {
		Values [][]any `json:"values"`
	}
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"range": "Storage!A1:B10", "values": f.rows})
	case r.Method == http.MethodPut:
		f.updates++
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.Contains(r.URL.Path, ":append"):
		f.appends++
		f.rows = append(f.rows, body.Values...)
		_, _ = w.Write([]byte(`{}`))
	default:
		http.NotFound(w, r)
	}
}

func newFakeClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return New(svc, "sheet-id", "")
}

func TestClientGetAndSet(t *testing.T) {
	fake := &fakeSheets{rows: [][]any{{"otkaz_alco_settings", `{"currency":"€"}`}}}
	c := newFakeClient(t, fake)
	ctx := context.Background()

	v, ok, err := c.Get(ctx, "otkaz_alco_settings")
	if err != nil || !ok || v != `{"currency":"€"}` {
		t.Fatalf("get: v=%q ok=%v err=%v", v, ok, err)
	}
	if _, ok, err = c.Get(ctx, "otkaz_alco_reports"); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, "otkaz_alco_settings", "{}"); err != nil {
		t.Fatalf("set existing: %v", err)
	}
	if err := c.Set(ctx, "otkaz_alco_reports", "[]"); err != nil {
		t.Fatalf("set new: %v", err)
	}
	if fake.updates != 1 || fake.appends != 1 {
		t.Fatalf("updates=%d appends=%d", fake.updates, fake.appends)
	}
}

func TestClientWithoutService(t *testing.T) {
	c := &Client{}
	if _, _, err := c.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error without service")
	}
	if err := c.Set(context.Background(), "k", "v"); err == nil {
		t.Fatal("expected error without service")
	}
}
