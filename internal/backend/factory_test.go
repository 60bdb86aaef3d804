package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"otkaz/internal/config"
	"otkaz/internal/core"
	"otkaz/internal/kv"
	"otkaz/internal/kv/memory"
)

func TestCreateBackend_MemorySeeded(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, core.SettingsKey+".json"), []byte(`{"costPerDay":300,"currency":"€"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, HostVersion: "7.0", DataDirectory: dir})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Capabilities.CloudStorage {
		t.Fatal("7.0 should support cloud storage")
	}
	v, ok, err := res.Remote.Get(context.Background(), core.SettingsKey)
	if err != nil || !ok || v != `{"costPerDay":300,"currency":"€"}` {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
}

func TestCreateBackend_GatedByHostVersion(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, HostVersion: "6.0", DataDirectory: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if err := res.Remote.Set(context.Background(), core.ReportsKey, "[]"); !errors.Is(err, kv.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestCreateBackend_None(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: NoneBackend, HostVersion: "7.0"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := res.Remote.Get(context.Background(), core.ReportsKey); ok || err != nil {
		t.Fatalf("none backend returned data: %v, %v", ok, err)
	}
}

func TestCreateBackend_Sheets(t *testing.T) {
	f := NewFactory(nil).(*DefaultFactory)
	store := memory.New()
	f.sheets = func(context.Context) (kv.Store, error) { return store, nil }

	res, err := f.CreateBackend(context.Background(), Config{Type: SheetsBackend, HostVersion: "6.9"})
	if err != nil {
		t.Fatal(err)
	}
	if err := res.Remote.Set(context.Background(), core.ReportsKey, "[]"); err != nil {
		t.Fatal(err)
	}
	if store.Writes() != 1 {
		t.Fatal("write did not reach the sheets store")
	}

	f.sheets = func(context.Context) (kv.Store, error) { return nil, errors.New("no credentials") }
	if _, err := f.CreateBackend(context.Background(), Config{Type: SheetsBackend, HostVersion: "7.0"}); err == nil {
		t.Fatal("expected sheets init error")
	}
}

func TestCreateBackend_InvalidType(t *testing.T) {
	if _, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: "redis"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	cfg, err := FromAppConfig(&config.Config{RemoteBackend: "sheets", HostVersion: "8.0", DataDirectory: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != SheetsBackend || cfg.HostVersion != "8.0" || cfg.DataDirectory != "x" {
		t.Fatalf("unexpected %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{RemoteBackend: "sqlite"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 3 || got[0] != "none" || got[2] != "sheets" {
		t.Fatalf("GetBackendTypeStrings() = %v", got)
	}
}
