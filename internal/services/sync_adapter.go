package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"otkaz/internal/core"
	"otkaz/internal/kv"
)

// MergePolicy decides how a local and a remote report history are combined
// on load.
type MergePolicy string

const (
	// MergeByCount lets the copy holding more records win.
	MergeByCount MergePolicy = "count"
	// MergeUnion keeps every record of both copies, keyed by date.
	MergeUnion MergePolicy = "union"
)

func (p MergePolicy) IsValid() bool {
	return p == MergeByCount || p == MergeUnion
}

// SyncConfig holds the Sync Adapter settings.
type SyncConfig struct {
	Policy MergePolicy

	// Ceiling is the exclusive remote payload limit (default: 4096).
	Ceiling int

	// PushTimeout bounds a background push (default: 10s).
	PushTimeout time.Duration
}

func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Policy:      MergeByCount,
		Ceiling:     DefaultRemoteCeiling,
		PushTimeout: 10 * time.Second,
	}
}

// Observer is told about every successfully saved report history.
type Observer interface {
	ReportsSaved(ctx context.Context, reports []core.DailyReport)
}

// SyncAdapter keeps the local and the remote copy of reports and settings in
// step. Only local-store failures are returned to callers; remote problems
// are logged and treated as "no remote data".
type SyncAdapter struct {
	local  kv.Store
	remote kv.Store
	pusher Pusher
	config SyncConfig
	now    func() time.Time

	// serializes read-modify-write of the report list
	mu        sync.Mutex
	pushes    sync.WaitGroup
	observers []Observer
}

func NewSyncAdapter(local, remote kv.Store, pusher Pusher, config SyncConfig) *SyncAdapter {
	if pusher == nil && remote != nil {
		pusher = RemotePusher{Remote: remote}
	}
	if !config.Policy.IsValid() {
		config.Policy = MergeByCount
	}
	if config.Ceiling <= 0 {
		config.Ceiling = DefaultRemoteCeiling
	}
	if config.PushTimeout <= 0 {
		config.PushTimeout = 10 * time.Second
	}
	return &SyncAdapter{
		local:  local,
		remote: remote,
		pusher: pusher,
		config: config,
		now:    time.Now,
	}
}

// AddObserver registers o for save notifications. Not safe to call
// concurrently with SaveReport.
func (s *SyncAdapter) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// LoadReports returns the report history, reconciling local and remote.
// A push it starts runs in the background.
func (s *SyncAdapter) LoadReports(ctx context.Context) ([]core.DailyReport, error) {
	return s.loadReports(ctx, nil)
}

// Reconcile is LoadReports that also waits for the push it starts.
func (s *SyncAdapter) Reconcile(ctx context.Context) ([]core.DailyReport, error) {
	var pass sync.WaitGroup
	reports, err := s.loadReports(ctx, &pass)
	pass.Wait()
	return reports, err
}

func (s *SyncAdapter) loadReports(ctx context.Context, pass *sync.WaitGroup) ([]core.DailyReport, error) {
	// A save must not land between the reads and the local rewrite below.
	s.mu.Lock()
	defer s.mu.Unlock()

	var local, remote []core.DailyReport

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		local, err = s.readLocalReports(gctx)
		return err
	})
	g.Go(func() error {
		remote = s.readRemoteReports(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.config.Policy == MergeUnion {
		return s.mergeUnion(ctx, local, remote, pass)
	}

	switch {
	case len(remote) > len(local):
		slog.InfoContext(ctx, "Remote reports are newer, replacing local copy",
			"local_count", len(local), "remote_count", len(remote))
		if err := s.writeLocalReports(ctx, remote); err != nil {
			return nil, err
		}
		return remote, nil
	case len(local) > 0 && len(remote) == 0:
		s.pushReports(ctx, local, pass)
		return local, nil
	case len(local) > 0:
		return local, nil
	default:
		return remote, nil
	}
}

func (s *SyncAdapter) mergeUnion(ctx context.Context, local, remote []core.DailyReport, pass *sync.WaitGroup) ([]core.DailyReport, error) {
	merged := append([]core.DailyReport(nil), local...)
	for _, r := range remote {
		if !containsDate(merged, r.Date) {
			merged = append(merged, r)
		}
	}
	merged = core.NewestFirst(merged)

	if len(merged) != len(local) {
		if err := s.writeLocalReports(ctx, merged); err != nil {
			return nil, err
		}
	}
	if len(merged) != len(remote) {
		s.pushReports(ctx, merged, pass)
	}
	return merged, nil
}

// SaveReport upserts r into the local history and mirrors the result to the
// remote store when it fits. It returns the updated history.
func (s *SyncAdapter) SaveReport(ctx context.Context, r core.DailyReport) ([]core.DailyReport, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("validate report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.readLocalReports(ctx)
	if err != nil {
		return nil, err
	}
	updated := core.Upsert(current, r)

	payload, err := encode(updated)
	if err != nil {
		return nil, fmt.Errorf("encode reports: %w", err)
	}
	if err := s.local.Set(ctx, core.ReportsKey, payload); err != nil {
		return nil, fmt.Errorf("write local reports: %w", err)
	}

	s.writeRemote(ctx, core.ReportsKey, payload)

	for _, o := range s.observers {
		o.ReportsSaved(ctx, updated)
	}
	return updated, nil
}

// LoadSettings returns the remote settings when present, else the local
// ones, else defaults. Stored values are merged over defaults.
func (s *SyncAdapter) LoadSettings(ctx context.Context) core.UserSettings {
	defaults := core.DefaultSettings(s.now())

	if raw, ok := s.readRemote(ctx, core.SettingsKey); ok {
		settings, err := mergeSettings(defaults, raw)
		if err == nil {
			if payload, err := encode(settings); err == nil {
				if err := s.local.Set(ctx, core.SettingsKey, payload); err != nil {
					slog.WarnContext(ctx, "Failed to cache remote settings locally", "error", err)
				}
			}
			return settings
		}
		slog.WarnContext(ctx, "Ignoring unparsable remote settings", "error", err)
	}

	raw, ok, err := s.local.Get(ctx, core.SettingsKey)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read local settings", "error", err)
		return defaults
	}
	if ok {
		settings, err := mergeSettings(defaults, raw)
		if err == nil {
			return settings
		}
		slog.WarnContext(ctx, "Ignoring unparsable local settings", "error", err)
	}
	return defaults
}

// SaveSettings overwrites the settings locally, then remotely.
func (s *SyncAdapter) SaveSettings(ctx context.Context, settings core.UserSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}
	payload, err := encode(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.local.Set(ctx, core.SettingsKey, payload); err != nil {
		return fmt.Errorf("write local settings: %w", err)
	}
	s.writeRemote(ctx, core.SettingsKey, payload)
	return nil
}

// Wait blocks until background pushes have finished. Call it only once
// nothing else loads or saves, as on shutdown.
func (s *SyncAdapter) Wait() {
	s.pushes.Wait()
}

func (s *SyncAdapter) readLocalReports(ctx context.Context) ([]core.DailyReport, error) {
	raw, ok, err := s.local.Get(ctx, core.ReportsKey)
	if err != nil {
		return nil, fmt.Errorf("read local reports: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []core.DailyReport{}, nil
	}
	reports, err := decodeReports(raw)
	if err != nil {
		return nil, fmt.Errorf("decode local reports: %w", err)
	}
	return reports, nil
}

func (s *SyncAdapter) writeLocalReports(ctx context.Context, reports []core.DailyReport) error {
	payload, err := encode(reports)
	if err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}
	if err := s.local.Set(ctx, core.ReportsKey, payload); err != nil {
		return fmt.Errorf("write local reports: %w", err)
	}
	return nil
}

func (s *SyncAdapter) readRemoteReports(ctx context.Context) []core.DailyReport {
	raw, ok := s.readRemote(ctx, core.ReportsKey)
	if !ok {
		return []core.DailyReport{}
	}
	reports, err := decodeReports(raw)
	if err != nil {
		slog.WarnContext(ctx, "Ignoring unparsable remote reports", "error", err)
		return []core.DailyReport{}
	}
	return reports
}

// readRemote returns the remote value for key; any failure reads as absent.
func (s *SyncAdapter) readRemote(ctx context.Context, key string) (string, bool) {
	if s.remote == nil {
		return "", false
	}
	raw, ok, err := s.remote.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "Remote read failed", "key", key, "error", err)
		return "", false
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return "", false
	}
	return raw, true
}

// writeRemote writes and waits, swallowing any failure.
func (s *SyncAdapter) writeRemote(ctx context.Context, key, payload string) {
	if s.remote == nil {
		return
	}
	if !FitsRemote(payload, s.config.Ceiling) {
		slog.WarnContext(ctx, "Payload too large for cloud storage, keeping it local only",
			"key", key, "size", RemoteLen(payload), "ceiling", s.config.Ceiling)
		return
	}
	if err := s.remote.Set(ctx, key, payload); err != nil {
		if errors.Is(err, kv.ErrUnsupported) {
			slog.DebugContext(ctx, "Cloud storage unavailable", "key", key)
			return
		}
		slog.WarnContext(ctx, "Remote write failed", "key", key, "error", err)
	}
}

// pushReports hands reports to the pusher in the background. pass, when
// set, is told about the push as well.
func (s *SyncAdapter) pushReports(ctx context.Context, reports []core.DailyReport, pass *sync.WaitGroup) {
	if s.pusher == nil {
		return
	}
	payload, err := encode(reports)
	if err != nil {
		slog.WarnContext(ctx, "Failed to encode reports for push", "error", err)
		return
	}
	if !FitsRemote(payload, s.config.Ceiling) {
		slog.WarnContext(ctx, "Payload too large for cloud storage, skipping push",
			"size", RemoteLen(payload), "ceiling", s.config.Ceiling)
		return
	}

	s.pushes.Add(1)
	if pass != nil {
		pass.Add(1)
	}
	go func() {
		defer s.pushes.Done()
		if pass != nil {
			defer pass.Done()
		}
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.PushTimeout)
		defer cancel()
		if err := s.pusher.Push(pctx, core.ReportsKey, payload); err != nil && !errors.Is(err, kv.ErrUnsupported) {
			slog.WarnContext(pctx, "Background push failed", "key", core.ReportsKey, "error", err)
		}
	}()
}

func containsDate(reports []core.DailyReport, date string) bool {
	for _, r := range reports {
		if r.Date == date {
			return true
		}
	}
	return false
}

func decodeReports(raw string) ([]core.DailyReport, error) {
	var reports []core.DailyReport
	if err := json.Unmarshal([]byte(raw), &reports); err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []core.DailyReport{}
	}
	return reports, nil
}

func mergeSettings(defaults core.UserSettings, raw string) (core.UserSettings, error) {
	settings := defaults
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return defaults, err
	}
	return settings, nil
}

// encode serializes v without HTML escaping, so sizes match what the mini
// app itself would store.
func encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
