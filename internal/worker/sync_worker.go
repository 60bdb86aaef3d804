package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"otkaz/internal/amqp"
	"otkaz/internal/cache"
	"otkaz/internal/core"
	"otkaz/internal/kv"
	"otkaz/internal/services"
)

const (
	dedupeSize = 1024
	dedupeTTL  = time.Hour
)

// SyncWorker applies queued cloud-push messages to the remote store.
type SyncWorker struct {
	remote  kv.Store
	ceiling int
	seen    *cache.LRUCache[struct{}]

	mu      sync.Mutex
	applied map[string]time.Time
}

func NewSyncWorker(remote kv.Store, ceiling int) *SyncWorker {
	if ceiling <= 0 {
		ceiling = services.DefaultRemoteCeiling
	}
	return &SyncWorker{
		remote:  remote,
		ceiling: ceiling,
		seen:    cache.NewLRUCache[struct{}](dedupeSize, dedupeTTL),
		applied: make(map[string]time.Time),
	}
}

// Dedupe exposes the processed-message cache so it can be cleaned
// periodically.
func (w *SyncWorker) Dedupe() cache.Cleaner {
	return w.seen
}

// HandleCloudSync writes one message to the remote store. Redeliveries,
// messages older than the last value applied for the same key, report
// lists no longer than the remote copy and oversized payloads are
// acknowledged without a write. A remote failure is
// returned so the message is requeued.
func (w *SyncWorker) HandleCloudSync(ctx context.Context, msg *amqp.CloudSyncMessage) error {
	id := msg.ID.String()
	if _, ok := w.seen.Get(id); ok {
		slog.DebugContext(ctx, "Skipping duplicate cloud sync message", "id", id)
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if last, ok := w.applied[msg.Key]; ok && msg.Timestamp.Before(last) {
		slog.InfoContext(ctx, "Skipping stale cloud sync message",
			"id", id, "key", msg.Key, "timestamp", msg.Timestamp, "applied", last)
		w.seen.Set(id, struct{}{})
		return nil
	}

	if msg.Key == core.ReportsKey {
		behind, err := w.behindRemote(ctx, msg.Payload)
		if err != nil {
			return err
		}
		if behind {
			slog.InfoContext(ctx, "Skipping cloud sync message older than remote copy", "id", id)
			w.seen.Set(id, struct{}{})
			return nil
		}
	}

	if !services.FitsRemote(msg.Payload, w.ceiling) {
		slog.WarnContext(ctx, "Payload too large for cloud storage, dropping message",
			"id", id, "key", msg.Key, "size", services.RemoteLen(msg.Payload), "ceiling", w.ceiling)
		w.seen.Set(id, struct{}{})
		return nil
	}

	if err := w.remote.Set(ctx, msg.Key, msg.Payload); err != nil {
		if errors.Is(err, kv.ErrUnsupported) {
			slog.WarnContext(ctx, "Cloud storage unavailable, dropping message", "id", id, "key", msg.Key)
			w.seen.Set(id, struct{}{})
			return nil
		}
		return fmt.Errorf("write %s to remote store: %w", msg.Key, err)
	}

	w.applied[msg.Key] = msg.Timestamp
	w.seen.Set(id, struct{}{})

	slog.InfoContext(ctx, "Applied cloud sync message",
		"id", id, "key", msg.Key, "size", services.RemoteLen(msg.Payload))
	return nil
}

// behindRemote reports whether the remote report list already holds at
// least as many records as payload. Saves write the remote directly, so a
// queued push can be older than what is stored.
func (w *SyncWorker) behindRemote(ctx context.Context, payload string) (bool, error) {
	current, ok, err := w.remote.Get(ctx, core.ReportsKey)
	if errors.Is(err, kv.ErrUnsupported) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read remote reports: %w", err)
	}
	if !ok {
		return false, nil
	}
	var have, incoming []json.RawMessage
	if json.Unmarshal([]byte(current), &have) != nil || json.Unmarshal([]byte(payload), &incoming) != nil {
		return false, nil
	}
	return len(have) >= len(incoming), nil
}

// StartupSyncCheck runs one reconcile pass before consuming, so that
// pushes lost while the worker was down are redone.
func StartupSyncCheck(ctx context.Context, r *services.Reconciler) error {
	if err := r.RunOnce(ctx); err != nil {
		return fmt.Errorf("startup reconcile: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed")
	return nil
}
