package backend

import (
	"context"
	"fmt"
	"log/slog"

	"otkaz/internal/adapters"
	"otkaz/internal/core"
	"otkaz/internal/host"
	"otkaz/internal/kv"
	gkv "otkaz/internal/kv/google"
	"otkaz/internal/kv/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger

	// sheets is swapped in tests.
	sheets func(ctx context.Context) (kv.Store, error)
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		sheets: func(ctx context.Context) (kv.Store, error) { return gkv.NewFromEnv(ctx) },
	}
}

// CreateBackend implements Factory.CreateBackend. The returned store is
// always gated on the host capabilities, so a host without cloud storage
// sees no remote data whatever the backend.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	caps := host.Resolve(config.HostVersion)

	var (
		remote kv.Store
		err    error
	)
	switch config.Type {
	case NoneBackend:
		remote = nil
	case SheetsBackend:
		remote, err = f.sheets(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets store: %w", err)
		}
	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		remote = memory.NewFromFiles(dataDir, core.ReportsKey, core.SettingsKey)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	gated := adapters.NewGatedStore(remote, caps)
	f.logger.Info("Initialized remote store",
		"backend", config.Type,
		"host_version", caps.Version,
		"cloud_storage", gated.Enabled())

	return &BackendResult{
		Remote:       gated,
		Capabilities: caps,
	}, nil
}
