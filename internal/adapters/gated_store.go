package adapters

import (
	"context"

	"otkaz/internal/host"
	"otkaz/internal/kv"
)

// GatedStore hides a remote store behind the host's CloudStorage capability.
// Without the capability reads report no data and writes fail with
// kv.ErrUnsupported, matching a host that has no cloud storage at all.
type GatedStore struct {
	remote  kv.Store
	enabled bool
}

var _ kv.Store = (*GatedStore)(nil)

func NewGatedStore(remote kv.Store, caps host.Capabilities) *GatedStore {
	return &GatedStore{remote: remote, enabled: caps.CloudStorage && remote != nil}
}

// Enabled reports whether calls reach the wrapped store.
func (g *GatedStore) Enabled() bool {
	return g.enabled
}

func (g *GatedStore) Get(ctx context.Context, key string) (string, bool, error) {
	if !g.enabled {
		return "", false, nil
	}
	return g.remote.Get(ctx, key)
}

func (g *GatedStore) Set(ctx context.Context, key, value string) error {
	if !g.enabled {
		return kv.ErrUnsupported
	}
	return g.remote.Set(ctx, key, value)
}
