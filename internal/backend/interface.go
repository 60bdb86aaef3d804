package backend

import (
	"context"

	"otkaz/internal/host"
	"otkaz/internal/kv"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult is the remote store behind the host capability gate,
// together with the capabilities it was gated on.
type BackendResult struct {
	Remote       kv.Store
	Capabilities host.Capabilities
	Cleanup      CleanupFunc
}

// Factory creates remote stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for remote store creation
type Config struct {
	Type BackendType

	// HostVersion is the WebApp version whose capabilities gate the store.
	HostVersion string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of remote store
type BackendType string

const (
	NoneBackend   BackendType = "none"
	MemoryBackend BackendType = "memory"
	SheetsBackend BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case NoneBackend, MemoryBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
