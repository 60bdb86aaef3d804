package kv

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by stores whose host does not offer cloud storage.
var ErrUnsupported = errors.New("cloud storage unsupported")

// Ports for the key-value stores.
type (
	Getter interface {
		// Get returns the raw value stored under key. ok is false when the key
		// was never written.
		Get(ctx context.Context, key string) (value string, ok bool, err error)
	}

	Setter interface {
		Set(ctx context.Context, key, value string) error
	}

	Store interface {
		Getter
		Setter
	}
)
