package services

import (
	"context"
	"unicode/utf16"

	"otkaz/internal/kv"
)

// DefaultRemoteCeiling is the per-key limit of host cloud storage, in
// UTF-16 code units.
const DefaultRemoteCeiling = 4096

// Pusher delivers a serialized value to the remote store without the caller
// waiting for the outcome.
type Pusher interface {
	Push(ctx context.Context, key, payload string) error
}

// RemotePusher writes straight to the remote store.
type RemotePusher struct {
	Remote kv.Setter
}

func (p RemotePusher) Push(ctx context.Context, key, payload string) error {
	return p.Remote.Set(ctx, key, payload)
}

// RemoteLen counts s the way the host counts characters.
func RemoteLen(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// FitsRemote reports whether payload may be sent to the remote store.
func FitsRemote(payload string, ceiling int) bool {
	return RemoteLen(payload) < ceiling
}
