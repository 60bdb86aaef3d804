// Package host resolves which Telegram WebApp features the embedding client
// supports, once, from its reported version.
package host

import (
	"strconv"
	"strings"
)

const (
	// MinExpandVersion gates expand() and haptic feedback.
	MinExpandVersion = "6.1"
	// MinCloudStorageVersion gates CloudStorage.
	MinCloudStorageVersion = "6.9"
)

// Capabilities are the host features the server relies on.
type Capabilities struct {
	Version        string `json:"version"`
	Expand         bool   `json:"expand"`
	HapticFeedback bool   `json:"hapticFeedback"`
	CloudStorage   bool   `json:"cloudStorage"`
}

// Resolve computes capabilities for a host version. An empty or malformed
// version supports nothing.
func Resolve(version string) Capabilities {
	version = strings.TrimSpace(version)
	c := Capabilities{Version: version}
	if _, ok := parse(version); !ok {
		return c
	}
	c.Expand = AtLeast(version, MinExpandVersion)
	c.HapticFeedback = c.Expand
	c.CloudStorage = AtLeast(version, MinCloudStorageVersion)
	return c
}

// AtLeast reports whether version >= min, comparing dot-separated numeric
// components. Missing components count as zero.
func AtLeast(version, min string) bool {
	v, ok := parse(version)
	if !ok {
		return false
	}
	m, ok := parse(min)
	if !ok {
		return false
	}
	for i := 0; i < max(len(v), len(m)); i++ {
		a, b := at(v, i), at(m, i)
		if a != b {
			return a > b
		}
	}
	return true
}

func parse(version string) ([]int, bool) {
	if version == "" {
		return nil, false
	}
	parts := strings.Split(version, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

func at(v []int, i int) int {
	if i < len(v) {
		return v[i]
	}
	return 0
}
