//go:build !linux

// File: core/backend/indexed_stub.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

package backend

import (
	"fmt"

	"github.com/brianlions/nebula/api"
)

// The indexed backend is epoll-based and Linux only; other platforms fall
// back to the polling or bitset variants.
func newIndexedBackend() (api.Backend, error) {
	return nil, fmt.Errorf("indexed backend: %w", api.ErrNotSupported)
}
