//go:build !linux && !darwin

// File: core/backend/backend_stub.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

package backend

import (
	"fmt"

	"github.com/brianlions/nebula/api"
)

func newPollBackend() (api.Backend, error) {
	return nil, fmt.Errorf("poll backend: %w", api.ErrNotSupported)
}

func newSelectBackend() (api.Backend, error) {
	return nil, fmt.Errorf("select backend: %w", api.ErrNotSupported)
}
