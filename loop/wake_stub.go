// File: loop/wake_stub.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

//go:build !linux && !darwin

package loop

import (
	"fmt"

	"github.com/brianlions/nebula/api"
)

type waker struct{}

func newWaker() (*waker, error) {
	return nil, fmt.Errorf("wake descriptor: %w", api.ErrNotSupported)
}

func (w *waker) readFD() int { return -1 }
func (w *waker) signal()     {}
func (w *waker) drain()      {}
func (w *waker) close()      {}
