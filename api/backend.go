// File: api/backend.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later
//
// Contract implemented by every readiness-multiplexing backend. The event
// loop is written against this interface only; which concrete mechanism
// (epoll, poll, select) backs it is decided once at construction.

package api

import "time"

// WaitForever blocks a Backend.Wait call until at least one event fires.
const WaitForever time.Duration = -1

// Backend multiplexes readiness notification for a set of registered file
// descriptors. Implementations are not safe for concurrent use; a Backend
// is owned and driven by exactly one event loop.
type Backend interface {
	// Name identifies the underlying mechanism ("epoll", "poll", "select").
	Name() string

	// Register starts watching fd for the conditions in interest.
	// Registering an fd twice fails with ErrAlreadyRegistered. A backend
	// with a bounded descriptor range fails with ErrCapacity, leaving its
	// registration set unchanged.
	Register(fd int, interest EventMask) error

	// Modify replaces the interest mask of a registered fd. Fails with
	// ErrNotRegistered if fd was never registered.
	Modify(fd int, interest EventMask) error

	// Unregister stops watching fd. Fails with ErrNotRegistered if fd was
	// never registered.
	Unregister(fd int) error

	// Wait blocks until a registered descriptor is ready, writing
	// notifications into out and returning the count. A timeout of zero
	// polls without blocking, WaitForever (or any negative value) blocks
	// indefinitely, a positive value blocks at most that long. Readiness
	// is level-triggered: a still-ready descriptor is reported again on
	// every call until drained. An interrupted wait returns (0, nil).
	Wait(timeout time.Duration, out []Event) (int, error)

	// Close releases the backend's resources.
	Close() error
}
