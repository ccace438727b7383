// File: loop/options.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

package loop

import (
	"time"

	"github.com/brianlions/nebula/api"
	"github.com/brianlions/nebula/core/backend"
)

const (
	// DefaultMaxIdleInterval bounds a single backend wait when no timer is
	// pending. The wake descriptor makes long waits interruptible, so this
	// is a safety net rather than a latency knob.
	DefaultMaxIdleInterval = 10 * time.Second

	// DefaultEventBatchSize is the capacity of the readiness buffer handed
	// to Backend.Wait on every cycle.
	DefaultEventBatchSize = 128
)

type config struct {
	kind      backend.Kind
	backend   api.Backend
	maxIdle   time.Duration
	batchSize int
	logger    api.Logger
	faultHook FaultHook
}

// Option configures an EventLoop at construction time.
type Option func(*config)

// WithBackendKind selects the multiplexing backend variant. The default
// picks the most capable variant available on the platform.
func WithBackendKind(kind backend.Kind) Option {
	return func(c *config) { c.kind = kind }
}

// WithBackend installs a caller-supplied backend instead of constructing
// one. The loop takes ownership and closes it with Close.
func WithBackend(b api.Backend) Option {
	return func(c *config) { c.backend = b }
}

// WithMaxIdleInterval bounds how long a cycle may block in the backend
// when no timer deadline is nearer. Non-positive values restore the
// default.
func WithMaxIdleInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.maxIdle = d
		}
	}
}

// WithEventBatchSize sets how many readiness events a single backend wait
// may report. Values below 1 restore the default.
func WithEventBatchSize(n int) Option {
	return func(c *config) {
		if n >= 1 {
			c.batchSize = n
		}
	}
}

// WithLogger attaches a structured logger. A nil logger disables logging.
func WithLogger(l api.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithFaultHook installs a callback invoked for every recovered handler
// or timer panic. Without a hook, faults are only logged.
func WithFaultHook(h FaultHook) Option {
	return func(c *config) { c.faultHook = h }
}

func defaultConfig() config {
	return config{
		kind:      backend.KindDefault,
		maxIdle:   DefaultMaxIdleInterval,
		batchSize: DefaultEventBatchSize,
	}
}
