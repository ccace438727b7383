// File: core/backend/backend.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later
//
// Backend selection and helpers shared by all multiplexing variants.

package backend

import (
	"fmt"
	"time"

	"github.com/brianlions/nebula/api"
)

// Kind selects a multiplexing mechanism.
type Kind int

const (
	// KindDefault picks the most capable mechanism available on this
	// platform: indexed, then polling, then bitset.
	KindDefault Kind = iota
	// KindIndexed is the epoll-based indexed backend (Linux only).
	KindIndexed
	// KindPoll is the linear-scan poll(2) backend.
	KindPoll
	// KindSelect is the bitset select(2) backend.
	KindSelect
)

func (k Kind) String() string {
	switch k {
	case KindDefault:
		return "default"
	case KindIndexed:
		return "indexed"
	case KindPoll:
		return "poll"
	case KindSelect:
		return "select"
	default:
		return "unknown"
	}
}

// New constructs a Backend of the requested kind. KindDefault tries each
// mechanism in descending capability order and returns the first one that
// is available; an explicit kind that is unavailable on this platform
// fails with api.ErrNotSupported.
func New(kind Kind) (api.Backend, error) {
	switch kind {
	case KindDefault:
		if b, err := newIndexedBackend(); err == nil {
			return b, nil
		}
		if b, err := newPollBackend(); err == nil {
			return b, nil
		}
		return newSelectBackend()
	case KindIndexed:
		return newIndexedBackend()
	case KindPoll:
		return newPollBackend()
	case KindSelect:
		return newSelectBackend()
	default:
		return nil, fmt.Errorf("backend kind %d: %w", kind, api.ErrNotSupported)
	}
}

// timeoutMillis converts Wait's timeout contract to milliseconds for
// epoll_wait(2) and poll(2): negative blocks indefinitely, zero polls.
// Sub-millisecond positive timeouts round up so they never degrade into a
// busy poll.
func timeoutMillis(d time.Duration) int {
	switch {
	case d < 0:
		return -1
	case d == 0:
		return 0
	default:
		ms := int(d / time.Millisecond)
		if ms == 0 {
			ms = 1
		}
		return ms
	}
}
