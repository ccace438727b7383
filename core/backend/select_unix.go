//go:build linux || darwin

// File: core/backend/select_unix.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later
//
// Bitset backend: select(2). Interest is represented as fixed-size fd sets,
// rebuilt before every wait, so each call scans a bounded descriptor range.
// Descriptors at or above FD_SETSIZE are rejected with a capacity error at
// registration time, never discovered later.

package backend

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/brianlions/nebula/api"
)

// selectCapacity is the highest descriptor value representable in an fd set.
const selectCapacity = unix.FD_SETSIZE

type selectBackend struct {
	interest map[int]api.EventMask
	closed   bool
}

func newSelectBackend() (api.Backend, error) {
	return &selectBackend{
		interest: make(map[int]api.EventMask),
	}, nil
}

func (b *selectBackend) Name() string { return "select" }

func (b *selectBackend) Register(fd int, interest api.EventMask) error {
	if fd < 0 || fd >= selectCapacity {
		return fmt.Errorf("select register fd %d (max %d): %w",
			fd, selectCapacity-1, api.ErrCapacity)
	}
	if _, ok := b.interest[fd]; ok {
		return fmt.Errorf("select register fd %d: %w", fd, api.ErrAlreadyRegistered)
	}
	b.interest[fd] = interest
	return nil
}

func (b *selectBackend) Modify(fd int, interest api.EventMask) error {
	if _, ok := b.interest[fd]; !ok {
		return fmt.Errorf("select modify fd %d: %w", fd, api.ErrNotRegistered)
	}
	b.interest[fd] = interest
	return nil
}

func (b *selectBackend) Unregister(fd int) error {
	if _, ok := b.interest[fd]; !ok {
		return fmt.Errorf("select unregister fd %d: %w", fd, api.ErrNotRegistered)
	}
	delete(b.interest, fd)
	return nil
}

func (b *selectBackend) Wait(timeout time.Duration, out []api.Event) (int, error) {
	if b.closed {
		return 0, fmt.Errorf("select wait: %w", api.ErrClosed)
	}

	var rset, wset, eset unix.FdSet
	nfds := 0
	for fd, mask := range b.interest {
		if mask&api.EventRead != 0 {
			rset.Set(fd)
		}
		if mask&api.EventWrite != 0 {
			wset.Set(fd)
		}
		// Exceptional conditions are watched for every registrant.
		eset.Set(fd)
		if fd+1 > nfds {
			nfds = fd + 1
		}
	}

	var tv *unix.Timeval
	if timeout >= 0 {
		t := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &t
	}

	n, err := unix.Select(nfds, &rset, &wset, &eset, tv)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("select wait: %w", err)
	}
	if n <= 0 {
		return 0, nil
	}

	count := 0
	for fd := 0; fd < nfds && count < len(out); fd++ {
		if _, ok := b.interest[fd]; !ok {
			continue
		}
		var m api.EventMask
		if rset.IsSet(fd) {
			m |= api.EventRead
		}
		if wset.IsSet(fd) {
			m |= api.EventWrite
		}
		if eset.IsSet(fd) {
			m |= api.EventError
		}
		if m == 0 {
			continue
		}
		out[count] = api.Event{FD: fd, Events: m}
		count++
	}
	return count, nil
}

func (b *selectBackend) Close() error {
	b.closed = true
	b.interest = nil
	return nil
}

// Registered returns the fds currently held by this backend.
func (b *selectBackend) Registered() []int {
	fds := make([]int, 0, len(b.interest))
	for fd := range b.interest {
		fds = append(fds, fd)
	}
	return fds
}
