//go:build linux || darwin

// File: core/backend/poll_unix.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later
//
// Polling backend: poll(2). Keeps a rebuildable array of pollfd entries and
// scans every registered descriptor on each Wait call. O(n) per wait, no
// practical ceiling on descriptor values beyond OS limits.

package backend

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/brianlions/nebula/api"
)

type pollBackend struct {
	pfds   []unix.PollFd
	index  map[int]int // fd -> position in pfds
	closed bool
}

func newPollBackend() (api.Backend, error) {
	return &pollBackend{
		index: make(map[int]int),
	}, nil
}

func (b *pollBackend) Name() string { return "poll" }

func (b *pollBackend) Register(fd int, interest api.EventMask) error {
	if _, ok := b.index[fd]; ok {
		return fmt.Errorf("poll register fd %d: %w", fd, api.ErrAlreadyRegistered)
	}
	b.index[fd] = len(b.pfds)
	b.pfds = append(b.pfds, unix.PollFd{
		Fd:     int32(fd),
		Events: maskToPoll(interest),
	})
	return nil
}

func (b *pollBackend) Modify(fd int, interest api.EventMask) error {
	i, ok := b.index[fd]
	if !ok {
		return fmt.Errorf("poll modify fd %d: %w", fd, api.ErrNotRegistered)
	}
	b.pfds[i].Events = maskToPoll(interest)
	return nil
}

func (b *pollBackend) Unregister(fd int) error {
	i, ok := b.index[fd]
	if !ok {
		return fmt.Errorf("poll unregister fd %d: %w", fd, api.ErrNotRegistered)
	}
	// Swap the last entry into the vacated slot to keep the array dense.
	last := len(b.pfds) - 1
	if i != last {
		b.pfds[i] = b.pfds[last]
		b.index[int(b.pfds[i].Fd)] = i
	}
	b.pfds = b.pfds[:last]
	delete(b.index, fd)
	return nil
}

func (b *pollBackend) Wait(timeout time.Duration, out []api.Event) (int, error) {
	if b.closed {
		return 0, fmt.Errorf("poll wait: %w", api.ErrClosed)
	}
	n, err := unix.Poll(b.pfds, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("poll wait: %w", err)
	}
	if n <= 0 {
		return 0, nil
	}
	count := 0
	for i := range b.pfds {
		if count == len(out) {
			break
		}
		revents := b.pfds[i].Revents
		if revents == 0 {
			continue
		}
		out[count] = api.Event{
			FD:     int(b.pfds[i].Fd),
			Events: pollToMask(revents),
		}
		b.pfds[i].Revents = 0
		count++
	}
	return count, nil
}

func (b *pollBackend) Close() error {
	b.closed = true
	b.pfds = nil
	b.index = nil
	return nil
}

// Registered returns the fds currently held by this backend.
func (b *pollBackend) Registered() []int {
	fds := make([]int, 0, len(b.index))
	for fd := range b.index {
		fds = append(fds, fd)
	}
	return fds
}

func maskToPoll(m api.EventMask) int16 {
	var events int16
	if m&api.EventRead != 0 {
		events |= unix.POLLIN | unix.POLLPRI
	}
	if m&api.EventWrite != 0 {
		events |= unix.POLLOUT
	}
	return events
}

func pollToMask(revents int16) api.EventMask {
	var m api.EventMask
	if revents&(unix.POLLIN|unix.POLLPRI) != 0 {
		m |= api.EventRead
	}
	if revents&unix.POLLOUT != 0 {
		m |= api.EventWrite
	}
	if revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
		m |= api.EventError
	}
	if revents&unix.POLLHUP != 0 {
		m |= api.EventHangup
	}
	return m
}
