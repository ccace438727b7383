// File: core/descriptor/pipe.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

package descriptor

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/brianlions/nebula/api"
)

// Pipe returns the two ends of a non-blocking pipe as descriptors: r has
// read interest, w has write interest. Useful for loop self-notification
// and for tests.
func Pipe() (r, w *Base, err error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, nil, fmt.Errorf("pipe: %w", err)
	}
	r, err = NewBase(fds[0], api.EventRead)
	if err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return nil, nil, err
	}
	w, err = NewBase(fds[1], api.EventWrite)
	if err != nil {
		r.Close()
		unix.Close(fds[1])
		return nil, nil, err
	}
	return r, w, nil
}

// SocketPair returns both ends of a connected unix-domain stream pair,
// each readable and writable. Primarily a test fixture.
func SocketPair() (a, b *Base, err error) {
	var fds [2]int
	fds, err = unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("socketpair: %w", err)
	}
	a, err = NewBase(fds[0], api.EventRead|api.EventWrite)
	if err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return nil, nil, err
	}
	b, err = NewBase(fds[1], api.EventRead|api.EventWrite)
	if err != nil {
		a.Close()
		unix.Close(fds[1])
		return nil, nil, err
	}
	return a, b, nil
}
