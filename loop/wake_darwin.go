// File: loop/wake_darwin.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

package loop

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func newWaker() (*waker, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return nil, fmt.Errorf("set nonblock: %w", err)
		}
	}
	return &waker{rfd: fds[0], wfd: fds[1]}, nil
}
