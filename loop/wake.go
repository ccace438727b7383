// File: loop/wake.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

//go:build linux || darwin

package loop

import "golang.org/x/sys/unix"

// waker interrupts a blocked backend wait from another goroutine. Its
// read side is registered in the backend for read readiness; writing to
// the write side makes the wait return immediately.
//
// On Linux both sides are one eventfd, elsewhere a non-blocking pipe.
// Signal and drain both move 8 bytes, which is the mandatory transfer
// unit for eventfd and an arbitrary one for a pipe.
type waker struct {
	rfd int
	wfd int
}

func (w *waker) readFD() int { return w.rfd }

// signal is safe to call from any goroutine. A full pipe means a wakeup
// is already pending, so EAGAIN is ignored.
func (w *waker) signal() {
	var buf [8]byte
	buf[0] = 1
	for {
		_, err := unix.Write(w.wfd, buf[:])
		if err != unix.EINTR {
			return
		}
	}
}

// drain consumes every pending wakeup. Called on the loop goroutine when
// the read side reports readable.
func (w *waker) drain() {
	var buf [8]byte
	for {
		_, err := unix.Read(w.rfd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return
		}
	}
}

func (w *waker) close() {
	unix.Close(w.rfd)
	if w.wfd != w.rfd {
		unix.Close(w.wfd)
	}
}
