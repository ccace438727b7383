// File: core/descriptor/descriptor.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later
//
// Base descriptor: one OS handle, non-blocking by construction, with
// idempotent close and errno classification.

package descriptor

import (
	"fmt"
	"io"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/brianlions/nebula/api"
)

// Base wraps a file descriptor and implements api.Descriptor. The handle
// is switched to non-blocking mode at construction; Read and Write never
// block the calling goroutine.
type Base struct {
	fd       int
	state    atomic.Int32  // api.DescriptorState
	interest atomic.Uint32 // api.EventMask
}

// NewBase takes ownership of fd, switches it to non-blocking mode and
// returns the wrapper. On error the fd is left untouched and still owned
// by the caller.
func NewBase(fd int, interest api.EventMask) (*Base, error) {
	if fd < 0 {
		return nil, fmt.Errorf("descriptor fd %d: invalid handle", fd)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, fmt.Errorf("descriptor fd %d: set nonblock: %w", fd, err)
	}
	b := &Base{fd: fd}
	b.state.Store(int32(api.StateOpen))
	b.interest.Store(uint32(interest))
	return b, nil
}

// FD returns the OS handle identifier.
func (b *Base) FD() int { return b.fd }

// State reports the lifecycle state.
func (b *Base) State() api.DescriptorState {
	return api.DescriptorState(b.state.Load())
}

// Interest reports the conditions currently wanted.
func (b *Base) Interest() api.EventMask {
	return api.EventMask(b.interest.Load())
}

// SetInterest replaces the interest mask.
func (b *Base) SetInterest(mask api.EventMask) {
	b.interest.Store(uint32(mask))
}

// Read fills p with available bytes. A not-ready handle yields
// api.ErrWouldBlock; a zero-length transfer on a non-empty buffer reports
// io.EOF (peer closed the stream).
func (b *Base) Read(p []byte) (int, error) {
	if b.State() != api.StateOpen {
		return 0, api.ErrClosed
	}
	for {
		n, err := unix.Read(b.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, api.ErrWouldBlock
		}
		if err != nil {
			return 0, fmt.Errorf("read fd %d: %w", b.fd, err)
		}
		if n == 0 && len(p) > 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

// Write sends bytes from p, returning the count transferred. A handle
// that cannot accept more data yields api.ErrWouldBlock.
func (b *Base) Write(p []byte) (int, error) {
	if b.State() != api.StateOpen {
		return 0, api.ErrClosed
	}
	for {
		n, err := unix.Write(b.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, api.ErrWouldBlock
		}
		if err != nil {
			return 0, fmt.Errorf("write fd %d: %w", b.fd, err)
		}
		return n, nil
	}
}

// Close releases the OS handle exactly once. A second Close is a no-op.
func (b *Base) Close() error {
	if !b.state.CompareAndSwap(int32(api.StateOpen), int32(api.StateClosing)) {
		return nil
	}
	err := unix.Close(b.fd)
	b.state.Store(int32(api.StateClosed))
	if err != nil {
		return fmt.Errorf("close fd %d: %w", b.fd, err)
	}
	return nil
}
