// File: api/descriptor.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

package api

// DescriptorState enumerates the lifecycle of a Descriptor.
type DescriptorState int32

const (
	StateOpen DescriptorState = iota
	StateClosing
	StateClosed
)

func (s DescriptorState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Descriptor wraps one OS handle with uniform non-blocking I/O. All methods
// other than Close fail with ErrClosed once the descriptor leaves the open
// state. Read and Write never block: a not-ready handle yields ErrWouldBlock,
// to be retried on the next readiness notification.
type Descriptor interface {
	// FD returns the OS handle identifier.
	FD() int

	// Read fills p with available bytes. Returns ErrWouldBlock when no
	// data is ready, io.EOF when the peer closed the stream.
	Read(p []byte) (int, error)

	// Write sends bytes from p. Returns ErrWouldBlock when the handle
	// cannot accept more data right now.
	Write(p []byte) (int, error)

	// Close releases the OS handle exactly once; closing an already
	// closed descriptor is a no-op, not an error.
	Close() error

	// Interest reports the conditions the descriptor currently wants to
	// be watched for.
	Interest() EventMask

	// SetInterest replaces the interest mask. Takes effect on the owning
	// loop's backend via EventLoop.Modify.
	SetInterest(mask EventMask)

	// State reports the current lifecycle state.
	State() DescriptorState
}
