// File: api/events.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later
//
// Event mask bits and the readiness record reported by Backend.Wait.

package api

import "strings"

// EventMask is a bitmask of I/O conditions. Interest masks use only
// EventRead and EventWrite; observed masks returned by a Backend may
// additionally carry EventError and EventHangup.
type EventMask uint32

const (
	// EventRead indicates the descriptor is (or should be watched for
	// becoming) readable.
	EventRead EventMask = 1 << iota
	// EventWrite indicates the descriptor is (or should be watched for
	// becoming) writable.
	EventWrite
	// EventError indicates an error condition on the descriptor.
	EventError
	// EventHangup indicates the peer closed its end of the connection.
	EventHangup
)

// Has reports whether all bits are set in m.
func (m EventMask) Has(bits EventMask) bool {
	return m&bits == bits
}

// String returns a compact "read|write|err|hup" representation.
func (m EventMask) String() string {
	if m == 0 {
		return "none"
	}
	names := make([]string, 0, 4)
	if m&EventRead != 0 {
		names = append(names, "read")
	}
	if m&EventWrite != 0 {
		names = append(names, "write")
	}
	if m&EventError != 0 {
		names = append(names, "err")
	}
	if m&EventHangup != 0 {
		names = append(names, "hup")
	}
	return strings.Join(names, "|")
}

// Event is one readiness notification: the descriptor identifier and the
// conditions observed on it.
type Event struct {
	FD     int
	Events EventMask
}
