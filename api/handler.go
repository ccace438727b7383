// File: api/handler.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

package api

// Handler bundles the application callbacks bound to one Descriptor. Every
// slot is optional; a nil callback means the event is ignored. Callbacks
// run on the loop goroutine, must not block, and may register or
// unregister descriptors freely (mutations are applied after the current
// dispatch pass).
type Handler struct {
	// OnReadable fires when the descriptor has data to read.
	OnReadable func(d Descriptor)
	// OnWritable fires when the descriptor can accept more data.
	OnWritable func(d Descriptor)
	// OnError fires on a fatal descriptor fault; the loop unregisters and
	// closes the descriptor afterwards.
	OnError func(d Descriptor, err error)
	// OnTimeout fires when a deadline armed via EventLoop.SetDeadline
	// expires.
	OnTimeout func(d Descriptor)
	// Context is an opaque value carried for the application's benefit.
	Context any
}
