// File: loop/doc.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

// Package loop implements the event dispatch engine: a single-threaded
// reactor that owns one readiness backend, the descriptor-to-handler
// registry, and the timer queue. Handlers and timer callbacks always run
// on the loop goroutine; the only thread-safe entry points are Stop,
// Submit and the timer scheduling methods, which wake a blocked wait.
package loop
