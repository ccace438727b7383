// File: core/timer/doc.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

// Package timer implements the deadline-ordered schedule of one-shot and
// recurring callbacks used by the event loop. Cancellation invalidates a
// token instead of removing the heap entry; invalid entries are discarded
// when they surface at the head of the queue.
package timer
