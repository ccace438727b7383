// File: core/backend/doc.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

// Package backend provides the concrete readiness-multiplexing strategies
// behind api.Backend: an indexed epoll(7) backend on Linux, a linear-scan
// poll(2) backend, and a bitset select(2) backend with a bounded descriptor
// range. New selects among them in descending capability order.
package backend
