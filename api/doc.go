// File: api/doc.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

// Package api defines the contracts shared by every layer of the nebula
// event engine: the readiness-multiplexing Backend, the non-blocking
// Descriptor wrapper, the Handler callback set, event masks, and the
// error taxonomy. Concrete implementations live under core/ and loop/.
package api
