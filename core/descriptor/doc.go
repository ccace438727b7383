// File: core/descriptor/doc.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

// Package descriptor wraps OS handles with uniform non-blocking read,
// write and close operations, and classifies I/O errors into transient
// (retry on next readiness) versus fatal (close the handle). TCP client
// and listener descriptors and a pipe pair are provided; anything with a
// file descriptor can be adapted through Base. Unix platforms only.
package descriptor
