// File: histogram/doc.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

// Package histogram accumulates non-negative samples (latencies, sizes)
// into geometrically spaced buckets and renders a plain-text report. It
// has no dependency on the event engine.
package histogram
