// File: highlevel/doc.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

// Package highlevel is the convenience surface over core/descriptor: plain
// and SOCKS5-proxied dialing, listening, and adoption of existing net.Conn
// values into loop-managed descriptors.
package highlevel
