// File: api/logging.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

package api

import "github.com/joeycumines/logiface"

// Logger is the structured diagnostic sink accepted across the library.
// A nil Logger disables logging; logiface builders are nil-safe, so call
// sites never need to guard.
type Logger = *logiface.Logger[logiface.Event]
