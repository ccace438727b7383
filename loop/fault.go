// File: loop/fault.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

package loop

import (
	"fmt"

	"github.com/brianlions/nebula/api"
)

// Fault describes a recovered handler or timer callback panic, or a
// deferred registry mutation that failed to apply. Faults never abort
// the loop; the backend is the only fatal failure domain.
type Fault struct {
	Code api.ErrorCode
	FD   int // -1 when the fault is not tied to a descriptor
	Err  error
}

func (f Fault) String() string {
	if f.FD >= 0 {
		return fmt.Sprintf("fault code=%d fd=%d err=%v", f.Code, f.FD, f.Err)
	}
	return fmt.Sprintf("fault code=%d err=%v", f.Code, f.Err)
}

// Structured renders the fault as a classified api.Error, carrying the
// code and descriptor as context fields rather than formatted text.
func (f Fault) Structured() *api.Error {
	msg := "callback fault"
	if f.Err != nil {
		msg = f.Err.Error()
	}
	e := api.NewError(f.Code, msg)
	if f.FD >= 0 {
		e.WithContext("fd", f.FD)
	}
	return e
}

// FaultHook receives faults as they are recovered, on the loop goroutine.
// The hook must not panic and must not block.
type FaultHook func(Fault)
