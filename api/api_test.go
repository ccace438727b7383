// File: api/api_test.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

package api_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/brianlions/nebula/api"
)

func TestEventMask(t *testing.T) {
	m := api.EventRead | api.EventWrite
	if !m.Has(api.EventRead) || !m.Has(api.EventWrite) || m.Has(api.EventError) {
		t.Fatalf("Has misbehaves for %v", m)
	}
	s := m.String()
	if !strings.Contains(s, "read") || !strings.Contains(s, "write") {
		t.Fatalf("String() = %q", s)
	}
	if api.EventMask(0).Has(api.EventRead) {
		t.Fatal("empty mask claims read interest")
	}
}

func TestTransientClassification(t *testing.T) {
	wrapped := fmt.Errorf("read fd 7: %w", api.ErrWouldBlock)
	if !api.IsTransient(wrapped) {
		t.Fatal("wrapped ErrWouldBlock not transient")
	}
	if api.IsTransient(api.ErrClosed) {
		t.Fatal("ErrClosed must not be transient")
	}
	if api.IsTransient(errors.New("other")) {
		t.Fatal("arbitrary error must not be transient")
	}
}

func TestStructuredError(t *testing.T) {
	e := api.NewError(api.ErrCodeBackendFault, "wait failed").WithContext("fd", 3)
	if e.Code != api.ErrCodeBackendFault {
		t.Fatalf("code = %v", e.Code)
	}
	msg := e.Error()
	if !strings.Contains(msg, "wait failed") || !strings.Contains(msg, "fd") {
		t.Fatalf("Error() = %q", msg)
	}
	if api.ErrCodeHandlerFault.String() != "handler_fault" {
		t.Fatalf("ErrorCode.String() = %q", api.ErrCodeHandlerFault.String())
	}
}
