// File: core/descriptor/descriptor_test.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

//go:build linux || darwin

package descriptor_test

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/brianlions/nebula/api"
	"github.com/brianlions/nebula/core/descriptor"
)

func TestPipeWouldBlockAndData(t *testing.T) {
	r, w, err := descriptor.Pipe()
	if err != nil {
		t.Fatalf("Pipe error: %v", err)
	}
	defer r.Close()
	defer w.Close()

	buf := make([]byte, 16)
	if _, err := r.Read(buf); !errors.Is(err, api.ErrWouldBlock) {
		t.Fatalf("empty pipe read: want ErrWouldBlock, got %v", err)
	}

	n, err := w.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write = (%d, %v), want (5, nil)", n, err)
	}
	n, err = r.Read(buf)
	if err != nil || string(buf[:n]) != "hello" {
		t.Fatalf("Read = (%q, %v)", buf[:n], err)
	}
}

func TestPipeEOFAfterWriterClose(t *testing.T) {
	r, w, err := descriptor.Pipe()
	if err != nil {
		t.Fatalf("Pipe error: %v", err)
	}
	defer r.Close()

	w.Close()
	buf := make([]byte, 16)
	if _, err := r.Read(buf); !errors.Is(err, io.EOF) {
		t.Fatalf("read after writer close: want EOF, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	r, w, err := descriptor.Pipe()
	if err != nil {
		t.Fatalf("Pipe error: %v", err)
	}
	defer w.Close()

	if r.State() != api.StateOpen {
		t.Fatalf("state = %v, want open", r.State())
	}
	if err := r.Close(); err != nil {
		t.Fatalf("first Close error: %v", err)
	}
	if r.State() != api.StateClosed {
		t.Fatalf("state = %v, want closed", r.State())
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}

	buf := make([]byte, 4)
	if _, err := r.Read(buf); !errors.Is(err, api.ErrClosed) {
		t.Fatalf("read after close: want ErrClosed, got %v", err)
	}
	if _, err := r.Write(buf); !errors.Is(err, api.ErrClosed) {
		t.Fatalf("write after close: want ErrClosed, got %v", err)
	}
}

func TestSocketPairBidirectional(t *testing.T) {
	a, b, err := descriptor.SocketPair()
	if err != nil {
		t.Fatalf("SocketPair error: %v", err)
	}
	defer a.Close()
	defer b.Close()

	if _, err := a.Write([]byte("ping")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	buf := make([]byte, 16)
	n, err := b.Read(buf)
	if err != nil || string(buf[:n]) != "ping" {
		t.Fatalf("Read = (%q, %v)", buf[:n], err)
	}
	if _, err := b.Write([]byte("pong")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	n, err = a.Read(buf)
	if err != nil || string(buf[:n]) != "pong" {
		t.Fatalf("Read = (%q, %v)", buf[:n], err)
	}
}

func TestInterestMask(t *testing.T) {
	r, w, err := descriptor.Pipe()
	if err != nil {
		t.Fatalf("Pipe error: %v", err)
	}
	defer r.Close()
	defer w.Close()

	if !r.Interest().Has(api.EventRead) || r.Interest().Has(api.EventWrite) {
		t.Fatalf("pipe read end interest = %v", r.Interest())
	}
	if !w.Interest().Has(api.EventWrite) {
		t.Fatalf("pipe write end interest = %v", w.Interest())
	}
	r.SetInterest(api.EventRead | api.EventWrite)
	if r.Interest() != api.EventRead|api.EventWrite {
		t.Fatalf("SetInterest not applied: %v", r.Interest())
	}
}

func TestListenDialAccept(t *testing.T) {
	ln, err := descriptor.ListenTCP("127.0.0.1:0", 8)
	if err != nil {
		t.Fatalf("ListenTCP error: %v", err)
	}
	defer ln.Close()

	if _, err := ln.Accept(); !errors.Is(err, api.ErrWouldBlock) {
		t.Fatalf("Accept on idle listener: want ErrWouldBlock, got %v", err)
	}

	c, err := descriptor.DialTCP(ln.LocalAddr())
	if err != nil {
		t.Fatalf("DialTCP error: %v", err)
	}
	defer c.Close()

	var srv *descriptor.TCPConn
	deadline := time.Now().Add(2 * time.Second)
	for {
		srv, err = ln.Accept()
		if err == nil {
			break
		}
		if !errors.Is(err, api.ErrWouldBlock) {
			t.Fatalf("Accept error: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("Accept never produced the dialed connection")
		}
		time.Sleep(5 * time.Millisecond)
	}
	defer srv.Close()

	// Loopback connects complete almost immediately; FinishConnect reads
	// SO_ERROR and flips the descriptor to connected.
	for !c.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("connect never finished")
		}
		if err := c.FinishConnect(); err != nil {
			t.Fatalf("FinishConnect error: %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := c.Write([]byte("hi")); err != nil {
		t.Fatalf("client Write error: %v", err)
	}
	buf := make([]byte, 8)
	for {
		n, rerr := srv.Read(buf)
		if errors.Is(rerr, api.ErrWouldBlock) {
			time.Sleep(time.Millisecond)
			continue
		}
		if rerr != nil {
			t.Fatalf("server Read error: %v", rerr)
		}
		if string(buf[:n]) != "hi" {
			t.Fatalf("server read %q", buf[:n])
		}
		break
	}
	if srv.RemoteAddr() == "" || ln.LocalAddr() == "" {
		t.Fatal("missing address bookkeeping")
	}
}
