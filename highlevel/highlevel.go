// File: highlevel/highlevel.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

package highlevel

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/net/proxy"
	"golang.org/x/sys/unix"

	"github.com/brianlions/nebula/api"
	"github.com/brianlions/nebula/core/descriptor"
)

// Auth carries SOCKS5 proxy credentials.
type Auth = proxy.Auth

// Dial starts a non-blocking TCP connect to addr ("host:port"). The
// returned descriptor is usually still connecting: register it and call
// FinishConnect from the first OnWritable callback.
func Dial(addr string) (*descriptor.TCPConn, error) {
	return descriptor.DialTCP(addr)
}

// Listen creates a non-blocking TCP listener on addr with the given
// backlog (0 selects a sane default).
func Listen(addr string, backlog int) (*descriptor.TCPListener, error) {
	return descriptor.ListenTCP(addr, backlog)
}

// DialSOCKS5 connects to target through a SOCKS5 proxy. The proxy
// handshake is performed with blocking I/O before the connection is
// adopted into a non-blocking descriptor, so call this off the loop
// goroutine and hand the result over with Submit.
func DialSOCKS5(proxyAddr, target string, auth *Auth) (*Conn, error) {
	d, err := proxy.SOCKS5("tcp", proxyAddr, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 %s: %w", proxyAddr, err)
	}
	c, err := d.Dial("tcp", target)
	if err != nil {
		return nil, fmt.Errorf("socks5 %s -> %s: %w", proxyAddr, target, err)
	}
	return Wrap(c)
}

// Conn is an adopted net.Conn. It keeps the original's addresses; I/O
// goes through the duplicated, non-blocking file descriptor.
type Conn struct {
	*descriptor.Base
	local  string
	remote string
}

func (c *Conn) LocalAddr() string  { return c.local }
func (c *Conn) RemoteAddr() string { return c.remote }

// Wrap takes ownership of an established net.Conn and turns it into a
// loop-managed descriptor. The conn's fd is duplicated and the original
// closed, so c must not be used afterwards.
func Wrap(c net.Conn) (*Conn, error) {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return nil, fmt.Errorf("wrap: %T does not expose a file descriptor", c)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("wrap: %w", err)
	}
	dupfd := -1
	var duperr error
	cerr := raw.Control(func(fd uintptr) {
		dupfd, duperr = unix.Dup(int(fd))
	})
	if cerr != nil {
		return nil, fmt.Errorf("wrap: %w", cerr)
	}
	if duperr != nil {
		return nil, fmt.Errorf("wrap dup: %w", duperr)
	}
	unix.CloseOnExec(dupfd)
	local, remote := c.LocalAddr().String(), c.RemoteAddr().String()
	c.Close()
	base, err := descriptor.NewBase(dupfd, api.EventRead)
	if err != nil {
		unix.Close(dupfd)
		return nil, err
	}
	return &Conn{Base: base, local: local, remote: remote}, nil
}
