// File: core/descriptor/socket.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later
//
// TCP client and listener descriptors. A client connect is asynchronous:
// the socket is watched for writability while the connection is in
// progress, and FinishConnect resolves the outcome on the first
// writability notification.

package descriptor

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/brianlions/nebula/api"
)

// TCPConn is a non-blocking TCP connection descriptor.
type TCPConn struct {
	Base
	connected bool
	local     string
	remote    string
}

// DialTCP starts a non-blocking connect to addr ("host:port"). When the
// connection is still in progress the returned descriptor has write
// interest; register it and call FinishConnect from the first OnWritable
// callback. An immediately established connection has read interest.
func DialTCP(addr string) (*TCPConn, error) {
	sa, family, err := resolveSockaddr(addr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("dial %s: socket: %w", addr, err)
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("dial %s: set nonblock: %w", addr, err)
	}

	c := &TCPConn{remote: addr}
	c.fd = fd
	c.state.Store(int32(api.StateOpen))

	err = unix.Connect(fd, sa)
	switch err {
	case nil, unix.EISCONN:
		c.connected = true
		c.SetInterest(api.EventRead)
		c.local = localAddrString(fd)
	case unix.EINPROGRESS, unix.EALREADY, unix.EWOULDBLOCK:
		// Completion is signalled by writability.
		c.SetInterest(api.EventWrite)
	default:
		unix.Close(fd)
		return nil, fmt.Errorf("dial %s: connect: %w", addr, err)
	}
	return c, nil
}

// Connected reports whether the connection is established.
func (c *TCPConn) Connected() bool { return c.connected }

// FinishConnect resolves an in-progress connect after the descriptor
// became writable. On success the interest mask switches to read. The
// returned error is fatal: the caller should close the descriptor.
func (c *TCPConn) FinishConnect() error {
	if c.connected {
		return nil
	}
	soerr, err := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return fmt.Errorf("connect %s: getsockopt: %w", c.remote, err)
	}
	if soerr != 0 {
		return fmt.Errorf("connect %s: %w", c.remote, unix.Errno(soerr))
	}
	c.connected = true
	c.SetInterest(api.EventRead)
	c.local = localAddrString(c.fd)
	return nil
}

// LocalAddr returns the bound local address, empty until connected.
func (c *TCPConn) LocalAddr() string { return c.local }

// RemoteAddr returns the peer address.
func (c *TCPConn) RemoteAddr() string { return c.remote }

// TCPListener is a non-blocking TCP listening descriptor with read
// interest; readability means pending connections to accept.
type TCPListener struct {
	Base
	local string
}

// ListenTCP binds addr with SO_REUSEADDR and starts listening.
func ListenTCP(addr string, backlog int) (*TCPListener, error) {
	sa, family, err := resolveSockaddr(addr)
	if err != nil {
		return nil, err
	}
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("listen %s: socket: %w", addr, err)
	}
	unix.CloseOnExec(fd)
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s: SO_REUSEADDR: %w", addr, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s: set nonblock: %w", addr, err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s: bind: %w", addr, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s: listen: %w", addr, err)
	}

	l := &TCPListener{local: localAddrString(fd)}
	l.fd = fd
	l.state.Store(int32(api.StateOpen))
	l.SetInterest(api.EventRead)
	return l, nil
}

// Accept takes one pending connection. No pending connection (or one the
// peer aborted before we got to it) yields api.ErrWouldBlock; callers
// typically loop until that.
func (l *TCPListener) Accept() (*TCPConn, error) {
	if l.State() != api.StateOpen {
		return nil, api.ErrClosed
	}
	for {
		nfd, sa, err := unix.Accept(l.fd)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.ECONNABORTED {
			return nil, api.ErrWouldBlock
		}
		if err != nil {
			return nil, fmt.Errorf("accept fd %d: %w", l.fd, err)
		}
		unix.CloseOnExec(nfd)
		if err := unix.SetNonblock(nfd, true); err != nil {
			unix.Close(nfd)
			return nil, fmt.Errorf("accept fd %d: set nonblock: %w", l.fd, err)
		}
		c := &TCPConn{
			connected: true,
			local:     localAddrString(nfd),
			remote:    sockaddrString(sa),
		}
		c.fd = nfd
		c.state.Store(int32(api.StateOpen))
		c.SetInterest(api.EventRead)
		return c, nil
	}
}

// LocalAddr returns the bound listening address.
func (l *TCPListener) LocalAddr() string { return l.local }

// resolveSockaddr converts "host:port" to a unix.Sockaddr plus family.
func resolveSockaddr(addr string) (unix.Sockaddr, int, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve %s: %w", addr, err)
	}
	ip := tcpAddr.IP
	if ip == nil {
		ip = net.IPv4zero
	}
	if ip4 := ip.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
		copy(sa.Addr[:], ip4)
		return sa, unix.AF_INET, nil
	}
	sa := &unix.SockaddrInet6{Port: tcpAddr.Port}
	copy(sa.Addr[:], ip.To16())
	return sa, unix.AF_INET6, nil
}

// sockaddrString formats a sockaddr as "host:port".
func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), fmt.Sprint(a.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), fmt.Sprint(a.Port))
	default:
		return "unknown"
	}
}

func localAddrString(fd int) string {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return ""
	}
	return sockaddrString(sa)
}
