//go:build linux || darwin

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package tcp

import (
	"fmt"
	"net"
	"os"

	"github.com/joeycumines/go-taskloop"
	"golang.org/x/sys/unix"
)

// ErrClosed is returned by operations on a closed Listener or Stream.
var ErrClosed = fmt.Errorf("tcp: %w", net.ErrClosed)

// acceptFD is replaced in tests.
var acceptFD = accept

type (
	// Listener is a non-blocking listening socket.
	Listener struct {
		addr net.Addr
		fd   int
	}

	// Stream is a non-blocking connected socket.
	Stream struct {
		local  net.Addr
		remote net.Addr
		fd     int
	}
)

// Listen opens a listening socket bound to address (host:port). A port of 0
// selects an ephemeral port, see Listener.Addr.
func Listen(address string) (*Listener, error) {
	addr, err := net.ResolveTCPAddr(`tcp`, address)
	if err != nil {
		return nil, err
	}
	family, sa, err := toSockaddr(addr)
	if err != nil {
		return nil, err
	}

	fd, err := newSocket(family)
	if err != nil {
		return nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError(`setsockopt`, err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError(`bind`, err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError(`listen`, err)
	}

	return &Listener{addr: localAddr(fd), fd: fd}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.addr }

// FD returns the underlying descriptor, or -1 if closed.
func (l *Listener) FD() int { return l.fd }

// Accept waits for and returns the next connection, and the peer's address.
// It completes without suspending if a connection is already pending.
func (l *Listener) Accept(t *taskloop.Task) (*Stream, net.Addr, error) {
	if l.fd < 0 {
		return nil, nil, ErrClosed
	}
	type accepted struct {
		sa unix.Sockaddr
		fd int
	}
	res, err := await(t, l.fd, taskloop.InterestRead, func() (accepted, error) {
		for {
			if l.fd < 0 {
				return accepted{}, ErrClosed
			}
			fd, sa, err := acceptFD(l.fd)
			switch err {
			case nil:
				return accepted{sa: sa, fd: fd}, nil
			case unix.EINTR:
				continue
			case unix.EAGAIN:
				return accepted{}, err
			default:
				return accepted{}, os.NewSyscallError(`accept`, err)
			}
		}
	})
	if err != nil {
		return nil, nil, err
	}

	if err := unix.SetNonblock(res.fd, true); err != nil {
		_ = unix.Close(res.fd)
		return nil, nil, os.NewSyscallError(`setnonblock`, err)
	}
	if err := unix.SetsockoptInt(res.fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		_ = unix.Close(res.fd)
		return nil, nil, os.NewSyscallError(`setsockopt`, err)
	}

	s := &Stream{
		local:  localAddr(res.fd),
		remote: fromSockaddr(res.sa),
		fd:     res.fd,
	}
	if s.remote == nil {
		s.remote = remoteAddr(res.fd)
	}
	return s, s.remote, nil
}

// Close closes the listening socket.
func (l *Listener) Close() error {
	if l.fd < 0 {
		return ErrClosed
	}
	fd := l.fd
	l.fd = -1
	return os.NewSyscallError(`close`, unix.Close(fd))
}

// Dial connects to address (host:port), suspending while the connection is
// in progress. An empty host dials the IPv4 loopback.
func Dial(t *taskloop.Task, address string) (*Stream, error) {
	if t == nil {
		return nil, taskloop.ErrNotCurrent
	}
	addr, err := net.ResolveTCPAddr(`tcp`, address)
	if err != nil {
		return nil, err
	}
	if len(addr.IP) == 0 {
		addr.IP = net.IPv4(127, 0, 0, 1)
	}
	family, sa, err := toSockaddr(addr)
	if err != nil {
		return nil, err
	}

	fd, err := newSocket(family)
	if err != nil {
		return nil, err
	}

	switch err := unix.Connect(fd, sa); err {
	case nil:
	case unix.EINPROGRESS, unix.EALREADY, unix.EINTR:
		if _, err := await(t, fd, taskloop.InterestWrite, func() (struct{}, error) {
			return struct{}{}, connected(fd)
		}); err != nil {
			_ = unix.Close(fd)
			return nil, err
		}
	default:
		_ = unix.Close(fd)
		return nil, os.NewSyscallError(`connect`, err)
	}

	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError(`setsockopt`, err)
	}

	return &Stream{
		local:  localAddr(fd),
		remote: fromSockaddr(sa),
		fd:     fd,
	}, nil
}

// connected checks an in-progress connect, returning unix.EAGAIN if it has
// not yet completed.
func connected(fd int) error {
	soerr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return os.NewSyscallError(`getsockopt`, err)
	}
	switch err := unix.Errno(soerr); err {
	case 0:
	case unix.EINPROGRESS, unix.EALREADY, unix.EINTR:
		return unix.EAGAIN
	default:
		return os.NewSyscallError(`connect`, err)
	}
	switch _, err := unix.Getpeername(fd); err {
	case nil:
		return nil
	case unix.ENOTCONN:
		return unix.EAGAIN
	default:
		return os.NewSyscallError(`getpeername`, err)
	}
}

// LocalAddr returns the local address.
func (s *Stream) LocalAddr() net.Addr { return s.local }

// RemoteAddr returns the peer's address.
func (s *Stream) RemoteAddr() net.Addr { return s.remote }

// FD returns the underlying descriptor, or -1 if closed.
func (s *Stream) FD() int { return s.fd }

// Read reads up to len(p) bytes into p, suspending until data is available.
// A return of zero bytes and no error, with len(p) > 0, means the peer
// closed the connection. An empty p always returns (0, nil), so callers
// detecting closure must not pass one.
func (s *Stream) Read(t *taskloop.Task, p []byte) (int, error) {
	if s.fd < 0 {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	return await(t, s.fd, taskloop.InterestRead, func() (int, error) {
		for {
			if s.fd < 0 {
				return 0, ErrClosed
			}
			n, err := unix.Read(s.fd, p)
			switch err {
			case nil:
				return n, nil
			case unix.EINTR:
				continue
			case unix.EAGAIN:
				return 0, err
			default:
				return 0, os.NewSyscallError(`read`, err)
			}
		}
	})
}

// Write writes some prefix of p, suspending until the socket is writable.
// It may write fewer than len(p) bytes without error.
func (s *Stream) Write(t *taskloop.Task, p []byte) (int, error) {
	if s.fd < 0 {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	return await(t, s.fd, taskloop.InterestWrite, func() (int, error) {
		for {
			if s.fd < 0 {
				return 0, ErrClosed
			}
			n, err := unix.Write(s.fd, p)
			switch err {
			case nil:
				return n, nil
			case unix.EINTR:
				continue
			case unix.EAGAIN:
				return 0, err
			default:
				return 0, os.NewSyscallError(`write`, err)
			}
		}
	})
}

// CloseWrite shuts down the writing side of the connection.
func (s *Stream) CloseWrite() error {
	if s.fd < 0 {
		return ErrClosed
	}
	return os.NewSyscallError(`shutdown`, unix.Shutdown(s.fd, unix.SHUT_WR))
}

// Close closes the socket.
func (s *Stream) Close() error {
	if s.fd < 0 {
		return ErrClosed
	}
	fd := s.fd
	s.fd = -1
	return os.NewSyscallError(`close`, unix.Close(fd))
}

// await calls op until it returns something other than unix.EAGAIN,
// registering interest in fd and suspending t between attempts. At most one
// registration is held, and it is released before returning.
func await[T any](t *taskloop.Task, fd int, interest taskloop.Interest, op func() (T, error)) (T, error) {
	if t == nil {
		var zero T
		return zero, taskloop.ErrNotCurrent
	}
	var reg *taskloop.Registration
	defer func() { reg.Release() }()
	for {
		v, err := op()
		if err != unix.EAGAIN {
			return v, err
		}
		if reg == nil {
			if reg, err = t.Register(fd, interest); err != nil {
				var zero T
				return zero, err
			}
		}
		if err := t.Suspend(); err != nil {
			var zero T
			return zero, err
		}
	}
}
