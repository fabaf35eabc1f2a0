//go:build linux || darwin

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package taskloop

import (
	"slices"
	"time"

	"golang.org/x/sys/unix"
)

// pollReactor implements Reactor using poll(2).
//
// tokens and fds are index-correlated. poll(2) is used over epoll/kqueue as
// the same descriptor may be registered more than once (e.g. one task
// reading while another writes), which epoll rejects.
type pollReactor struct {
	tokens []Token
	fds    []unix.PollFd
}

func newPlatformReactor() (Reactor, error) {
	return new(pollReactor), nil
}

func (r *pollReactor) Register(token Token, fd int, interest Interest) error {
	if err := validateEntry(fd, interest); err != nil {
		return err
	}
	r.tokens = append(r.tokens, token)
	r.fds = append(r.fds, unix.PollFd{
		Fd:     int32(fd),
		Events: interestToPoll(interest),
	})
	return nil
}

func (r *pollReactor) Deregister(token Token, fd int, interest Interest) bool {
	events := interestToPoll(interest)
	for i := range r.tokens {
		if r.tokens[i] == token && r.fds[i].Fd == int32(fd) && r.fds[i].Events == events {
			r.tokens = slices.Delete(r.tokens, i, i+1)
			r.fds = slices.Delete(r.fds, i, i+1)
			return true
		}
	}
	return false
}

func (r *pollReactor) Unregister(token Token) int {
	var removed int
	for i := 0; i < len(r.tokens); {
		if r.tokens[i] != token {
			i++
			continue
		}
		r.tokens = slices.Delete(r.tokens, i, i+1)
		r.fds = slices.Delete(r.fds, i, i+1)
		removed++
	}
	return removed
}

func (r *pollReactor) Probe(timeout time.Duration) ([]Token, error) {
	for i := range r.fds {
		r.fds[i].Revents = 0
	}

	n, err := unix.Poll(r.fds, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	ready := make([]Token, 0, n)
	for i := range r.fds {
		// error conditions wake the owner, whose next I/O call reports them
		if r.fds[i].Revents&(r.fds[i].Events|unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) == 0 {
			continue
		}
		if !slices.Contains(ready, r.tokens[i]) {
			ready = append(ready, r.tokens[i])
		}
	}
	return ready, nil
}

func (r *pollReactor) Len() int {
	return len(r.tokens)
}

func interestToPoll(interest Interest) int16 {
	var events int16
	if interest&InterestRead != 0 {
		events |= unix.POLLIN
	}
	if interest&InterestWrite != 0 {
		events |= unix.POLLOUT
	}
	return events
}
