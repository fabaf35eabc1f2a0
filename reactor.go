// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package taskloop

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultProbeTimeout is the wait ceiling for a readiness probe, used when
// every remaining task is pending.
const DefaultProbeTimeout = 100 * time.Millisecond

// Interest is the readiness a registration waits for.
type Interest uint8

const (
	// InterestRead waits for the descriptor to become readable (or, for a
	// listening socket, for a pending connection).
	InterestRead Interest = 1 << iota
	// InterestWrite waits for the descriptor to become writable.
	InterestWrite

	// InterestBoth waits for either.
	InterestBoth = InterestRead | InterestWrite
)

var (
	// ErrInvalidDescriptor is returned when registering a negative descriptor.
	ErrInvalidDescriptor = errors.New("taskloop: invalid descriptor")

	// ErrInvalidInterest is returned when registering without any interest.
	ErrInvalidInterest = errors.New("taskloop: invalid interest")
)

// Reactor owns descriptor registrations, and asks the operating system which
// of them became ready.
//
// Implementations are driven by a single executor, and need not be safe for
// concurrent use.
type Reactor interface {
	// Register appends an entry. Duplicate entries are not merged.
	Register(token Token, fd int, interest Interest) error

	// Deregister removes the first entry matching all of token, fd and
	// interest, reporting whether one was found.
	Deregister(token Token, fd int, interest Interest) bool

	// Unregister removes every entry for token, returning the number removed.
	Unregister(token Token) int

	// Probe performs one multiplexing call across every entry, waiting at
	// most timeout (a negative timeout waits without bound). It returns the
	// distinct tokens with at least one ready entry. An empty result is not
	// an error.
	Probe(timeout time.Duration) ([]Token, error)

	// Len returns the number of live entries.
	Len() int
}

// NewReactor returns the platform reactor.
func NewReactor() (Reactor, error) {
	return newPlatformReactor()
}

// String implements fmt.Stringer.
func (x Interest) String() string {
	var parts []string
	if x&InterestRead != 0 {
		parts = append(parts, `read`)
	}
	if x&InterestWrite != 0 {
		parts = append(parts, `write`)
	}
	if x&^InterestBoth != 0 {
		parts = append(parts, fmt.Sprintf(`0x%x`, uint8(x&^InterestBoth)))
	}
	if len(parts) == 0 {
		return `none`
	}
	return strings.Join(parts, `|`)
}

func validateEntry(fd int, interest Interest) error {
	if fd < 0 {
		return ErrInvalidDescriptor
	}
	if interest&InterestBoth == 0 || interest&^InterestBoth != 0 {
		return ErrInvalidInterest
	}
	return nil
}

// timeoutMillis converts a probe timeout to the millisecond form taken by
// the multiplexing syscalls, rounding up so short waits don't become spins.
func timeoutMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := timeout / time.Millisecond
	if timeout%time.Millisecond != 0 {
		ms++
	}
	const maxMillis = 1<<31 - 1
	if ms > maxMillis {
		return maxMillis
	}
	return int(ms)
}
