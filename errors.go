// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package taskloop

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Standard errors.
var (
	// ErrAbandoned is returned by Task.Suspend (and so by any suspending
	// operation) when the executor gives up on the task, e.g. after a fatal
	// probe failure. The computation should return promptly.
	ErrAbandoned = errors.New("taskloop: task abandoned")

	// ErrNotCurrent is returned by Task.Suspend when called from anything
	// other than the task's own computation, and by Task.Register for a
	// finished task.
	ErrNotCurrent = errors.New("taskloop: task is not running")

	// ErrRunning is returned when Run is called on an executor that is
	// already running, including from inside one of its tasks.
	ErrRunning = errors.New("taskloop: executor is already running")

	// ErrInvalidProbeTimeout is returned by New when WithProbeTimeout is
	// given a zero timeout.
	ErrInvalidProbeTimeout = errors.New("taskloop: probe timeout must be non-zero")

	// ErrUnsupportedPlatform is returned by NewReactor (and New, without
	// WithReactor) on platforms without a reactor implementation.
	ErrUnsupportedPlatform = errors.New("taskloop: platform not supported")
)

// ProbeError indicates the reactor's multiplexing call failed. It is fatal
// to Run: every remaining task is abandoned.
type ProbeError struct {
	Err error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("taskloop: readiness probe failed: %v", e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value any
	Stack []byte
	Token Token
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("taskloop: task %d panicked: %v", e.Token, e.Value)
}

// Unwrap returns the panic value, if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func newPanicError(token Token, value any) *PanicError {
	return &PanicError{
		Value: value,
		Stack: debug.Stack(),
		Token: token,
	}
}
