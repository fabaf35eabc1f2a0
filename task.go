// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package taskloop

import (
	"iter"
)

// Token identifies a task for its lifetime, and correlates readiness events
// back to it. Tokens are assigned monotonically per Executor, starting at 1.
type Token uint64

// Func is a suspendable computation, run as a task. It suspends only via
// t.Suspend, directly or through operations built on it.
type Func func(t *Task)

// Task is one suspendable computation owned by an Executor.
//
// Methods must only be called from within the owning executor's tasks.
type Task struct {
	executor *Executor
	fn       Func
	next     func() (struct{}, bool)
	stop     func()
	yield    func(struct{}) bool
	panicked *PanicError
	token    Token
	pending  bool
	retired  bool
}

// Token returns the task's identifier.
func (t *Task) Token() Token { return t.token }

// Executor returns the executor that owns the task.
func (t *Task) Executor() *Executor { return t.executor }

// Spawn is shorthand for t.Executor().Spawn(fn).
func (t *Task) Spawn(fn Func) Token { return t.executor.Spawn(fn) }

// Suspend yields control back to the executor, returning once the task is
// resumed. The task stays pending until a readiness probe reports its token,
// so callers register interest (see Task.Register) before suspending; a task
// suspending with no registration stays pending forever.
//
// Returns ErrAbandoned if the executor gave up on the task, in which case the
// computation should release what it holds and return. Returns ErrNotCurrent
// if called from outside the task's own computation.
func (t *Task) Suspend() error {
	if t.executor.current != t || t.yield == nil {
		return ErrNotCurrent
	}
	if !t.yield(struct{}{}) {
		return ErrAbandoned
	}
	return nil
}

// Register adds interest in fd to the reactor, keyed by this task's token.
// The returned guard must be released once the interest is no longer needed;
// anything still registered when the task finishes is released then.
func (t *Task) Register(fd int, interest Interest) (*Registration, error) {
	return t.executor.bridge.register(t, fd, interest)
}

// resume runs the computation until it suspends or finishes, reporting
// whether it suspended.
func (t *Task) resume() bool {
	if t.next == nil {
		t.next, t.stop = iter.Pull(t.run)
	}
	_, suspended := t.next()
	return suspended
}

// abandon unwinds a started computation, making any further Suspend call
// return ErrAbandoned.
func (t *Task) abandon() {
	if t.stop != nil {
		t.stop()
	}
}

func (t *Task) run(yield func(struct{}) bool) {
	t.yield = yield
	defer func() {
		t.yield = nil
		if r := recover(); r != nil {
			t.panicked = newPanicError(t.token, r)
		}
	}()
	t.fn(t)
}
