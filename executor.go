// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package taskloop

import (
	"errors"
	"time"

	"github.com/eapache/queue"
	"github.com/joeycumines/logiface"
)

// Executor schedules tasks cooperatively, resuming runnable tasks in
// round-robin order and probing its reactor for readiness when tasks are
// pending.
//
// An Executor is not safe for concurrent use: every method must be called
// either before Run, or from within one of its tasks.
type Executor struct {
	logger       *logiface.Logger[logiface.Event]
	reactor      Reactor
	queue        *queue.Queue // *Task, in scheduling order
	tasks        map[Token]*Task
	current      *Task
	testHooks    *executorTestHooks
	bridge       bridge
	stats        Stats
	probeTimeout time.Duration
	counter      Token
	pending      int
	running      bool
}

// Stats are cumulative counters for an Executor.
type Stats struct {
	// Ticks counts scheduling passes over the runnable tasks.
	Ticks uint64
	// Probes counts readiness probes, including failed ones.
	Probes uint64
	// ReadyEvents counts tokens reported ready by probes.
	ReadyEvents uint64
	// Woken counts pending tasks made runnable by probes.
	Woken uint64
	// Spawned counts tasks created.
	Spawned uint64
	// Retired counts tasks whose computation finished.
	Retired uint64
	// Abandoned counts tasks dropped after a fatal probe failure.
	Abandoned uint64
	// Registered counts reactor registrations.
	Registered uint64
	// Released counts reactor registrations released.
	Released uint64
}

// executorTestHooks are callbacks for white-box tests.
type executorTestHooks struct {
	OnRetire   func(token Token, abandoned bool)
	OnRegister func(token Token, fd int, interest Interest)
	OnRelease  func(token Token)
	PreProbe   func(timeout time.Duration)
}

// New constructs an Executor. Each executor is independent, with its own
// tasks, tokens and reactor.
func New(opts ...Option) (*Executor, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	e := &Executor{
		logger:       cfg.logger,
		reactor:      cfg.reactor,
		queue:        queue.New(),
		tasks:        make(map[Token]*Task),
		probeTimeout: cfg.probeTimeout,
	}
	e.bridge = bridge{
		executor: e,
		live:     make(map[Token][]*Registration),
	}
	return e, nil
}

// Run creates an Executor using opts and runs fn on it to completion.
func Run(fn Func, opts ...Option) error {
	e, err := New(opts...)
	if err != nil {
		return err
	}
	return e.Run(fn)
}

// Spawn adds fn as a new task, returning its token. It does not suspend the
// caller. Tasks spawned while Run is ticking are first resumed on the next
// tick; tasks spawned before Run are resumed by it.
func (e *Executor) Spawn(fn Func) Token {
	if fn == nil {
		panic(`taskloop: spawn of nil func`)
	}

	e.counter++
	t := &Task{
		executor: e,
		fn:       fn,
		token:    e.counter,
	}
	e.tasks[t.token] = t
	e.queue.Add(t)
	e.stats.Spawned++

	e.logger.Debug().
		Uint64(`token`, uint64(t.token)).
		Int(`tasks`, e.queue.Length()).
		Log(`spawned task`)

	return t.token
}

// Run spawns fn as the root task, then schedules until every task, including
// those transitively spawned, has finished.
//
// Each tick resumes every task that was runnable at its start, then, if any
// task remains, performs exactly one readiness probe. The probe doesn't wait
// while some task is runnable, and otherwise waits up to the configured
// probe timeout.
//
// A probe failure is fatal: remaining tasks are abandoned (see ErrAbandoned),
// and the returned error wraps a *ProbeError. Tasks that panic are retired
// without affecting others, and reported as *PanicError values joined into
// the returned error.
func (e *Executor) Run(fn Func) error {
	if e.running {
		return ErrRunning
	}
	e.running = true
	defer func() { e.running = false }()

	e.Spawn(fn)

	var errs []error
	for e.queue.Length() != 0 {
		errs = e.tick(errs)
		if e.queue.Length() == 0 {
			break
		}
		if err := e.probe(); err != nil {
			e.abandonAll()
			return errors.Join(append([]error{err}, errs...)...)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of tasks that have not finished.
func (e *Executor) Len() int { return e.queue.Length() }

// Registrations returns the number of live reactor registrations.
func (e *Executor) Registrations() int { return e.reactor.Len() }

// Stats returns a snapshot of the executor's counters.
func (e *Executor) Stats() Stats { return e.stats }

// tick resumes, in order, every task that was runnable at its start.
func (e *Executor) tick(errs []error) []error {
	e.stats.Ticks++
	for n := e.queue.Length(); n > 0; n-- {
		t := e.queue.Remove().(*Task)
		if t.pending {
			e.queue.Add(t)
			continue
		}

		if e.resume(t) {
			t.pending = true
			e.pending++
			e.queue.Add(t)
			continue
		}

		if t.panicked != nil {
			e.logger.Err().
				Uint64(`token`, uint64(t.token)).
				Any(`panic`, t.panicked.Value).
				Log(`task panicked`)
			errs = append(errs, t.panicked)
		}
		e.retire(t, false)
	}
	return errs
}

func (e *Executor) resume(t *Task) bool {
	prev := e.current
	e.current = t
	defer func() { e.current = prev }()
	return t.resume()
}

func (e *Executor) probe() error {
	timeout := e.probeTimeout
	if e.pending < e.queue.Length() {
		timeout = 0
	}
	if e.testHooks != nil && e.testHooks.PreProbe != nil {
		e.testHooks.PreProbe(timeout)
	}

	ready, err := e.reactor.Probe(timeout)
	e.stats.Probes++
	if err != nil {
		e.logger.Err().
			Err(err).
			Int(`tasks`, e.queue.Length()).
			Int(`registrations`, e.reactor.Len()).
			Log(`readiness probe failed`)
		return &ProbeError{Err: err}
	}

	e.stats.ReadyEvents += uint64(len(ready))
	var woken int
	for _, token := range ready {
		if t := e.tasks[token]; t != nil && t.pending {
			t.pending = false
			e.pending--
			woken++
		}
	}
	e.stats.Woken += uint64(woken)

	e.logger.Trace().
		Dur(`timeout`, timeout).
		Int(`ready`, len(ready)).
		Int(`woken`, woken).
		Log(`readiness probe`)

	return nil
}

func (e *Executor) retire(t *Task, abandoned bool) {
	t.retired = true
	delete(e.tasks, t.token)

	if n := e.bridge.releaseAll(t.token); n != 0 {
		e.logger.Warning().
			Uint64(`token`, uint64(t.token)).
			Int(`registrations`, n).
			Log(`released registrations left by finished task`)
	}

	if abandoned {
		e.stats.Abandoned++
	} else {
		e.stats.Retired++
	}
	if e.testHooks != nil && e.testHooks.OnRetire != nil {
		e.testHooks.OnRetire(t.token, abandoned)
	}

	e.logger.Debug().
		Uint64(`token`, uint64(t.token)).
		Bool(`abandoned`, abandoned).
		Int(`tasks`, e.queue.Length()).
		Log(`retired task`)
}

// abandonAll unwinds and retires every remaining task, including any they
// spawn while unwinding.
func (e *Executor) abandonAll() {
	for e.queue.Length() != 0 {
		t := e.queue.Remove().(*Task)
		prev := e.current
		e.current = t
		t.abandon()
		e.current = prev
		if t.panicked != nil {
			e.logger.Err().
				Uint64(`token`, uint64(t.token)).
				Any(`panic`, t.panicked.Value).
				Log(`task panicked while abandoned`)
		}
		e.retire(t, true)
	}
	e.pending = 0
}
