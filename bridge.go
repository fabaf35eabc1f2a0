// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package taskloop

import (
	"slices"
)

// Registration is a scoped guard over one reactor entry, created by
// Task.Register. Release removes exactly that entry.
type Registration struct {
	bridge   *bridge
	token    Token
	fd       int
	interest Interest
	released bool
}

// bridge correlates tasks with their live reactor entries.
type bridge struct {
	executor *Executor
	live     map[Token][]*Registration
}

// Token returns the token of the registering task.
func (r *Registration) Token() Token { return r.token }

// FD returns the registered descriptor.
func (r *Registration) FD() int { return r.fd }

// Interest returns the registered interest.
func (r *Registration) Interest() Interest { return r.interest }

// Release removes the entry from the reactor. It is safe to call more than
// once, and on a nil receiver.
func (r *Registration) Release() {
	if r == nil || r.released {
		return
	}
	r.released = true
	r.bridge.release(r)
}

func (b *bridge) register(t *Task, fd int, interest Interest) (*Registration, error) {
	e := b.executor
	if t.executor != e || t.retired {
		return nil, ErrNotCurrent
	}
	if err := e.reactor.Register(t.token, fd, interest); err != nil {
		return nil, err
	}

	r := &Registration{
		bridge:   b,
		token:    t.token,
		fd:       fd,
		interest: interest,
	}
	b.live[t.token] = append(b.live[t.token], r)
	e.stats.Registered++

	if e.testHooks != nil && e.testHooks.OnRegister != nil {
		e.testHooks.OnRegister(t.token, fd, interest)
	}
	e.logger.Trace().
		Uint64(`token`, uint64(t.token)).
		Int(`fd`, fd).
		Stringer(`interest`, interest).
		Log(`registered interest`)

	return r, nil
}

func (b *bridge) release(r *Registration) {
	e := b.executor
	regs := b.live[r.token]
	if i := slices.Index(regs, r); i >= 0 {
		regs = slices.Delete(regs, i, i+1)
	}
	if len(regs) == 0 {
		delete(b.live, r.token)
	} else {
		b.live[r.token] = regs
	}

	e.reactor.Deregister(r.token, r.fd, r.interest)
	e.stats.Released++

	if e.testHooks != nil && e.testHooks.OnRelease != nil {
		e.testHooks.OnRelease(r.token)
	}
}

// releaseAll releases every live registration of token, returning how many
// there were.
func (b *bridge) releaseAll(token Token) int {
	e := b.executor
	regs := b.live[token]
	if len(regs) == 0 {
		return 0
	}
	delete(b.live, token)

	for _, r := range regs {
		r.released = true
	}
	e.reactor.Unregister(token)
	e.stats.Released += uint64(len(regs))

	if e.testHooks != nil && e.testHooks.OnRelease != nil {
		for range regs {
			e.testHooks.OnRelease(token)
		}
	}
	return len(regs)
}
