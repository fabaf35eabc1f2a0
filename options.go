// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package taskloop

import (
	"time"

	"github.com/joeycumines/logiface"
)

// executorOptions holds configuration options for Executor creation.
type executorOptions struct {
	logger       *logiface.Logger[logiface.Event]
	reactor      Reactor
	probeTimeout time.Duration
}

// Option configures an Executor instance.
type Option interface {
	applyExecutor(*executorOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyExecutorFunc func(*executorOptions) error
}

func (o *optionImpl) applyExecutor(opts *executorOptions) error {
	return o.applyExecutorFunc(opts)
}

// WithLogger attaches a structured logger. A nil logger disables logging,
// which is also the default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *executorOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithProbeTimeout sets the wait ceiling for a readiness probe issued while
// every task is pending. A negative value waits without bound, which is only
// sensible if every pending task holds a registration. Zero is rejected with
// ErrInvalidProbeTimeout, as every probe would then return immediately.
// Probes issued while any task is runnable never wait. Defaults to
// DefaultProbeTimeout.
func WithProbeTimeout(timeout time.Duration) Option {
	return &optionImpl{func(opts *executorOptions) error {
		if timeout == 0 {
			return ErrInvalidProbeTimeout
		}
		opts.probeTimeout = timeout
		return nil
	}}
}

// WithReactor replaces the platform reactor, e.g. with an instrumented one.
// A nil reactor selects the platform default.
func WithReactor(reactor Reactor) Option {
	return &optionImpl{func(opts *executorOptions) error {
		opts.reactor = reactor
		return nil
	}}
}

// resolveOptions applies Option instances to executorOptions.
func resolveOptions(opts []Option) (*executorOptions, error) {
	cfg := &executorOptions{
		probeTimeout: DefaultProbeTimeout,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyExecutor(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.reactor == nil {
		reactor, err := NewReactor()
		if err != nil {
			return nil, err
		}
		cfg.reactor = reactor
	}
	return cfg, nil
}
