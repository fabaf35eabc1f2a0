package taskloop

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_otherExecutorsTaskFails(t *testing.T) {
	a := newTestExecutor(t, new(fakeReactor))
	b := newTestExecutor(t, new(fakeReactor))

	var foreign *Task
	require.NoError(t, a.Run(func(task *Task) { foreign = task }))

	require.NoError(t, b.Run(func(task *Task) {
		_, err := b.bridge.register(foreign, 3, InterestRead)
		assert.ErrorIs(t, err, ErrNotCurrent)
	}))
	assert.Equal(t, 0, b.Registrations())
	assert.Equal(t, uint64(0), b.Stats().Registered)
}

func TestRegister_reactorErrorLeavesNoEntry(t *testing.T) {
	reactor := new(fakeReactor)
	e := newTestExecutor(t, reactor)

	var hooked int
	e.testHooks = &executorTestHooks{
		OnRegister: func(Token, int, Interest) { hooked++ },
	}

	require.NoError(t, e.Run(func(task *Task) {
		reg, err := task.Register(-5, InterestWrite)
		assert.Nil(t, reg)
		assert.ErrorIs(t, err, ErrInvalidDescriptor)
		assert.Empty(t, e.bridge.live)
	}))
	assert.Equal(t, 0, hooked)
	assert.Equal(t, uint64(0), e.Stats().Registered)
}

func TestRegistration_releaseOutOfOrder(t *testing.T) {
	reactor := new(fakeReactor)
	e := newTestExecutor(t, reactor)

	require.NoError(t, e.Run(func(task *Task) {
		var regs []*Registration
		for fd := range 4 {
			reg, err := task.Register(fd, InterestRead)
			require.NoError(t, err)
			regs = append(regs, reg)
		}

		regs[2].Release()
		regs[0].Release()
		assert.Equal(t, []*Registration{regs[1], regs[3]}, e.bridge.live[task.Token()])
		assert.Equal(t, []fakeEntry{
			{token: task.Token(), fd: 1, interest: InterestRead},
			{token: task.Token(), fd: 3, interest: InterestRead},
		}, reactor.entries)

		regs[3].Release()
		regs[1].Release()
		assert.NotContains(t, e.bridge.live, task.Token())
	}))
	assert.Equal(t, 0, e.Registrations())
}

func TestRegistration_sameEntryTwice(t *testing.T) {
	reactor := new(fakeReactor)
	e := newTestExecutor(t, reactor)

	var token Token
	reactor.probe = func(int, time.Duration) ([]Token, error) { return []Token{token}, nil }

	require.NoError(t, e.Run(func(task *Task) {
		token = task.Token()
		r1, err := task.Register(9, InterestRead)
		require.NoError(t, err)
		r2, err := task.Register(9, InterestRead)
		require.NoError(t, err)
		assert.Equal(t, 2, e.Registrations())

		r1.Release()
		assert.Equal(t, 1, e.Registrations())

		require.NoError(t, task.Suspend())
		r2.Release()
	}))
	assert.Equal(t, 0, e.Registrations())
}

func TestRegistration_abandonedTaskReleasesOnUnwind(t *testing.T) {
	reactor := new(fakeReactor)
	e := newTestExecutor(t, reactor)

	boom := errors.New(`boom`)
	reactor.probe = func(int, time.Duration) ([]Token, error) { return nil, boom }

	var (
		released  bool
		suspended error
	)
	err := e.Run(func(task *Task) {
		reg, err := task.Register(2, InterestRead)
		require.NoError(t, err)
		defer func() {
			reg.Release()
			released = true
		}()
		suspended = task.Suspend()
	})

	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, suspended, ErrAbandoned)
	assert.True(t, released)
	assert.Equal(t, 0, e.Registrations())
	assert.Equal(t, uint64(1), e.Stats().Released)
}
