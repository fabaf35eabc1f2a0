//go:build linux || darwin

package taskloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestPollReactor_emptyProbeWaitsForTimeout(t *testing.T) {
	r, err := NewReactor()
	require.NoError(t, err)

	start := time.Now()
	ready, err := r.Probe(30 * time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, ready)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestPollReactor_reportsReadyTokens(t *testing.T) {
	rfd, wfd := newPipe(t)
	r, err := NewReactor()
	require.NoError(t, err)

	require.NoError(t, r.Register(1, rfd, InterestRead))
	require.NoError(t, r.Register(2, wfd, InterestWrite))
	require.NoError(t, r.Register(2, rfd, InterestRead))
	assert.Equal(t, 3, r.Len())

	ready, err := r.Probe(0)
	require.NoError(t, err)
	assert.Equal(t, []Token{2}, ready)

	_, err = unix.Write(wfd, []byte(`a`))
	require.NoError(t, err)

	ready, err = r.Probe(time.Second)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Token{1, 2}, ready)
}

func TestPollReactor_deregisterAndUnregister(t *testing.T) {
	rfd, wfd := newPipe(t)
	r, err := NewReactor()
	require.NoError(t, err)

	require.NoError(t, r.Register(1, rfd, InterestRead))
	require.NoError(t, r.Register(1, wfd, InterestWrite))
	require.NoError(t, r.Register(1, wfd, InterestWrite))
	require.NoError(t, r.Register(2, wfd, InterestWrite))

	assert.False(t, r.Deregister(1, wfd, InterestRead))
	assert.True(t, r.Deregister(1, wfd, InterestWrite))
	assert.Equal(t, 3, r.Len())

	assert.Equal(t, 2, r.Unregister(1))
	assert.Equal(t, 0, r.Unregister(1))
	assert.Equal(t, 1, r.Len())

	ready, err := r.Probe(0)
	require.NoError(t, err)
	assert.Equal(t, []Token{2}, ready)
}

func TestPollReactor_invalidEntries(t *testing.T) {
	r, err := NewReactor()
	require.NoError(t, err)

	assert.ErrorIs(t, r.Register(1, -1, InterestRead), ErrInvalidDescriptor)
	assert.ErrorIs(t, r.Register(1, 0, 0), ErrInvalidInterest)
	assert.ErrorIs(t, r.Register(1, 0, Interest(8)), ErrInvalidInterest)
	assert.Equal(t, 0, r.Len())
}

func TestPollReactor_hangupWakesReader(t *testing.T) {
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])

	r, err := NewReactor()
	require.NoError(t, err)
	require.NoError(t, r.Register(7, fds[0], InterestRead))

	require.NoError(t, unix.Close(fds[1]))

	ready, err := r.Probe(time.Second)
	require.NoError(t, err)
	assert.Equal(t, []Token{7}, ready)
}

func TestTimeoutMillis(t *testing.T) {
	for _, tc := range [...]struct {
		name    string
		timeout time.Duration
		want    int
	}{
		{`negative`, -1, -1},
		{`zero`, 0, 0},
		{`sub millisecond rounds up`, time.Microsecond, 1},
		{`exact`, 100 * time.Millisecond, 100},
		{`fractional rounds up`, 1500 * time.Microsecond, 2},
		{`clamped`, 1 << 62, 1<<31 - 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, timeoutMillis(tc.timeout))
		})
	}
}

func TestInterest_String(t *testing.T) {
	assert.Equal(t, `none`, Interest(0).String())
	assert.Equal(t, `read`, InterestRead.String())
	assert.Equal(t, `write`, InterestWrite.String())
	assert.Equal(t, `read|write`, InterestBoth.String())
	assert.Equal(t, `read|0x4`, (InterestRead | 4).String())
}
