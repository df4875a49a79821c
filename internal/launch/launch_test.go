package launch

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStarter is a mock implementation of Starter.
type MockStarter struct {
	mock.Mock
}

func (m *MockStarter) Start(path string) (Process, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Process), args.Error(1)
}

type chanProcess struct {
	done chan struct{}
	err  error
}

func (p *chanProcess) Wait() error {
	<-p.done
	return p.err
}

func fixedClock(times ...time.Time) func() time.Time {
	var mu sync.Mutex
	i := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

func TestLauncher_Session(t *testing.T) {
	proc := &chanProcess{done: make(chan struct{})}
	ms := new(MockStarter)
	ms.On("Start", "/games/hl2.exe").Return(proc, nil)

	start := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	l := New(ms)
	l.now = fixedClock(start, start.Add(90*time.Minute))

	var got Session
	launched, err := l.Launch("/games/hl2.exe", func(s Session) { got = s })
	require.NoError(t, err)
	assert.Equal(t, start, launched)
	assert.True(t, l.Running("/games/hl2.exe"))

	close(proc.done)
	l.Wait()

	assert.False(t, l.Running("/games/hl2.exe"))
	assert.Equal(t, "/games/hl2.exe", got.Key)
	assert.Equal(t, 90*time.Minute, got.Elapsed())
	assert.NoError(t, got.Err)
}

func TestLauncher_OneProcessPerGame(t *testing.T) {
	proc := &chanProcess{done: make(chan struct{})}
	ms := new(MockStarter)
	ms.On("Start", "/games/hl2.exe").Return(proc, nil).Once()

	l := New(ms)
	_, err := l.Launch("/games/hl2.exe", nil)
	require.NoError(t, err)

	_, err = l.Launch("/games/hl2.exe", nil)
	assert.True(t, errors.Is(err, ErrAlreadyRunning))

	close(proc.done)
	l.Wait()
	ms.AssertNumberOfCalls(t, "Start", 1)
}

func TestLauncher_StartFailure(t *testing.T) {
	ms := new(MockStarter)
	ms.On("Start", "/games/broken.exe").Return(nil, errors.New("exec format error"))

	l := New(ms)
	called := false
	_, err := l.Launch("/games/broken.exe", func(Session) { called = true })

	var le *Error
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "/games/broken.exe", le.Key)
	assert.False(t, l.Running("/games/broken.exe"))
	l.Wait()
	assert.False(t, called)
}

func TestLauncher_ExitErrorStillCounts(t *testing.T) {
	proc := &chanProcess{done: make(chan struct{}), err: errors.New("exit status 1")}
	close(proc.done)
	ms := new(MockStarter)
	ms.On("Start", mock.Anything).Return(proc, nil)

	start := time.Unix(1000, 0)
	l := New(ms)
	l.now = fixedClock(start, start.Add(time.Second))

	var got Session
	_, err := l.Launch("/g.exe", func(s Session) { got = s })
	require.NoError(t, err)
	l.Wait()
	assert.Error(t, got.Err)
	assert.Equal(t, time.Second, got.Elapsed())
}

func TestSession_ElapsedNeverNegative(t *testing.T) {
	now := time.Now()
	assert.Equal(t, time.Duration(0), Session{Start: now, End: now.Add(-time.Hour)}.Elapsed())
}

func TestExecStarter_Missing(t *testing.T) {
	_, err := ExecStarter{}.Start(filepath.Join(t.TempDir(), "nope.exe"))
	assert.True(t, errors.Is(err, ErrMissing))
}
