// Package launch starts games and reports how long they ran.
package launch

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/ryanm101/librelauncher/internal/logging"
	"github.com/ryanm101/librelauncher/internal/metrics"
)

var (
	ErrAlreadyRunning = errors.New("game is already running")
	ErrMissing        = errors.New("executable not found")
)

// Error reports a game that could not be started.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Process is a started game.
type Process interface {
	Wait() error
}

// Starter starts the executable at path.
type Starter interface {
	Start(path string) (Process, error)
}

// ExecStarter runs executables directly, with their own directory as the
// working directory.
type ExecStarter struct{}

// Start implements Starter.
func (ExecStarter) Start(path string) (Process, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissing, path)
	}
	cmd := exec.Command(path) //nolint:gosec // Runs a game the user added
	cmd.Dir = filepath.Dir(path)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// Session describes one finished run.
type Session struct {
	Key   string
	Start time.Time
	End   time.Time
	Err   error // exit error of the process, if any
}

// Elapsed returns the session length, never negative.
func (s Session) Elapsed() time.Duration {
	if d := s.End.Sub(s.Start); d > 0 {
		return d
	}
	return 0
}

// Launcher keeps at most one running process per game.
type Launcher struct {
	starter Starter
	now     func() time.Time

	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// New creates a launcher. A nil starter uses ExecStarter.
func New(s Starter) *Launcher {
	if s == nil {
		s = ExecStarter{}
	}
	return &Launcher{starter: s, now: time.Now, running: make(map[string]struct{})}
}

// Launch starts the game at key and returns the start instant. When the
// process exits, onExit receives the session from a background goroutine.
func (l *Launcher) Launch(key string, onExit func(Session)) (time.Time, error) {
	l.mu.Lock()
	if _, busy := l.running[key]; busy {
		l.mu.Unlock()
		return time.Time{}, &Error{Key: key, Err: ErrAlreadyRunning}
	}
	l.running[key] = struct{}{}
	l.mu.Unlock()

	start := l.now()
	proc, err := l.starter.Start(key)
	if err != nil {
		l.finish(key)
		metrics.LaunchFailures.Inc()
		return time.Time{}, &Error{Key: key, Err: err}
	}
	logging.Game(key).Info("game started")

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		waitErr := proc.Wait()
		end := l.now()
		l.finish(key)

		s := Session{Key: key, Start: start, End: end, Err: waitErr}
		metrics.PlaySeconds.Add(s.Elapsed().Seconds())
		logging.Game(key).Info("game exited", "elapsed", s.Elapsed().Round(time.Second))
		if onExit != nil {
			onExit(s)
		}
	}()
	return start, nil
}

// Running reports whether the game at key is running.
func (l *Launcher) Running(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.running[key]
	return ok
}

// Wait blocks until every started game has exited and its callback ran.
func (l *Launcher) Wait() {
	l.wg.Wait()
}

func (l *Launcher) finish(key string) {
	l.mu.Lock()
	delete(l.running, key)
	l.mu.Unlock()
}
