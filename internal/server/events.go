package server

import (
	"sync"
	"time"

	"github.com/ryanm101/librelauncher/internal/enrich"
)

const defaultEventCapacity = 256

// EventLog keeps the most recent events so clients can poll for changes.
type EventLog struct {
	mu     sync.Mutex
	buf    []LoggedEvent
	size   int
	next   uint64
	notify chan struct{}
}

// NewEventLog creates a log holding up to capacity events.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = defaultEventCapacity
	}
	return &EventLog{size: capacity, next: 1, notify: make(chan struct{})}
}

// Consume appends everything received on ch until it is closed.
func (l *EventLog) Consume(ch <-chan enrich.Event) {
	for e := range ch {
		l.Append(e)
	}
}

// Append adds e to the log and wakes waiting readers.
func (l *EventLog) Append(e enrich.Event) LoggedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	le := LoggedEvent{Event: e, Seq: l.next, Time: time.Now()}
	l.next++
	l.buf = append(l.buf, le)
	if len(l.buf) > l.size {
		l.buf = l.buf[len(l.buf)-l.size:]
	}
	close(l.notify)
	l.notify = make(chan struct{})
	return le
}

// Since returns the events with a sequence number greater than seq, and a
// channel that is closed when a newer event arrives.
func (l *EventLog) Since(seq uint64) ([]LoggedEvent, <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LoggedEvent
	for _, e := range l.buf {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out, l.notify
}
