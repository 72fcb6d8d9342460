package core

import (
	"context"
	"sync"
)

// EventSink receives the events of every committed operation, in commit order.
type EventSink interface {
	Publish(ctx context.Context, events []Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, events []Event) error

// Publish implements EventSink.
func (f EventSinkFunc) Publish(ctx context.Context, events []Event) error { return f(ctx, events) }

// EventLog retains published events in memory for indexers and tests.
type EventLog struct {
	mu     sync.RWMutex
	events []Event
}

// NewEventLog constructs an empty log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Publish implements EventSink.
func (l *EventLog) Publish(_ context.Context, events []Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, event := range events {
		event.Parents = append([]KittyID(nil), event.Parents...)
		l.events = append(l.events, event)
	}
	return nil
}

// Events returns a copy of every event published so far.
func (l *EventLog) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Event(nil), l.events...)
}

// Since returns the events published after the first n.
func (l *EventLog) Since(n int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(l.events) {
		return nil
	}
	return append([]Event(nil), l.events[n:]...)
}

// Len reports the number of events retained.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
