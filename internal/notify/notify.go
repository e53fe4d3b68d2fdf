// Package notify fan-outs session events to live subscribers and hosts the
// contract for the platform's notification dispatcher.
package notify

import (
	"context"
	"sync"
	"time"

	"prostaff.org/internal/tracking"
	"prostaff.org/internal/worktoken"
)

// EventKind tags a session event.
type EventKind string

const (
	KindCheckedIn  EventKind = "checked_in"
	KindCheckedOut EventKind = "checked_out"
)

// SessionEvent describes one state transition for live dashboards.
type SessionEvent struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"sessionId"`
	EventID   string    `json:"eventId"`
	JobID     string    `json:"jobId"`
	WorkerID  string    `json:"workerId"`
	Hours     float64   `json:"hours,omitempty"`
	Earnings  float64   `json:"earnings,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// FromSession builds the event for a session transition.
func FromSession(kind EventKind, sess tracking.WorkSession) SessionEvent {
	evt := SessionEvent{
		Kind:      kind,
		SessionID: sess.ID,
		EventID:   sess.EventID,
		JobID:     sess.JobID,
		WorkerID:  sess.WorkerID,
		Timestamp: time.Now().UTC(),
	}
	if sess.TotalHours != nil {
		evt.Hours = *sess.TotalHours
	}
	if sess.Earnings != nil {
		evt.Earnings = *sess.Earnings
	}
	return evt
}

// Stream fan-outs session events to all active subscribers (SSE clients).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan SessionEvent
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan SessionEvent)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan SessionEvent {
	ch := make(chan SessionEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt SessionEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}

// Dispatcher hands a freshly minted token to the workers hired for the
// event. The real implementation lives in the platform's messaging service;
// the engine only depends on this contract.
type Dispatcher interface {
	SendToken(ctx context.Context, eventID string, workerIDs []string, token worktoken.Token) (int, error)
}
