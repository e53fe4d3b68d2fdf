package tracking

import (
	"context"
	"sync"
	"time"
)

// Service defines the session ledger operations.
type Service interface {
	// CheckIn opens a session for the pair. The existence check and the
	// row creation are atomic with respect to concurrent callers: of two
	// racing check-ins for the same pair exactly one succeeds and the
	// other receives ErrSessionActive.
	CheckIn(ctx context.Context, eventID, jobID, workerID string, now time.Time) (WorkSession, error)
	// CheckOut closes the pair's open session, stamping the checkout time
	// and persisting the computed hours and earnings on the same row. A
	// replay on an already-closed session fails with ErrNoActiveSession.
	CheckOut(ctx context.Context, eventID, jobID, workerID string, payPerHour float64, now time.Time) (WorkSession, error)
	SessionsForEvent(ctx context.Context, eventID string) ([]WorkSession, error)
	SessionsForWorker(ctx context.Context, workerID string) ([]WorkSession, error)
	WorkerEventSessions(ctx context.Context, eventID, workerID string) ([]WorkSession, error)
}

type pairKey struct {
	workerID string
	jobID    string
}

// InMemory implements Service with in-process concurrency safety. The
// active index is the single-writer-per-key primitive: all transitions for
// a pair serialize on the store mutex.
type InMemory struct {
	mu       sync.RWMutex
	sessions []*WorkSession
	active   map[pairKey]*WorkSession
}

var _ Service = (*InMemory)(nil)

// NewInMemory creates an empty ledger.
func NewInMemory() *InMemory {
	return &InMemory{
		active: make(map[pairKey]*WorkSession),
	}
}

func (s *InMemory) CheckIn(ctx context.Context, eventID, jobID, workerID string, now time.Time) (WorkSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{workerID: workerID, jobID: jobID}
	if _, open := s.active[key]; open {
		return WorkSession{}, ErrSessionActive
	}

	sess := &WorkSession{
		ID:          newSessionID(),
		EventID:     eventID,
		JobID:       jobID,
		WorkerID:    workerID,
		Status:      StatusCheckedIn,
		CheckInTime: now.UTC(),
	}
	s.sessions = append(s.sessions, sess)
	s.active[key] = sess
	return *sess, nil
}

func (s *InMemory) CheckOut(ctx context.Context, eventID, jobID, workerID string, payPerHour float64, now time.Time) (WorkSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{workerID: workerID, jobID: jobID}
	sess, open := s.active[key]
	if !open || sess.EventID != eventID {
		return WorkSession{}, ErrNoActiveSession
	}

	// Compute before mutating so a bad interval leaves the row untouched.
	pay, err := ComputeEarnings(payPerHour, sess.CheckInTime, now.UTC())
	if err != nil {
		return WorkSession{}, err
	}

	out := now.UTC()
	sess.Status = StatusCheckedOut
	sess.CheckOutTime = &out
	sess.TotalHours = &pay.TotalHours
	sess.Earnings = &pay.Earnings
	delete(s.active, key)
	return *sess, nil
}

func (s *InMemory) SessionsForEvent(ctx context.Context, eventID string) ([]WorkSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []WorkSession
	for _, sess := range s.sessions {
		if sess.EventID == eventID {
			res = append(res, *sess)
		}
	}
	return res, nil
}

func (s *InMemory) SessionsForWorker(ctx context.Context, workerID string) ([]WorkSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []WorkSession
	for _, sess := range s.sessions {
		if sess.WorkerID == workerID {
			res = append(res, *sess)
		}
	}
	return res, nil
}

func (s *InMemory) WorkerEventSessions(ctx context.Context, eventID, workerID string) ([]WorkSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []WorkSession
	for _, sess := range s.sessions {
		if sess.EventID == eventID && sess.WorkerID == workerID {
			res = append(res, *sess)
		}
	}
	return res, nil
}
