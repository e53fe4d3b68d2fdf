package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCheckInCheckOutCycle(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	in := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	sess, err := s.CheckIn(ctx, "ev-1", "job-1", "w-1", in)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if sess.Status != StatusCheckedIn || !sess.Open() {
		t.Fatalf("unexpected status: %s", sess.Status)
	}
	if sess.CheckOutTime != nil || sess.TotalHours != nil || sess.Earnings != nil {
		t.Fatalf("checkout fields must be nil until checkout: %+v", sess)
	}

	done, err := s.CheckOut(ctx, "ev-1", "job-1", "w-1", 20, in.Add(4*time.Hour+30*time.Minute))
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if done.Status != StatusCheckedOut {
		t.Fatalf("unexpected status: %s", done.Status)
	}
	if done.TotalHours == nil || *done.TotalHours != 4.50 {
		t.Fatalf("unexpected hours: %v", done.TotalHours)
	}
	if done.Earnings == nil || *done.Earnings != 90.00 {
		t.Fatalf("unexpected earnings: %v", done.Earnings)
	}
}

func TestDuplicateCheckInRejected(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := s.CheckIn(ctx, "ev-1", "job-1", "w-1", now); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if _, err := s.CheckIn(ctx, "ev-1", "job-1", "w-1", now.Add(time.Minute)); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
}

func TestCheckOutReplayRejected(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := s.CheckIn(ctx, "ev-1", "job-1", "w-1", now); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if _, err := s.CheckOut(ctx, "ev-1", "job-1", "w-1", 20, now.Add(time.Hour)); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	// A retried checkout must fail, never silently recompute.
	if _, err := s.CheckOut(ctx, "ev-1", "job-1", "w-1", 20, now.Add(2*time.Hour)); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession on replay, got %v", err)
	}
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	s := NewInMemory()
	if _, err := s.CheckOut(context.Background(), "ev-1", "job-1", "w-1", 20, time.Now().UTC()); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestInvalidIntervalLeavesRowUntouched(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	in := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	if _, err := s.CheckIn(ctx, "ev-1", "job-1", "w-1", in); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if _, err := s.CheckOut(ctx, "ev-1", "job-1", "w-1", 20, in.Add(-time.Minute)); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}

	// The session is still open and a sane checkout still works.
	sessions, err := s.WorkerEventSessions(ctx, "ev-1", "w-1")
	if err != nil {
		t.Fatalf("WorkerEventSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Status != StatusCheckedIn {
		t.Fatalf("row was mutated: %+v", sessions)
	}
	if _, err := s.CheckOut(ctx, "ev-1", "job-1", "w-1", 20, in.Add(time.Hour)); err != nil {
		t.Fatalf("CheckOut after bad interval: %v", err)
	}
}

func TestPerPairInvariantAllowsMultipleJobs(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	// One worker, two jobs at the same event: both may be open at once.
	if _, err := s.CheckIn(ctx, "ev-1", "job-bar", "w-1", now); err != nil {
		t.Fatalf("CheckIn bar: %v", err)
	}
	if _, err := s.CheckIn(ctx, "ev-1", "job-door", "w-1", now); err != nil {
		t.Fatalf("CheckIn door: %v", err)
	}

	sessions, err := s.SessionsForWorker(ctx, "w-1")
	if err != nil {
		t.Fatalf("SessionsForWorker: %v", err)
	}
	open := 0
	for _, sess := range sessions {
		if sess.Open() {
			open++
		}
	}
	if open != 2 {
		t.Fatalf("expected two open sessions across jobs, got %d", open)
	}
}

func TestConcurrentCheckInsYieldOneWinner(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	const N = 32
	var wg sync.WaitGroup
	errs := make([]error, N)
	for i := 0; i < N; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CheckIn(ctx, "ev-1", "job-1", "w-1", now)
		}(i)
	}
	wg.Wait()

	wins, losses := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSessionActive):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != N-1 {
		t.Fatalf("wins=%d losses=%d, want exactly one winner", wins, losses)
	}

	// The ledger must hold exactly one checked-in row, not one per caller.
	sessions, _ := s.SessionsForEvent(ctx, "ev-1")
	if len(sessions) != 1 {
		t.Fatalf("expected a single row, got %d", len(sessions))
	}
}

func TestHistoryNeverHoldsTwoOpenRowsPerPair(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	// Three full cycles; a new cycle is a new row, never an edit.
	for i := 0; i < 3; i++ {
		in := base.Add(time.Duration(i) * 3 * time.Hour)
		if _, err := s.CheckIn(ctx, "ev-1", "job-1", "w-1", in); err != nil {
			t.Fatalf("cycle %d CheckIn: %v", i, err)
		}
		if _, err := s.CheckOut(ctx, "ev-1", "job-1", "w-1", 15, in.Add(2*time.Hour)); err != nil {
			t.Fatalf("cycle %d CheckOut: %v", i, err)
		}
	}

	sessions, _ := s.SessionsForEvent(ctx, "ev-1")
	if len(sessions) != 3 {
		t.Fatalf("expected three rows, got %d", len(sessions))
	}
	open := 0
	for _, sess := range sessions {
		if sess.Open() {
			open++
		}
	}
	if open != 0 {
		t.Fatalf("expected no open rows, got %d", open)
	}
}
