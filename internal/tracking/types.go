// Package tracking is the work-session ledger: a token-gated check-in /
// check-out state machine whose rows feed earnings reporting. Rows are
// append-only; corrections are new rows, never edits.
package tracking

import (
	"errors"
	"time"

	"prostaff.org/internal/ids"
)

// SessionStatus is a closed set so illegal states are unrepresentable.
type SessionStatus string

const (
	StatusCheckedIn  SessionStatus = "checked_in"
	StatusCheckedOut SessionStatus = "checked_out"
)

// Valid reports whether the value is one of the known statuses.
func (s SessionStatus) Valid() bool {
	return s == StatusCheckedIn || s == StatusCheckedOut
}

// WorkSession is the ledger unit: one check-in/check-out cycle for a worker
// on a job. CheckOutTime, TotalHours and Earnings stay nil until checkout.
//
// Invariant: for a given (WorkerID, JobID) at most one row is checked_in at
// any instant. The invariant is per pair, not per worker — a worker staffing
// two jobs at the same event may hold one open session on each.
type WorkSession struct {
	ID           string        `json:"sessionId"`
	EventID      string        `json:"eventId"`
	JobID        string        `json:"jobId"`
	WorkerID     string        `json:"workerId"`
	Status       SessionStatus `json:"status"`
	CheckInTime  time.Time     `json:"checkInTime"`
	CheckOutTime *time.Time    `json:"checkOutTime,omitempty"`
	TotalHours   *float64      `json:"totalHours,omitempty"`
	Earnings     *float64      `json:"earnings,omitempty"`
}

// Open reports whether the session is still checked in.
func (s WorkSession) Open() bool { return s.Status == StatusCheckedIn }

var (
	ErrNotFound = errors.New("tracking: not found")
	// ErrSessionActive rejects a duplicate or racing check-in for a pair
	// that already holds an open session.
	ErrSessionActive = errors.New("tracking: session already active")
	// ErrNoActiveSession rejects a checkout with nothing open, including a
	// replayed checkout on an already-closed session.
	ErrNoActiveSession = errors.New("tracking: no active session")
	// ErrInvalidInterval rejects a checkout timestamp at or before the
	// check-in timestamp (clock skew or replay). The row is left untouched.
	ErrInvalidInterval = errors.New("tracking: check-out does not follow check-in")
)

func newSessionID() string {
	return ids.New()
}
