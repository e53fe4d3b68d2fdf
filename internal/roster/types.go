package roster

import (
	"errors"
	"time"
)

// Event identifies a staffing engagement. Identity is immutable; the
// schedule window may be edited by the organizer up until the event runs.
type Event struct {
	ID          string    `json:"eventId"`
	OrganizerID string    `json:"organizerId"`
	Name        string    `json:"name"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

// Job is a staffable position within an event. PayPerPerson is an hourly
// rate. HiredPros is the accepted-worker set; the tracking engine reads it
// and never mutates it.
type Job struct {
	ID             string   `json:"jobId"`
	EventID        string   `json:"eventId"`
	Title          string   `json:"title"`
	PayPerPerson   float64  `json:"payPerPerson"`
	TotalPositions int      `json:"totalPositions"`
	HiredPros      []string `json:"hiredPros"`
}

// Hired reports whether the worker is in the accepted set.
func (j Job) Hired(workerID string) bool {
	for _, id := range j.HiredPros {
		if id == workerID {
			return true
		}
	}
	return false
}

var (
	ErrEventNotFound = errors.New("roster: event not found")
	ErrJobNotFound   = errors.New("roster: job not found")
	// ErrNotAssigned means the worker holds no position matching the
	// request at this event.
	ErrNotAssigned = errors.New("roster: worker not assigned")
	// ErrAmbiguousJob means the worker holds several positions and the
	// caller must name one.
	ErrAmbiguousJob = errors.New("roster: multiple eligible jobs, job id required")
)
