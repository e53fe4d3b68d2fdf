package roster

import (
	"context"
	"sync"
)

// Store is the read-only view of events and jobs the tracking engine
// depends on. Mutation happens elsewhere in the platform.
type Store interface {
	Event(ctx context.Context, eventID string) (Event, error)
	Jobs(ctx context.Context, eventID string) ([]Job, error)
	// JobsFor returns only the event's jobs whose accepted-worker set
	// contains the worker. ErrNotAssigned when none match.
	JobsFor(ctx context.Context, eventID, workerID string) ([]Job, error)
}

// ResolveJob picks the job a worker is clocking against. With one eligible
// job the choice is implicit; with several, jobID must be supplied and must
// belong to the worker's eligible set.
func ResolveJob(ctx context.Context, store Store, eventID, workerID, jobID string) (Job, error) {
	jobs, err := store.JobsFor(ctx, eventID, workerID)
	if err != nil {
		return Job{}, err
	}
	if jobID == "" {
		if len(jobs) == 1 {
			return jobs[0], nil
		}
		return Job{}, ErrAmbiguousJob
	}
	for _, job := range jobs {
		if job.ID == jobID {
			return job, nil
		}
	}
	// A named job outside the eligible set is indistinguishable from no
	// assignment at all, even when the token was otherwise valid.
	return Job{}, ErrNotAssigned
}

// InMemory is a Store over seeded events and jobs. The zero value is not
// usable; construct with NewInMemory.
type InMemory struct {
	mu     sync.RWMutex
	events map[string]Event
	jobs   map[string][]Job // eventID -> jobs
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty roster.
func NewInMemory() *InMemory {
	return &InMemory{
		events: make(map[string]Event),
		jobs:   make(map[string][]Job),
	}
}

// AddEvent registers an event. Intended for seeding and tests.
func (s *InMemory) AddEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.ID] = ev
}

// AddJob registers a job under its event. Intended for seeding and tests.
func (s *InMemory) AddJob(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.EventID] = append(s.jobs[job.EventID], job)
}

func (s *InMemory) Event(ctx context.Context, eventID string) (Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[eventID]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	return ev, nil
}

func (s *InMemory) Jobs(ctx context.Context, eventID string) ([]Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.events[eventID]; !ok {
		return nil, ErrEventNotFound
	}
	jobs := make([]Job, len(s.jobs[eventID]))
	copy(jobs, s.jobs[eventID])
	return jobs, nil
}

func (s *InMemory) JobsFor(ctx context.Context, eventID, workerID string) ([]Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.events[eventID]; !ok {
		return nil, ErrEventNotFound
	}
	var eligible []Job
	for _, job := range s.jobs[eventID] {
		if job.Hired(workerID) {
			eligible = append(eligible, job)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrNotAssigned
	}
	return eligible, nil
}
