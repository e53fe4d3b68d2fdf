package pg

import (
	"context"
	"database/sql"
	"errors"

	"prostaff.org/internal/roster"
)

// Roster reads events and jobs from Postgres. It never writes: job and
// event mutation belongs to the organizer-facing services.
type Roster struct {
	db *sql.DB
}

var _ roster.Store = (*Roster)(nil)

// NewRoster wraps an existing pool, typically the one from Open.
func NewRoster(db *sql.DB) *Roster { return &Roster{db: db} }

func (r *Roster) Event(ctx context.Context, eventID string) (roster.Event, error) {
	var ev roster.Event
	err := r.db.QueryRowContext(ctx, `
		select id, organizer_id, name, start_time, end_time
		from events where id=$1
	`, eventID).Scan(&ev.ID, &ev.OrganizerID, &ev.Name, &ev.StartTime, &ev.EndTime)
	if errors.Is(err, sql.ErrNoRows) {
		return roster.Event{}, roster.ErrEventNotFound
	}
	if err != nil {
		return roster.Event{}, err
	}
	return ev, nil
}

func (r *Roster) Jobs(ctx context.Context, eventID string) ([]roster.Job, error) {
	if _, err := r.Event(ctx, eventID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		select j.id, j.event_id, j.title, j.pay_per_person, j.total_positions,
		       coalesce(array_agg(w.worker_id) filter (where w.worker_id is not null), '{}')
		from jobs j
		left join job_workers w on w.job_id = j.id
		where j.event_id=$1
		group by j.id
		order by j.id
	`, eventID)
	if err != nil {
		return nil, err
	}
	return scanJobs(rows)
}

func (r *Roster) JobsFor(ctx context.Context, eventID, workerID string) ([]roster.Job, error) {
	if _, err := r.Event(ctx, eventID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		select j.id, j.event_id, j.title, j.pay_per_person, j.total_positions,
		       coalesce(array_agg(w.worker_id) filter (where w.worker_id is not null), '{}')
		from jobs j
		left join job_workers w on w.job_id = j.id
		where j.event_id=$1
		  and exists (select 1 from job_workers jw where jw.job_id = j.id and jw.worker_id = $2)
		group by j.id
		order by j.id
	`, eventID, workerID)
	if err != nil {
		return nil, err
	}
	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, roster.ErrNotAssigned
	}
	return jobs, nil
}

func scanJobs(rows *sql.Rows) ([]roster.Job, error) {
	defer rows.Close()
	var res []roster.Job
	for rows.Next() {
		var (
			job   roster.Job
			hired pgStringArray
		)
		if err := rows.Scan(&job.ID, &job.EventID, &job.Title, &job.PayPerPerson,
			&job.TotalPositions, &hired); err != nil {
			return nil, err
		}
		job.HiredPros = hired
		res = append(res, job)
	}
	return res, rows.Err()
}
