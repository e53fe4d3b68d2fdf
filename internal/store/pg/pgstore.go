package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"prostaff.org/internal/ids"
	"prostaff.org/internal/tracking"
)

// uniqueViolation is the Postgres SQLSTATE raised when the partial unique
// index on (worker_id, job_id) where status='checked_in' rejects a second
// open row for the pair.
const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

var _ tracking.Service = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing pool. Used by tests and by callers that share
// one pool between the session and roster stores.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// CheckIn relies on the partial unique index for atomicity: the insert and
// the at-most-one-open check are a single statement, so two racing callers
// get exactly one row and one constraint error.
func (s *Store) CheckIn(ctx context.Context, eventID, jobID, workerID string, now time.Time) (tracking.WorkSession, error) {
	sess := tracking.WorkSession{
		ID:          ids.New(),
		EventID:     eventID,
		JobID:       jobID,
		WorkerID:    workerID,
		Status:      tracking.StatusCheckedIn,
		CheckInTime: now.UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		insert into work_sessions(id, event_id, job_id, worker_id, status, check_in_time)
		values ($1,$2,$3,$4,$5,$6)
	`, sess.ID, eventID, jobID, workerID, string(sess.Status), sess.CheckInTime)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return tracking.WorkSession{}, tracking.ErrSessionActive
		}
		return tracking.WorkSession{}, err
	}
	return sess, nil
}

// CheckOut locks the pair's open row, computes pay, and closes the row in
// one transaction. A replay finds no open row and fails before any write.
func (s *Store) CheckOut(ctx context.Context, eventID, jobID, workerID string, payPerHour float64, now time.Time) (tracking.WorkSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return tracking.WorkSession{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		id      string
		checkIn time.Time
	)
	err = tx.QueryRowContext(ctx, `
		select id, check_in_time from work_sessions
		where worker_id=$1 and job_id=$2 and event_id=$3 and status=$4
		for update
	`, workerID, jobID, eventID, string(tracking.StatusCheckedIn)).Scan(&id, &checkIn)
	if errors.Is(err, sql.ErrNoRows) {
		return tracking.WorkSession{}, tracking.ErrNoActiveSession
	}
	if err != nil {
		return tracking.WorkSession{}, err
	}

	out := now.UTC()
	pay, err := tracking.ComputeEarnings(payPerHour, checkIn.UTC(), out)
	if err != nil {
		// Bad interval: roll back with the row untouched.
		return tracking.WorkSession{}, err
	}

	res, err := tx.ExecContext(ctx, `
		update work_sessions
		set status=$2, check_out_time=$3, total_hours=$4, earnings=$5
		where id=$1 and status=$6
	`, id, string(tracking.StatusCheckedOut), out, pay.TotalHours, pay.Earnings, string(tracking.StatusCheckedIn))
	if err != nil {
		return tracking.WorkSession{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return tracking.WorkSession{}, err
	}
	if affected != 1 {
		return tracking.WorkSession{}, tracking.ErrNoActiveSession
	}
	if err := tx.Commit(); err != nil {
		return tracking.WorkSession{}, err
	}

	return tracking.WorkSession{
		ID:           id,
		EventID:      eventID,
		JobID:        jobID,
		WorkerID:     workerID,
		Status:       tracking.StatusCheckedOut,
		CheckInTime:  checkIn.UTC(),
		CheckOutTime: &out,
		TotalHours:   &pay.TotalHours,
		Earnings:     &pay.Earnings,
	}, nil
}

const sessionColumns = `id, event_id, job_id, worker_id, status, check_in_time, check_out_time, total_hours, earnings`

func (s *Store) SessionsForEvent(ctx context.Context, eventID string) ([]tracking.WorkSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+sessionColumns+` from work_sessions
		where event_id=$1
		order by check_in_time asc, id asc
	`, eventID)
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}

func (s *Store) SessionsForWorker(ctx context.Context, workerID string) ([]tracking.WorkSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+sessionColumns+` from work_sessions
		where worker_id=$1
		order by check_in_time asc, id asc
	`, workerID)
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}

func (s *Store) WorkerEventSessions(ctx context.Context, eventID, workerID string) ([]tracking.WorkSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+sessionColumns+` from work_sessions
		where event_id=$1 and worker_id=$2
		order by check_in_time asc, id asc
	`, eventID, workerID)
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]tracking.WorkSession, error) {
	defer rows.Close()
	var res []tracking.WorkSession
	for rows.Next() {
		var (
			sess     tracking.WorkSession
			status   string
			outTime  sql.NullTime
			hours    sql.NullFloat64
			earnings sql.NullFloat64
		)
		if err := rows.Scan(&sess.ID, &sess.EventID, &sess.JobID, &sess.WorkerID,
			&status, &sess.CheckInTime, &outTime, &hours, &earnings); err != nil {
			return nil, err
		}
		sess.Status = tracking.SessionStatus(status)
		if outTime.Valid {
			t := outTime.Time.UTC()
			sess.CheckOutTime = &t
		}
		if hours.Valid {
			h := hours.Float64
			sess.TotalHours = &h
		}
		if earnings.Valid {
			e := earnings.Float64
			sess.Earnings = &e
		}
		res = append(res, sess)
	}
	return res, rows.Err()
}
