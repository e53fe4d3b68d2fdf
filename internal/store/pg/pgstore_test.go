package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"prostaff.org/internal/roster"
	"prostaff.org/internal/tracking"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

func TestCheckInInsertsRow(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("insert into work_sessions").
		WithArgs(sqlmock.AnyArg(), "ev-1", "job-1", "w-1", "checked_in", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sess, err := store.CheckIn(context.Background(), "ev-1", "job-1", "w-1", now)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if sess.Status != tracking.StatusCheckedIn || sess.ID == "" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckInUniqueViolationMapsToSessionActive(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectExec("insert into work_sessions").
		WithArgs(sqlmock.AnyArg(), "ev-1", "job-1", "w-1", "checked_in", sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "work_sessions_active_pair"})

	if _, err := store.CheckIn(context.Background(), "ev-1", "job-1", "w-1", now); !errors.Is(err, tracking.ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckOutClosesOpenRow(t *testing.T) {
	store, mock := newMock(t)
	in := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	out := in.Add(4*time.Hour + 30*time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("select id, check_in_time from work_sessions").
		WithArgs("w-1", "job-1", "ev-1", "checked_in").
		WillReturnRows(sqlmock.NewRows([]string{"id", "check_in_time"}).AddRow("sess-1", in))
	mock.ExpectExec("update work_sessions").
		WithArgs("sess-1", "checked_out", out, 4.5, 90.0, "checked_in").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sess, err := store.CheckOut(context.Background(), "ev-1", "job-1", "w-1", 20, out)
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if sess.TotalHours == nil || *sess.TotalHours != 4.5 {
		t.Fatalf("unexpected hours: %v", sess.TotalHours)
	}
	if sess.Earnings == nil || *sess.Earnings != 90.0 {
		t.Fatalf("unexpected earnings: %v", sess.Earnings)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckOutNoOpenRow(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select id, check_in_time from work_sessions").
		WithArgs("w-1", "job-1", "ev-1", "checked_in").
		WillReturnRows(sqlmock.NewRows([]string{"id", "check_in_time"}))
	mock.ExpectRollback()

	if _, err := store.CheckOut(context.Background(), "ev-1", "job-1", "w-1", 20, time.Now().UTC()); !errors.Is(err, tracking.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckOutInvalidIntervalRollsBack(t *testing.T) {
	store, mock := newMock(t)
	in := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("select id, check_in_time from work_sessions").
		WithArgs("w-1", "job-1", "ev-1", "checked_in").
		WillReturnRows(sqlmock.NewRows([]string{"id", "check_in_time"}).AddRow("sess-1", in))
	mock.ExpectRollback()

	if _, err := store.CheckOut(context.Background(), "ev-1", "job-1", "w-1", 20, in.Add(-time.Minute)); !errors.Is(err, tracking.ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionsForEventScansNullables(t *testing.T) {
	store, mock := newMock(t)
	in := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	out := in.Add(2 * time.Hour)

	rows := sqlmock.NewRows([]string{
		"id", "event_id", "job_id", "worker_id", "status",
		"check_in_time", "check_out_time", "total_hours", "earnings",
	}).
		AddRow("s-1", "ev-1", "job-1", "w-1", "checked_out", in, out, 2.0, 40.0).
		AddRow("s-2", "ev-1", "job-1", "w-2", "checked_in", in, nil, nil, nil)

	mock.ExpectQuery("select (.+) from work_sessions").
		WithArgs("ev-1").
		WillReturnRows(rows)

	sessions, err := store.SessionsForEvent(context.Background(), "ev-1")
	if err != nil {
		t.Fatalf("SessionsForEvent: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(sessions))
	}
	if sessions[0].Earnings == nil || *sessions[0].Earnings != 40.0 {
		t.Fatalf("closed row lost earnings: %+v", sessions[0])
	}
	if sessions[1].CheckOutTime != nil || sessions[1].TotalHours != nil || sessions[1].Earnings != nil {
		t.Fatalf("open row must keep nil checkout fields: %+v", sessions[1])
	}
}

func TestRosterJobsForMapsEmptyToNotAssigned(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	r := NewRoster(db)

	start := time.Now().UTC()
	mock.ExpectQuery("select id, organizer_id, name, start_time, end_time").
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organizer_id", "name", "start_time", "end_time"}).
			AddRow("ev-1", "org-1", "Launch Party", start, start.Add(8*time.Hour)))
	mock.ExpectQuery("select j.id, j.event_id, j.title").
		WithArgs("ev-1", "w-9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "title", "pay_per_person", "total_positions", "hired"}))

	if _, err := r.JobsFor(context.Background(), "ev-1", "w-9"); !errors.Is(err, roster.ErrNotAssigned) {
		t.Fatalf("expected ErrNotAssigned, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRosterJobsForScansHiredArray(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	r := NewRoster(db)

	start := time.Now().UTC()
	mock.ExpectQuery("select id, organizer_id, name, start_time, end_time").
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organizer_id", "name", "start_time", "end_time"}).
			AddRow("ev-1", "org-1", "Launch Party", start, start.Add(8*time.Hour)))
	mock.ExpectQuery("select j.id, j.event_id, j.title").
		WithArgs("ev-1", "w-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "title", "pay_per_person", "total_positions", "hired"}).
			AddRow("job-bar", "ev-1", "Bartender", 20.0, 2, "{w-1,w-2}"))

	jobs, err := r.JobsFor(context.Background(), "ev-1", "w-1")
	if err != nil {
		t.Fatalf("JobsFor: %v", err)
	}
	if len(jobs) != 1 || len(jobs[0].HiredPros) != 2 || !jobs[0].Hired("w-2") {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
}
