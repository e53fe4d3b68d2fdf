package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"prostaff.org/internal/audit"
	"prostaff.org/internal/auth"
	"prostaff.org/internal/notify"
	"prostaff.org/internal/obs"
	"prostaff.org/internal/roster"
	"prostaff.org/internal/tracking"
	"prostaff.org/internal/worktoken"
)

// Stable error kinds surfaced to clients alongside HTTP status codes.
const (
	kindTokenExpired   = "TokenExpired"
	kindTokenMalformed = "TokenMalformed"
	kindNotAssigned    = "NotAssigned"
	kindSessionActive  = "SessionAlreadyActive"
	kindNoSession      = "NoActiveSession"
	kindBadInterval    = "InvalidInterval"
	kindAmbiguousJob   = "AmbiguousJobSelection"
)

type clockRequest struct {
	QRToken string `json:"qrToken"`
	JobID   string `json:"jobId,omitempty"`
}

type sessionResponse struct {
	Session tracking.WorkSession `json:"session"`
}

type qrResponse struct {
	QRCode     string       `json:"qrCode"`
	ExpiryTime time.Time    `json:"expiryTime"`
	Jobs       []roster.Job `json:"jobs"`
}

type sendQRResponse struct {
	WorkersNotified int `json:"workersNotified"`
}

type sessionsResponse struct {
	Sessions []tracking.WorkSession `json:"sessions"`
	Summary  tracking.WorkerSummary `json:"summary"`
}

// handleWorkSchedule dispatches /v1/work-schedule/... by suffix.
func (a *API) handleWorkSchedule(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/work-schedule/")
	switch path {
	case "":
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	case "check-in":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.checkIn(w, r)
		return
	case "check-out":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.checkOut(w, r)
		return
	case "my-sessions":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.mySessions(w, r)
		return
	}

	eventID, action, ok := strings.Cut(path, "/")
	if !ok || eventID == "" || strings.Contains(action, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch action {
	case "qr":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.eventQR(w, r, eventID)
	case "send-qr":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.sendQR(w, r, eventID)
	case "sessions":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.workerSessions(w, r, eventID)
	case "summary":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.eventSummary(w, r, eventID)
	case "stream":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.eventStream(w, r, eventID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// checkIn validates the scanned capsule, resolves the job, and opens a
// session. Expiry is judged at request entry: a capsule valid when read is
// honored for this request even if it dies mid-flight.
func (a *API) checkIn(w http.ResponseWriter, r *http.Request) {
	workerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req clockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	now := a.now()
	eventID, err := worktoken.Validate(req.QRToken, now)
	if err != nil {
		obs.ObserveCheckIn("rejected")
		a.handleScheduleError(w, r, err, "", "")
		return
	}

	job, err := roster.ResolveJob(r.Context(), a.roster, eventID, workerID, strings.TrimSpace(req.JobID))
	if err != nil {
		obs.ObserveCheckIn("rejected")
		a.handleScheduleError(w, r, err, eventID, workerID)
		return
	}

	sess, err := a.tracking.CheckIn(r.Context(), eventID, job.ID, workerID, now)
	if err != nil {
		obs.ObserveCheckIn("rejected")
		a.handleScheduleError(w, r, err, eventID, workerID)
		return
	}

	obs.ObserveCheckIn("ok")
	obs.SessionOpened()
	if a.stream != nil {
		a.stream.Publish(notify.FromSession(notify.KindCheckedIn, sess))
	}
	_ = audit.LogEvent(r.Context(), "work.session.check_in", map[string]any{
		"session_id": sess.ID,
		"event_id":   eventID,
		"job_id":     job.ID,
	})

	writeJSON(w, http.StatusCreated, sessionResponse{Session: sess})
}

// checkOut closes the open session for the resolved job and returns the
// computed hours and earnings stamped on the row.
func (a *API) checkOut(w http.ResponseWriter, r *http.Request) {
	workerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req clockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	now := a.now()
	eventID, err := worktoken.Validate(req.QRToken, now)
	if err != nil {
		obs.ObserveCheckOut("rejected")
		a.handleScheduleError(w, r, err, "", "")
		return
	}

	job, err := roster.ResolveJob(r.Context(), a.roster, eventID, workerID, strings.TrimSpace(req.JobID))
	if err != nil {
		obs.ObserveCheckOut("rejected")
		a.handleScheduleError(w, r, err, eventID, workerID)
		return
	}

	sess, err := a.tracking.CheckOut(r.Context(), eventID, job.ID, workerID, job.PayPerPerson, now)
	if err != nil {
		obs.ObserveCheckOut("rejected")
		a.handleScheduleError(w, r, err, eventID, workerID)
		return
	}

	obs.ObserveCheckOut("ok")
	obs.SessionClosed()
	if a.stream != nil {
		a.stream.Publish(notify.FromSession(notify.KindCheckedOut, sess))
	}
	fields := map[string]any{
		"session_id": sess.ID,
		"event_id":   eventID,
		"job_id":     job.ID,
	}
	if sess.Earnings != nil {
		fields["earnings"] = *sess.Earnings
	}
	_ = audit.LogEvent(r.Context(), "work.session.check_out", fields)

	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

// eventQR returns the current capsule for the event, rendered for scanning.
// With ?horizon=event-end the capsule lives until the event closes instead
// of the configured default.
func (a *API) eventQR(w http.ResponseWriter, r *http.Request, eventID string) {
	ev, ok := a.requireOrganizer(w, r, eventID)
	if !ok {
		return
	}

	ttl, err := a.horizonTTL(r, ev)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tok, err := a.issuer.Current(eventID, ttl)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}
	obs.TokenIssued()

	payload, err := tok.QRPayload()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token encoding failed")
		return
	}
	jobs, err := a.roster.Jobs(r.Context(), eventID)
	if err != nil {
		a.handleScheduleError(w, r, err, eventID, "")
		return
	}

	writeJSON(w, http.StatusOK, qrResponse{
		QRCode:     payload,
		ExpiryTime: tok.ExpiresAt,
		Jobs:       jobs,
	})
}

// sendQR issues a capsule and hands it to the notification dispatcher for
// every hired worker at the event. Zero recipients is a success, not an error.
func (a *API) sendQR(w http.ResponseWriter, r *http.Request, eventID string) {
	ev, ok := a.requireOrganizer(w, r, eventID)
	if !ok {
		return
	}

	ttl, err := a.horizonTTL(r, ev)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tok, err := a.issuer.Current(eventID, ttl)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}
	obs.TokenIssued()

	jobs, err := a.roster.Jobs(r.Context(), eventID)
	if err != nil {
		a.handleScheduleError(w, r, err, eventID, "")
		return
	}
	workers := distinctWorkers(jobs)

	notified := 0
	if a.dispatcher != nil && len(workers) > 0 {
		notified, err = a.dispatcher.SendToken(r.Context(), eventID, workers, tok)
		if err != nil {
			writeError(w, r, http.StatusBadGateway, "notification dispatch failed")
			return
		}
	}

	_ = audit.LogEvent(r.Context(), "work.token.sent", map[string]any{
		"event_id":   eventID,
		"recipients": notified,
		"expires_at": tok.ExpiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, sendQRResponse{WorkersNotified: notified})
}

// workerSessions is the worker-scoped view of their sessions at one event.
func (a *API) workerSessions(w http.ResponseWriter, r *http.Request, eventID string) {
	workerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthenticated")
		return
	}

	sessions, err := a.tracking.WorkerEventSessions(r.Context(), eventID, workerID)
	if err != nil {
		a.handleScheduleError(w, r, err, eventID, workerID)
		return
	}
	writeJSON(w, http.StatusOK, sessionsResponse{
		Sessions: sessions,
		Summary:  tracking.SummarizeWorker(workerID, sessions),
	})
}

// mySessions is the worker's personal history across all events.
func (a *API) mySessions(w http.ResponseWriter, r *http.Request) {
	workerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthenticated")
		return
	}

	sessions, err := a.tracking.SessionsForWorker(r.Context(), workerID)
	if err != nil {
		a.handleScheduleError(w, r, err, "", workerID)
		return
	}
	writeJSON(w, http.StatusOK, sessionsResponse{
		Sessions: sessions,
		Summary:  tracking.SummarizeWorker(workerID, sessions),
	})
}

// eventSummary is the organizer-scoped event-wide report.
func (a *API) eventSummary(w http.ResponseWriter, r *http.Request, eventID string) {
	if _, ok := a.requireOrganizer(w, r, eventID); !ok {
		return
	}

	sessions, err := a.tracking.SessionsForEvent(r.Context(), eventID)
	if err != nil {
		a.handleScheduleError(w, r, err, eventID, "")
		return
	}
	writeJSON(w, http.StatusOK, tracking.Summarize(sessions))
}

// eventStream feeds the organizer dashboard live session transitions (SSE).
func (a *API) eventStream(w http.ResponseWriter, r *http.Request, eventID string) {
	if _, ok := a.requireOrganizer(w, r, eventID); !ok {
		return
	}
	if a.stream == nil {
		http.Error(w, "streaming disabled", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.stream.Subscribe(ctx)

	// Send an initial comment to establish the stream
	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for event := range ch {
		if event.EventID != eventID {
			continue
		}
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}

// --- helpers ---

// requireOrganizer checks the organizer role and event ownership.
func (a *API) requireOrganizer(w http.ResponseWriter, r *http.Request, eventID string) (roster.Event, bool) {
	if err := requireRole(r.Context(), auth.RoleOrganizer); err != nil {
		writeError(w, r, http.StatusForbidden, err.Error())
		return roster.Event{}, false
	}
	ev, err := a.roster.Event(r.Context(), eventID)
	if err != nil {
		a.handleScheduleError(w, r, err, eventID, "")
		return roster.Event{}, false
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	if ev.OrganizerID != userID {
		writeError(w, r, http.StatusForbidden, "event belongs to another organizer")
		return roster.Event{}, false
	}
	return ev, true
}

func (a *API) horizonTTL(r *http.Request, ev roster.Event) (time.Duration, error) {
	switch horizon := r.URL.Query().Get("horizon"); horizon {
	case "", "default":
		return a.tokenTTL, nil
	case "event-end":
		ttl := time.Until(ev.EndTime)
		if ttl <= 0 {
			return 0, errors.New("event already ended")
		}
		return ttl, nil
	default:
		return 0, errors.New("horizon must be 'default' or 'event-end'")
	}
}

func distinctWorkers(jobs []roster.Job) []string {
	seen := make(map[string]struct{})
	var workers []string
	for _, job := range jobs {
		for _, id := range job.HiredPros {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			workers = append(workers, id)
		}
	}
	return workers
}

// handleScheduleError maps engine errors to status codes and stable kinds.
// On ambiguous job selection the eligible jobs ride along so the client can
// re-prompt without another round trip.
func (a *API) handleScheduleError(w http.ResponseWriter, r *http.Request, err error, eventID, workerID string) {
	switch {
	case errors.Is(err, worktoken.ErrTokenExpired):
		writeErrorKind(w, r, http.StatusUnauthorized, kindTokenExpired, "work token expired", nil)
	case errors.Is(err, worktoken.ErrTokenMalformed):
		writeErrorKind(w, r, http.StatusBadRequest, kindTokenMalformed, "work token malformed", nil)
	case errors.Is(err, roster.ErrAmbiguousJob):
		var extra map[string]any
		if jobs, jerr := a.roster.JobsFor(r.Context(), eventID, workerID); jerr == nil {
			extra = map[string]any{"jobs": jobs}
		}
		writeErrorKind(w, r, http.StatusConflict, kindAmbiguousJob, "multiple eligible jobs, supply jobId", extra)
	case errors.Is(err, roster.ErrNotAssigned):
		writeErrorKind(w, r, http.StatusForbidden, kindNotAssigned, "no position at this event", nil)
	case errors.Is(err, tracking.ErrSessionActive):
		writeErrorKind(w, r, http.StatusConflict, kindSessionActive, "already checked in", nil)
	case errors.Is(err, tracking.ErrNoActiveSession):
		writeErrorKind(w, r, http.StatusConflict, kindNoSession, "no active session to close", nil)
	case errors.Is(err, tracking.ErrInvalidInterval):
		writeErrorKind(w, r, http.StatusUnprocessableEntity, kindBadInterval, "check-out does not follow check-in", nil)
	case errors.Is(err, roster.ErrEventNotFound), errors.Is(err, roster.ErrJobNotFound), errors.Is(err, tracking.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
