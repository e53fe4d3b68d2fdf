package notify

import (
	"context"

	"prostaff.org/internal/obs"
	"prostaff.org/internal/worktoken"
)

// LogDispatcher is the development stand-in for the platform's messaging
// service: it records the delivery and reports every recipient as notified.
type LogDispatcher struct{}

var _ Dispatcher = LogDispatcher{}

func (LogDispatcher) SendToken(ctx context.Context, eventID string, workerIDs []string, token worktoken.Token) (int, error) {
	obs.LogJSON(map[string]any{
		"msg":        "work_token_dispatched",
		"event_id":   eventID,
		"recipients": len(workerIDs),
		"expires_at": token.ExpiresAt,
	})
	return len(workerIDs), nil
}
