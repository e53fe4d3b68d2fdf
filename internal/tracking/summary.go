package tracking

import "sort"

// Totals aggregates a set of sessions. Only checked-out rows contribute
// hours and earnings; open rows count toward presence only.
type Totals struct {
	TotalWorkers  int     `json:"totalWorkers"`
	TotalHours    float64 `json:"totalHours"`
	TotalEarnings float64 `json:"totalEarnings"`
	TotalSessions int     `json:"totalSessions"`
}

// WorkerSummary is the per-worker rollup inside an event summary.
type WorkerSummary struct {
	WorkerID      string        `json:"workerId"`
	TotalHours    float64       `json:"totalHours"`
	TotalEarnings float64       `json:"totalEarnings"`
	Sessions      []WorkSession `json:"sessions"`
}

// EventSummary is the event-wide report: one overall block plus per-worker
// rollups, ordered by worker id for stable output.
type EventSummary struct {
	Overall Totals          `json:"overall"`
	Workers []WorkerSummary `json:"workers"`
}

// Summarize folds session rows into an EventSummary. It is a pure read-side
// fold: the input is never mutated and no store access happens here.
func Summarize(sessions []WorkSession) EventSummary {
	byWorker := make(map[string]*WorkerSummary)
	var order []string

	for _, sess := range sessions {
		ws, ok := byWorker[sess.WorkerID]
		if !ok {
			ws = &WorkerSummary{WorkerID: sess.WorkerID}
			byWorker[sess.WorkerID] = ws
			order = append(order, sess.WorkerID)
		}
		ws.Sessions = append(ws.Sessions, sess)
		if sess.Status == StatusCheckedOut {
			if sess.TotalHours != nil {
				ws.TotalHours += *sess.TotalHours
			}
			if sess.Earnings != nil {
				ws.TotalEarnings += *sess.Earnings
			}
		}
	}

	sort.Strings(order)
	summary := EventSummary{
		Overall: Totals{
			TotalWorkers:  len(byWorker),
			TotalSessions: len(sessions),
		},
	}
	for _, workerID := range order {
		ws := byWorker[workerID]
		summary.Overall.TotalHours += ws.TotalHours
		summary.Overall.TotalEarnings += ws.TotalEarnings
		summary.Workers = append(summary.Workers, *ws)
	}
	return summary
}

// SummarizeWorker folds one worker's sessions into their rollup.
func SummarizeWorker(workerID string, sessions []WorkSession) WorkerSummary {
	ws := WorkerSummary{WorkerID: workerID}
	for _, sess := range sessions {
		if sess.WorkerID != workerID {
			continue
		}
		ws.Sessions = append(ws.Sessions, sess)
		if sess.Status == StatusCheckedOut {
			if sess.TotalHours != nil {
				ws.TotalHours += *sess.TotalHours
			}
			if sess.Earnings != nil {
				ws.TotalEarnings += *sess.Earnings
			}
		}
	}
	return ws
}
