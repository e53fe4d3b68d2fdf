package tracking

import (
	"math"
	"time"
)

// millisPerHour converts elapsed wall time to fractional hours.
const millisPerHour = 3_600_000

// Pay is the derived outcome of a completed session.
type Pay struct {
	TotalHours float64
	Earnings   float64
}

// ComputeEarnings derives hours and pay for a completed session. Hours are
// elapsed milliseconds over 3,600,000 rounded half-up to two decimals, and
// earnings are the rounded hours times the hourly rate, rounded the same
// way. The rounding rule is fixed here and pinned by tests; summary code
// folds these stored values and never recomputes them.
func ComputeEarnings(payPerHour float64, checkIn, checkOut time.Time) (Pay, error) {
	if !checkOut.After(checkIn) {
		return Pay{}, ErrInvalidInterval
	}
	elapsedMS := float64(checkOut.Sub(checkIn).Milliseconds())
	hours := round2(elapsedMS / millisPerHour)
	return Pay{
		TotalHours: hours,
		Earnings:   round2(hours * payPerHour),
	}, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
