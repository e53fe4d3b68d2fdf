package tracking

import (
	"errors"
	"testing"
	"time"
)

func TestComputeEarningsFourAndAHalfHours(t *testing.T) {
	in := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	out := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)

	pay, err := ComputeEarnings(20, in, out)
	if err != nil {
		t.Fatalf("ComputeEarnings: %v", err)
	}
	if pay.TotalHours != 4.50 {
		t.Fatalf("hours = %v, want 4.50", pay.TotalHours)
	}
	if pay.Earnings != 90.00 {
		t.Fatalf("earnings = %v, want 90.00", pay.Earnings)
	}
}

func TestComputeEarningsRoundsHalfUp(t *testing.T) {
	in := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		elapsed  time.Duration
		rate     float64
		hours    float64
		earnings float64
	}{
		// 9 minutes = 0.15h exactly.
		{9 * time.Minute, 20, 0.15, 3.00},
		// 50 minutes = 0.8333...h, rounds to 0.83.
		{50 * time.Minute, 20, 0.83, 16.60},
		// 16m12s = 0.27h; 0.27 * 18.50 = 4.995 rounds up to 5.00.
		{16*time.Minute + 12*time.Second, 18.50, 0.27, 5.00},
		// Sub-minute work still accrues.
		{54 * time.Second, 100, 0.02, 2.00},
	}
	for _, tc := range cases {
		pay, err := ComputeEarnings(tc.rate, in, in.Add(tc.elapsed))
		if err != nil {
			t.Fatalf("ComputeEarnings(%v): %v", tc.elapsed, err)
		}
		if pay.TotalHours != tc.hours {
			t.Fatalf("elapsed %v: hours = %v, want %v", tc.elapsed, pay.TotalHours, tc.hours)
		}
		if pay.Earnings != tc.earnings {
			t.Fatalf("elapsed %v: earnings = %v, want %v", tc.elapsed, pay.Earnings, tc.earnings)
		}
	}
}

func TestComputeEarningsRejectsInvalidInterval(t *testing.T) {
	in := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	if _, err := ComputeEarnings(20, in, in); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval for zero interval, got %v", err)
	}
	if _, err := ComputeEarnings(20, in, in.Add(-time.Second)); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval for negative interval, got %v", err)
	}
}
