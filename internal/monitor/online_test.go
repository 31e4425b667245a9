package monitor

import (
	"testing"
	"time"
)

func TestIsOnline(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		age       time.Duration
		threshold time.Duration
		want      bool
	}{
		{"fresh sample 60s", 10 * time.Second, 60 * time.Second, true},
		{"just under 60s", 60*time.Second - time.Millisecond, 60 * time.Second, true},
		{"exactly at 60s threshold", 60 * time.Second, 60 * time.Second, false},
		{"stale 60s", 2 * time.Minute, 60 * time.Second, false},
		{"fresh sample 120s", 90 * time.Second, 120 * time.Second, true},
		{"exactly at 120s threshold", 120 * time.Second, 120 * time.Second, false},
		{"stale 120s", 3 * time.Minute, 120 * time.Second, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			latest := now.Add(-tc.age)
			if got := IsOnline(latest, now, tc.threshold); got != tc.want {
				t.Errorf("IsOnline(age=%v, threshold=%v) = %v, want %v", tc.age, tc.threshold, got, tc.want)
			}
		})
	}
}
