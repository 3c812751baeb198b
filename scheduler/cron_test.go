package scheduler

import (
	"testing"
	"time"
)

func TestCronExpression(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		want     string
	}{
		{"sub-second floors to one second", 500 * time.Millisecond, "*/1 * * * * *"},
		{"one second", time.Second, "*/1 * * * * *"},
		{"thirty seconds", 30 * time.Second, "*/30 * * * * *"},
		{"fifty-nine seconds", 59 * time.Second, "*/59 * * * * *"},
		{"one minute", time.Minute, "*/1 * * * *"},
		{"ninety seconds truncates to minutes", 90 * time.Second, "*/1 * * * *"},
		{"five minutes", 5 * time.Minute, "*/5 * * * *"},
		{"fifty-nine minutes", 59 * time.Minute, "*/59 * * * *"},
		{"one hour", time.Hour, "0 */1 * * *"},
		{"two hours", 2 * time.Hour, "0 */2 * * *"},
		{"twenty-three hours", 23 * time.Hour, "0 */23 * * *"},
		{"one day", 24 * time.Hour, "0 0 * * *"},
		{"two days", 48 * time.Hour, "0 0 * * *"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CronExpression(tc.interval); got != tc.want {
				t.Errorf("CronExpression(%v) = %q, want %q", tc.interval, got, tc.want)
			}
		})
	}
}
