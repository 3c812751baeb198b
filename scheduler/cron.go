package scheduler

import (
	"fmt"
	"time"
)

// CronExpression renders an interval as a cron-style string for display.
// The string is descriptive only and is never parsed back; scheduling
// always runs on the native ticker.
//
// Intervals under a minute render with a seconds field:
//
//	30*time.Second  -> "*/30 * * * * *"
//	5*time.Minute   -> "*/5 * * * *"
//	6*time.Hour     -> "0 */6 * * *"
//	48*time.Hour    -> "0 0 * * *"
func CronExpression(interval time.Duration) string {
	switch {
	case interval < time.Minute:
		return fmt.Sprintf("*/%d * * * * *", atLeastOne(int(interval.Seconds())))
	case interval < time.Hour:
		return fmt.Sprintf("*/%d * * * *", atLeastOne(int(interval.Minutes())))
	case interval < 24*time.Hour:
		return fmt.Sprintf("0 */%d * * *", atLeastOne(int(interval.Hours())))
	default:
		return "0 0 * * *"
	}
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
