package service

import "time"

// remainingSeconds is interval minus the whole seconds elapsed since start,
// floored at zero. A nil start means the clock has not begun, so the full
// interval remains.
func remainingSeconds(start *time.Time, interval time.Duration, now time.Time) int {
	total := int(interval / time.Second)
	if start == nil {
		return total
	}
	elapsed := now.Sub(*start)
	if elapsed < 0 {
		elapsed = 0
	}
	left := total - int(elapsed/time.Second)
	if left < 0 {
		return 0
	}
	return left
}

// deadline returns start+interval, or the zero time when start is nil.
func deadline(start *time.Time, interval time.Duration) time.Time {
	if start == nil {
		return time.Time{}
	}
	return start.Add(interval)
}
