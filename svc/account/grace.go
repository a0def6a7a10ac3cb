package account

import "time"

// GraceDays is how long access continues after a missed payment.
const GraceDays = 90

const day = 24 * time.Hour

// DaysElapsed counts whole UTC days from since to now. A zero since or a
// now before since yields zero.
func DaysElapsed(since, now time.Time) int {
	if since.IsZero() || !now.After(since) {
		return 0
	}
	return int(now.UTC().Sub(since.UTC()) / day)
}

// InGracePeriod reports whether fewer than GraceDays whole days have passed.
func InGracePeriod(since, now time.Time) bool {
	return DaysElapsed(since, now) < GraceDays
}

// ShouldSuspend is the complement of InGracePeriod; exactly GraceDays
// elapsed suspends.
func ShouldSuspend(since, now time.Time) bool {
	return !InGracePeriod(since, now)
}

// MonthsOverdue approximates a month as 30 days. It is informational and
// never drives a state change.
func MonthsOverdue(since, now time.Time) int {
	return DaysElapsed(since, now) / 30
}
