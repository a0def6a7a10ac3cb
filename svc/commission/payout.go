package commission

import "time"

// PayoutDelay is the number of calendar days between a client payment and
// the photographer payout it funds.
const PayoutDelay = 14

// PayoutDate shifts paidAt by PayoutDelay calendar days in paidAt's own
// location, keeping the time of day.
func PayoutDate(paidAt time.Time) time.Time {
	return paidAt.AddDate(0, 0, PayoutDelay)
}
