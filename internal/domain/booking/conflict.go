package booking

import (
	"fmt"
)

// CheckConsecutive rejects a candidate slot that is temporally adjacent
// to one of the user's active bookings on the same court and date
// (existing end == candidate start, or existing start == candidate
// end). Stacking adjacent slots would circumvent the per-booking
// duration cap. The caller pre-filters existing by court and date.
func CheckConsecutive(existing []Booking, userID, startTime, endTime string) error {
	for i := range existing {
		b := &existing[i]
		if !b.Status.Active() || !b.HasConfirmed(userID) {
			continue
		}
		if b.EndTime == startTime || b.StartTime == endTime {
			return fmt.Errorf("%w: consecutive slots are not allowed, you already play %s-%s that day",
				ErrConflict, b.StartTime, b.EndTime)
		}
	}
	return nil
}
