package availability

import (
	"court-manager/backend/internal/domain/block"
	"court-manager/backend/internal/domain/booking"
	"court-manager/backend/internal/domain/schedule"
)

// State is the resolved occupancy of one grid slot.
type State string

const (
	StateFree    State = "free"
	StateBooked  State = "booked"
	StateBlocked State = "blocked"
)

// SlotView is one row of a court's daily availability grid: the slot
// itself plus what currently occupies it. Bookable folds in every
// reason a free slot still cannot be taken (expired, beyond the
// reservation horizon, non-regular activity).
type SlotView struct {
	CourtID   string                `json:"courtId"`
	Date      string                `json:"date"`
	StartTime string                `json:"startTime"`
	EndTime   string                `json:"endTime"`
	Activity  schedule.ActivityType `json:"activity"`
	Notes     string                `json:"notes,omitempty"`

	State    State `json:"state"`
	Bookable bool  `json:"bookable"`
	Expired  bool  `json:"expired"`

	BlockType block.BlockType  `json:"blockType,omitempty"`
	Booking   *booking.Booking `json:"booking,omitempty"`
}
