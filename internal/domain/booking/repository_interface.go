package booking

import (
	"context"
)

// Delta reports which users gained or lost a confirmed player entry
// during a transition. The store applies the matching weekly-quota
// writes in the same atomic unit as the booking write, enforcing the
// weekly cap and the consecutive-slot rule for every user in Confirmed
// before committing.
type Delta struct {
	Confirmed []string
	Removed   []string
}

// MutateFunc is a pure transition applied to a booking inside a
// transactional read-modify-write.
type MutateFunc func(b *Booking) (Delta, error)

// Repository is the storage boundary of the booking engine.
type Repository interface {
	Get(ctx context.Context, bookingID string) (*Booking, error)
	ListForCourtDate(ctx context.Context, courtID, date string) ([]Booking, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]Booking, error)

	// Create commits a new booking atomically: it claims the slot lock
	// for (courtId, date, startTime), verifies the consecutive-slot
	// rule and the weekly quota for every confirmed participant, and
	// increments their counters. A claimed lock yields ErrConflict; a
	// user at the weekly cap yields quota.ErrExceeded.
	Create(ctx context.Context, b *Booking) (*Booking, error)

	// Mutate applies fn to the stored booking atomically, with the same
	// guards for users newly confirmed by the transition and quota
	// decrements for removed ones. Terminal transitions release the
	// slot lock.
	Mutate(ctx context.Context, bookingID string, fn MutateFunc) (*Booking, error)

	// Watch streams the bookings of a court/date, re-emitting the full
	// list whenever it changes. The returned stop function is
	// idempotent and tears the subscription down deterministically.
	Watch(ctx context.Context, courtID, date string) (<-chan []Booking, func(), error)
}
