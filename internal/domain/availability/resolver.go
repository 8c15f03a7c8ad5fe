package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"court-manager/backend/internal/domain/block"
	"court-manager/backend/internal/domain/booking"
	"court-manager/backend/internal/domain/schedule"
	"court-manager/backend/internal/utils"
)

type SlotSource interface {
	ResolveDay(ctx context.Context, courtID string, day time.Time) ([]schedule.Slot, error)
	WatchDay(ctx context.Context, courtID string, day time.Time) (<-chan []schedule.Slot, func(), error)
}

type BlockSource interface {
	ListForCourtDay(ctx context.Context, courtID string, dayStart time.Time) ([]block.Block, error)
	WatchCourtDay(ctx context.Context, courtID string, dayStart time.Time) (<-chan []block.Block, func(), error)
}

type BookingSource interface {
	ListForCourtDate(ctx context.Context, courtID, date string) ([]booking.Booking, error)
	Watch(ctx context.Context, courtID, date string) (<-chan []booking.Booking, func(), error)
}

// Classify resolves what occupies one slot. Precedence is fixed:
// an admin block wins over an active booking, which wins over a
// non-regular template activity; otherwise the slot is free.
func Classify(slot schedule.Slot, bookings []booking.Booking, blocks []block.Block) SlotView {
	v := SlotView{
		CourtID:   slot.CourtID,
		Date:      utils.DateKey(slot.Start),
		StartTime: slot.StartClock(),
		EndTime:   slot.EndClock(),
		Activity:  slot.Activity,
		Notes:     slot.Notes,
		State:     StateFree,
	}

	for i := range blocks {
		if blocks[i].Overlaps(slot.Start, slot.End) {
			v.State = StateBlocked
			v.BlockType = blocks[i].Type
			return v
		}
	}

	for i := range bookings {
		b := &bookings[i]
		if b.Status.Active() && b.OverlapsClock(v.StartTime, v.EndTime) {
			v.State = StateBooked
			v.Booking = b
			return v
		}
	}

	if !slot.Regular() {
		v.State = StateBlocked
	}
	return v
}

type Resolver struct {
	slots    SlotSource
	blocks   BlockSource
	bookings BookingSource
	loc      *time.Location

	now func() time.Time
}

func NewResolver(slots SlotSource, blocks BlockSource, bookings BookingSource, loc *time.Location) *Resolver {
	return &Resolver{
		slots:    slots,
		blocks:   blocks,
		bookings: bookings,
		loc:      loc,
		now:      time.Now,
	}
}

// DayGrid builds the availability grid of a court for one date. Dates
// beyond the reservation horizon are viewable but nothing on them is
// bookable.
func (r *Resolver) DayGrid(ctx context.Context, courtID, date string) ([]SlotView, error) {
	day, err := utils.ParseDate(date, r.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date", booking.ErrValidation)
	}

	slots, err := r.slots.ResolveDay(ctx, courtID, day)
	if err != nil {
		return nil, err
	}
	blocks, err := r.blocks.ListForCourtDay(ctx, courtID, day)
	if err != nil {
		return nil, err
	}
	bookings, err := r.bookings.ListForCourtDate(ctx, courtID, date)
	if err != nil {
		return nil, err
	}

	return r.grid(slots, bookings, blocks, day), nil
}

func (r *Resolver) grid(slots []schedule.Slot, bookings []booking.Booking, blocks []block.Block, day time.Time) []SlotView {
	now := r.now().In(r.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	withinHorizon := !day.Before(today) && !day.After(today.AddDate(0, 0, booking.BookingHorizonDays))

	views := make([]SlotView, 0, len(slots))
	for _, slot := range slots {
		v := Classify(slot, bookings, blocks)
		v.Expired = !now.Before(slot.Start)
		v.Bookable = v.State == StateFree && slot.Regular() && withinHorizon && !v.Expired
		views = append(views, v)
	}
	return views
}

// WatchDay streams the availability grid of a court/date, re-emitting
// whenever the underlying bookings, blocks, or templates change. The
// first grid is emitted once all three sources have delivered their
// initial snapshot. The stop function is idempotent.
func (r *Resolver) WatchDay(ctx context.Context, courtID, date string) (<-chan []SlotView, func(), error) {
	day, err := utils.ParseDate(date, r.loc)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid date", booking.ErrValidation)
	}

	bookingCh, stopBookings, err := r.bookings.Watch(ctx, courtID, date)
	if err != nil {
		return nil, nil, err
	}
	blockCh, stopBlocks, err := r.blocks.WatchCourtDay(ctx, courtID, day)
	if err != nil {
		stopBookings()
		return nil, nil, err
	}
	slotCh, stopSlots, err := r.slots.WatchDay(ctx, courtID, day)
	if err != nil {
		stopBookings()
		stopBlocks()
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan []SlotView, 1)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			stopBookings()
			stopBlocks()
			stopSlots()
			cancel()
		})
	}

	go func() {
		defer close(out)

		var (
			slots    []schedule.Slot
			blocks   []block.Block
			bookings []booking.Booking

			haveSlots, haveBlocks, haveBookings bool
		)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-bookingCh:
				if !ok {
					return
				}
				bookings, haveBookings = v, true
			case v, ok := <-blockCh:
				if !ok {
					return
				}
				blocks, haveBlocks = v, true
			case v, ok := <-slotCh:
				if !ok {
					return
				}
				slots, haveSlots = v, true
			}
			if !haveSlots || !haveBlocks || !haveBookings {
				continue
			}

			grid := r.grid(slots, bookings, blocks, day)
			// Latest grid wins over an unconsumed one.
			select {
			case <-out:
			default:
			}
			select {
			case out <- grid:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, stop, nil
}
