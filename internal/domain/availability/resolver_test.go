package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"court-manager/backend/internal/domain/block"
	"court-manager/backend/internal/domain/booking"
	"court-manager/backend/internal/domain/schedule"
)

func slotAt(day time.Time, fromH, toH int, activity schedule.ActivityType) schedule.Slot {
	return schedule.Slot{
		CourtID:  "court-1",
		Start:    time.Date(day.Year(), day.Month(), day.Day(), fromH, 0, 0, 0, day.Location()),
		End:      time.Date(day.Year(), day.Month(), day.Day(), toH, 0, 0, 0, day.Location()),
		Activity: activity,
	}
}

func TestClassifyPrecedence(t *testing.T) {
	day := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	slot := slotAt(day, 18, 19, schedule.ActivityRegular)

	booked := booking.Booking{
		CourtID:   "court-1",
		Date:      "2026-09-08",
		StartTime: "18:00",
		EndTime:   "19:00",
		Status:    booking.StatusConfirmed,
	}
	blk := block.Block{
		CourtID: "court-1",
		Type:    block.TypeBlocked,
		Start:   slot.Start,
		End:     slot.End,
	}

	// A block shadows even an active booking on the same window.
	v := Classify(slot, []booking.Booking{booked}, []block.Block{blk})
	assert.Equal(t, StateBlocked, v.State)
	assert.Equal(t, block.TypeBlocked, v.BlockType)
	assert.Nil(t, v.Booking)

	v = Classify(slot, []booking.Booking{booked}, nil)
	assert.Equal(t, StateBooked, v.State)
	require.NotNil(t, v.Booking)
	assert.Equal(t, "18:00", v.Booking.StartTime)

	v = Classify(slot, nil, nil)
	assert.Equal(t, StateFree, v.State)
}

func TestClassifyIgnoresTerminalBookings(t *testing.T) {
	day := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	slot := slotAt(day, 18, 19, schedule.ActivityRegular)

	cancelled := booking.Booking{
		StartTime: "18:00",
		EndTime:   "19:00",
		Status:    booking.StatusCancelled,
	}
	v := Classify(slot, []booking.Booking{cancelled}, nil)
	assert.Equal(t, StateFree, v.State)
}

func TestClassifyNonRegularActivity(t *testing.T) {
	day := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	slot := slotAt(day, 10, 12, schedule.ActivitySchool)
	slot.Notes = "corso ragazzi"

	v := Classify(slot, nil, nil)
	assert.Equal(t, StateBlocked, v.State)
	assert.Equal(t, schedule.ActivitySchool, v.Activity)
	assert.Equal(t, "corso ragazzi", v.Notes)
	assert.Empty(t, v.BlockType)
}

// The stubs buffer one snapshot; push replaces an unconsumed one, like
// a Firestore listener.

type stubSlots struct {
	slots []schedule.Slot
	ch    chan []schedule.Slot
}

func (s *stubSlots) ResolveDay(context.Context, string, time.Time) ([]schedule.Slot, error) {
	return s.slots, nil
}

func (s *stubSlots) WatchDay(context.Context, string, time.Time) (<-chan []schedule.Slot, func(), error) {
	s.ch <- s.slots
	return s.ch, func() {}, nil
}

func (s *stubSlots) push(slots []schedule.Slot) {
	select {
	case <-s.ch:
	default:
	}
	s.ch <- slots
}

type stubBlocks struct {
	blocks []block.Block
	ch     chan []block.Block
}

func (s *stubBlocks) ListForCourtDay(context.Context, string, time.Time) ([]block.Block, error) {
	return s.blocks, nil
}

func (s *stubBlocks) WatchCourtDay(context.Context, string, time.Time) (<-chan []block.Block, func(), error) {
	s.ch <- s.blocks
	return s.ch, func() {}, nil
}

func (s *stubBlocks) push(blocks []block.Block) {
	select {
	case <-s.ch:
	default:
	}
	s.ch <- blocks
}

type stubBookings struct {
	bookings []booking.Booking
	ch       chan []booking.Booking
}

func (s *stubBookings) ListForCourtDate(context.Context, string, string) ([]booking.Booking, error) {
	return s.bookings, nil
}

func (s *stubBookings) Watch(context.Context, string, string) (<-chan []booking.Booking, func(), error) {
	s.ch <- s.bookings
	return s.ch, func() {}, nil
}

func newTestResolver(slots []schedule.Slot, bookings []booking.Booking, blocks []block.Block) (*Resolver, *stubSlots, *stubBlocks) {
	ss := &stubSlots{slots: slots, ch: make(chan []schedule.Slot, 1)}
	sb := &stubBlocks{blocks: blocks, ch: make(chan []block.Block, 1)}
	bk := &stubBookings{bookings: bookings, ch: make(chan []booking.Booking, 1)}

	r := NewResolver(ss, sb, bk, time.UTC)
	r.now = func() time.Time {
		return time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	}
	return r, ss, sb
}

func TestDayGridBookableFlags(t *testing.T) {
	day := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	slots := []schedule.Slot{
		slotAt(day, 10, 12, schedule.ActivitySchool),
		slotAt(day, 17, 18, schedule.ActivityRegular),
		slotAt(day, 18, 19, schedule.ActivityRegular),
	}
	booked := booking.Booking{
		CourtID: "court-1", Date: "2026-09-08",
		StartTime: "17:00", EndTime: "18:00",
		Status: booking.StatusWaiting,
	}

	r, _, _ := newTestResolver(slots, []booking.Booking{booked}, nil)
	grid, err := r.DayGrid(context.Background(), "court-1", "2026-09-08")
	require.NoError(t, err)
	require.Len(t, grid, 3)

	assert.Equal(t, StateBlocked, grid[0].State)
	assert.False(t, grid[0].Bookable)

	// A waiting booking still occupies its slot.
	assert.Equal(t, StateBooked, grid[1].State)
	assert.False(t, grid[1].Bookable)

	assert.Equal(t, StateFree, grid[2].State)
	assert.True(t, grid[2].Bookable)
}

func TestDayGridBeyondHorizonNotBookable(t *testing.T) {
	day := time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)
	slots := []schedule.Slot{slotAt(day, 18, 19, schedule.ActivityRegular)}

	r, _, _ := newTestResolver(slots, nil, nil)
	grid, err := r.DayGrid(context.Background(), "court-1", "2026-09-12")
	require.NoError(t, err)
	require.Len(t, grid, 1)

	assert.Equal(t, StateFree, grid[0].State)
	assert.False(t, grid[0].Bookable)
}

func TestDayGridExpiredSlot(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	slots := []schedule.Slot{
		slotAt(day, 8, 9, schedule.ActivityRegular),
		slotAt(day, 18, 19, schedule.ActivityRegular),
	}

	r, _, _ := newTestResolver(slots, nil, nil)
	grid, err := r.DayGrid(context.Background(), "court-1", "2026-09-07")
	require.NoError(t, err)
	require.Len(t, grid, 2)

	assert.True(t, grid[0].Expired)
	assert.False(t, grid[0].Bookable)
	assert.False(t, grid[1].Expired)
	assert.True(t, grid[1].Bookable)
}

func TestDayGridInvalidDate(t *testing.T) {
	r, _, _ := newTestResolver(nil, nil, nil)
	_, err := r.DayGrid(context.Background(), "court-1", "08/09/2026")
	assert.True(t, booking.IsErrValidation(err))
}

func TestWatchDayEmitsGrid(t *testing.T) {
	day := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	slots := []schedule.Slot{slotAt(day, 18, 19, schedule.ActivityRegular)}
	booked := booking.Booking{
		CourtID: "court-1", Date: "2026-09-08",
		StartTime: "18:00", EndTime: "19:00",
		Status: booking.StatusConfirmed,
	}

	r, _, _ := newTestResolver(slots, []booking.Booking{booked}, nil)
	ch, stop, err := r.WatchDay(context.Background(), "court-1", "2026-09-08")
	require.NoError(t, err)
	defer stop()

	select {
	case grid := <-ch:
		require.Len(t, grid, 1)
		assert.Equal(t, StateBooked, grid[0].State)
	case <-time.After(time.Second):
		t.Fatal("no grid emitted")
	}

	stop()
	stop() // idempotent
}

func recvGrid(t *testing.T, ch <-chan []SlotView) []SlotView {
	t.Helper()
	select {
	case grid, ok := <-ch:
		require.True(t, ok, "stream closed")
		return grid
	case <-time.After(time.Second):
		t.Fatal("no grid emitted")
		return nil
	}
}

func TestWatchDayReEmitsOnBlockChange(t *testing.T) {
	day := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	slots := []schedule.Slot{slotAt(day, 18, 19, schedule.ActivityRegular)}

	r, _, sb := newTestResolver(slots, nil, nil)
	ch, stop, err := r.WatchDay(context.Background(), "court-1", "2026-09-08")
	require.NoError(t, err)
	defer stop()

	grid := recvGrid(t, ch)
	require.Len(t, grid, 1)
	assert.Equal(t, StateFree, grid[0].State)

	// An admin block created mid-stream must reach the watcher without
	// any booking activity.
	sb.push([]block.Block{{
		CourtID: "court-1",
		Type:    block.TypeBlocked,
		Start:   slots[0].Start,
		End:     slots[0].End,
	}})

	grid = recvGrid(t, ch)
	require.Len(t, grid, 1)
	assert.Equal(t, StateBlocked, grid[0].State)
	assert.Equal(t, block.TypeBlocked, grid[0].BlockType)
	assert.False(t, grid[0].Bookable)
}

func TestWatchDayReEmitsOnTemplateChange(t *testing.T) {
	day := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	slots := []schedule.Slot{slotAt(day, 18, 19, schedule.ActivityRegular)}

	r, ss, _ := newTestResolver(slots, nil, nil)
	ch, stop, err := r.WatchDay(context.Background(), "court-1", "2026-09-08")
	require.NoError(t, err)
	defer stop()

	grid := recvGrid(t, ch)
	require.Len(t, grid, 1)

	ss.push([]schedule.Slot{
		slotAt(day, 17, 18, schedule.ActivityRegular),
		slotAt(day, 18, 19, schedule.ActivityRegular),
	})

	grid = recvGrid(t, ch)
	require.Len(t, grid, 2)
	assert.Equal(t, "17:00", grid[0].StartTime)
}
