package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"court-manager/backend/internal/domain/block"
	"court-manager/backend/internal/domain/quota"
	"court-manager/backend/internal/domain/schedule"
)

// fakeRepo mirrors the transactional guarantees of the Firestore
// repository in memory: a slot lock per (court, date, start), quota
// counters, and the consecutive-slot guard, all under one mutex so the
// concurrency test exercises real contention.
type fakeRepo struct {
	mu       sync.Mutex
	bookings map[string]*Booking
	locks    map[string]string
	quota    map[string]int
	seq      int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		bookings: map[string]*Booking{},
		locks:    map[string]string{},
		quota:    map[string]int{},
	}
}

func (f *fakeRepo) Get(_ context.Context, id string) (*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: booking not found", ErrNotFound)
	}
	cp := clone(b)
	return &cp, nil
}

func (f *fakeRepo) ListForCourtDate(_ context.Context, courtID, date string) ([]Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Booking
	for _, b := range f.bookings {
		if b.CourtID == courtID && b.Date == date {
			out = append(out, clone(b))
		}
	}
	return out, nil
}

func (f *fakeRepo) ListForUser(_ context.Context, userID string, _ int) ([]Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Booking
	for _, b := range f.bookings {
		for _, uid := range b.UserIDs {
			if uid == userID {
				out = append(out, clone(b))
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) Create(_ context.Context, b *Booking) (*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lockKey := SlotLockID(b.CourtID, b.Date, b.StartTime)
	if _, taken := f.locks[lockKey]; taken {
		return nil, fmt.Errorf("%w: slot already booked", ErrConflict)
	}
	if err := f.guard(b, b.ConfirmedUserIDs(), ""); err != nil {
		return nil, err
	}

	f.seq++
	b.ID = fmt.Sprintf("bk-%d", f.seq)
	cp := clone(b)
	f.bookings[b.ID] = &cp
	f.locks[lockKey] = b.ID
	for _, uid := range b.ConfirmedUserIDs() {
		f.quota[uid]++
	}
	return b, nil
}

func (f *fakeRepo) Mutate(_ context.Context, id string, fn MutateFunc) (*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: booking not found", ErrNotFound)
	}

	b := clone(stored)
	delta, err := fn(&b)
	if err != nil {
		return nil, err
	}
	if err := f.guard(&b, delta.Confirmed, b.ID); err != nil {
		return nil, err
	}

	cp := clone(&b)
	f.bookings[id] = &cp
	if b.Status.Terminal() {
		delete(f.locks, SlotLockID(b.CourtID, b.Date, b.StartTime))
	}
	for _, uid := range delta.Confirmed {
		f.quota[uid]++
	}
	for _, uid := range delta.Removed {
		if f.quota[uid] > 0 {
			f.quota[uid]--
		}
	}
	out := clone(&b)
	return &out, nil
}

func (f *fakeRepo) Watch(context.Context, string, string) (<-chan []Booking, func(), error) {
	ch := make(chan []Booking)
	close(ch)
	return ch, func() {}, nil
}

func (f *fakeRepo) guard(b *Booking, userIDs []string, excludeID string) error {
	for _, uid := range userIDs {
		var others []Booking
		for _, other := range f.bookings {
			if other.ID == excludeID || other.CourtID != b.CourtID || other.Date != b.Date {
				continue
			}
			others = append(others, clone(other))
		}
		if err := CheckConsecutive(others, uid, b.StartTime, b.EndTime); err != nil {
			return err
		}
		if f.quota[uid] >= quota.WeeklyLimit {
			return fmt.Errorf("%w: %s is at the weekly cap", quota.ErrExceeded, uid)
		}
	}
	return nil
}

func clone(b *Booking) Booking {
	cp := *b
	cp.Players = append([]Player(nil), b.Players...)
	cp.InvitedPlayers = append([]Player(nil), b.InvitedPlayers...)
	cp.UserIDs = append([]string(nil), b.UserIDs...)
	return cp
}

// fakeSlots expands a fixed daily grid: two regular hours in the
// evening and a school window in the morning.
type fakeSlots struct{}

func (fakeSlots) ResolveDay(_ context.Context, courtID string, day time.Time) ([]schedule.Slot, error) {
	at := func(h int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, day.Location())
	}
	return []schedule.Slot{
		{CourtID: courtID, Start: at(10), End: at(12), Activity: schedule.ActivitySchool, Notes: "corso ragazzi"},
		{CourtID: courtID, Start: at(17), End: at(18), Activity: schedule.ActivityRegular},
		{CourtID: courtID, Start: at(18), End: at(19), Activity: schedule.ActivityRegular},
	}, nil
}

type fakeBlocks struct {
	blk *block.Block
}

func (f fakeBlocks) FindBlock(_ context.Context, _ string, start, end time.Time) (*block.Block, error) {
	if f.blk != nil && f.blk.Overlaps(start, end) {
		return f.blk, nil
	}
	return nil, nil
}

type fakeCourts struct{}

func (fakeCourts) GetName(_ context.Context, courtID string) (string, error) {
	if courtID != "court-1" {
		return "", fmt.Errorf("%w: court not found", ErrNotFound)
	}
	return "Campo 1", nil
}

func newTestService(repo Repository, blocks BlockSource) *Service {
	svc := NewService(repo, fakeSlots{}, blocks, fakeCourts{}, nil, nil, time.UTC)
	// Monday morning, well before the evening slots.
	svc.now = func() time.Time {
		return time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	}
	return svc
}

func standardInput(date string) CreateInput {
	return CreateInput{
		CourtID:   "court-1",
		Date:      date,
		StartTime: "18:00",
		EndTime:   "19:00",
		Type:      "standard",
		MatchType: "singles",
		CoPlayers: []PlayerRef{bruno},
	}
}

func TestServiceCreateStandard(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, fakeBlocks{})

	b, err := svc.Create(context.Background(), anna.UserID, anna.UserName, standardInput("2026-09-08"))
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, "Campo 1", b.CourtName)
	assert.Equal(t, 60, b.Duration)
	assert.Equal(t, 1, repo.quota["u-anna"])
	assert.Equal(t, 1, repo.quota["u-bruno"])
}

func TestServiceCreateHorizon(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, fakeBlocks{})
	ctx := context.Background()

	_, err := svc.Create(ctx, anna.UserID, anna.UserName, standardInput("2026-09-06"))
	assert.True(t, IsErrValidation(err), "past date")

	_, err = svc.Create(ctx, anna.UserID, anna.UserName, standardInput("2026-09-11"))
	assert.True(t, IsErrValidation(err), "beyond horizon")

	// today+3 is the last bookable day.
	_, err = svc.Create(ctx, anna.UserID, anna.UserName, standardInput("2026-09-10"))
	assert.NoError(t, err)
}

func TestServiceCreateUnknownSlot(t *testing.T) {
	svc := newTestService(newFakeRepo(), fakeBlocks{})

	in := standardInput("2026-09-08")
	in.StartTime = "18:30"
	in.EndTime = "19:30"
	_, err := svc.Create(context.Background(), anna.UserID, anna.UserName, in)
	assert.True(t, IsErrValidation(err))
}

func TestServiceCreateNonRegularSlot(t *testing.T) {
	svc := newTestService(newFakeRepo(), fakeBlocks{})

	in := standardInput("2026-09-08")
	in.StartTime = "10:00"
	in.EndTime = "12:00"
	_, err := svc.Create(context.Background(), anna.UserID, anna.UserName, in)
	assert.True(t, IsErrConflict(err))
}

func TestServiceCreateBlockedCourt(t *testing.T) {
	blk := &block.Block{
		CourtID: "court-1",
		Type:    block.TypeBlocked,
		Start:   time.Date(2026, 9, 8, 17, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 9, 8, 20, 0, 0, 0, time.UTC),
	}
	svc := newTestService(newFakeRepo(), fakeBlocks{blk: blk})

	_, err := svc.Create(context.Background(), anna.UserID, anna.UserName, standardInput("2026-09-08"))
	assert.True(t, IsErrConflict(err))
}

func TestServiceCreateSlotAlreadyStarted(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, fakeBlocks{})
	svc.now = func() time.Time {
		return time.Date(2026, 9, 7, 18, 30, 0, 0, time.UTC)
	}

	// The 18:00 slot today is underway.
	_, err := svc.Create(context.Background(), anna.UserID, anna.UserName, standardInput("2026-09-07"))
	assert.True(t, IsErrValidation(err))
}

func TestServiceCreateInvalidInput(t *testing.T) {
	svc := newTestService(newFakeRepo(), fakeBlocks{})
	ctx := context.Background()

	in := standardInput("2026-09-08")
	in.Type = "tournament"
	_, err := svc.Create(ctx, anna.UserID, anna.UserName, in)
	assert.True(t, IsErrValidation(err))

	in = standardInput("2026-09-08")
	in.StartTime = "6pm"
	_, err = svc.Create(ctx, anna.UserID, anna.UserName, in)
	assert.True(t, IsErrValidation(err))

	in = standardInput("2026-09-08")
	in.MatchType = "triples"
	_, err = svc.Create(ctx, anna.UserID, anna.UserName, in)
	assert.True(t, IsErrValidation(err))
}

func TestServiceCreateConcurrentSameSlot(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, fakeBlocks{})
	ctx := context.Background()

	inputs := []struct {
		creator  PlayerRef
		coPlayer PlayerRef
	}{
		{anna, bruno},
		{carla, dario},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(inputs))
	for i, tc := range inputs {
		wg.Add(1)
		go func(i int, creator, coPlayer PlayerRef) {
			defer wg.Done()
			in := standardInput("2026-09-08")
			in.CoPlayers = []PlayerRef{coPlayer}
			_, errs[i] = svc.Create(ctx, creator.UserID, creator.UserName, in)
		}(i, tc.creator, tc.coPlayer)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, IsErrConflict(err))
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one booking claims the slot")
	assert.Len(t, repo.bookings, 1)
	assert.Len(t, repo.locks, 1)
}

func TestServiceConsecutiveSlotsRefused(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, fakeBlocks{})
	ctx := context.Background()

	in := standardInput("2026-09-08")
	in.StartTime = "17:00"
	in.EndTime = "18:00"
	_, err := svc.Create(ctx, anna.UserID, anna.UserName, in)
	require.NoError(t, err)

	_, err = svc.Create(ctx, anna.UserID, anna.UserName, standardInput("2026-09-08"))
	assert.True(t, IsErrConflict(err))
	assert.Len(t, repo.bookings, 1)
}

func TestServiceJoinAtWeeklyCap(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, fakeBlocks{})
	ctx := context.Background()

	in := standardInput("2026-09-08")
	in.Type = "open"
	in.CoPlayers = nil
	b, err := svc.Create(ctx, anna.UserID, anna.UserName, in)
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, b.Status)

	repo.mu.Lock()
	repo.quota["u-carla"] = quota.WeeklyLimit
	repo.mu.Unlock()

	_, err = svc.Join(ctx, carla.UserID, carla.UserName, b.ID)
	assert.True(t, quota.IsErrExceeded(err))

	// The refused join leaves the booking untouched.
	after, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, after.Status)
	assert.Equal(t, 1, after.ConfirmedCount())
	assert.Equal(t, quota.WeeklyLimit, repo.quota["u-carla"])
}

func TestServiceJoinFillsOpenBooking(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, fakeBlocks{})
	ctx := context.Background()

	in := standardInput("2026-09-08")
	in.Type = "open"
	in.CoPlayers = nil
	b, err := svc.Create(ctx, anna.UserID, anna.UserName, in)
	require.NoError(t, err)

	joined, err := svc.Join(ctx, bruno.UserID, bruno.UserName, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, joined.Status)
	assert.Equal(t, 1, repo.quota["u-bruno"])
}

func TestServiceCancelReleasesSlotAndQuota(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, fakeBlocks{})
	ctx := context.Background()

	b, err := svc.Create(ctx, anna.UserID, anna.UserName, standardInput("2026-09-08"))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, anna.UserID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDeleted, cancelled.Status)
	assert.Equal(t, 0, repo.quota["u-anna"])
	assert.Equal(t, 0, repo.quota["u-bruno"])

	// The slot is bookable again.
	in := standardInput("2026-09-08")
	in.CoPlayers = []PlayerRef{dario}
	_, err = svc.Create(ctx, carla.UserID, carla.UserName, in)
	assert.NoError(t, err)
}

func TestServiceLeave(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, fakeBlocks{})
	ctx := context.Background()

	in := standardInput("2026-09-08")
	in.Type = "open"
	in.CoPlayers = nil
	b, err := svc.Create(ctx, anna.UserID, anna.UserName, in)
	require.NoError(t, err)
	_, err = svc.Join(ctx, bruno.UserID, bruno.UserName, b.ID)
	require.NoError(t, err)

	left, err := svc.Leave(ctx, bruno.UserID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, left.Status)
	assert.Equal(t, 0, repo.quota["u-bruno"])
	assert.Equal(t, 1, repo.quota["u-anna"])
}

func TestServiceAcceptInvitation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, fakeBlocks{})
	ctx := context.Background()

	in := standardInput("2026-09-08")
	in.Type = "open"
	in.CoPlayers = nil
	in.InvitedPlayers = []PlayerRef{bruno}
	b, err := svc.Create(ctx, anna.UserID, anna.UserName, in)
	require.NoError(t, err)

	accepted, err := svc.AcceptInvitation(ctx, bruno.UserID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, accepted.Status)
	assert.Empty(t, accepted.InvitedPlayers)
	assert.Equal(t, 1, repo.quota["u-bruno"])
}
