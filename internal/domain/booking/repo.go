package booking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"court-manager/backend/internal/domain/quota"
)

type Repo struct {
	fs *firestore.Client
}

func NewRepo(fs *firestore.Client) *Repo {
	return &Repo{fs: fs}
}

func (r *Repo) bookingsCol() *firestore.CollectionRef {
	return r.fs.Collection("bookings")
}

func (r *Repo) locksCol() *firestore.CollectionRef {
	return r.fs.Collection("slotLocks")
}

// SlotLockID is the document id of the single-writer lock for a slot.
func SlotLockID(courtID, date, startTime string) string {
	return courtID + "_" + date + "_" + strings.ReplaceAll(startTime, ":", "")
}

// slotLock guarantees at most one active booking per
// (courtId, date, startTime) under concurrent writers: transactions
// create it with the booking and delete it on terminal transitions.
type slotLock struct {
	CourtID   string    `firestore:"courtId"`
	Date      string    `firestore:"date"`
	StartTime string    `firestore:"startTime"`
	BookingID string    `firestore:"bookingId"`
	Token     string    `firestore:"token"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// Get retrieves a booking by ID
func (r *Repo) Get(ctx context.Context, bookingID string) (*Booking, error) {
	doc, err := r.bookingsCol().Doc(bookingID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: booking not found", ErrNotFound)
		}
		return nil, mapStoreErr(err)
	}

	var b Booking
	if err := doc.DataTo(&b); err != nil {
		return nil, fmt.Errorf("failed to parse booking: %w", err)
	}
	b.ID = doc.Ref.ID
	return &b, nil
}

// ListForCourtDate lists bookings for a court/date ordered by start.
func (r *Repo) ListForCourtDate(ctx context.Context, courtID, date string) ([]Booking, error) {
	q := r.bookingsCol().
		Where("courtId", "==", courtID).
		Where("date", "==", date).
		OrderBy("startTime", firestore.Asc)

	return r.collect(q.Documents(ctx))
}

// ListForUser lists bookings the user participates in, newest date first.
func (r *Repo) ListForUser(ctx context.Context, userID string, limit int) ([]Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := r.bookingsCol().
		Where("userIds", "array-contains", userID).
		OrderBy("date", firestore.Desc).
		Limit(limit)

	return r.collect(q.Documents(ctx))
}

// Create commits the booking, its slot lock, and the quota increments
// of every confirmed participant in one transaction. See Repository.
func (r *Repo) Create(ctx context.Context, b *Booking) (*Booking, error) {
	ref := r.bookingsCol().NewDoc()
	b.ID = ref.ID
	lockRef := r.locksCol().Doc(SlotLockID(b.CourtID, b.Date, b.StartTime))
	newly := b.ConfirmedUserIDs()

	err := r.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(lockRef); err == nil {
			return fmt.Errorf("%w: slot already booked", ErrConflict)
		} else if status.Code(err) != codes.NotFound {
			return err
		}

		counts, err := r.guardConfirmed(tx, b, newly, "")
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.Create(ref, b); err != nil {
			return err
		}
		if err := tx.Create(lockRef, slotLock{
			CourtID:   b.CourtID,
			Date:      b.Date,
			StartTime: b.StartTime,
			BookingID: b.ID,
			Token:     uuid.NewString(),
			CreatedAt: now,
		}); err != nil {
			return err
		}
		return r.applyQuota(tx, counts, nil, now)
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return b, nil
}

// Mutate applies fn to the stored booking in a transaction. See
// Repository.
func (r *Repo) Mutate(ctx context.Context, bookingID string, fn MutateFunc) (*Booking, error) {
	ref := r.bookingsCol().Doc(bookingID)

	var out Booking
	err := r.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("%w: booking not found", ErrNotFound)
			}
			return err
		}

		var b Booking
		if err := snap.DataTo(&b); err != nil {
			return fmt.Errorf("failed to parse booking: %w", err)
		}
		b.ID = snap.Ref.ID

		delta, err := fn(&b)
		if err != nil {
			return err
		}

		counts, err := r.guardConfirmed(tx, &b, delta.Confirmed, b.ID)
		if err != nil {
			return err
		}
		removedCounts := map[string]int{}
		now := time.Now().UTC()
		for _, uid := range delta.Removed {
			c, err := quota.CountFromSnapshot(tx.Get(quota.Ref(r.fs, uid, now)))
			if err != nil {
				return err
			}
			removedCounts[uid] = c
		}

		if err := tx.Set(ref, &b); err != nil {
			return err
		}
		if b.Status.Terminal() {
			lockRef := r.locksCol().Doc(SlotLockID(b.CourtID, b.Date, b.StartTime))
			if err := tx.Delete(lockRef); err != nil {
				return err
			}
		}
		if err := r.applyQuota(tx, counts, nil, now); err != nil {
			return err
		}
		if err := r.applyQuota(tx, nil, removedCounts, now); err != nil {
			return err
		}

		out = b
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &out, nil
}

// guardConfirmed runs the pre-commit checks for users about to gain a
// confirmed entry: the consecutive-slot rule against their other active
// bookings on the same court/date, and the weekly cap. Returns the
// current quota counts so the write phase can increment them.
func (r *Repo) guardConfirmed(tx *firestore.Transaction, b *Booking, userIDs []string, excludeBookingID string) (map[string]int, error) {
	counts := map[string]int{}
	now := time.Now().UTC()

	for _, uid := range userIDs {
		q := r.bookingsCol().
			Where("courtId", "==", b.CourtID).
			Where("date", "==", b.Date).
			Where("userIds", "array-contains", uid)
		docs, err := tx.Documents(q).GetAll()
		if err != nil {
			return nil, err
		}
		others := make([]Booking, 0, len(docs))
		for _, doc := range docs {
			if doc.Ref.ID == excludeBookingID {
				continue
			}
			var other Booking
			if err := doc.DataTo(&other); err != nil {
				continue
			}
			other.ID = doc.Ref.ID
			others = append(others, other)
		}
		if err := CheckConsecutive(others, uid, b.StartTime, b.EndTime); err != nil {
			return nil, err
		}

		count, err := quota.CountFromSnapshot(tx.Get(quota.Ref(r.fs, uid, now)))
		if err != nil {
			return nil, err
		}
		if count >= quota.WeeklyLimit {
			return nil, fmt.Errorf("%w: %s already has %d bookings this week", quota.ErrExceeded, uid, count)
		}
		counts[uid] = count
	}
	return counts, nil
}

// applyQuota writes the incremented/decremented counters read during
// the guard phase. Decrements clamp at zero.
func (r *Repo) applyQuota(tx *firestore.Transaction, increments, decrements map[string]int, now time.Time) error {
	for uid, count := range increments {
		if err := tx.Set(quota.Ref(r.fs, uid, now), quota.WeeklyQuota{
			UserID:    uid,
			Week:      quota.WeekKey(now),
			Count:     count + 1,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
	}
	for uid, count := range decrements {
		next := count - 1
		if next < 0 {
			next = 0
		}
		if err := tx.Set(quota.Ref(r.fs, uid, now), quota.WeeklyQuota{
			UserID:    uid,
			Week:      quota.WeekKey(now),
			Count:     next,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Watch streams the bookings of a court/date via a snapshot listener.
func (r *Repo) Watch(ctx context.Context, courtID, date string) (<-chan []Booking, func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	q := r.bookingsCol().
		Where("courtId", "==", courtID).
		Where("date", "==", date).
		OrderBy("startTime", firestore.Asc)
	snaps := q.Snapshots(ctx)

	out := make(chan []Booking, 1)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			snaps.Stop()
		})
	}

	go func() {
		defer close(out)
		for {
			qs, err := snaps.Next()
			if err != nil {
				return
			}
			docs, err := qs.Documents.GetAll()
			if err != nil {
				continue
			}
			list := make([]Booking, 0, len(docs))
			for _, doc := range docs {
				var b Booking
				if err := doc.DataTo(&b); err != nil {
					continue
				}
				b.ID = doc.Ref.ID
				list = append(list, b)
			}
			// Latest snapshot wins over an unconsumed one.
			select {
			case <-out:
			default:
			}
			select {
			case out <- list:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, stop, nil
}

func (r *Repo) collect(iter *firestore.DocumentIterator) ([]Booking, error) {
	defer iter.Stop()

	var bookings []Booking
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapStoreErr(fmt.Errorf("failed to iterate bookings: %w", err))
		}

		var b Booking
		if err := doc.DataTo(&b); err != nil {
			continue
		}
		b.ID = doc.Ref.ID
		bookings = append(bookings, b)
	}

	if bookings == nil {
		bookings = []Booking{}
	}
	return bookings, nil
}

// mapStoreErr folds transport-level failures into ErrStoreUnavailable
// while passing domain errors through untouched.
func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
