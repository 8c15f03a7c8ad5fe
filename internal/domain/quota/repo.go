package quota

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Tracker maintains the per-user, per-ISO-week reservation counters.
// The booking repository applies the same documents inside its own
// transactions; Tracker is the standalone read/write surface.
type Tracker struct {
	fs *firestore.Client
}

func NewTracker(fs *firestore.Client) *Tracker {
	return &Tracker{fs: fs}
}

// Ref returns the document reference for (userID, week-of-at).
func Ref(fs *firestore.Client, userID string, at time.Time) *firestore.DocumentRef {
	return fs.Collection(Collection).Doc(DocID(userID, WeekKey(at)))
}

// CountFromSnapshot decodes a quota snapshot into its counter value.
// A missing document counts as zero.
func CountFromSnapshot(snap *firestore.DocumentSnapshot, err error) (int, error) {
	if status.Code(err) == codes.NotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read weekly quota: %w", err)
	}
	var q WeeklyQuota
	if err := snap.DataTo(&q); err != nil {
		return 0, fmt.Errorf("failed to parse weekly quota: %w", err)
	}
	return q.Count, nil
}

// GetCount returns the user's counter for the week containing at,
// defaulting to zero when no row exists.
func (t *Tracker) GetCount(ctx context.Context, userID string, at time.Time) (int, error) {
	snap, err := Ref(t.fs, userID, at).Get(ctx)
	return CountFromSnapshot(snap, err)
}

// Increment adds one to the user's counter for the week containing at,
// creating the row on first use.
func (t *Tracker) Increment(ctx context.Context, userID string, at time.Time) error {
	return t.apply(ctx, userID, at, +1)
}

// Decrement subtracts one from the user's counter, clamped at zero.
func (t *Tracker) Decrement(ctx context.Context, userID string, at time.Time) error {
	return t.apply(ctx, userID, at, -1)
}

func (t *Tracker) apply(ctx context.Context, userID string, at time.Time, delta int) error {
	ref := Ref(t.fs, userID, at)

	return t.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		count, err := CountFromSnapshot(tx.Get(ref))
		if err != nil {
			return err
		}

		next := count + delta
		if next < 0 {
			next = 0
		}

		return tx.Set(ref, WeeklyQuota{
			UserID:    userID,
			Week:      WeekKey(at),
			Count:     next,
			UpdatedAt: time.Now().UTC(),
		})
	})
}
