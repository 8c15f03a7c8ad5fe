package quota

import (
	"fmt"
	"time"
)

// WeeklyLimit is the per-user cap on confirmed-participant bookings in
// one ISO week.
const WeeklyLimit = 5

// Collection holds one document per (userId, week) pair.
const Collection = "weeklyQuotas"

// WeeklyQuota counts the bookings in which a user currently holds a
// confirmed player entry during one ISO week. Created on first use,
// never negative.
type WeeklyQuota struct {
	UserID    string    `firestore:"userId" json:"userId"`
	Week      string    `firestore:"week" json:"week"`
	Count     int       `firestore:"count" json:"count"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// WeekKey returns the ISO-year-week key for t, e.g. "2026-W36".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// DocID returns the document id for a (userId, week) pair.
func DocID(userID, week string) string {
	return userID + "_" + week
}
