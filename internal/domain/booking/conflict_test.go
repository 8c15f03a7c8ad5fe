package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func existingAt(userID, start, end string, status Status) Booking {
	return Booking{
		CourtID:   "court-1",
		Date:      "2026-09-08",
		StartTime: start,
		EndTime:   end,
		Status:    status,
		UserIDs:   []string{userID},
		Players:   []Player{{UserID: userID, Status: PlayerConfirmed}},
	}
}

func TestCheckConsecutiveRejectsAdjacent(t *testing.T) {
	existing := []Booking{existingAt("u-anna", "17:00", "18:00", StatusConfirmed)}

	// New booking right after the existing one.
	err := CheckConsecutive(existing, "u-anna", "18:00", "19:00")
	assert.True(t, IsErrConflict(err))

	// New booking right before it.
	err = CheckConsecutive(existing, "u-anna", "16:00", "17:00")
	assert.True(t, IsErrConflict(err))
}

func TestCheckConsecutiveAllowsGap(t *testing.T) {
	existing := []Booking{existingAt("u-anna", "17:00", "18:00", StatusConfirmed)}

	assert.NoError(t, CheckConsecutive(existing, "u-anna", "19:00", "20:00"))
	assert.NoError(t, CheckConsecutive(existing, "u-anna", "15:00", "16:00"))
}

func TestCheckConsecutiveIgnoresCancelled(t *testing.T) {
	existing := []Booking{existingAt("u-anna", "17:00", "18:00", StatusCancelled)}

	assert.NoError(t, CheckConsecutive(existing, "u-anna", "18:00", "19:00"))
}

func TestCheckConsecutiveIgnoresOtherUsers(t *testing.T) {
	existing := []Booking{existingAt("u-bruno", "17:00", "18:00", StatusConfirmed)}

	assert.NoError(t, CheckConsecutive(existing, "u-anna", "18:00", "19:00"))
}

func TestCheckConsecutiveWaitingCounts(t *testing.T) {
	existing := []Booking{existingAt("u-anna", "17:00", "18:00", StatusWaiting)}

	err := CheckConsecutive(existing, "u-anna", "18:00", "19:00")
	assert.True(t, IsErrConflict(err))
}
