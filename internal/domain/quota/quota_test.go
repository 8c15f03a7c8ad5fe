package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekKey(t *testing.T) {
	// Mid-year week.
	assert.Equal(t, "2026-W37", WeekKey(time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)))

	// ISO rollover: 2021-01-01 belongs to 2020's week 53.
	assert.Equal(t, "2020-W53", WeekKey(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))

	// Every day of one week shares the key.
	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	for d := 0; d < 7; d++ {
		assert.Equal(t, WeekKey(monday), WeekKey(monday.AddDate(0, 0, d)))
	}
	assert.NotEqual(t, WeekKey(monday), WeekKey(monday.AddDate(0, 0, 7)))
}

func TestDocID(t *testing.T) {
	assert.Equal(t, "u1_2026-W37", DocID("u1", "2026-W37"))
}
