package block

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlockOverlapsHalfOpen(t *testing.T) {
	at := func(h int) time.Time {
		return time.Date(2026, 9, 7, h, 0, 0, 0, time.UTC)
	}
	b := Block{Start: at(10), End: at(12)}

	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"inside", at(10), at(11), true},
		{"covers", at(9), at(13), true},
		{"partial head", at(9), at(11), true},
		{"partial tail", at(11), at(13), true},
		{"touching before", at(8), at(10), false},
		{"touching after", at(12), at(14), false},
		{"disjoint", at(14), at(15), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, b.Overlaps(tc.start, tc.end))
		})
	}
}

func TestIsValidType(t *testing.T) {
	assert.True(t, IsValidType("school"))
	assert.True(t, IsValidType("individual"))
	assert.True(t, IsValidType("blocked"))
	assert.False(t, IsValidType("regular"))
	assert.False(t, IsValidType(""))
}
