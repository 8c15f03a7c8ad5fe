package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLoc = time.UTC

// monday returns a known Monday.
func monday() time.Time {
	return time.Date(2026, 9, 7, 0, 0, 0, 0, testLoc)
}

func regularTemplate(start, end string, duration int) SlotTemplate {
	return SlotTemplate{
		CourtID:      "court-1",
		DayOfWeek:    1, // Monday
		StartTime:    start,
		EndTime:      end,
		SlotDuration: duration,
		ActivityType: ActivityRegular,
		IsActive:     true,
	}
}

func TestExpandDayRegularTemplate(t *testing.T) {
	templates := []SlotTemplate{regularTemplate("08:00", "10:00", 60)}

	slots := ExpandDay(templates, monday(), testLoc)

	require.Len(t, slots, 2)
	assert.Equal(t, "08:00", slots[0].StartClock())
	assert.Equal(t, "09:00", slots[0].EndClock())
	assert.Equal(t, "09:00", slots[1].StartClock())
	assert.Equal(t, "10:00", slots[1].EndClock())
	for _, s := range slots {
		assert.True(t, s.Start.Before(s.End))
		assert.True(t, s.Regular())
	}
}

func TestExpandDayDiscardsTrailingPartialSlot(t *testing.T) {
	// 90 minutes of window, 60-minute slots: only one full slot fits.
	templates := []SlotTemplate{regularTemplate("18:00", "19:30", 60)}

	slots := ExpandDay(templates, monday(), testLoc)

	require.Len(t, slots, 1)
	assert.Equal(t, "18:00", slots[0].StartClock())
	assert.Equal(t, "19:00", slots[0].EndClock())
}

func TestExpandDaySlotsAreContiguous(t *testing.T) {
	templates := []SlotTemplate{regularTemplate("08:00", "22:00", 90)}

	slots := ExpandDay(templates, monday(), testLoc)

	require.NotEmpty(t, slots)
	for i := 1; i < len(slots); i++ {
		assert.Equal(t, slots[i-1].End, slots[i].Start, "slot %d not contiguous", i)
	}
}

func TestExpandDayNonRegularTemplateIsAtomic(t *testing.T) {
	templates := []SlotTemplate{{
		CourtID:      "court-1",
		DayOfWeek:    1,
		StartTime:    "15:00",
		EndTime:      "18:00",
		ActivityType: ActivitySchool,
		Notes:        "corso ragazzi",
		IsActive:     true,
	}}

	slots := ExpandDay(templates, monday(), testLoc)

	require.Len(t, slots, 1)
	assert.Equal(t, ActivitySchool, slots[0].Activity)
	assert.Equal(t, "corso ragazzi", slots[0].Notes)
	assert.Equal(t, "15:00", slots[0].StartClock())
	assert.Equal(t, "18:00", slots[0].EndClock())
	assert.False(t, slots[0].Regular())
}

func TestExpandDayMergesAndSortsTemplates(t *testing.T) {
	templates := []SlotTemplate{
		{
			CourtID: "court-1", DayOfWeek: 1,
			StartTime: "15:00", EndTime: "18:00",
			ActivityType: ActivitySchool, IsActive: true,
		},
		regularTemplate("08:00", "12:00", 60),
	}

	slots := ExpandDay(templates, monday(), testLoc)

	require.Len(t, slots, 5)
	for i := 1; i < len(slots); i++ {
		assert.False(t, slots[i].Start.Before(slots[i-1].Start))
	}
	assert.Equal(t, ActivitySchool, slots[4].Activity)
}

func TestExpandDayNoTemplatesNoSlots(t *testing.T) {
	assert.Empty(t, ExpandDay(nil, monday(), testLoc))
}

func TestExpandDaySkipsWrongDayAndInactive(t *testing.T) {
	tuesdayTemplate := regularTemplate("08:00", "10:00", 60)
	tuesdayTemplate.DayOfWeek = 2

	inactive := regularTemplate("10:00", "12:00", 60)
	inactive.IsActive = false

	slots := ExpandDay([]SlotTemplate{tuesdayTemplate, inactive}, monday(), testLoc)

	assert.Empty(t, slots)
}

func TestValidateCreateInput(t *testing.T) {
	valid := CreateTemplateInput{
		DayOfWeek: 1, StartTime: "08:00", EndTime: "10:00", SlotDuration: 60,
	}
	assert.NoError(t, validateCreateInput("court-1", valid))

	cases := []struct {
		name   string
		mutate func(*CreateTemplateInput)
	}{
		{"bad day", func(in *CreateTemplateInput) { in.DayOfWeek = 7 }},
		{"bad start", func(in *CreateTemplateInput) { in.StartTime = "8am" }},
		{"end before start", func(in *CreateTemplateInput) { in.EndTime = "07:00" }},
		{"bad activity", func(in *CreateTemplateInput) { in.ActivityType = "tournament" }},
		{"regular needs duration", func(in *CreateTemplateInput) { in.SlotDuration = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			err := validateCreateInput("court-1", in)
			assert.True(t, IsErrBadRequest(err))
		})
	}

	// Non-regular templates need no slot duration.
	school := CreateTemplateInput{
		DayOfWeek: 1, StartTime: "15:00", EndTime: "18:00", ActivityType: "school",
	}
	assert.NoError(t, validateCreateInput("court-1", school))
}
