package schedule

import (
	"strings"
	"time"

	"court-manager/backend/internal/utils"
)

// ActivityType classifies what a template window is for. Only regular
// windows expand into bookable slots; everything else renders as a
// whole-window block.
type ActivityType string

const (
	ActivityRegular    ActivityType = "regular"
	ActivitySchool     ActivityType = "school"
	ActivityIndividual ActivityType = "individual"
	ActivityBlocked    ActivityType = "blocked"
)

var ValidActivityTypes = []ActivityType{ActivityRegular, ActivitySchool, ActivityIndividual, ActivityBlocked}

func IsValidActivityType(a string) bool {
	for _, v := range ValidActivityTypes {
		if string(v) == a {
			return true
		}
	}
	return false
}

// SlotTemplate is one weekly recurring rule for a court/day-of-week.
// Multiple templates may apply to the same court/day, non-overlapping
// by convention (not enforced). Read-only to the booking engine.
type SlotTemplate struct {
	ID           string       `firestore:"id" json:"id"`
	CourtID      string       `firestore:"courtId" json:"courtId"`
	DayOfWeek    int          `firestore:"dayOfWeek" json:"dayOfWeek"` // 0=Sunday, 1=Monday, etc.
	StartTime    string       `firestore:"startTime" json:"startTime"` // "HH:MM" format
	EndTime      string       `firestore:"endTime" json:"endTime"`     // "HH:MM" format
	SlotDuration int          `firestore:"slotDuration" json:"slotDuration"` // minutes
	ActivityType ActivityType `firestore:"activityType" json:"activityType"`
	Notes        string       `firestore:"notes,omitempty" json:"notes,omitempty"`
	IsActive     bool         `firestore:"isActive" json:"isActive"`
	CreatedBy    string       `firestore:"createdBy" json:"createdBy"`
	CreatedAt    time.Time    `firestore:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time    `firestore:"updatedAt" json:"updatedAt"`
}

// Slot is a concrete time window generated from a template for one
// calendar date. The unit of reservation.
type Slot struct {
	CourtID  string       `json:"courtId"`
	Start    time.Time    `json:"start"`
	End      time.Time    `json:"end"`
	Activity ActivityType `json:"activity"`
	Notes    string       `json:"notes,omitempty"`
}

// Regular reports whether the slot is an expansion of a regular
// template (as opposed to an atomic whole-window block).
func (s Slot) Regular() bool {
	return s.Activity == ActivityRegular
}

// StartClock returns the slot start as "HH:MM".
func (s Slot) StartClock() string { return utils.Clock(s.Start) }

// EndClock returns the slot end as "HH:MM".
func (s Slot) EndClock() string { return utils.Clock(s.End) }

// CreateTemplateInput represents input for creating a slot template
type CreateTemplateInput struct {
	DayOfWeek    int    `json:"dayOfWeek"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	SlotDuration int    `json:"slotDuration,omitempty"`
	ActivityType string `json:"activityType,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

func (in *CreateTemplateInput) Trim() {
	in.StartTime = strings.TrimSpace(in.StartTime)
	in.EndTime = strings.TrimSpace(in.EndTime)
	in.ActivityType = strings.TrimSpace(in.ActivityType)
	in.Notes = utils.TrimMax(in.Notes, 300)
}

// UpdateTemplateInput represents input for updating a slot template
type UpdateTemplateInput struct {
	DayOfWeek    *int    `json:"dayOfWeek,omitempty"`
	StartTime    *string `json:"startTime,omitempty"`
	EndTime      *string `json:"endTime,omitempty"`
	SlotDuration *int    `json:"slotDuration,omitempty"`
	ActivityType *string `json:"activityType,omitempty"`
	Notes        *string `json:"notes,omitempty"`
	IsActive     *bool   `json:"isActive,omitempty"`
}

func (in *UpdateTemplateInput) Trim() {
	if in.StartTime != nil {
		*in.StartTime = strings.TrimSpace(*in.StartTime)
	}
	if in.EndTime != nil {
		*in.EndTime = strings.TrimSpace(*in.EndTime)
	}
	if in.ActivityType != nil {
		*in.ActivityType = strings.TrimSpace(*in.ActivityType)
	}
	if in.Notes != nil {
		*in.Notes = utils.TrimMax(*in.Notes, 300)
	}
}
