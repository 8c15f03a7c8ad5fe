package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"court-manager/backend/internal/utils"
)

// Service owns slot template CRUD (admin planner) and day resolution
// (booking engine read path).
type Service struct {
	repo *Repo
	loc  *time.Location
}

func NewService(repo *Repo, loc *time.Location) *Service {
	return &Service{repo: repo, loc: loc}
}

// ExpandDay expands templates into concrete slots for one calendar
// date. Regular templates produce fixed-width slots of SlotDuration
// minutes, discarding a trailing partial slot. Non-regular templates
// emit a single atomic slot spanning the whole window. The result is
// merged across templates and sorted by start time. Templates whose
// day-of-week does not match the date, and inactive templates, are
// skipped. No templates means no slots: a court without configuration
// is unbookable.
func ExpandDay(templates []SlotTemplate, day time.Time, loc *time.Location) []Slot {
	dow := int(day.In(loc).Weekday())

	var slots []Slot
	for _, t := range templates {
		if !t.IsActive || t.DayOfWeek != dow {
			continue
		}

		start, err := utils.AtClock(day, t.StartTime, loc)
		if err != nil {
			continue
		}
		end, err := utils.AtClock(day, t.EndTime, loc)
		if err != nil || !end.After(start) {
			continue
		}

		if t.ActivityType != ActivityRegular {
			slots = append(slots, Slot{
				CourtID:  t.CourtID,
				Start:    start,
				End:      end,
				Activity: t.ActivityType,
				Notes:    t.Notes,
			})
			continue
		}

		if t.SlotDuration <= 0 {
			continue
		}
		step := time.Duration(t.SlotDuration) * time.Minute
		for cur := start; !cur.Add(step).After(end); cur = cur.Add(step) {
			slots = append(slots, Slot{
				CourtID:  t.CourtID,
				Start:    cur,
				End:      cur.Add(step),
				Activity: ActivityRegular,
			})
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots
}

// ResolveDay looks up the active templates for (courtId, date's
// day-of-week) and expands them into concrete slots.
func (s *Service) ResolveDay(ctx context.Context, courtID string, day time.Time) ([]Slot, error) {
	if courtID == "" {
		return nil, fmt.Errorf("%w: courtId is required", ErrBadRequest)
	}

	dow := int(day.In(s.loc).Weekday())
	templates, err := s.repo.ListForCourtDay(ctx, courtID, dow)
	if err != nil {
		return nil, err
	}

	return ExpandDay(templates, day, s.loc), nil
}

// WatchDay streams the expanded slots of a court/date, re-emitting
// whenever a template for that day-of-week changes.
func (s *Service) WatchDay(ctx context.Context, courtID string, day time.Time) (<-chan []Slot, func(), error) {
	if courtID == "" {
		return nil, nil, fmt.Errorf("%w: courtId is required", ErrBadRequest)
	}

	dow := int(day.In(s.loc).Weekday())
	templates, stop, err := s.repo.Watch(ctx, courtID, dow)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan []Slot, 1)
	go func() {
		defer close(out)
		for list := range templates {
			// Latest snapshot wins over an unconsumed one.
			select {
			case <-out:
			default:
			}
			out <- ExpandDay(list, day, s.loc)
		}
	}()
	return out, stop, nil
}

// CreateTemplate creates a weekly recurring rule for a court.
func (s *Service) CreateTemplate(ctx context.Context, adminUID, courtID string, in CreateTemplateInput) (*SlotTemplate, error) {
	if err := validateCreateInput(courtID, in); err != nil {
		return nil, err
	}

	activity := ActivityType(in.ActivityType)
	if in.ActivityType == "" {
		activity = ActivityRegular
	}

	now := time.Now().UTC()
	t := SlotTemplate{
		CourtID:      courtID,
		DayOfWeek:    in.DayOfWeek,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		SlotDuration: in.SlotDuration,
		ActivityType: activity,
		Notes:        in.Notes,
		IsActive:     true,
		CreatedBy:    adminUID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	return s.repo.Create(ctx, t)
}

// UpdateTemplate updates a weekly recurring rule.
func (s *Service) UpdateTemplate(ctx context.Context, templateID string, in UpdateTemplateInput) (*SlotTemplate, error) {
	if templateID == "" {
		return nil, fmt.Errorf("%w: templateId is required", ErrBadRequest)
	}

	if _, err := s.repo.Get(ctx, templateID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"updatedAt": time.Now().UTC(),
	}

	if in.DayOfWeek != nil {
		if *in.DayOfWeek < 0 || *in.DayOfWeek > 6 {
			return nil, fmt.Errorf("%w: dayOfWeek must be 0-6", ErrBadRequest)
		}
		updates["dayOfWeek"] = *in.DayOfWeek
	}
	if in.StartTime != nil {
		if !utils.IsValidClock(*in.StartTime) {
			return nil, fmt.Errorf("%w: startTime must be HH:MM format", ErrBadRequest)
		}
		updates["startTime"] = *in.StartTime
	}
	if in.EndTime != nil {
		if !utils.IsValidClock(*in.EndTime) {
			return nil, fmt.Errorf("%w: endTime must be HH:MM format", ErrBadRequest)
		}
		updates["endTime"] = *in.EndTime
	}
	if in.SlotDuration != nil {
		if *in.SlotDuration <= 0 {
			return nil, fmt.Errorf("%w: slotDuration must be positive", ErrBadRequest)
		}
		updates["slotDuration"] = *in.SlotDuration
	}
	if in.ActivityType != nil {
		if !IsValidActivityType(*in.ActivityType) {
			return nil, fmt.Errorf("%w: activityType must be one of: regular, school, individual, blocked", ErrBadRequest)
		}
		updates["activityType"] = *in.ActivityType
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
	}
	if in.IsActive != nil {
		updates["isActive"] = *in.IsActive
	}

	return s.repo.Update(ctx, templateID, updates)
}

// DeleteTemplate removes a weekly recurring rule.
func (s *Service) DeleteTemplate(ctx context.Context, templateID string) error {
	if templateID == "" {
		return fmt.Errorf("%w: templateId is required", ErrBadRequest)
	}
	if _, err := s.repo.Get(ctx, templateID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, templateID)
}

// ListForCourt lists all templates configured for a court.
func (s *Service) ListForCourt(ctx context.Context, courtID string) ([]SlotTemplate, error) {
	if courtID == "" {
		return nil, fmt.Errorf("%w: courtId is required", ErrBadRequest)
	}
	return s.repo.ListForCourt(ctx, courtID)
}

func validateCreateInput(courtID string, in CreateTemplateInput) error {
	if courtID == "" {
		return fmt.Errorf("%w: courtId is required", ErrBadRequest)
	}
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return fmt.Errorf("%w: dayOfWeek must be 0-6 (0=Sunday)", ErrBadRequest)
	}
	if !utils.IsValidClock(in.StartTime) {
		return fmt.Errorf("%w: startTime must be HH:MM format", ErrBadRequest)
	}
	if !utils.IsValidClock(in.EndTime) {
		return fmt.Errorf("%w: endTime must be HH:MM format", ErrBadRequest)
	}
	if in.StartTime >= in.EndTime {
		return fmt.Errorf("%w: endTime must be after startTime", ErrBadRequest)
	}
	if in.ActivityType != "" && !IsValidActivityType(in.ActivityType) {
		return fmt.Errorf("%w: activityType must be one of: regular, school, individual, blocked", ErrBadRequest)
	}
	if (in.ActivityType == "" || in.ActivityType == string(ActivityRegular)) && in.SlotDuration <= 0 {
		return fmt.Errorf("%w: slotDuration is required for regular templates", ErrBadRequest)
	}
	return nil
}
