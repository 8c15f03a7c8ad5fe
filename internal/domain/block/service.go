package block

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"court-manager/backend/internal/utils"
)

// RetentionDays is how long an expired block is kept before the
// background sweep removes it.
const RetentionDays = 7

type Service struct {
	repo *Repo
	loc  *time.Location
}

func NewService(repo *Repo, loc *time.Location) *Service {
	return &Service{repo: repo, loc: loc}
}

// FindBlock returns the block covering any part of [start, end) on the
// given court, or nil when the window is clear.
func (s *Service) FindBlock(ctx context.Context, courtID string, start, end time.Time) (*Block, error) {
	if courtID == "" {
		return nil, fmt.Errorf("%w: courtId is required", ErrBadRequest)
	}

	blocks, err := s.repo.ListForCourtWindow(ctx, courtID, start, end)
	if err != nil {
		return nil, err
	}
	for i := range blocks {
		if blocks[i].Overlaps(start, end) {
			return &blocks[i], nil
		}
	}
	return nil, nil
}

// ListForCourtDay lists blocks touching the calendar day starting at dayStart.
func (s *Service) ListForCourtDay(ctx context.Context, courtID string, dayStart time.Time) ([]Block, error) {
	if courtID == "" {
		return nil, fmt.Errorf("%w: courtId is required", ErrBadRequest)
	}
	return s.repo.ListForCourtWindow(ctx, courtID, dayStart, dayStart.AddDate(0, 0, 1))
}

// WatchCourtDay streams the blocks touching the calendar day starting
// at dayStart.
func (s *Service) WatchCourtDay(ctx context.Context, courtID string, dayStart time.Time) (<-chan []Block, func(), error) {
	if courtID == "" {
		return nil, nil, fmt.Errorf("%w: courtId is required", ErrBadRequest)
	}
	return s.repo.Watch(ctx, courtID, dayStart, dayStart.AddDate(0, 0, 1))
}

// Create registers a one-off block. Admin authorization is enforced at
// the transport layer.
func (s *Service) Create(ctx context.Context, adminUID, courtID string, in CreateBlockInput) (*Block, error) {
	if courtID == "" {
		return nil, fmt.Errorf("%w: courtId is required", ErrBadRequest)
	}
	if !IsValidType(in.Type) {
		return nil, fmt.Errorf("%w: type must be one of: school, individual, blocked", ErrBadRequest)
	}
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrBadRequest)
	}

	// Zone-less admin input means club-local wall time.
	start, err := utils.ParseTime(in.Start, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid start", ErrBadRequest)
	}
	end, err := utils.ParseTime(in.End, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid end", ErrBadRequest)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end must be after start", ErrBadRequest)
	}

	b := Block{
		CourtID:     courtID,
		Type:        BlockType(in.Type),
		Title:       in.Title,
		Start:       start,
		End:         end,
		IsRecurring: false,
		CreatedBy:   adminUID,
		CreatedAt:   time.Now().UTC(),
	}

	return s.repo.Create(ctx, b)
}

// Delete removes a block by id.
func (s *Service) Delete(ctx context.Context, blockID string) error {
	if blockID == "" {
		return fmt.Errorf("%w: blockId is required", ErrBadRequest)
	}
	if _, err := s.repo.Get(ctx, blockID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, blockID)
}

// Sweep deletes blocks that ended more than RetentionDays ago. Failures
// are logged and swallowed: this is non-critical maintenance run from
// the background scheduler.
func (s *Service) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -RetentionDays)

	n, err := s.repo.DeleteEndedBefore(ctx, cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("block sweep failed")
		return
	}
	if n > 0 {
		log.Info().Int("deleted", n).Time("cutoff", cutoff).Msg("swept expired blocks")
	}
}
