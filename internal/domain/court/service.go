package court

import (
	"context"
	"fmt"
	"time"

	"court-manager/backend/internal/utils"
)

type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

// Create creates a new court. Caller authorization (admin) is enforced
// at the transport layer.
func (s *Service) Create(ctx context.Context, adminUID string, in CreateCourtInput) (*Court, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrBadRequest)
	}

	nameLower := utils.NormalizeNameLower(in.Name)
	now := time.Now().UTC()

	c := Court{
		Name:         utils.TrimMax(in.Name, 80),
		NameLower:    nameLower,
		Surface:      utils.TrimMax(in.Surface, 40),
		SearchTokens: utils.SearchTokens(in.Name, utils.Slugify(in.Name)),
		IsActive:     true,
		CreatedBy:    adminUID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	return s.repo.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, courtID string) (*Court, error) {
	if courtID == "" {
		return nil, fmt.Errorf("%w: courtId is required", ErrBadRequest)
	}
	return s.repo.Get(ctx, courtID)
}

func (s *Service) List(ctx context.Context) ([]Court, error) {
	return s.repo.List(ctx)
}

// GetName resolves a court's display name. Used when denormalizing
// courtName onto bookings.
func (s *Service) GetName(ctx context.Context, courtID string) (string, error) {
	c, err := s.Get(ctx, courtID)
	if err != nil {
		return "", err
	}
	return c.Name, nil
}
