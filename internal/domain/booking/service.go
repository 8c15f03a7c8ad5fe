package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"court-manager/backend/internal/domain/block"
	"court-manager/backend/internal/domain/schedule"
	"court-manager/backend/internal/utils"
)

// SlotSource expands the booking grid of a court for one day.
type SlotSource interface {
	ResolveDay(ctx context.Context, courtID string, day time.Time) ([]schedule.Slot, error)
}

// BlockSource answers whether an admin block covers a time window.
type BlockSource interface {
	FindBlock(ctx context.Context, courtID string, start, end time.Time) (*block.Block, error)
}

// CourtNames resolves court display names for denormalization.
type CourtNames interface {
	GetName(ctx context.Context, courtID string) (string, error)
}

// Roster lists the users eligible for open-match broadcasts.
type Roster interface {
	ListActiveUserIDs(ctx context.Context) ([]string, error)
}

// Notifier delivers an in-app notification to one user.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body, kind, bookingID string) error
}

type Service struct {
	repo     Repository
	slots    SlotSource
	blocks   BlockSource
	courts   CourtNames
	roster   Roster
	notifier Notifier
	loc      *time.Location

	now func() time.Time
}

func NewService(repo Repository, slots SlotSource, blocks BlockSource, courts CourtNames, roster Roster, notifier Notifier, loc *time.Location) *Service {
	return &Service{
		repo:     repo,
		slots:    slots,
		blocks:   blocks,
		courts:   courts,
		roster:   roster,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
	}
}

// Create books a slot for the calling user. The slot must exist on the
// court's grid for that date, be regular, unblocked, not yet started,
// and within the reservation horizon. Roster rules depend on the
// booking type: standard requires the full set of co-players, open
// starts with the creator alone plus optional invitations.
func (s *Service) Create(ctx context.Context, userID, userName string, in CreateInput) (*Booking, error) {
	in.Trim()
	if err := s.validateCreateInput(in); err != nil {
		return nil, err
	}

	day, err := utils.ParseDate(in.Date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date", ErrValidation)
	}
	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	if day.Before(today) {
		return nil, fmt.Errorf("%w: date is in the past", ErrValidation)
	}
	if day.After(today.AddDate(0, 0, BookingHorizonDays)) {
		return nil, fmt.Errorf("%w: date is beyond the %d-day booking window", ErrValidation, BookingHorizonDays)
	}

	slot, err := s.findSlot(ctx, in.CourtID, day, in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}
	if !slot.Regular() {
		return nil, fmt.Errorf("%w: slot is reserved for %s activity", ErrConflict, slot.Activity)
	}
	if !now.Before(slot.Start) {
		return nil, fmt.Errorf("%w: slot already started", ErrValidation)
	}
	if blk, err := s.blocks.FindBlock(ctx, in.CourtID, slot.Start, slot.End); err != nil {
		return nil, err
	} else if blk != nil {
		return nil, fmt.Errorf("%w: court is blocked for %s", ErrConflict, blk.Type)
	}

	courtName, err := s.courts.GetName(ctx, in.CourtID)
	if err != nil {
		return nil, err
	}

	duration := int(slot.End.Sub(slot.Start) / time.Minute)
	creator := PlayerRef{UserID: userID, UserName: userName}

	var b *Booking
	switch Type(in.Type) {
	case TypeStandard:
		b, err = NewStandard(in.CourtID, courtName, in.Date, in.StartTime, in.EndTime, duration, MatchType(in.MatchType), creator, in.CoPlayers, s.now().UTC())
	case TypeOpen:
		b, err = NewOpen(in.CourtID, courtName, in.Date, in.StartTime, in.EndTime, duration, MatchType(in.MatchType), creator, in.InvitedPlayers, s.now().UTC())
	}
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, b)
	if err != nil {
		return nil, err
	}

	s.notifyCreated(created, userID)
	return created, nil
}

// Join adds the calling user to an open booking as a confirmed player.
func (s *Service) Join(ctx context.Context, userID, userName, bookingID string) (*Booking, error) {
	updated, err := s.repo.Mutate(ctx, bookingID, func(b *Booking) (Delta, error) {
		confirmed, err := Join(b, userID, userName)
		if err != nil {
			return Delta{}, err
		}
		return Delta{Confirmed: confirmed}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyAsync(updated, []string{updated.UserID}, "Nuovo giocatore",
		fmt.Sprintf("%s si è unito alla tua partita del %s alle %s", userName, updated.Date, updated.StartTime))
	if updated.Status == StatusConfirmed {
		s.notifyConfirmed(updated)
	}
	return updated, nil
}

// AcceptInvitation turns a pending invitation into a confirmed entry.
func (s *Service) AcceptInvitation(ctx context.Context, userID, bookingID string) (*Booking, error) {
	updated, err := s.repo.Mutate(ctx, bookingID, func(b *Booking) (Delta, error) {
		confirmed, err := AcceptInvitation(b, userID)
		if err != nil {
			return Delta{}, err
		}
		return Delta{Confirmed: confirmed}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyAsync(updated, []string{updated.UserID}, "Invito accettato",
		fmt.Sprintf("Un giocatore ha accettato l'invito per il %s alle %s", updated.Date, updated.StartTime))
	if updated.Status == StatusConfirmed {
		s.notifyConfirmed(updated)
	}
	return updated, nil
}

// Leave removes the calling user from an open booking they joined.
func (s *Service) Leave(ctx context.Context, userID, bookingID string) (*Booking, error) {
	updated, err := s.repo.Mutate(ctx, bookingID, func(b *Booking) (Delta, error) {
		start, err := b.StartAt(s.loc)
		if err != nil {
			return Delta{}, err
		}
		removed, err := Leave(b, userID, start, s.now().In(s.loc))
		if err != nil {
			return Delta{}, err
		}
		return Delta{Removed: removed}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyAsync(updated, []string{updated.UserID}, "Giocatore uscito",
		fmt.Sprintf("Un giocatore ha lasciato la partita del %s alle %s", updated.Date, updated.StartTime))
	return updated, nil
}

// Cancel terminates a booking. Only the creator may cancel; the window
// decides whether it becomes eliminata or cancellata.
func (s *Service) Cancel(ctx context.Context, userID, bookingID string) (*Booking, error) {
	updated, err := s.repo.Mutate(ctx, bookingID, func(b *Booking) (Delta, error) {
		start, err := b.StartAt(s.loc)
		if err != nil {
			return Delta{}, err
		}
		released, err := Cancel(b, userID, start, s.now().In(s.loc))
		if err != nil {
			return Delta{}, err
		}
		return Delta{Removed: released}, nil
	})
	if err != nil {
		return nil, err
	}

	others := make([]string, 0, len(updated.UserIDs))
	for _, uid := range updated.UserIDs {
		if uid != userID {
			others = append(others, uid)
		}
	}
	s.notifyAsync(updated, others, "Prenotazione annullata",
		fmt.Sprintf("La partita del %s alle %s su %s è stata annullata", updated.Date, updated.StartTime, updated.CourtName))
	return updated, nil
}

func (s *Service) Get(ctx context.Context, bookingID string) (*Booking, error) {
	return s.repo.Get(ctx, bookingID)
}

func (s *Service) ListForCourtDate(ctx context.Context, courtID, date string) ([]Booking, error) {
	if courtID == "" {
		return nil, fmt.Errorf("%w: courtId is required", ErrValidation)
	}
	if _, err := utils.ParseDate(date, s.loc); err != nil {
		return nil, fmt.Errorf("%w: invalid date", ErrValidation)
	}
	return s.repo.ListForCourtDate(ctx, courtID, date)
}

func (s *Service) ListMine(ctx context.Context, userID string, limit int) ([]Booking, error) {
	return s.repo.ListForUser(ctx, userID, limit)
}

func (s *Service) validateCreateInput(in CreateInput) error {
	if in.CourtID == "" {
		return fmt.Errorf("%w: courtId is required", ErrValidation)
	}
	if !utils.IsValidClock(in.StartTime) || !utils.IsValidClock(in.EndTime) {
		return fmt.Errorf("%w: times must be HH:MM", ErrValidation)
	}
	if !IsValidType(in.Type) {
		return fmt.Errorf("%w: type must be standard or open", ErrValidation)
	}
	if !IsValidMatchType(in.MatchType) {
		return fmt.Errorf("%w: matchType must be singles or doubles", ErrValidation)
	}
	return nil
}

// findSlot locates the grid slot matching the requested window exactly.
func (s *Service) findSlot(ctx context.Context, courtID string, day time.Time, startTime, endTime string) (*schedule.Slot, error) {
	slots, err := s.slots.ResolveDay(ctx, courtID, day)
	if err != nil {
		return nil, err
	}
	for i := range slots {
		if slots[i].StartClock() == startTime && slots[i].EndClock() == endTime {
			return &slots[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no slot at %s-%s on this court", ErrValidation, startTime, endTime)
}

// notifyCreated fans out the post-create notifications without holding
// up the request.
func (s *Service) notifyCreated(b *Booking, creatorID string) {
	if b.Type == TypeStandard {
		targets := make([]string, 0, len(b.UserIDs))
		for _, uid := range b.UserIDs {
			if uid != creatorID {
				targets = append(targets, uid)
			}
		}
		s.notifyAsync(b, targets, "Prenotazione confermata",
			fmt.Sprintf("Partita il %s alle %s su %s", b.Date, b.StartTime, b.CourtName))
		return
	}

	invited := make([]string, 0, len(b.InvitedPlayers))
	for _, p := range b.InvitedPlayers {
		invited = append(invited, p.UserID)
	}
	s.notifyAsync(b, invited, "Invito a una partita",
		fmt.Sprintf("Sei stato invitato a una partita il %s alle %s su %s", b.Date, b.StartTime, b.CourtName))

	if s.roster == nil || s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		uids, err := s.roster.ListActiveUserIDs(ctx)
		if err != nil {
			log.Warn().Err(err).Str("bookingId", b.ID).Msg("open match broadcast skipped")
			return
		}
		skip := map[string]bool{creatorID: true}
		for _, p := range b.InvitedPlayers {
			skip[p.UserID] = true
		}
		body := fmt.Sprintf("Partita aperta il %s alle %s su %s, unisciti!", b.Date, b.StartTime, b.CourtName)
		for _, uid := range uids {
			if skip[uid] {
				continue
			}
			if err := s.notifier.Notify(ctx, uid, "Nuova partita aperta", body, "openMatch", b.ID); err != nil {
				log.Warn().Err(err).Str("userId", uid).Msg("failed to notify user")
			}
		}
	}()
}

// notifyConfirmed tells every confirmed player the match is on.
func (s *Service) notifyConfirmed(b *Booking) {
	s.notifyAsync(b, b.ConfirmedUserIDs(), "Partita confermata",
		fmt.Sprintf("La partita del %s alle %s su %s è al completo", b.Date, b.StartTime, b.CourtName))
}

func (s *Service) notifyAsync(b *Booking, userIDs []string, title, body string) {
	if s.notifier == nil || len(userIDs) == 0 {
		return
	}
	targets := append([]string(nil), userIDs...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		for _, uid := range targets {
			if err := s.notifier.Notify(ctx, uid, title, body, "booking", b.ID); err != nil {
				log.Warn().Err(err).Str("userId", uid).Str("bookingId", b.ID).Msg("failed to notify user")
			}
		}
	}()
}
