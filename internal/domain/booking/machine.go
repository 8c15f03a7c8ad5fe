package booking

import (
	"fmt"
	"time"
)

// The state machine is a set of pure transition functions over a
// Booking value. The repository applies them inside a transactional
// read-modify-write, so a transition either commits fully (player
// lists, status, quota) or not at all.
//
//	pending → waiting → confirmed
//	any active state → cancellata | eliminata
//
// Standard bookings are born confirmed with a full roster. Open
// bookings are born waiting and move between waiting and confirmed as
// the confirmed-player count crosses maxPlayers.

const (
	// fullDeleteWindow after creation during which the creator may
	// remove the booking entirely.
	fullDeleteWindow = time.Hour
	// cancelLead before the start time after which nobody may cancel
	// or leave. Fixed, not configurable.
	cancelLead = 2 * time.Hour
)

// NewStandard builds a closed-roster booking. The creator selects the
// exact number of co-players for the match type; everyone is confirmed
// immediately and the booking is created directly in state confirmed.
func NewStandard(courtID, courtName, date, startTime, endTime string, duration int, mt MatchType, creator PlayerRef, coPlayers []PlayerRef, now time.Time) (*Booking, error) {
	if len(coPlayers) == 0 {
		return nil, fmt.Errorf("%w: no players selected", ErrValidation)
	}
	need := RequiredCoPlayers(mt)
	if len(coPlayers) != need {
		return nil, fmt.Errorf("%w: a %s match needs exactly %d co-players", ErrValidation, mt, need)
	}
	if err := distinct(creator, coPlayers); err != nil {
		return nil, err
	}

	players := []Player{{UserID: creator.UserID, UserName: creator.UserName, Status: PlayerConfirmed}}
	userIDs := []string{creator.UserID}
	for _, p := range coPlayers {
		players = append(players, Player{UserID: p.UserID, UserName: p.UserName, Status: PlayerConfirmed})
		userIDs = append(userIDs, p.UserID)
	}

	return &Booking{
		CourtID:        courtID,
		CourtName:      courtName,
		Date:           date,
		StartTime:      startTime,
		EndTime:        endTime,
		Duration:       duration,
		Type:           TypeStandard,
		MatchType:      mt,
		Status:         StatusConfirmed,
		MaxPlayers:     MaxPlayersFor(mt),
		Players:        players,
		InvitedPlayers: []Player{},
		UserIDs:        userIDs,
		UserID:         creator.UserID,
		CreatedAt:      now,
	}, nil
}

// NewOpen builds a matchmaking booking. Only the creator is confirmed;
// invitees (0..N) are recorded as pending invitations. The booking
// starts waiting and fills via join/accept.
func NewOpen(courtID, courtName, date, startTime, endTime string, duration int, mt MatchType, creator PlayerRef, invited []PlayerRef, now time.Time) (*Booking, error) {
	maxPlayers := MaxPlayersFor(mt)
	if len(invited) > maxPlayers-1 {
		return nil, fmt.Errorf("%w: at most %d players can be invited", ErrValidation, maxPlayers-1)
	}
	if err := distinct(creator, invited); err != nil {
		return nil, err
	}

	invitedPlayers := make([]Player, 0, len(invited))
	for _, p := range invited {
		invitedPlayers = append(invitedPlayers, Player{UserID: p.UserID, UserName: p.UserName, Status: PlayerPending})
	}

	return &Booking{
		CourtID:        courtID,
		CourtName:      courtName,
		Date:           date,
		StartTime:      startTime,
		EndTime:        endTime,
		Duration:       duration,
		Type:           TypeOpen,
		MatchType:      mt,
		Status:         StatusWaiting,
		MaxPlayers:     maxPlayers,
		Players:        []Player{{UserID: creator.UserID, UserName: creator.UserName, Status: PlayerConfirmed}},
		InvitedPlayers: invitedPlayers,
		UserIDs:        []string{creator.UserID},
		UserID:         creator.UserID,
		CreatedAt:      now,
	}, nil
}

// Join inserts an eligible user as a confirmed player on an open
// booking. Users holding a pending invitation must go through
// AcceptInvitation instead. Returns the users whose confirmed entry is
// new (always exactly the joiner on success).
func Join(b *Booking, userID, userName string) ([]string, error) {
	if b.Type != TypeOpen {
		return nil, fmt.Errorf("%w: only open bookings can be joined", ErrValidation)
	}
	if b.Status.Terminal() {
		return nil, fmt.Errorf("%w: booking has been cancelled", ErrConflict)
	}
	if b.HasConfirmed(userID) {
		return nil, fmt.Errorf("%w: already joined", ErrConflict)
	}
	if b.InvitedIndex(userID) >= 0 {
		return nil, fmt.Errorf("%w: invitation pending, accept it instead of joining", ErrValidation)
	}
	if b.ConfirmedCount() >= b.MaxPlayers {
		return nil, fmt.Errorf("%w: booking full", ErrConflict)
	}

	b.Players = append(b.Players, Player{UserID: userID, UserName: userName, Status: PlayerConfirmed})
	b.UserIDs = append(b.UserIDs, userID)
	recompute(b)
	return []string{userID}, nil
}

// AcceptInvitation confirms a pending invitee: the invitation entry is
// cleared and the user is inserted as a confirmed player.
func AcceptInvitation(b *Booking, userID string) ([]string, error) {
	if b.Status.Terminal() {
		return nil, fmt.Errorf("%w: booking has been cancelled", ErrConflict)
	}
	idx := b.InvitedIndex(userID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: no pending invitation", ErrNotFound)
	}
	if b.HasConfirmed(userID) {
		return nil, fmt.Errorf("%w: already joined", ErrConflict)
	}
	if b.ConfirmedCount() >= b.MaxPlayers {
		return nil, fmt.Errorf("%w: booking full", ErrConflict)
	}

	invitee := b.InvitedPlayers[idx]
	b.InvitedPlayers = append(b.InvitedPlayers[:idx], b.InvitedPlayers[idx+1:]...)
	b.Players = append(b.Players, Player{UserID: invitee.UserID, UserName: invitee.UserName, Status: PlayerConfirmed})
	b.UserIDs = append(b.UserIDs, invitee.UserID)
	recompute(b)
	return []string{userID}, nil
}

// Leave removes a non-creator participant from an open booking without
// touching anyone else's reservation. Permitted until two hours before
// start. Returns the users whose confirmed entry was removed.
func Leave(b *Booking, userID string, start, now time.Time) ([]string, error) {
	if b.Type != TypeOpen {
		return nil, fmt.Errorf("%w: standard bookings can only be cancelled by their creator", ErrValidation)
	}
	if b.Status.Terminal() {
		return nil, fmt.Errorf("%w: booking has been cancelled", ErrConflict)
	}
	if userID == b.UserID {
		return nil, fmt.Errorf("%w: the creator cannot leave, cancel the booking instead", ErrValidation)
	}
	if !b.HasConfirmed(userID) {
		return nil, fmt.Errorf("%w: not a participant", ErrNotFound)
	}
	if !now.Before(start.Add(-cancelLead)) {
		return nil, fmt.Errorf("%w: cannot leave, booking starts in under 2 hours", ErrConflict)
	}

	removePlayer(b, userID)
	recompute(b)
	return []string{userID}, nil
}

// Cancel terminates a booking on behalf of its creator. Within one hour
// of creation the booking is fully deleted (eliminata); after that, and
// until two hours before start, it is cancelled (cancellata). Both
// propagate to every participant. Returns the users whose confirmed
// entry is released.
func Cancel(b *Booking, userID string, start, now time.Time) ([]string, error) {
	if userID != b.UserID {
		return nil, fmt.Errorf("%w: only the creator can cancel a booking", ErrUnauthorized)
	}
	if b.Status.Terminal() {
		return nil, fmt.Errorf("%w: booking already cancelled", ErrConflict)
	}

	switch {
	case now.Before(b.CreatedAt.Add(fullDeleteWindow)):
		b.Status = StatusDeleted
	case now.Before(start.Add(-cancelLead)):
		b.Status = StatusCancelled
	default:
		return nil, fmt.Errorf("%w: cannot cancel, booking starts in under 2 hours", ErrConflict)
	}

	released := b.ConfirmedUserIDs()
	at := now
	b.CancelledAt = &at
	return released, nil
}

// recompute applies the open-booking fill rule: confirmed when the
// roster is full, waiting otherwise. Terminal states are left alone.
func recompute(b *Booking) {
	if b.Type != TypeOpen || b.Status.Terminal() {
		return
	}
	if b.ConfirmedCount() >= b.MaxPlayers {
		b.Status = StatusConfirmed
	} else {
		b.Status = StatusWaiting
	}
}

func removePlayer(b *Booking, userID string) {
	players := b.Players[:0]
	for _, p := range b.Players {
		if p.UserID != userID {
			players = append(players, p)
		}
	}
	b.Players = players

	ids := b.UserIDs[:0]
	for _, id := range b.UserIDs {
		if id != userID {
			ids = append(ids, id)
		}
	}
	b.UserIDs = ids
}

func distinct(creator PlayerRef, others []PlayerRef) error {
	seen := map[string]bool{creator.UserID: true}
	for _, p := range others {
		if p.UserID == "" {
			return fmt.Errorf("%w: player without userId", ErrValidation)
		}
		if seen[p.UserID] {
			return fmt.Errorf("%w: duplicate player %s", ErrValidation, p.UserID)
		}
		seen[p.UserID] = true
	}
	return nil
}
