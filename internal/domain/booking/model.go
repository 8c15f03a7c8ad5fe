package booking

import (
	"strings"
	"time"

	"court-manager/backend/internal/utils"
)

// BookingHorizonDays is the fixed reservation horizon: a booking date
// must fall within [today, today+3] inclusive, club-local.
const BookingHorizonDays = 3

// Type distinguishes closed-roster bookings from open matchmaking.
type Type string

const (
	TypeStandard Type = "standard"
	TypeOpen     Type = "open"
)

func IsValidType(t string) bool {
	return t == string(TypeStandard) || t == string(TypeOpen)
}

type MatchType string

const (
	MatchSingles MatchType = "singles"
	MatchDoubles MatchType = "doubles"
)

func IsValidMatchType(mt string) bool {
	return mt == string(MatchSingles) || mt == string(MatchDoubles)
}

// MaxPlayersFor returns the confirmed-player capacity for a match type.
func MaxPlayersFor(mt MatchType) int {
	if mt == MatchDoubles {
		return 4
	}
	return 2
}

// RequiredCoPlayers is how many co-players the creator of a standard
// booking must select up front.
func RequiredCoPlayers(mt MatchType) int {
	return MaxPlayersFor(mt) - 1
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusWaiting   Status = "waiting"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancellata"
	StatusDeleted   Status = "eliminata"
)

// Active reports whether the booking still occupies its slot.
func (s Status) Active() bool {
	switch s {
	case StatusPending, StatusWaiting, StatusConfirmed:
		return true
	}
	return false
}

// Terminal reports whether the booking reached a cancelled state.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusDeleted
}

type PlayerStatus string

const (
	PlayerConfirmed PlayerStatus = "confirmed"
	PlayerPending   PlayerStatus = "pending"
)

type Player struct {
	UserID   string       `firestore:"userId" json:"userId"`
	UserName string       `firestore:"userName" json:"userName"`
	Status   PlayerStatus `firestore:"status" json:"status"`
}

// PlayerRef identifies a user selected or invited by the creator.
type PlayerRef struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// Booking is a reservation of one slot on one court. Never physically
// deleted; terminated via status.
type Booking struct {
	ID             string     `firestore:"id" json:"id"`
	CourtID        string     `firestore:"courtId" json:"courtId"`
	CourtName      string     `firestore:"courtName" json:"courtName"`
	Date           string     `firestore:"date" json:"date"`           // "YYYY-MM-DD"
	StartTime      string     `firestore:"startTime" json:"startTime"` // "HH:MM"
	EndTime        string     `firestore:"endTime" json:"endTime"`     // "HH:MM"
	Duration       int        `firestore:"duration" json:"duration"`   // minutes
	Type           Type       `firestore:"type" json:"type"`
	MatchType      MatchType  `firestore:"matchType" json:"matchType"`
	Status         Status     `firestore:"status" json:"status"`
	MaxPlayers     int        `firestore:"maxPlayers" json:"maxPlayers"`
	Players        []Player   `firestore:"players" json:"players"`
	InvitedPlayers []Player   `firestore:"invitedPlayers" json:"invitedPlayers"`
	UserIDs        []string   `firestore:"userIds" json:"userIds"`
	UserID         string     `firestore:"userId" json:"userId"` // creator
	CreatedAt      time.Time  `firestore:"createdAt" json:"createdAt"`
	CancelledAt    *time.Time `firestore:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
}

// ConfirmedCount counts players holding a confirmed entry.
func (b *Booking) ConfirmedCount() int {
	n := 0
	for _, p := range b.Players {
		if p.Status == PlayerConfirmed {
			n++
		}
	}
	return n
}

// ConfirmedUserIDs lists the users holding a confirmed player entry.
func (b *Booking) ConfirmedUserIDs() []string {
	ids := make([]string, 0, len(b.Players))
	for _, p := range b.Players {
		if p.Status == PlayerConfirmed {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// HasConfirmed reports whether the user holds a confirmed player entry.
func (b *Booking) HasConfirmed(userID string) bool {
	for _, p := range b.Players {
		if p.UserID == userID && p.Status == PlayerConfirmed {
			return true
		}
	}
	return false
}

// InvitedIndex returns the user's index in InvitedPlayers, or -1.
func (b *Booking) InvitedIndex(userID string) int {
	for i, p := range b.InvitedPlayers {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// StartAt resolves the booking start as a point in time, club-local.
func (b *Booking) StartAt(loc *time.Location) (time.Time, error) {
	day, err := utils.ParseDate(b.Date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return utils.AtClock(day, b.StartTime, loc)
}

// OverlapsClock reports whether the booking window overlaps the
// half-open [start, end) wall-clock interval on its own date.
// Zero-padded "HH:MM" strings order lexicographically.
func (b *Booking) OverlapsClock(start, end string) bool {
	return start < b.EndTime && end > b.StartTime
}

// CreateInput represents input for creating a booking
type CreateInput struct {
	CourtID        string      `json:"courtId"`
	Date           string      `json:"date"`
	StartTime      string      `json:"startTime"`
	EndTime        string      `json:"endTime"`
	Type           string      `json:"type"`
	MatchType      string      `json:"matchType"`
	CoPlayers      []PlayerRef `json:"coPlayers,omitempty"`
	InvitedPlayers []PlayerRef `json:"invitedPlayers,omitempty"`
}

func (in *CreateInput) Trim() {
	in.CourtID = strings.TrimSpace(in.CourtID)
	in.Date = strings.TrimSpace(in.Date)
	in.StartTime = strings.TrimSpace(in.StartTime)
	in.EndTime = strings.TrimSpace(in.EndTime)
	in.Type = strings.TrimSpace(in.Type)
	in.MatchType = strings.TrimSpace(in.MatchType)
	for i := range in.CoPlayers {
		in.CoPlayers[i].UserID = strings.TrimSpace(in.CoPlayers[i].UserID)
		in.CoPlayers[i].UserName = strings.TrimSpace(in.CoPlayers[i].UserName)
	}
	for i := range in.InvitedPlayers {
		in.InvitedPlayers[i].UserID = strings.TrimSpace(in.InvitedPlayers[i].UserID)
		in.InvitedPlayers[i].UserName = strings.TrimSpace(in.InvitedPlayers[i].UserName)
	}
}
