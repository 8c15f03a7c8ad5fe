package notifications

import (
	"strings"
	"time"
)

// Notification is one entry under users/{uid}/notifications.
type Notification struct {
	ID        string     `firestore:"id" json:"id"`
	Title     string     `firestore:"title" json:"title"`
	Body      string     `firestore:"body" json:"body"`
	Kind      string     `firestore:"kind" json:"kind"`
	BookingID string     `firestore:"bookingId,omitempty" json:"bookingId,omitempty"`
	Read      bool       `firestore:"read" json:"read"`
	ReadAt    *time.Time `firestore:"readAt,omitempty" json:"readAt,omitempty"`
	CreatedAt time.Time  `firestore:"createdAt" json:"createdAt"`
}

// MarkReadInput represents input for marking notifications read
type MarkReadInput struct {
	IDs []string `json:"ids,omitempty"`
	All bool     `json:"all,omitempty"`
}

func (in *MarkReadInput) Trim() {
	out := in.IDs[:0]
	for _, id := range in.IDs {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	in.IDs = out
}

// ListResult pairs a page of notifications with the unread total.
type ListResult struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
}
