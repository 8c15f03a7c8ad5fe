package notifications

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"

	"court-manager/backend/internal/domain/user"
)

const batchLimit = 450

// TokenSource resolves a user's push token.
type TokenSource interface {
	Get(ctx context.Context, uid string) (*user.Profile, error)
}

type Service struct {
	fs     *firestore.Client
	fcm    *messaging.Client // nil disables push
	tokens TokenSource
}

func NewService(fs *firestore.Client, fcm *messaging.Client, tokens TokenSource) *Service {
	return &Service{fs: fs, fcm: fcm, tokens: tokens}
}

func (s *Service) notificationsCol(uid string) *firestore.CollectionRef {
	return s.fs.Collection("users").Doc(uid).Collection("notifications")
}

// Notify writes an in-app notification and, when the user carries a
// push token, mirrors it over FCM. A failed push never fails the call.
func (s *Service) Notify(ctx context.Context, userID, title, body, kind, bookingID string) error {
	ref := s.notificationsCol(userID).NewDoc()
	n := Notification{
		ID:        ref.ID,
		Title:     title,
		Body:      body,
		Kind:      kind,
		BookingID: bookingID,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := ref.Set(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	s.push(ctx, userID, title, body, bookingID)
	return nil
}

func (s *Service) push(ctx context.Context, userID, title, body, bookingID string) {
	if s.fcm == nil || s.tokens == nil {
		return
	}
	p, err := s.tokens.Get(ctx, userID)
	if err != nil || p.FCMToken == "" {
		return
	}

	msg := &messaging.Message{
		Token: p.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
	}
	if bookingID != "" {
		msg.Data = map[string]string{"bookingId": bookingID}
	}
	if _, err := s.fcm.Send(ctx, msg); err != nil {
		log.Debug().Err(err).Str("userId", userID).Msg("push delivery failed")
	}
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, uid string, unreadOnly bool, limit int) (*ListResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	q := s.notificationsCol(uid).OrderBy("createdAt", firestore.Desc).Limit(limit)
	if unreadOnly {
		q = s.notificationsCol(uid).
			Where("read", "==", false).
			OrderBy("createdAt", firestore.Desc).
			Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	notifications := []Notification{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate notifications: %w", err)
		}

		var n Notification
		if err := doc.DataTo(&n); err != nil {
			continue
		}
		n.ID = doc.Ref.ID
		notifications = append(notifications, n)
	}

	unread, err := s.countUnread(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &ListResult{Notifications: notifications, UnreadCount: unread}, nil
}

func (s *Service) countUnread(ctx context.Context, uid string) (int, error) {
	iter := s.notificationsCol(uid).Where("read", "==", false).Select().Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to count unread: %w", err)
		}
		count++
	}
	return count, nil
}

// MarkRead marks the given ids, or all unread when All is set. Returns
// how many documents changed.
func (s *Service) MarkRead(ctx context.Context, uid string, in MarkReadInput) (int, error) {
	in.Trim()

	var refs []*firestore.DocumentRef
	if in.All {
		iter := s.notificationsCol(uid).Where("read", "==", false).Select().Documents(ctx)
		defer iter.Stop()
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return 0, fmt.Errorf("failed to list unread: %w", err)
			}
			refs = append(refs, doc.Ref)
		}
	} else {
		for _, id := range in.IDs {
			refs = append(refs, s.notificationsCol(uid).Doc(id))
		}
	}
	if len(refs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	batch := s.fs.Batch()
	n := 0
	for _, ref := range refs {
		batch.Set(ref, map[string]any{"read": true, "readAt": now}, firestore.MergeAll)
		n++
		if n%batchLimit == 0 {
			if _, err := batch.Commit(ctx); err != nil {
				return 0, fmt.Errorf("failed to mark read: %w", err)
			}
			batch = s.fs.Batch()
		}
	}
	if n%batchLimit != 0 {
		if _, err := batch.Commit(ctx); err != nil {
			return 0, fmt.Errorf("failed to mark read: %w", err)
		}
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, uid, notificationID string) error {
	_, err := s.notificationsCol(uid).Doc(notificationID).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}
