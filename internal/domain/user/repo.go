package user

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const usersCol = "users"

type Repo struct {
	fs *firestore.Client
}

func NewRepo(fs *firestore.Client) *Repo {
	return &Repo{fs: fs}
}

var ErrNotFound = fmt.Errorf("user not found")

func (r *Repo) Get(ctx context.Context, uid string) (*Profile, error) {
	doc, err := r.fs.Collection(usersCol).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var p Profile
	if err := doc.DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}
	if p.UID == "" {
		p.UID = doc.Ref.ID
	}
	return &p, nil
}

// UpsertMinimal creates or refreshes the profile document from the auth
// token. First write activates the user.
func (r *Repo) UpsertMinimal(ctx context.Context, uid, email, displayName string) error {
	now := time.Now().UTC()
	data := map[string]any{
		"uid":       uid,
		"isActive":  true,
		"updatedAt": now,
	}
	if email != "" {
		data["email"] = email
	}
	if displayName != "" {
		data["displayName"] = displayName
	}

	ref := r.fs.Collection(usersCol).Doc(uid)
	if _, err := ref.Get(ctx); status.Code(err) == codes.NotFound {
		data["createdAt"] = now
	}
	_, err := ref.Set(ctx, data, firestore.MergeAll)
	return err
}

func (r *Repo) Update(ctx context.Context, uid string, in UpdateProfileInput) error {
	in.Trim()
	data := map[string]any{"updatedAt": time.Now().UTC()}
	if in.DisplayName != nil {
		data["displayName"] = *in.DisplayName
	}
	if in.PhoneNumber != nil {
		data["phoneNumber"] = *in.PhoneNumber
	}
	if in.FCMToken != nil {
		data["fcmToken"] = *in.FCMToken
	}

	_, err := r.fs.Collection(usersCol).Doc(uid).Set(ctx, data, firestore.MergeAll)
	return err
}

func (r *Repo) SetActive(ctx context.Context, uid string, active bool) error {
	_, err := r.fs.Collection(usersCol).Doc(uid).Set(ctx, map[string]any{
		"isActive":  active,
		"updatedAt": time.Now().UTC(),
	}, firestore.MergeAll)
	return err
}

// ListActiveUserIDs returns the uids of every active profile. Used for
// open-match broadcasts.
func (r *Repo) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	iter := r.fs.Collection(usersCol).
		Where("isActive", "==", true).
		Select().
		Documents(ctx)
	defer iter.Stop()

	var uids []string
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate users: %w", err)
		}
		uids = append(uids, doc.Ref.ID)
	}
	return uids, nil
}
