package user

import (
	"strings"
	"time"
)

// Profile is the club-member document under users/{uid}. Created lazily
// on first authenticated request; the client may enrich it afterwards.
type Profile struct {
	UID         string `firestore:"uid" json:"uid"`
	Email       string `firestore:"email,omitempty" json:"email,omitempty"`
	DisplayName string `firestore:"displayName,omitempty" json:"displayName,omitempty"`
	PhoneNumber string `firestore:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`

	// FCMToken is set by the client app on login; empty means no push.
	FCMToken string `firestore:"fcmToken,omitempty" json:"-"`

	IsActive  bool      `firestore:"isActive" json:"isActive"`
	CreatedAt time.Time `firestore:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt time.Time `firestore:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// Name returns the best display label for player rosters.
func (p Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Email
}

// UpdateProfileInput represents input for updating a profile
type UpdateProfileInput struct {
	DisplayName *string `json:"displayName,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	FCMToken    *string `json:"fcmToken,omitempty"`
}

func (in *UpdateProfileInput) Trim() {
	if in.DisplayName != nil {
		*in.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.PhoneNumber != nil {
		*in.PhoneNumber = strings.TrimSpace(*in.PhoneNumber)
	}
	if in.FCMToken != nil {
		*in.FCMToken = strings.TrimSpace(*in.FCMToken)
	}
}
