package court

import (
	"strings"
	"time"
)

// Court is static reference data. Created by an admin, never mutated by
// the booking engine.
type Court struct {
	ID           string    `firestore:"id" json:"id"`
	Name         string    `firestore:"name" json:"name"`
	NameLower    string    `firestore:"nameLower" json:"nameLower"`
	Surface      string    `firestore:"surface,omitempty" json:"surface,omitempty"`
	SearchTokens []string  `firestore:"searchTokens,omitempty" json:"searchTokens,omitempty"`
	IsActive     bool      `firestore:"isActive" json:"isActive"`
	CreatedBy    string    `firestore:"createdBy" json:"createdBy"`
	CreatedAt    time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// CreateCourtInput represents input for creating a court
type CreateCourtInput struct {
	Name    string `json:"name"`
	Surface string `json:"surface,omitempty"`
}

func (in *CreateCourtInput) Trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Surface = strings.TrimSpace(in.Surface)
}
