package block

import (
	"strings"
	"time"

	"court-manager/backend/internal/utils"
)

// BlockType mirrors the non-regular template activity kinds.
type BlockType string

const (
	TypeSchool     BlockType = "school"
	TypeIndividual BlockType = "individual"
	TypeBlocked    BlockType = "blocked"
)

var ValidTypes = []BlockType{TypeSchool, TypeIndividual, TypeBlocked}

func IsValidType(t string) bool {
	for _, v := range ValidTypes {
		if string(v) == t {
			return true
		}
	}
	return false
}

// Block is a one-off administrative override removing bookability from
// part of a day. Created by an admin; removed by an admin or by the
// background sweep once it is a week old.
type Block struct {
	ID          string    `firestore:"id" json:"id"`
	CourtID     string    `firestore:"courtId" json:"courtId"`
	Type        BlockType `firestore:"type" json:"type"`
	Title       string    `firestore:"title" json:"title"`
	Start       time.Time `firestore:"start" json:"start"`
	End         time.Time `firestore:"end" json:"end"`
	IsRecurring bool      `firestore:"isRecurring" json:"isRecurring"`
	CreatedBy   string    `firestore:"createdBy" json:"createdBy"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`
}

// Overlaps reports whether the block covers any part of the half-open
// interval [start, end).
func (b Block) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && end.After(b.Start)
}

// CreateBlockInput represents input for creating a block
type CreateBlockInput struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Start string `json:"start"` // RFC3339 or "YYYY-MM-DD HH:MM:SS"
	End   string `json:"end"`
}

func (in *CreateBlockInput) Trim() {
	in.Type = strings.TrimSpace(in.Type)
	in.Title = utils.TrimMax(in.Title, 120)
	in.Start = strings.TrimSpace(in.Start)
	in.End = strings.TrimSpace(in.End)
}
