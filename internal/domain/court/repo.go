package court

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

type Repo struct {
	fs *firestore.Client
}

func NewRepo(fs *firestore.Client) *Repo {
	return &Repo{fs: fs}
}

func (r *Repo) courtsCol() *firestore.CollectionRef {
	return r.fs.Collection("courts")
}

// Create creates a new court
func (r *Repo) Create(ctx context.Context, c Court) (*Court, error) {
	ref := r.courtsCol().NewDoc()
	c.ID = ref.ID

	if _, err := ref.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create court: %w", err)
	}
	return &c, nil
}

// Get retrieves a court by ID
func (r *Repo) Get(ctx context.Context, courtID string) (*Court, error) {
	doc, err := r.courtsCol().Doc(courtID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: court not found", ErrNotFound)
	}

	var c Court
	if err := doc.DataTo(&c); err != nil {
		return nil, fmt.Errorf("failed to parse court: %w", err)
	}
	c.ID = doc.Ref.ID
	return &c, nil
}

// List lists all active courts ordered by name
func (r *Repo) List(ctx context.Context) ([]Court, error) {
	iter := r.courtsCol().
		Where("isActive", "==", true).
		OrderBy("nameLower", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var courts []Court
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate courts: %w", err)
		}

		var c Court
		if err := doc.DataTo(&c); err != nil {
			continue
		}
		c.ID = doc.Ref.ID
		courts = append(courts, c)
	}

	if courts == nil {
		courts = []Court{}
	}
	return courts, nil
}
