package schedule

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

type Repo struct {
	fs *firestore.Client
}

func NewRepo(fs *firestore.Client) *Repo {
	return &Repo{fs: fs}
}

func (r *Repo) templatesCol() *firestore.CollectionRef {
	return r.fs.Collection("slotTemplates")
}

// Create creates a new slot template
func (r *Repo) Create(ctx context.Context, t SlotTemplate) (*SlotTemplate, error) {
	ref := r.templatesCol().NewDoc()
	t.ID = ref.ID

	if _, err := ref.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create slot template: %w", err)
	}
	return &t, nil
}

// Get retrieves a slot template by ID
func (r *Repo) Get(ctx context.Context, templateID string) (*SlotTemplate, error) {
	doc, err := r.templatesCol().Doc(templateID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: slot template not found", ErrNotFound)
	}

	var t SlotTemplate
	if err := doc.DataTo(&t); err != nil {
		return nil, fmt.Errorf("failed to parse slot template: %w", err)
	}
	t.ID = doc.Ref.ID
	return &t, nil
}

// Update updates a slot template
func (r *Repo) Update(ctx context.Context, templateID string, updates map[string]interface{}) (*SlotTemplate, error) {
	ref := r.templatesCol().Doc(templateID)

	if _, err := ref.Set(ctx, updates, firestore.MergeAll); err != nil {
		return nil, fmt.Errorf("failed to update slot template: %w", err)
	}
	return r.Get(ctx, templateID)
}

// Delete deletes a slot template
func (r *Repo) Delete(ctx context.Context, templateID string) error {
	if _, err := r.templatesCol().Doc(templateID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete slot template: %w", err)
	}
	return nil
}

// ListForCourt lists all templates for a court, ordered by day and start
func (r *Repo) ListForCourt(ctx context.Context, courtID string) ([]SlotTemplate, error) {
	q := r.templatesCol().
		Where("courtId", "==", courtID).
		OrderBy("dayOfWeek", firestore.Asc).
		OrderBy("startTime", firestore.Asc)

	return r.collect(q.Documents(ctx))
}

// ListForCourtDay lists active templates for a court/day-of-week
func (r *Repo) ListForCourtDay(ctx context.Context, courtID string, dayOfWeek int) ([]SlotTemplate, error) {
	q := r.templatesCol().
		Where("courtId", "==", courtID).
		Where("dayOfWeek", "==", dayOfWeek).
		Where("isActive", "==", true).
		OrderBy("startTime", firestore.Asc)

	return r.collect(q.Documents(ctx))
}

// Watch streams the active templates of a court/day-of-week via a
// snapshot listener.
func (r *Repo) Watch(ctx context.Context, courtID string, dayOfWeek int) (<-chan []SlotTemplate, func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	q := r.templatesCol().
		Where("courtId", "==", courtID).
		Where("dayOfWeek", "==", dayOfWeek).
		Where("isActive", "==", true).
		OrderBy("startTime", firestore.Asc)
	snaps := q.Snapshots(ctx)

	out := make(chan []SlotTemplate, 1)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			snaps.Stop()
		})
	}

	go func() {
		defer close(out)
		for {
			qs, err := snaps.Next()
			if err != nil {
				return
			}
			docs, err := qs.Documents.GetAll()
			if err != nil {
				continue
			}
			list := make([]SlotTemplate, 0, len(docs))
			for _, doc := range docs {
				var t SlotTemplate
				if err := doc.DataTo(&t); err != nil {
					continue
				}
				t.ID = doc.Ref.ID
				list = append(list, t)
			}
			// Latest snapshot wins over an unconsumed one.
			select {
			case <-out:
			default:
			}
			select {
			case out <- list:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, stop, nil
}

func (r *Repo) collect(iter *firestore.DocumentIterator) ([]SlotTemplate, error) {
	defer iter.Stop()

	var templates []SlotTemplate
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate slot templates: %w", err)
		}

		var t SlotTemplate
		if err := doc.DataTo(&t); err != nil {
			continue
		}
		t.ID = doc.Ref.ID
		templates = append(templates, t)
	}

	if templates == nil {
		templates = []SlotTemplate{}
	}
	return templates, nil
}
