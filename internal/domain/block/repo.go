package block

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

type Repo struct {
	fs *firestore.Client
}

func NewRepo(fs *firestore.Client) *Repo {
	return &Repo{fs: fs}
}

func (r *Repo) blocksCol() *firestore.CollectionRef {
	return r.fs.Collection("blocks")
}

// Create creates a new block
func (r *Repo) Create(ctx context.Context, b Block) (*Block, error) {
	ref := r.blocksCol().NewDoc()
	b.ID = ref.ID

	if _, err := ref.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create block: %w", err)
	}
	return &b, nil
}

// Get retrieves a block by ID
func (r *Repo) Get(ctx context.Context, blockID string) (*Block, error) {
	doc, err := r.blocksCol().Doc(blockID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: block not found", ErrNotFound)
	}

	var b Block
	if err := doc.DataTo(&b); err != nil {
		return nil, fmt.Errorf("failed to parse block: %w", err)
	}
	b.ID = doc.Ref.ID
	return &b, nil
}

// Delete deletes a block
func (r *Repo) Delete(ctx context.Context, blockID string) error {
	if _, err := r.blocksCol().Doc(blockID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}
	return nil
}

// ListForCourtWindow lists blocks for a court overlapping [start, end).
// Firestore allows range filters on a single field, so the end-side of
// the overlap is filtered in memory.
func (r *Repo) ListForCourtWindow(ctx context.Context, courtID string, start, end time.Time) ([]Block, error) {
	iter := r.blocksCol().
		Where("courtId", "==", courtID).
		Where("start", "<", end).
		OrderBy("start", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var blocks []Block
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate blocks: %w", err)
		}

		var b Block
		if err := doc.DataTo(&b); err != nil {
			continue
		}
		if !b.End.After(start) {
			continue
		}
		b.ID = doc.Ref.ID
		blocks = append(blocks, b)
	}

	if blocks == nil {
		blocks = []Block{}
	}
	return blocks, nil
}

// Watch streams the blocks of a court overlapping [start, end) via a
// snapshot listener. The end-side of the overlap is filtered in memory,
// same as ListForCourtWindow.
func (r *Repo) Watch(ctx context.Context, courtID string, start, end time.Time) (<-chan []Block, func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	q := r.blocksCol().
		Where("courtId", "==", courtID).
		Where("start", "<", end).
		OrderBy("start", firestore.Asc)
	snaps := q.Snapshots(ctx)

	out := make(chan []Block, 1)
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
			list := make([]Block, 0, len(docs))
			for _, doc := range docs {
				var b Block
				if err := doc.DataTo(&b); err != nil {
					continue
				}
				if !b.End.After(start) {
					continue
				}
				b.ID = doc.Ref.ID
				list = append(list, b)
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

// DeleteEndedBefore removes blocks whose window ended before cutoff.
// Returns the number of deleted documents.
func (r *Repo) DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	iter := r.blocksCol().Where("end", "<", cutoff).Documents(ctx)
	defer iter.Stop()

	batch := r.fs.Batch()
	count := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to iterate expired blocks: %w", err)
		}

		batch.Delete(doc.Ref)
		count++

		// Firestore batches are capped at 500 writes.
		if count%450 == 0 {
			if _, err := batch.Commit(ctx); err != nil {
				return count, fmt.Errorf("failed to delete expired blocks: %w", err)
			}
			batch = r.fs.Batch()
		}
	}

	if count%450 != 0 {
		if _, err := batch.Commit(ctx); err != nil {
			return count, fmt.Errorf("failed to delete expired blocks: %w", err)
		}
	}
	return count, nil
}
