package petitionform

import (
	"context"
	"fmt"

	"groundswell/api/internal/progress"
	"groundswell/api/internal/store"
)

// Datastore is the write side the creation protocol needs.
type Datastore interface {
	CreatePetition(ctx context.Context, item store.Petition) (store.Petition, error)
}

// CreationError means the insert failed; the form stays populated for
// correction and retry. The insert is atomic, so nothing partial was
// written.
type CreationError struct {
	Err error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("create petition: %v", e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// Protocol persists validated petitions. When snapshots is non-nil the
// stored row becomes the current snapshot, so the share view opens
// without an extra fetch.
type Protocol struct {
	datastore Datastore
	snapshots *progress.Store
}

func NewProtocol(datastore Datastore, snapshots *progress.Store) *Protocol {
	return &Protocol{datastore: datastore, snapshots: snapshots}
}

// Create parses the form and inserts one petition row with a zero
// signature count, returning the stored row with its assigned id.
func (p *Protocol) Create(ctx context.Context, form Form) (store.Petition, error) {
	draft, err := form.Parse()
	if err != nil {
		return store.Petition{}, err
	}

	created, err := p.datastore.CreatePetition(ctx, store.Petition{
		Title:         draft.Title,
		Story:         draft.Story,
		AssessedValue: draft.AssessedValue,
		Goal:          draft.Goal,
	})
	if err != nil {
		return store.Petition{}, &CreationError{Err: err}
	}

	if p.snapshots != nil {
		p.snapshots.Set(created)
	}
	return created, nil
}
