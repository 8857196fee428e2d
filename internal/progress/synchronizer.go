package progress

import (
	"context"
	"errors"
	"fmt"
	"log"

	"groundswell/api/internal/realtime"
	"groundswell/api/internal/store"
)

// Datastore is the read side the synchronizer needs.
type Datastore interface {
	GetPetition(ctx context.Context, petitionID string) (store.Petition, error)
}

// FetchError reports a failed petition load that was not a missing row.
type FetchError struct {
	PetitionID string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch petition %s: %v", e.PetitionID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Synchronizer keeps a Store's snapshot fresh for one petition id.
type Synchronizer struct {
	datastore Datastore
	channel   realtime.Channel
	snapshots *Store
}

func NewSynchronizer(datastore Datastore, channel realtime.Channel, snapshots *Store) *Synchronizer {
	return &Synchronizer{datastore: datastore, channel: channel, snapshots: snapshots}
}

func (s *Synchronizer) Snapshots() *Store {
	return s.snapshots
}

// Load fetches the petition row and replaces the snapshot. It is
// idempotent: with no intervening writes, repeated loads produce
// identical snapshots. A missing row surfaces as store.ErrNotFound so
// callers can render "petition not found" instead of a transient
// failure.
func (s *Synchronizer) Load(ctx context.Context, petitionID string) error {
	petition, err := s.datastore.GetPetition(ctx, petitionID)
	if errors.Is(err, store.ErrNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return &FetchError{PetitionID: petitionID, Err: err}
	}
	s.snapshots.Set(petition)
	return nil
}

// Subscribe opens a notification subscription for the petition's
// signature changes. Every event triggers a full Load — the count must
// come from the datastore, not from counting events, so bursts of
// overlapping loads are safe: each read is independently authoritative
// and Set is a full replace, so the store converges on whichever load
// resolves last. Close the returned subscription on teardown.
func (s *Synchronizer) Subscribe(ctx context.Context, petitionID string) (realtime.Subscription, error) {
	return s.channel.Subscribe(ctx, petitionID, func(realtime.Event) {
		if err := s.Load(ctx, petitionID); err != nil {
			log.Printf("progress: refetch petition %s: %v", petitionID, err)
		}
	})
}
