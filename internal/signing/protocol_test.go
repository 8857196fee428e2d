package signing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"groundswell/api/internal/progress"
	"groundswell/api/internal/store"
)

type fakeDatastore struct {
	mu                sync.Mutex
	insertSignatureFn func(ctx context.Context, item store.Signature) (store.Signature, error)
	getPetitionFn     func(ctx context.Context, petitionID string) (store.Petition, error)
	inserts           int
	fetches           int
}

func (f *fakeDatastore) InsertSignature(ctx context.Context, item store.Signature) (store.Signature, error) {
	f.mu.Lock()
	f.inserts++
	fn := f.insertSignatureFn
	f.mu.Unlock()
	return fn(ctx, item)
}

func (f *fakeDatastore) GetPetition(ctx context.Context, petitionID string) (store.Petition, error) {
	f.mu.Lock()
	f.fetches++
	fn := f.getPetitionFn
	f.mu.Unlock()
	return fn(ctx, petitionID)
}

func TestSubmitReturnsRefreshedPetition(t *testing.T) {
	datastore := &fakeDatastore{
		insertSignatureFn: func(_ context.Context, item store.Signature) (store.Signature, error) {
			item.ID = "sig-1"
			return item, nil
		},
		getPetitionFn: func(_ context.Context, petitionID string) (store.Petition, error) {
			return store.Petition{ID: petitionID, Goal: 100, SignatureCount: 6}, nil
		},
	}
	snapshots := progress.NewStore()
	protocol := NewProtocol(datastore, snapshots)

	petition, err := protocol.Submit(context.Background(), "pet-1", Signer{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if petition.SignatureCount != 6 {
		t.Fatalf("expected ordinal 6, got %d", petition.SignatureCount)
	}

	// The shared snapshot converges without a separate load.
	got, ok := snapshots.Get()
	if !ok || got.SignatureCount != 6 {
		t.Fatalf("expected snapshot count 6, got %+v ok=%v", got, ok)
	}
}

func TestSubmitValidatesBeforeAnyWrite(t *testing.T) {
	datastore := &fakeDatastore{
		insertSignatureFn: func(_ context.Context, item store.Signature) (store.Signature, error) {
			return item, nil
		},
		getPetitionFn: func(_ context.Context, petitionID string) (store.Petition, error) {
			return store.Petition{ID: petitionID}, nil
		},
	}
	protocol := NewProtocol(datastore, nil)

	cases := []Signer{
		{LastName: "Lovelace", Email: "ada@example.com"},
		{FirstName: "Ada", Email: "ada@example.com"},
		{FirstName: "Ada", LastName: "Lovelace"},
		{FirstName: "  ", LastName: "Lovelace", Email: "ada@example.com"},
	}
	for _, signer := range cases {
		_, err := protocol.Submit(context.Background(), "pet-1", signer)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("expected ValidationError for %+v, got %v", signer, err)
		}
	}
	if datastore.inserts != 0 {
		t.Fatalf("expected no inserts for invalid input, got %d", datastore.inserts)
	}
}

func TestInsertFailureSkipsRefetchAndStore(t *testing.T) {
	boom := errors.New("datastore unreachable")
	datastore := &fakeDatastore{
		insertSignatureFn: func(context.Context, store.Signature) (store.Signature, error) {
			return store.Signature{}, boom
		},
		getPetitionFn: func(_ context.Context, petitionID string) (store.Petition, error) {
			return store.Petition{ID: petitionID}, nil
		},
	}
	snapshots := progress.NewStore()
	protocol := NewProtocol(datastore, snapshots)

	_, err := protocol.Submit(context.Background(), "pet-1", Signer{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
	})
	var submissionErr *SubmissionError
	if !errors.As(err, &submissionErr) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if datastore.fetches != 0 {
		t.Fatalf("expected no refetch after failed insert, got %d", datastore.fetches)
	}
	if _, ok := snapshots.Get(); ok {
		t.Fatal("expected snapshot store unchanged after failed insert")
	}
}

func TestMissingPetitionSurfacesNotFound(t *testing.T) {
	datastore := &fakeDatastore{
		insertSignatureFn: func(context.Context, store.Signature) (store.Signature, error) {
			return store.Signature{}, store.ErrPetitionMissing
		},
		getPetitionFn: func(_ context.Context, petitionID string) (store.Petition, error) {
			return store.Petition{ID: petitionID}, nil
		},
	}
	protocol := NewProtocol(datastore, nil)

	_, err := protocol.Submit(context.Background(), "pet-gone", Signer{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConfirmationFailureIsDistinctFromSubmissionFailure(t *testing.T) {
	boom := errors.New("read timeout")
	datastore := &fakeDatastore{
		insertSignatureFn: func(_ context.Context, item store.Signature) (store.Signature, error) {
			return item, nil
		},
		getPetitionFn: func(context.Context, string) (store.Petition, error) {
			return store.Petition{}, boom
		},
	}
	protocol := NewProtocol(datastore, nil)

	_, err := protocol.Submit(context.Background(), "pet-1", Signer{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
	})
	var confirmationErr *ConfirmationError
	if !errors.As(err, &confirmationErr) {
		t.Fatalf("expected ConfirmationError, got %v", err)
	}
	var submissionErr *SubmissionError
	if errors.As(err, &submissionErr) {
		t.Fatal("confirmation failure must not look like a retryable submission failure")
	}
	if datastore.inserts != 1 {
		t.Fatalf("expected the signature to have been recorded once, got %d inserts", datastore.inserts)
	}
}

func TestConcurrentSubmitsAllRecorded(t *testing.T) {
	// A fake count maintained like the real store: bumped atomically
	// with the insert, then read back by the refetch.
	var mu sync.Mutex
	count := 0
	datastore := &fakeDatastore{}
	datastore.insertSignatureFn = func(_ context.Context, item store.Signature) (store.Signature, error) {
		mu.Lock()
		count++
		mu.Unlock()
		return item, nil
	}
	datastore.getPetitionFn = func(_ context.Context, petitionID string) (store.Petition, error) {
		mu.Lock()
		defer mu.Unlock()
		return store.Petition{ID: petitionID, Goal: 100, SignatureCount: count}, nil
	}
	protocol := NewProtocol(datastore, progress.NewStore())

	const signers = 25
	var wg sync.WaitGroup
	ordinals := make([]int, signers)
	for i := 0; i < signers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			petition, err := protocol.Submit(context.Background(), "pet-1", Signer{
				FirstName: "Signer", LastName: "N", Email: "n@example.com",
			})
			if err != nil {
				t.Errorf("Submit failed: %v", err)
				return
			}
			ordinals[slot] = petition.SignatureCount
		}(i)
	}
	wg.Wait()

	if count != signers {
		t.Fatalf("expected %d recorded signatures, got %d", signers, count)
	}
	for i, ordinal := range ordinals {
		// Each confirmation read includes at least this signer's row.
		if ordinal < 1 || ordinal > signers {
			t.Fatalf("ordinal %d out of range for slot %d", ordinal, i)
		}
	}
}
