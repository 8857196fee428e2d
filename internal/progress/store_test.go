package progress

import (
	"sync"
	"testing"
	"time"

	"groundswell/api/internal/store"
)

func TestGetBeforeFirstSet(t *testing.T) {
	s := NewStore()
	if _, ok := s.Get(); ok {
		t.Fatal("expected no snapshot before first Set")
	}
}

func TestSetReplacesWholesale(t *testing.T) {
	s := NewStore()
	s.Set(store.Petition{ID: "pet-1", Title: "Stop Scam X", Goal: 100, SignatureCount: 1})
	s.Set(store.Petition{ID: "pet-1", Title: "Stop Scam X", Goal: 100, SignatureCount: 2})

	got, ok := s.Get()
	if !ok {
		t.Fatal("expected snapshot")
	}
	if got.SignatureCount != 2 || got.Goal != 100 {
		t.Fatalf("expected count=2 goal=100, got count=%d goal=%d", got.SignatureCount, got.Goal)
	}
}

func TestReadersNeverSeeMixedFields(t *testing.T) {
	// Writers alternate between two internally consistent snapshots;
	// a reader must only ever observe one of them, never a blend.
	s := NewStore()
	a := store.Petition{ID: "pet-1", Goal: 100, SignatureCount: 10}
	b := store.Petition{ID: "pet-1", Goal: 200, SignatureCount: 20}
	s.Set(a)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if i%2 == 0 {
				s.Set(a)
			} else {
				s.Set(b)
			}
		}
		close(done)
	}()

	for {
		got, _ := s.Get()
		validA := got.Goal == a.Goal && got.SignatureCount == a.SignatureCount
		validB := got.Goal == b.Goal && got.SignatureCount == b.SignatureCount
		if !validA && !validB {
			t.Fatalf("observed torn snapshot: %+v", got)
		}
		select {
		case <-done:
			wg.Wait()
			return
		default:
		}
	}
}

func TestWatchDeliversLatestSnapshot(t *testing.T) {
	s := NewStore()
	ch, cancel := s.Watch()
	defer cancel()

	s.Set(store.Petition{ID: "pet-1", SignatureCount: 1})
	s.Set(store.Petition{ID: "pet-1", SignatureCount: 2})
	s.Set(store.Petition{ID: "pet-1", SignatureCount: 3})

	// Latest-wins: a slow consumer sees the newest snapshot, not a
	// backlog of stale ones.
	var last store.Petition
	timeout := time.After(time.Second)
	for {
		select {
		case snapshot := <-ch:
			last = snapshot
			if last.SignatureCount == 3 {
				return
			}
		case <-timeout:
			t.Fatalf("expected final count 3, last seen %d", last.SignatureCount)
		}
	}
}

func TestWatchReceivesCurrentOnRegister(t *testing.T) {
	s := NewStore()
	s.Set(store.Petition{ID: "pet-1", SignatureCount: 5})

	ch, cancel := s.Watch()
	defer cancel()

	select {
	case snapshot := <-ch:
		if snapshot.SignatureCount != 5 {
			t.Fatalf("expected count 5, got %d", snapshot.SignatureCount)
		}
	case <-time.After(time.Second):
		t.Fatal("expected immediate snapshot on Watch")
	}
}

func TestWatchCancelStopsDelivery(t *testing.T) {
	s := NewStore()
	ch, cancel := s.Watch()
	cancel()

	s.Set(store.Petition{ID: "pet-1", SignatureCount: 1})

	select {
	case _, open := <-ch:
		if open {
			t.Fatal("expected no delivery after cancel")
		}
	default:
	}
}
