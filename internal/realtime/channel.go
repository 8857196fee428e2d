// Package realtime delivers change notifications for signature rows
// over a persistent channel, filtered by petition id. Subscribers do
// not trust event payloads for counts; they refetch the petition row.
package realtime

import "context"

type EventKind string

const (
	KindInsert EventKind = "INSERT"
	KindUpdate EventKind = "UPDATE"
	KindDelete EventKind = "DELETE"
)

// Event describes one change to a row matching a subscription filter.
type Event struct {
	Kind       EventKind `json:"kind"`
	Table      string    `json:"table"`
	PetitionID string    `json:"petition_id"`
}

// Channel is a subscribe-side view of the notification transport.
type Channel interface {
	// Subscribe registers fn for every event whose petition id matches.
	// Delivery stops when the returned subscription is closed: once
	// Close returns, fn will not be invoked again.
	Subscribe(ctx context.Context, petitionID string, fn func(Event)) (Subscription, error)
}

// Subscription is a handle releasing one channel registration.
// Close must not be called from inside the event handler.
type Subscription interface {
	Close() error
}

// Publisher is the write-side view, used after a row change commits.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
