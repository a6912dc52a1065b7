package escrow

import (
	"context"
	"time"
)

// EventType names an entry of the escrow audit trail.
type EventType string

const (
	EventCreated         EventType = "CREATED"
	EventConfirmed       EventType = "CONFIRMED"
	EventReleased        EventType = "RELEASED"
	EventRefunded        EventType = "REFUNDED"
	EventDisputeOpened   EventType = "DISPUTE_OPENED"
	EventDisputeResolved EventType = "DISPUTE_RESOLVED"
	EventCancelled       EventType = "CANCELLED"
)

// Event is one append-only audit entry. Amount is the money the event moved;
// Version is the escrow version the event produced. FromStatus is zero for
// EventCreated. Metadata holds the balances after money moved.
type Event struct {
	ID         string
	EscrowID   string
	Type       EventType
	Amount     int64
	FromStatus Status
	ToStatus   Status
	Actor      string
	Note       string
	Version    int64
	Metadata   map[string]string
	OccurredAt time.Time
}

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	Status      Status
	ProjectID   string
	HomeownerID string
	Limit       int
	Offset      int
}

// Store is the persistence collaborator. Transaction runs fn inside one
// database transaction; returning an error rolls everything back.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Tx) error) error
	Get(ctx context.Context, ref string) (*Escrow, error)
	List(ctx context.Context, f Filter) ([]*Escrow, int64, error)
	Events(ctx context.Context, escrowID string) ([]Event, error)
	PendingBefore(ctx context.Context, before time.Time, limit int) ([]string, error)
}

// Tx is the transactional view used by mutations. GetForUpdate reads the
// freshest row by id or code, locking it where the database supports it.
// Update writes only if the row still has e.Version and then bumps it; a lost
// race returns a KindConflict error.
type Tx interface {
	GetForUpdate(ref string) (*Escrow, error)
	ExistsForBid(bidID string) (bool, error)
	NextCodeSequence(year int) (int, error)
	Insert(e *Escrow) error
	Update(e *Escrow) error
	AppendEvent(ev Event) error
}
