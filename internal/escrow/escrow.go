// Package escrow holds the escrow settlement domain: the ledger entity, the
// status graph, the deposit calculator, partial releases and disputes.
//
// The entity keeps its amount, released amount and status unexported. They
// change only through the lifecycle methods, each of which validates against the
// current state before touching anything, so a failed call leaves the escrow as
// it was.
package escrow

import (
	"fmt"
	"strings"
	"time"
)

// Escrow is one custodial hold against a matched bid.
type Escrow struct {
	ID          string
	Code        string
	ProjectID   string
	BidID       string
	HomeownerID string
	Currency    string

	amount   int64
	released int64
	status   Status

	ConfirmedBy    string
	ConfirmedAt    *time.Time
	ReleasedBy     string
	ReleasedAt     *time.Time
	RefundedBy     string
	RefundedAt     *time.Time
	CancelledBy    string
	CancelledAt    *time.Time
	DisputeReason  string
	DisputedBy     string
	DisputedAt     *time.Time
	ResolvedBy     string
	ResolvedAt     *time.Time
	ResolutionNote string

	CreatedAt time.Time
	UpdatedAt time.Time
	// Version is the optimistic-concurrency counter of the persisted row.
	Version int64
}

// NewParams describes an escrow to open for a matched bid.
type NewParams struct {
	ID          string
	Code        string
	ProjectID   string
	BidID       string
	HomeownerID string
	Amount      int64
	Currency    string
}

// New opens an escrow in PENDING.
func New(p NewParams, now time.Time) (*Escrow, error) {
	for field, v := range map[string]string{
		"id": p.ID, "projectId": p.ProjectID, "bidId": p.BidID,
		"homeownerId": p.HomeownerID, "currency": p.Currency,
	} {
		if strings.TrimSpace(v) == "" {
			return nil, InvalidInput(field + " is required")
		}
	}
	if _, _, err := ParseCode(p.Code); err != nil {
		return nil, err
	}
	if p.Amount <= 0 {
		return nil, InvalidInput("escrow amount must be positive")
	}
	return &Escrow{
		ID:          p.ID,
		Code:        p.Code,
		ProjectID:   p.ProjectID,
		BidID:       p.BidID,
		HomeownerID: p.HomeownerID,
		Currency:    p.Currency,
		amount:      p.Amount,
		status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Snapshot is the flat persisted form of an escrow.
type Snapshot struct {
	Escrow
	Amount         int64
	ReleasedAmount int64
	Status         Status
}

// Snapshot copies the escrow into its persisted form.
func (e *Escrow) Snapshot() Snapshot {
	return Snapshot{Escrow: *e, Amount: e.amount, ReleasedAmount: e.released, Status: e.status}
}

// Restore rebuilds an escrow from storage, rejecting rows that break the
// amount invariant or carry an unknown status.
func Restore(s Snapshot) (*Escrow, error) {
	if !s.Status.Valid() {
		return nil, fmt.Errorf("restore escrow %s: invalid status %d", s.ID, uint8(s.Status))
	}
	if s.Amount <= 0 || s.ReleasedAmount < 0 || s.ReleasedAmount > s.Amount {
		return nil, fmt.Errorf("restore escrow %s: released %d outside 0..%d", s.ID, s.ReleasedAmount, s.Amount)
	}
	e := s.Escrow
	e.amount = s.Amount
	e.released = s.ReleasedAmount
	e.status = s.Status
	return &e, nil
}

func (e *Escrow) Amount() int64         { return e.amount }
func (e *Escrow) ReleasedAmount() int64 { return e.released }
func (e *Escrow) Status() Status        { return e.status }

// Remaining is the balance still held: Amount() - ReleasedAmount().
func (e *Escrow) Remaining() int64 { return e.amount - e.released }

// transition is the single place status is assigned.
func (e *Escrow) transition(to Status, now time.Time) error {
	if err := ValidateTransition(e.status, to); err != nil {
		return err
	}
	e.status = to
	e.UpdatedAt = now
	return nil
}

// Confirm records receipt of the homeowner's funds: PENDING -> HELD.
func (e *Escrow) Confirm(actor string, now time.Time) error {
	if err := e.transition(StatusHeld, now); err != nil {
		return err
	}
	e.ConfirmedBy = actor
	e.ConfirmedAt = timePtr(now)
	return nil
}

// Cancel abandons an escrow whose funds never arrived: PENDING -> CANCELLED.
func (e *Escrow) Cancel(actor string, now time.Time) error {
	if err := e.transition(StatusCancelled, now); err != nil {
		return err
	}
	e.CancelledBy = actor
	e.CancelledAt = timePtr(now)
	return nil
}

// Refund returns the remaining balance to the homeowner:
// HELD|PARTIAL_RELEASED -> REFUNDED. Disputed escrows are refunded through
// ResolveDispute. It returns the refunded amount.
func (e *Escrow) Refund(actor string, now time.Time) (int64, error) {
	if e.status != StatusHeld && e.status != StatusPartialReleased {
		return 0, newError(KindInvalidStatusTransition,
			fmt.Sprintf("cannot refund escrow in %s", e.status),
			map[string]string{"from": e.status.String(), "to": StatusRefunded.String()})
	}
	refunded := e.Remaining()
	if err := e.transition(StatusRefunded, now); err != nil {
		return 0, err
	}
	e.RefundedBy = actor
	e.RefundedAt = timePtr(now)
	return refunded, nil
}

func timePtr(t time.Time) *time.Time { return &t }
