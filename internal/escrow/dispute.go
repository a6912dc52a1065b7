package escrow

import (
	"fmt"
	"strings"
	"time"
)

// OpenDispute freezes releases pending arbitration. Allowed from HELD and
// PARTIAL_RELEASED only.
func (e *Escrow) OpenDispute(reason, actor string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return InvalidInput("dispute reason is required")
	}
	if e.status != StatusHeld && e.status != StatusPartialReleased {
		return newError(KindInvalidStatusTransition,
			fmt.Sprintf("cannot open dispute on escrow in %s", e.status),
			map[string]string{"from": e.status.String(), "to": StatusDisputed.String()})
	}
	if err := e.transition(StatusDisputed, now); err != nil {
		return err
	}
	e.DisputeReason = reason
	e.DisputedBy = actor
	e.DisputedAt = timePtr(now)
	return nil
}

// ResolveDispute applies the arbitration outcome. RELEASED pays out the whole
// remaining balance; REFUNDED returns it to the homeowner. It returns the amount
// that moved.
func (e *Escrow) ResolveDispute(outcome Status, actor, note string, now time.Time) (int64, error) {
	if e.status != StatusDisputed {
		return 0, newError(KindInvalidStatusTransition,
			fmt.Sprintf("cannot resolve dispute on escrow in %s", e.status),
			map[string]string{"from": e.status.String(), "to": outcome.String()})
	}
	if outcome != StatusReleased && outcome != StatusRefunded {
		return 0, newError(KindInvalidStatusTransition,
			fmt.Sprintf("dispute outcome must be RELEASED or REFUNDED, got %s", outcome),
			map[string]string{"from": e.status.String(), "to": outcome.String()})
	}
	moved := e.Remaining()
	if err := e.transition(outcome, now); err != nil {
		return 0, err
	}
	switch outcome {
	case StatusReleased:
		e.released = e.amount
		e.ReleasedBy = actor
		e.ReleasedAt = timePtr(now)
	case StatusRefunded:
		e.RefundedBy = actor
		e.RefundedAt = timePtr(now)
	}
	e.ResolvedBy = actor
	e.ResolvedAt = timePtr(now)
	e.ResolutionNote = strings.TrimSpace(note)
	return moved, nil
}
