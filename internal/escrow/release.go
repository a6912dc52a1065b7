package escrow

import (
	"fmt"
	"strconv"
	"time"
)

// Release pays out amount from the held balance. The resulting status is
// derived from the amounts: RELEASED once nothing remains, PARTIAL_RELEASED
// otherwise. Staying in PARTIAL_RELEASED is not a transition.
func (e *Escrow) Release(amount int64, actor string, now time.Time) error {
	if e.status != StatusHeld && e.status != StatusPartialReleased {
		return newError(KindInvalidStatusTransition,
			fmt.Sprintf("cannot release escrow in %s", e.status),
			map[string]string{"from": e.status.String()})
	}
	remaining := e.Remaining()
	if amount <= 0 || amount > remaining {
		return newError(KindInvalidReleaseAmount,
			fmt.Sprintf("release amount %d must be within 1..%d", amount, remaining),
			map[string]string{
				"amount":    strconv.FormatInt(amount, 10),
				"remaining": strconv.FormatInt(remaining, 10),
			})
	}

	next := StatusPartialReleased
	if e.released+amount == e.amount {
		next = StatusReleased
	}
	if next != e.status {
		if err := e.transition(next, now); err != nil {
			return err
		}
	}
	e.released += amount
	e.UpdatedAt = now
	if next == StatusReleased {
		e.ReleasedBy = actor
		e.ReleasedAt = timePtr(now)
	}
	return nil
}
