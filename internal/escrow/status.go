package escrow

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an escrow. The set is closed: values outside
// the declared constants are rejected by Valid and by text unmarshalling.
type Status uint8

const (
	StatusPending Status = iota + 1
	StatusHeld
	StatusPartialReleased
	StatusReleased
	StatusRefunded
	StatusDisputed
	StatusCancelled

	statusEnd
)

var statusNames = [statusEnd]string{
	StatusPending:         "PENDING",
	StatusHeld:            "HELD",
	StatusPartialReleased: "PARTIAL_RELEASED",
	StatusReleased:        "RELEASED",
	StatusRefunded:        "REFUNDED",
	StatusDisputed:        "DISPUTED",
	StatusCancelled:       "CANCELLED",
}

// Statuses lists every status in declaration order.
func Statuses() []Status {
	out := make([]Status, 0, statusEnd-1)
	for s := StatusPending; s < statusEnd; s++ {
		out = append(out, s)
	}
	return out
}

func (s Status) Valid() bool { return s >= StatusPending && s < statusEnd }

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
	return statusNames[s]
}

// Terminal reports whether s has no outgoing transitions.
func (s Status) Terminal() bool {
	return s.Valid() && transitions[s] == 0
}

// ParseStatus converts the wire name of a status.
func ParseStatus(name string) (Status, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for s := StatusPending; s < statusEnd; s++ {
		if statusNames[s] == name {
			return s, nil
		}
	}
	return 0, InvalidInput(fmt.Sprintf("unknown escrow status %q", name))
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid escrow status %d", uint8(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type statusSet uint16

func setOf(ss ...Status) statusSet {
	var out statusSet
	for _, s := range ss {
		out |= 1 << s
	}
	return out
}

func (set statusSet) has(s Status) bool { return set&(1<<s) != 0 }

// transitions is the only definition of the escrow status graph. Terminal
// statuses have an empty set.
var transitions = [statusEnd]statusSet{
	StatusPending:         setOf(StatusHeld, StatusCancelled),
	StatusHeld:            setOf(StatusPartialReleased, StatusReleased, StatusRefunded, StatusDisputed),
	StatusPartialReleased: setOf(StatusReleased, StatusRefunded, StatusDisputed),
	StatusDisputed:        setOf(StatusReleased, StatusRefunded),
	StatusReleased:        0,
	StatusRefunded:        0,
	StatusCancelled:       0,
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	return transitions[from].has(to)
}

// ValidateTransition fails with KindInvalidStatusTransition unless from -> to is allowed.
// Self-transitions are never allowed.
func ValidateTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return newError(KindInvalidStatusTransition,
		fmt.Sprintf("cannot transition escrow from %s to %s", from, to),
		map[string]string{"from": from.String(), "to": to.String()})
}

// NextStatuses returns the statuses reachable from s in one step.
func NextStatuses(s Status) []Status {
	if !s.Valid() {
		return nil
	}
	var out []Status
	for to := StatusPending; to < statusEnd; to++ {
		if transitions[s].has(to) {
			out = append(out, to)
		}
	}
	return out
}
