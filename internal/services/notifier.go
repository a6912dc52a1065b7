package services

import (
	"context"

	"anhthoxay/internal/escrow"
)

// EscrowChange is a committed escrow mutation together with its audit event.
type EscrowChange struct {
	Escrow *escrow.Escrow
	Event  escrow.Event
}

// Notifier delivers escrow changes to interested users. It is called after
// the transaction commits; its errors are logged and never undo the change.
type Notifier interface {
	EscrowChanged(ctx context.Context, change EscrowChange) error
}

// PolicySource resolves the current escrow deposit policy.
type PolicySource interface {
	EscrowPolicy(ctx context.Context) (escrow.Policy, error)
}
