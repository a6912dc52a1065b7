package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"anhthoxay/internal/escrow"
	"anhthoxay/internal/metrics"
	"anhthoxay/internal/utils"
)

const (
	// SystemActor is recorded for changes made by background jobs.
	SystemActor = "system"

	defaultMaxRetries = 3
	defaultListLimit  = 50
	maxListLimit      = 100
	expireBatchSize   = 100
)

// EscrowService sequences the escrow domain operations against the store. Every
// mutation reads the escrow inside a transaction, applies one domain method,
// writes it back with a version check and appends the audit event.
type EscrowService struct {
	store      escrow.Store
	settings   PolicySource
	notifier   Notifier
	metrics    *metrics.Metrics
	log        logrus.FieldLogger
	maxRetries int
	now        func() time.Time
	newID      func() (string, error)
}

type EscrowOption func(*EscrowService)

func WithNotifier(n Notifier) EscrowOption { return func(s *EscrowService) { s.notifier = n } }

func WithMetrics(m *metrics.Metrics) EscrowOption { return func(s *EscrowService) { s.metrics = m } }

func WithLogger(l logrus.FieldLogger) EscrowOption { return func(s *EscrowService) { s.log = l } }

// WithMaxRetries bounds how many times a mutation is attempted when it keeps
// losing the version check.
func WithMaxRetries(n int) EscrowOption {
	return func(s *EscrowService) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

func WithClock(now func() time.Time) EscrowOption { return func(s *EscrowService) { s.now = now } }

func WithIDGenerator(gen func() (string, error)) EscrowOption {
	return func(s *EscrowService) { s.newID = gen }
}

func NewEscrowService(store escrow.Store, settings PolicySource, opts ...EscrowOption) *EscrowService {
	s := &EscrowService{
		store:      store,
		settings:   settings,
		log:        logrus.StandardLogger(),
		maxRetries: defaultMaxRetries,
		now:        time.Now,
		newID:      utils.GenerateNanoID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams describes the matched bid an escrow is opened for.
type CreateParams struct {
	ProjectID   string
	BidID       string
	HomeownerID string
	BidPrice    int64
	Actor       string
}

// CreateEscrow computes the deposit for the bid and opens a PENDING escrow with
// the next ESC-YYYY-NNN code. One escrow exists per bid.
func (s *EscrowService) CreateEscrow(ctx context.Context, p CreateParams) (*escrow.Escrow, error) {
	const op = "create"
	p.ProjectID = strings.TrimSpace(p.ProjectID)
	p.BidID = strings.TrimSpace(p.BidID)
	p.HomeownerID = strings.TrimSpace(p.HomeownerID)
	if err := requireActor(p.Actor); err != nil {
		return nil, s.fail(op, p.BidID, err)
	}
	if p.BidPrice <= 0 {
		return nil, s.fail(op, p.BidID, escrow.InvalidInput("bid price must be positive"))
	}
	policy, err := s.settings.EscrowPolicy(ctx)
	if err != nil {
		return nil, s.fail(op, p.BidID, err)
	}
	amount, err := escrow.CalculateDeposit(p.BidPrice, policy)
	if err != nil {
		return nil, s.fail(op, p.BidID, err)
	}
	id, err := s.newID()
	if err != nil {
		return nil, s.fail(op, p.BidID, fmt.Errorf("generate escrow id: %w", err))
	}

	var (
		created *escrow.Escrow
		ev      escrow.Event
	)
	err = s.store.Transaction(ctx, func(tx escrow.Tx) error {
		exists, err := tx.ExistsForBid(p.BidID)
		if err != nil {
			return err
		}
		if exists {
			return escrow.Conflict("escrow already exists for bid "+p.BidID, nil)
		}
		now := s.now()
		seq, err := tx.NextCodeSequence(now.Year())
		if err != nil {
			return err
		}
		if seq > escrow.MaxCodeSequence {
			return fmt.Errorf("escrow codes for %d exhausted after %d", now.Year(), escrow.MaxCodeSequence)
		}
		code, err := escrow.FormatCode(now.Year(), seq)
		if err != nil {
			return err
		}
		e, err := escrow.New(escrow.NewParams{
			ID:          id,
			Code:        code,
			ProjectID:   p.ProjectID,
			BidID:       p.BidID,
			HomeownerID: p.HomeownerID,
			Amount:      amount,
			Currency:    policy.Currency,
		}, now)
		if err != nil {
			return err
		}
		if err := tx.Insert(e); err != nil {
			return err
		}
		ev = escrow.Event{
			EscrowID:   e.ID,
			Type:       escrow.EventCreated,
			Amount:     e.Amount(),
			ToStatus:   e.Status(),
			Actor:      p.Actor,
			Note:       fmt.Sprintf("bid price %d, %d%% deposit", p.BidPrice, policy.Percentage),
			Version:    e.Version,
			OccurredAt: now,
		}
		if err := tx.AppendEvent(ev); err != nil {
			return err
		}
		created = e
		return nil
	})
	if err != nil {
		return nil, s.fail(op, p.BidID, err)
	}
	s.committed(ctx, op, created, ev)
	return created, nil
}

// ConfirmHeld records that the homeowner's funds arrived: PENDING -> HELD.
func (s *EscrowService) ConfirmHeld(ctx context.Context, ref, actor string) (*escrow.Escrow, error) {
	return s.mutate(ctx, "confirm", ref, actor, func(e *escrow.Escrow, now time.Time) (escrow.Event, error) {
		if err := e.Confirm(actor, now); err != nil {
			return escrow.Event{}, err
		}
		return escrow.Event{Type: escrow.EventConfirmed, Amount: e.Amount()}, nil
	})
}

// ReleasePartial pays amount out of the remaining balance. The resulting
// status follows from the released total.
func (s *EscrowService) ReleasePartial(ctx context.Context, ref string, amount int64, actor string) (*escrow.Escrow, error) {
	return s.mutate(ctx, "release", ref, actor, func(e *escrow.Escrow, now time.Time) (escrow.Event, error) {
		if err := e.Release(amount, actor, now); err != nil {
			return escrow.Event{}, err
		}
		return escrow.Event{Type: escrow.EventReleased, Amount: amount, Metadata: balances(e)}, nil
	})
}

// Refund returns the remaining balance to the homeowner.
func (s *EscrowService) Refund(ctx context.Context, ref, actor string) (*escrow.Escrow, error) {
	return s.mutate(ctx, "refund", ref, actor, func(e *escrow.Escrow, now time.Time) (escrow.Event, error) {
		refunded, err := e.Refund(actor, now)
		if err != nil {
			return escrow.Event{}, err
		}
		return escrow.Event{Type: escrow.EventRefunded, Amount: refunded, Metadata: balances(e)}, nil
	})
}

func (s *EscrowService) OpenDispute(ctx context.Context, ref, reason, actor string) (*escrow.Escrow, error) {
	return s.mutate(ctx, "dispute", ref, actor, func(e *escrow.Escrow, now time.Time) (escrow.Event, error) {
		if err := e.OpenDispute(reason, actor, now); err != nil {
			return escrow.Event{}, err
		}
		return escrow.Event{Type: escrow.EventDisputeOpened, Note: e.DisputeReason}, nil
	})
}

// ResolveDispute settles a dispute as RELEASED or REFUNDED.
func (s *EscrowService) ResolveDispute(ctx context.Context, ref string, outcome escrow.Status, actor, note string) (*escrow.Escrow, error) {
	return s.mutate(ctx, "resolve", ref, actor, func(e *escrow.Escrow, now time.Time) (escrow.Event, error) {
		moved, err := e.ResolveDispute(outcome, actor, note, now)
		if err != nil {
			return escrow.Event{}, err
		}
		return escrow.Event{Type: escrow.EventDisputeResolved, Amount: moved, Note: e.ResolutionNote, Metadata: balances(e)}, nil
	})
}

func balances(e *escrow.Escrow) map[string]string {
	return map[string]string{
		"released":  strconv.FormatInt(e.ReleasedAmount(), 10),
		"remaining": strconv.FormatInt(e.Remaining(), 10),
	}
}

// Cancel abandons an escrow whose funds never arrived.
func (s *EscrowService) Cancel(ctx context.Context, ref, actor string) (*escrow.Escrow, error) {
	return s.mutate(ctx, "cancel", ref, actor, func(e *escrow.Escrow, now time.Time) (escrow.Event, error) {
		if err := e.Cancel(actor, now); err != nil {
			return escrow.Event{}, err
		}
		return escrow.Event{Type: escrow.EventCancelled}, nil
	})
}

func (s *EscrowService) Get(ctx context.Context, ref string) (*escrow.Escrow, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, escrow.InvalidInput("escrow reference is required")
	}
	return s.store.Get(ctx, ref)
}

// List returns one page of escrows and the total matching the filter.
func (s *EscrowService) List(ctx context.Context, f escrow.Filter) ([]*escrow.Escrow, int64, error) {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.store.List(ctx, f)
}

// Events returns the audit trail of an escrow, oldest first.
func (s *EscrowService) Events(ctx context.Context, ref string) ([]escrow.Event, error) {
	e, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.store.Events(ctx, e.ID)
}

// DepositPreview is what CreateEscrow would hold for a bid under the current
// policy.
type DepositPreview struct {
	BidPrice int64
	Amount   int64
	Policy   escrow.Policy
}

func (s *EscrowService) PreviewDeposit(ctx context.Context, bidPrice int64) (DepositPreview, error) {
	policy, err := s.settings.EscrowPolicy(ctx)
	if err != nil {
		return DepositPreview{}, err
	}
	amount, err := escrow.CalculateDeposit(bidPrice, policy)
	if err != nil {
		return DepositPreview{}, err
	}
	return DepositPreview{BidPrice: bidPrice, Amount: amount, Policy: policy}, nil
}

// ExpirePending cancels PENDING escrows created more than olderThan ago and
// returns how many it cancelled. Escrows confirmed in the meantime are skipped.
func (s *EscrowService) ExpirePending(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, escrow.InvalidInput("pending TTL must be positive")
	}
	ids, err := s.store.PendingBefore(ctx, s.now().Add(-olderThan), expireBatchSize)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, id := range ids {
		if _, err := s.Cancel(ctx, id, SystemActor); err != nil {
			if escrow.IsKind(err, escrow.KindInvalidStatusTransition) || escrow.IsKind(err, escrow.KindNotFound) {
				continue
			}
			return cancelled, err
		}
		cancelled++
	}
	return cancelled, nil
}

// mutate runs apply against the freshly read escrow inside one transaction and
// re-runs the whole cycle when the version check fails, up to maxRetries
// attempts.
func (s *EscrowService) mutate(ctx context.Context, op, ref, actor string, apply func(e *escrow.Escrow, now time.Time) (escrow.Event, error)) (*escrow.Escrow, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, s.fail(op, ref, escrow.InvalidInput("escrow reference is required"))
	}
	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, ref, err)
	}

	var (
		result *escrow.Escrow
		ev     escrow.Event
	)
	for attempt := 1; ; attempt++ {
		err := s.store.Transaction(ctx, func(tx escrow.Tx) error {
			e, err := tx.GetForUpdate(ref)
			if err != nil {
				return err
			}
			from := e.Status()
			now := s.now()
			ev, err = apply(e, now)
			if err != nil {
				return err
			}
			if err := tx.Update(e); err != nil {
				return err
			}
			ev.EscrowID = e.ID
			ev.FromStatus = from
			ev.ToStatus = e.Status()
			ev.Actor = actor
			ev.Version = e.Version
			ev.OccurredAt = now
			if err := tx.AppendEvent(ev); err != nil {
				return err
			}
			result = e
			return nil
		})
		if err == nil {
			break
		}
		if escrow.IsKind(err, escrow.KindConflict) && attempt < s.maxRetries && ctx.Err() == nil {
			s.metrics.ConflictRetry()
			s.log.WithFields(logrus.Fields{"op": op, "ref": ref, "attempt": attempt}).Debug("escrow version conflict, retrying")
			continue
		}
		return nil, s.fail(op, ref, err)
	}
	s.committed(ctx, op, result, ev)
	return result, nil
}

func (s *EscrowService) committed(ctx context.Context, op string, e *escrow.Escrow, ev escrow.Event) {
	from := ""
	if ev.FromStatus.Valid() {
		from = ev.FromStatus.String()
	}
	if ev.FromStatus != ev.ToStatus {
		s.metrics.Transition(from, ev.ToStatus.String())
	}
	if ev.Type == escrow.EventReleased || (ev.Type == escrow.EventDisputeResolved && ev.ToStatus == escrow.StatusReleased) {
		s.metrics.Released(e.Currency, ev.Amount)
	}

	log := s.log.WithFields(logrus.Fields{
		"op":        op,
		"escrow_id": e.ID,
		"code":      e.Code,
		"from":      from,
		"to":        ev.ToStatus.String(),
		"actor":     ev.Actor,
		"amount":    ev.Amount,
	})
	log.Info("escrow updated")

	if s.notifier == nil {
		return
	}
	if err := s.notifier.EscrowChanged(context.WithoutCancel(ctx), EscrowChange{Escrow: e, Event: ev}); err != nil {
		log.WithError(err).Warn("escrow notification failed")
	}
}

func (s *EscrowService) fail(op, ref string, err error) error {
	kind := escrow.KindOf(err)
	s.metrics.OperationError(op, string(kind))
	entry := s.log.WithFields(logrus.Fields{"op": op, "ref": ref, "kind": kind}).WithError(err)
	if kind == escrow.KindUnknown {
		entry.Error("escrow operation failed")
	} else {
		entry.Info("escrow operation rejected")
	}
	return err
}

func requireActor(actor string) error {
	if strings.TrimSpace(actor) == "" {
		return escrow.InvalidInput("actor is required")
	}
	return nil
}
