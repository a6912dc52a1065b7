package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"anhthoxay/internal/escrow"
	"anhthoxay/internal/models"
)

// EscrowStore persists escrows, their audit trail and the code counters
// through gorm.
type EscrowStore struct {
	db *gorm.DB
}

func NewEscrowStore(db *gorm.DB) *EscrowStore {
	return &EscrowStore{db: db}
}

var _ escrow.Store = (*EscrowStore)(nil)

func (s *EscrowStore) Transaction(ctx context.Context, fn func(tx escrow.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&escrowTx{db: tx})
	})
}

func (s *EscrowStore) Get(ctx context.Context, ref string) (*escrow.Escrow, error) {
	return findEscrow(s.db.WithContext(ctx), ref)
}

func (s *EscrowStore) List(ctx context.Context, f escrow.Filter) ([]*escrow.Escrow, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Escrow{})
	if f.Status != 0 {
		q = q.Where("status = ?", f.Status.String())
	}
	if f.ProjectID != "" {
		q = q.Where("project_id = ?", f.ProjectID)
	}
	if f.HomeownerID != "" {
		q = q.Where("homeowner_id = ?", f.HomeownerID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count escrows: %w", err)
	}

	var rows []models.Escrow
	q = q.Order("created_at desc").Order("id")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list escrows: %w", err)
	}

	out := make([]*escrow.Escrow, 0, len(rows))
	for _, row := range rows {
		e, err := fromModel(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, nil
}

func (s *EscrowStore) Events(ctx context.Context, escrowID string) ([]escrow.Event, error) {
	var rows []models.EscrowEvent
	if err := s.db.WithContext(ctx).
		Where("escrow_id = ?", escrowID).
		Order("version asc").Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list escrow events: %w", err)
	}
	out := make([]escrow.Event, 0, len(rows))
	for _, row := range rows {
		ev, err := eventFromModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *EscrowStore) PendingBefore(ctx context.Context, before time.Time, limit int) ([]string, error) {
	var ids []string
	q := s.db.WithContext(ctx).Model(&models.Escrow{}).
		Where("status = ? AND created_at < ?", escrow.StatusPending.String(), before).
		Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("find stale pending escrows: %w", err)
	}
	return ids, nil
}

type escrowTx struct {
	db *gorm.DB
}

func (t *escrowTx) GetForUpdate(ref string) (*escrow.Escrow, error) {
	return findEscrow(t.db.Clauses(clause.Locking{Strength: "UPDATE"}), ref)
}

func (t *escrowTx) ExistsForBid(bidID string) (bool, error) {
	var count int64
	if err := t.db.Model(&models.Escrow{}).Where("bid_id = ?", bidID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check escrow for bid: %w", err)
	}
	return count > 0, nil
}

// NextCodeSequence bumps the year's counter with an upsert so two creators in
// the same year never read the same number.
func (t *escrowTx) NextCodeSequence(year int) (int, error) {
	seq := models.EscrowCodeSequence{Year: year, Counter: 1}
	err := t.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "year"}},
		DoUpdates: clause.Assignments(map[string]any{
			"counter": gorm.Expr("escrow_code_sequences.counter + 1"),
		}),
	}).Create(&seq).Error
	if err != nil {
		return 0, fmt.Errorf("bump escrow code sequence: %w", err)
	}
	if err := t.db.Where("year = ?", year).First(&seq).Error; err != nil {
		return 0, fmt.Errorf("read escrow code sequence: %w", err)
	}
	return seq.Counter, nil
}

func (t *escrowTx) Insert(e *escrow.Escrow) error {
	row := toModel(e)
	row.Version = 1
	if err := t.db.Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return escrow.Conflict("escrow already exists for bid "+e.BidID, err)
		}
		return fmt.Errorf("insert escrow: %w", err)
	}
	e.Version = row.Version
	return nil
}

func (t *escrowTx) Update(e *escrow.Escrow) error {
	s := e.Snapshot()
	res := t.db.Model(&models.Escrow{}).
		Where("id = ? AND version = ?", e.ID, e.Version).
		Updates(map[string]any{
			"released_amount": s.ReleasedAmount,
			"status":          s.Status.String(),
			"confirmed_by":    nullString(s.ConfirmedBy),
			"confirmed_at":    s.ConfirmedAt,
			"released_by":     nullString(s.ReleasedBy),
			"released_at":     s.ReleasedAt,
			"refunded_by":     nullString(s.RefundedBy),
			"refunded_at":     s.RefundedAt,
			"cancelled_by":    nullString(s.CancelledBy),
			"cancelled_at":    s.CancelledAt,
			"dispute_reason":  nullString(s.DisputeReason),
			"disputed_by":     nullString(s.DisputedBy),
			"disputed_at":     s.DisputedAt,
			"resolved_by":     nullString(s.ResolvedBy),
			"resolved_at":     s.ResolvedAt,
			"resolution_note": nullString(s.ResolutionNote),
			"version":         e.Version + 1,
			"updated_at":      s.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update escrow %s: %w", e.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return escrow.Conflict("escrow "+e.Code+" was modified concurrently", nil)
	}
	e.Version++
	return nil
}

func (t *escrowTx) AppendEvent(ev escrow.Event) error {
	row := models.EscrowEvent{
		ID:        ev.ID,
		EscrowID:  ev.EscrowID,
		Type:      string(ev.Type),
		Amount:    ev.Amount,
		ToStatus:  ev.ToStatus.String(),
		Actor:     ev.Actor,
		Note:      nullString(ev.Note),
		Version:   ev.Version,
		CreatedAt: ev.OccurredAt,
	}
	if ev.FromStatus.Valid() {
		row.FromStatus = nullString(ev.FromStatus.String())
	}
	if len(ev.Metadata) > 0 {
		raw, err := json.Marshal(ev.Metadata)
		if err != nil {
			return fmt.Errorf("encode escrow event metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(raw)
	}
	if err := t.db.Create(&row).Error; err != nil {
		return fmt.Errorf("append escrow event: %w", err)
	}
	return nil
}

func findEscrow(q *gorm.DB, ref string) (*escrow.Escrow, error) {
	col := "id"
	if escrow.IsCode(ref) {
		col = "code"
	}
	var row models.Escrow
	if err := q.Where(col+" = ?", ref).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, escrow.NotFound("escrow", ref)
		}
		return nil, fmt.Errorf("load escrow %s: %w", ref, err)
	}
	return fromModel(row)
}

func toModel(e *escrow.Escrow) models.Escrow {
	s := e.Snapshot()
	return models.Escrow{
		ID:             s.ID,
		Code:           s.Code,
		ProjectID:      s.ProjectID,
		BidID:          s.BidID,
		HomeownerID:    s.HomeownerID,
		Amount:         s.Amount,
		ReleasedAmount: s.ReleasedAmount,
		Currency:       s.Currency,
		Status:         s.Status.String(),
		ConfirmedBy:    nullString(s.ConfirmedBy),
		ConfirmedAt:    s.ConfirmedAt,
		ReleasedBy:     nullString(s.ReleasedBy),
		ReleasedAt:     s.ReleasedAt,
		RefundedBy:     nullString(s.RefundedBy),
		RefundedAt:     s.RefundedAt,
		CancelledBy:    nullString(s.CancelledBy),
		CancelledAt:    s.CancelledAt,
		DisputeReason:  nullString(s.DisputeReason),
		DisputedBy:     nullString(s.DisputedBy),
		DisputedAt:     s.DisputedAt,
		ResolvedBy:     nullString(s.ResolvedBy),
		ResolvedAt:     s.ResolvedAt,
		ResolutionNote: nullString(s.ResolutionNote),
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func fromModel(row models.Escrow) (*escrow.Escrow, error) {
	status, err := escrow.ParseStatus(row.Status)
	if err != nil {
		return nil, fmt.Errorf("escrow %s: %w", row.ID, err)
	}
	return escrow.Restore(escrow.Snapshot{
		Escrow: escrow.Escrow{
			ID:             row.ID,
			Code:           row.Code,
			ProjectID:      row.ProjectID,
			BidID:          row.BidID,
			HomeownerID:    row.HomeownerID,
			Currency:       row.Currency,
			ConfirmedBy:    deref(row.ConfirmedBy),
			ConfirmedAt:    row.ConfirmedAt,
			ReleasedBy:     deref(row.ReleasedBy),
			ReleasedAt:     row.ReleasedAt,
			RefundedBy:     deref(row.RefundedBy),
			RefundedAt:     row.RefundedAt,
			CancelledBy:    deref(row.CancelledBy),
			CancelledAt:    row.CancelledAt,
			DisputeReason:  deref(row.DisputeReason),
			DisputedBy:     deref(row.DisputedBy),
			DisputedAt:     row.DisputedAt,
			ResolvedBy:     deref(row.ResolvedBy),
			ResolvedAt:     row.ResolvedAt,
			ResolutionNote: deref(row.ResolutionNote),
			CreatedAt:      row.CreatedAt,
			UpdatedAt:      row.UpdatedAt,
			Version:        row.Version,
		},
		Amount:         row.Amount,
		ReleasedAmount: row.ReleasedAmount,
		Status:         status,
	})
}

func eventFromModel(row models.EscrowEvent) (escrow.Event, error) {
	to, err := escrow.ParseStatus(row.ToStatus)
	if err != nil {
		return escrow.Event{}, fmt.Errorf("escrow event %s: %w", row.ID, err)
	}
	ev := escrow.Event{
		ID:         row.ID,
		EscrowID:   row.EscrowID,
		Type:       escrow.EventType(row.Type),
		Amount:     row.Amount,
		ToStatus:   to,
		Actor:      row.Actor,
		Note:       deref(row.Note),
		Version:    row.Version,
		OccurredAt: row.CreatedAt,
	}
	if row.FromStatus != nil {
		if ev.FromStatus, err = escrow.ParseStatus(*row.FromStatus); err != nil {
			return escrow.Event{}, fmt.Errorf("escrow event %s: %w", row.ID, err)
		}
	}
	if len(row.Metadata) > 0 && string(row.Metadata) != "null" {
		if err := json.Unmarshal(row.Metadata, &ev.Metadata); err != nil {
			return escrow.Event{}, fmt.Errorf("escrow event %s metadata: %w", row.ID, err)
		}
	}
	return ev, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
