// Package notifications fans escrow changes out to users: an in-app
// notification row for the homeowner, pushed over the user's WebSocket
// connections, and a status event for every socket watching the escrow.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"anhthoxay/internal/escrow"
	"anhthoxay/internal/models"
	"anhthoxay/internal/services"
)

// EscrowStatusEvent is pushed to escrow watchers and stored as the payload of
// escrow notifications. Type is always `escrow.status_changed` on the status
// stream. Version is the escrow version the change produced.
type EscrowStatusEvent struct {
	Type           string    `json:"type" example:"escrow.status_changed"`
	EscrowID       string    `json:"escrowId"`
	Code           string    `json:"code" example:"ESC-2026-001"`
	Event          string    `json:"event" example:"RELEASED"`
	FromStatus     string    `json:"fromStatus,omitempty" example:"HELD"`
	ToStatus       string    `json:"toStatus" example:"PARTIAL_RELEASED"`
	Amount         int64     `json:"amount"`
	EscrowAmount   int64     `json:"escrowAmount"`
	ReleasedAmount int64     `json:"releasedAmount"`
	Remaining      int64     `json:"remaining"`
	Currency       string    `json:"currency" example:"VND"`
	Actor          string    `json:"actor"`
	Version        int64     `json:"version"`
	OccurredAt     time.Time `json:"occurredAt"`
}

const statusChangedType = "escrow.status_changed"

// Hub tracks open WebSocket connections per user and per watched escrow.
type Hub struct {
	db  *gorm.DB
	log logrus.FieldLogger

	mu      sync.Mutex
	users   map[string]map[*websocket.Conn]bool
	escrows map[string]map[*websocket.Conn]bool
}

var _ services.Notifier = (*Hub)(nil)

func NewHub(db *gorm.DB, log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		db:      db,
		log:     log,
		users:   make(map[string]map[*websocket.Conn]bool),
		escrows: make(map[string]map[*websocket.Conn]bool),
	}
}

func addConn(m map[string]map[*websocket.Conn]bool, key string, conn *websocket.Conn) {
	conns, ok := m[key]
	if !ok {
		conns = make(map[*websocket.Conn]bool)
		m[key] = conns
	}
	conns[conn] = true
}

func removeConn(m map[string]map[*websocket.Conn]bool, key string, conn *websocket.Conn) {
	if conns, ok := m[key]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(m, key)
		}
	}
}

// AddClient writes backlog to conn and registers it as a notification socket
// of the user. Both happen under the hub lock, so a concurrent Broadcast never
// writes to conn at the same time and never overtakes the backlog.
func (h *Hub) AddClient(userID string, conn *websocket.Conn, backlog ...models.Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, n := range backlog {
		if err := h.send(conn, n); err != nil {
			return err
		}
	}
	addConn(h.users, userID, conn)
	return nil
}

func (h *Hub) RemoveClient(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	removeConn(h.users, userID, conn)
}

// WatchEscrow registers a socket on the status stream of one escrow. A non-nil
// greeting is built and written while the hub is locked. Changes are pushed
// after commit under the same lock, so the greeting reflects every change
// that will not be pushed to conn.
func (h *Hub) WatchEscrow(escrowID string, conn *websocket.Conn, greeting func() (any, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if greeting != nil {
		msg, err := greeting()
		if err != nil {
			return err
		}
		if err := conn.WriteJSON(msg); err != nil {
			return err
		}
	}
	addConn(h.escrows, escrowID, conn)
	return nil
}

func (h *Hub) UnwatchEscrow(escrowID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	removeConn(h.escrows, escrowID, conn)
}

// send writes n to conn and stamps its SentAt. Callers hold h.mu.
func (h *Hub) send(conn *websocket.Conn, n models.Notification) error {
	if err := conn.WriteJSON(n); err != nil {
		return err
	}
	now := time.Now()
	return h.db.Model(&models.Notification{}).Where("id = ?", n.ID).Update("sent_at", now).Error
}

// Broadcast pushes n to every socket of the user, dropping dead ones.
func (h *Hub) Broadcast(userID string, n models.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.users[userID] {
		if err := h.send(c, n); err != nil {
			c.Close()
			removeConn(h.users, userID, c)
		}
	}
}

// BroadcastEscrowStatus pushes ev to every socket watching the escrow.
func (h *Hub) BroadcastEscrowStatus(ev EscrowStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.escrows[ev.EscrowID] {
		if err := c.WriteJSON(ev); err != nil {
			c.Close()
			removeConn(h.escrows, ev.EscrowID, c)
		}
	}
}

// EscrowChanged stores a notification for the homeowner and pushes it, then
// updates the escrow's status watchers.
func (h *Hub) EscrowChanged(ctx context.Context, change services.EscrowChange) error {
	ev := NewEscrowStatusEvent(change)
	h.BroadcastEscrowStatus(ev)

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	escrowID := change.Escrow.ID
	n := models.Notification{
		UserID:   change.Escrow.HomeownerID,
		EscrowID: &escrowID,
		Type:     NotificationType(change.Event.Type),
		Payload:  payload,
	}
	if err := h.db.WithContext(ctx).Create(&n).Error; err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	h.Broadcast(n.UserID, n)
	return nil
}

// NotificationType names the notification stored for an escrow event, e.g.
// escrow.dispute_opened.
func NotificationType(t escrow.EventType) string {
	return "escrow." + strings.ToLower(string(t))
}

func NewEscrowStatusEvent(change services.EscrowChange) EscrowStatusEvent {
	e, ev := change.Escrow, change.Event
	out := EscrowStatusEvent{
		Type:           statusChangedType,
		EscrowID:       e.ID,
		Code:           e.Code,
		Event:          string(ev.Type),
		ToStatus:       ev.ToStatus.String(),
		Amount:         ev.Amount,
		EscrowAmount:   e.Amount(),
		ReleasedAmount: e.ReleasedAmount(),
		Remaining:      e.Remaining(),
		Currency:       e.Currency,
		Actor:          ev.Actor,
		Version:        ev.Version,
		OccurredAt:     ev.OccurredAt,
	}
	if ev.FromStatus.Valid() {
		out.FromStatus = ev.FromStatus.String()
	}
	return out
}
