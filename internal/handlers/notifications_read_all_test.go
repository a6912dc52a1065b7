package handlers

import (
	"net/http"
	"testing"
	"time"

	"anhthoxay/internal/models"
)

func TestReadAllNotifications(t *testing.T) {
	env := setupTest(t)
	userID := env.users[models.RoleHomeowner].ID
	read := time.Now()
	env.db.Create(&models.Notification{UserID: userID, Type: "escrow.created"})
	env.db.Create(&models.Notification{UserID: userID, Type: "escrow.confirmed"})
	env.db.Create(&models.Notification{UserID: userID, Type: "escrow.released", ReadAt: &read})
	env.db.Create(&models.Notification{UserID: env.users[models.RoleAdmin].ID, Type: "escrow.created"})

	w := env.do("POST", "/notifications/read-all", env.tokens[models.RoleHomeowner], nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var resp NotificationsReadAllResponse
	decode(t, w, &resp)
	if resp.Count != 2 {
		t.Fatalf("expected 2 updated, got %d", resp.Count)
	}
	var unread int64
	env.db.Model(&models.Notification{}).Where("read_at IS NULL").Count(&unread)
	if unread != 1 {
		t.Fatalf("expected only the admin notification unread, got %d", unread)
	}
}
