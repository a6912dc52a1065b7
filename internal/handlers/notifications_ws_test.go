package handlers

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"anhthoxay/internal/models"
	"anhthoxay/internal/notifications"
)

func dialTestWS(t *testing.T, srv *httptest.Server, path, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + path + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(msg, v); err != nil {
		t.Fatalf("unmarshal %s: %v", msg, err)
	}
}

func TestNotificationsWSDeliversPending(t *testing.T) {
	env := setupTest(t)
	srv := httptest.NewServer(env.r)
	defer srv.Close()

	n := models.Notification{UserID: env.users[models.RoleHomeowner].ID, Type: "escrow.created"}
	if err := env.db.Create(&n).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	conn := dialTestWS(t, srv, "/ws/notifications", env.tokens[models.RoleHomeowner])
	var got models.Notification
	readWS(t, conn, &got)
	if got.ID != n.ID {
		t.Fatalf("unexpected notification %+v", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		var stored models.Notification
		env.db.First(&stored, "id = ?", n.ID)
		if stored.SentAt != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("sent_at not stored")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNotificationsWSBacklogWithConcurrentBroadcasts(t *testing.T) {
	env := setupTest(t)
	srv := httptest.NewServer(env.r)
	defer srv.Close()

	uid := env.users[models.RoleHomeowner].ID
	base := time.Now().Add(-time.Hour)
	backlog := make([]models.Notification, 300)
	for i := range backlog {
		backlog[i] = models.Notification{UserID: uid, Type: fmt.Sprintf("backlog.%03d", i), CreatedAt: base.Add(time.Duration(i) * time.Second)}
	}
	if err := env.db.Create(&backlog).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			env.hub.Broadcast(uid, models.Notification{ID: "live", UserID: uid, Type: "live"})
			time.Sleep(time.Millisecond)
		}
	}()

	conn := dialTestWS(t, srv, "/ws/notifications", env.tokens[models.RoleHomeowner])
	for i := range backlog {
		var got models.Notification
		readWS(t, conn, &got)
		if got.ID != backlog[i].ID {
			close(stop)
			wg.Wait()
			t.Fatalf("message %d: expected backlog %s, got %s (%s)", i, backlog[i].ID, got.ID, got.Type)
		}
	}
	close(stop)
	wg.Wait()

	env.hub.Broadcast(uid, models.Notification{ID: "final", UserID: uid, Type: "final"})
	for {
		var got models.Notification
		readWS(t, conn, &got)
		if got.Type == "final" {
			break
		}
		if got.Type != "live" {
			t.Fatalf("unexpected message after backlog %+v", got)
		}
	}
}

func TestNotificationsWSRequiresToken(t *testing.T) {
	env := setupTest(t)
	srv := httptest.NewServer(env.r)
	defer srv.Close()

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/notifications"
	if _, _, err := websocket.DefaultDialer.Dial(u, nil); err == nil {
		t.Fatalf("expected handshake failure without token")
	}
}

func TestEscrowStatusWS(t *testing.T) {
	env := setupTest(t)
	srv := httptest.NewServer(env.r)
	defer srv.Close()
	esc := env.createEscrow(t, "bid_ws", 400_000_000)

	conn := dialTestWS(t, srv, "/ws/escrows/"+esc.Code+"/status", env.tokens[models.RoleHomeowner])
	var snap EscrowSnapshotEvent
	readWS(t, conn, &snap)
	if snap.Type != "escrow.snapshot" || snap.Escrow.ID != esc.ID || snap.Escrow.Status != "PENDING" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if w := env.do("POST", "/escrows/"+esc.ID+"/confirm", env.tokens[models.RoleAdmin], nil); w.Code != 200 {
		t.Fatalf("confirm status %d", w.Code)
	}
	var ev notifications.EscrowStatusEvent
	readWS(t, conn, &ev)
	if ev.Type != "escrow.status_changed" || ev.FromStatus != "PENDING" || ev.ToStatus != "HELD" || ev.Code != esc.Code {
		t.Fatalf("unexpected status event %+v", ev)
	}
	if ev.Version != snap.Escrow.Version+1 {
		t.Fatalf("expected version %d, got %d", snap.Escrow.Version+1, ev.Version)
	}

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/escrows/" + esc.ID + "/status?token=" + env.otherTok
	if _, _, err := websocket.DefaultDialer.Dial(u, nil); err == nil {
		t.Fatalf("foreign homeowner must not watch the escrow")
	}
}

func TestEscrowStatusWSSnapshotIsCurrent(t *testing.T) {
	env := setupTest(t)
	srv := httptest.NewServer(env.r)
	defer srv.Close()
	esc := env.createEscrow(t, "bid_ws_fresh", 400_000_000)
	admin := env.tokens[models.RoleAdmin]

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		env.do("POST", "/escrows/"+esc.ID+"/confirm", admin, nil)
		for i := 0; i < 20; i++ {
			env.do("POST", "/escrows/"+esc.ID+"/release", admin, ReleaseEscrowRequest{Amount: 1_000_000})
		}
	}()

	conn := dialTestWS(t, srv, "/ws/escrows/"+esc.ID+"/status", env.tokens[models.RoleHomeowner])
	var snap EscrowSnapshotEvent
	readWS(t, conn, &snap)
	if snap.Type != "escrow.snapshot" {
		t.Fatalf("unexpected first message %+v", snap)
	}
	wg.Wait()

	var final EscrowResponse
	decode(t, env.do("GET", "/escrows/"+esc.ID, admin, nil), &final)
	version := snap.Escrow.Version
	for version < final.Version {
		var ev notifications.EscrowStatusEvent
		readWS(t, conn, &ev)
		if ev.Version <= snap.Escrow.Version {
			continue
		}
		if ev.Version != version+1 {
			t.Fatalf("gap in status stream: had version %d, got %d", version, ev.Version)
		}
		version = ev.Version
	}
}
