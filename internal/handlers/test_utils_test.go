package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"anhthoxay/internal/db"
	"anhthoxay/internal/escrow"
	"anhthoxay/internal/logger"
	"anhthoxay/internal/metrics"
	"anhthoxay/internal/models"
	"anhthoxay/internal/notifications"
	"anhthoxay/internal/services"
	"anhthoxay/internal/services/storage"
)

type testEnv struct {
	db       *gorm.DB
	r        *gin.Engine
	escrows  *services.EscrowService
	hub      *notifications.Hub
	storage  *storage.Memory
	metrics  *metrics.Metrics
	limiter  *RateLimiter
	users    map[models.Role]models.User
	tokens   map[models.Role]string
	otherTok string
}

type testOptions struct {
	rps   float64
	burst int
}

// setupTest builds the full router over a private in-memory SQLite database
// with the escrow policy seeded and one user per role, plus a second
// homeowner.
func setupTest(t *testing.T) *testEnv {
	return setupTestWith(t, testOptions{rps: 1000, burst: 1000})
}

func setupTestWith(t *testing.T, opts testOptions) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open(fmt.Sprintf("file:hdl_%s?mode=memory&cache=shared", name), true)
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	policy := escrow.Policy{Percentage: 10, MinAmount: 1_000_000, Currency: "VND"}
	if err := db.SeedBiddingSettings(gdb, policy); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	log := logger.Discard()
	m := metrics.New()
	hub := notifications.NewHub(gdb, log)
	settings := services.NewSettingsService(gdb, nil, log)
	escrows := services.NewEscrowService(db.NewEscrowStore(gdb), settings,
		services.WithNotifier(hub),
		services.WithMetrics(m),
		services.WithLogger(log),
	)
	mem := storage.NewMemory()
	evidence := services.NewEvidenceService(gdb, mem, escrows, 1<<20, 15*time.Minute, log)
	limiter := NewRateLimiter(opts.rps, opts.burst, log)

	r := gin.New()
	RegisterRoutes(r, Deps{
		DB:          gdb,
		Escrows:     escrows,
		Settings:    settings,
		Evidence:    evidence,
		Hub:         hub,
		Metrics:     m,
		RateLimiter: limiter,
	})

	env := &testEnv{
		db:      gdb,
		r:       r,
		escrows: escrows,
		hub:     hub,
		storage: mem,
		metrics: m,
		limiter: limiter,
		users:   make(map[models.Role]models.User),
		tokens:  make(map[models.Role]string),
	}
	for username, role := range map[string]models.Role{
		"admin":      models.RoleAdmin,
		"homeowner":  models.RoleHomeowner,
		"contractor": models.RoleContractor,
	} {
		u, err := db.SeedUser(gdb, username, role)
		if err != nil {
			t.Fatalf("seed user: %v", err)
		}
		tok, err := db.IssueAccessToken(gdb, u.ID, time.Hour)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		env.users[role] = u
		env.tokens[role] = tok
	}
	other, err := db.SeedUser(gdb, "homeowner2", models.RoleHomeowner)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if env.otherTok, err = db.IssueAccessToken(gdb, other.ID, time.Hour); err != nil {
		t.Fatalf("token: %v", err)
	}
	return env
}

// do sends a JSON request as the holder of token.
func (env *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.r.ServeHTTP(w, req)
	return w
}

// createEscrow opens an escrow for the seeded homeowner as admin.
func (env *testEnv) createEscrow(t *testing.T, bidID string, bidPrice int64) EscrowResponse {
	t.Helper()
	w := env.do("POST", "/escrows", env.tokens[models.RoleAdmin], CreateEscrowRequest{
		ProjectID:   "prj_" + bidID,
		BidID:       bidID,
		HomeownerID: env.users[models.RoleHomeowner].ID,
		BidPrice:    bidPrice,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", w.Code, w.Body.String())
	}
	var resp EscrowResponse
	decode(t, w, &resp)
	return resp
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}
