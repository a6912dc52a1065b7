package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"anhthoxay/internal/metrics"
	"anhthoxay/internal/models"
	"anhthoxay/internal/notifications"
	"anhthoxay/internal/services"
)

// Deps are the collaborators the HTTP layer needs. Redis, Metrics and
// RateLimiter are optional.
type Deps struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Escrows     *services.EscrowService
	Settings    *services.SettingsService
	Evidence    *services.EvidenceService
	Hub         *notifications.Hub
	Metrics     *metrics.Metrics
	RateLimiter *RateLimiter
	// WSOrigins limits browser WebSocket handshakes; empty allows any origin.
	WSOrigins   []string
}

// RegisterRoutes mounts the escrow API on r.
func RegisterRoutes(r *gin.Engine, d Deps) {
	if d.Metrics != nil {
		r.Use(Metrics(d.Metrics))
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	r.GET("/health", Health(d.DB, d.Redis))

	api := r.Group("/")
	if d.RateLimiter != nil {
		api.Use(d.RateLimiter.Unauthenticated())
	}
	api.Use(AuthMiddleware(d.DB))
	if d.RateLimiter != nil {
		api.Use(d.RateLimiter.Middleware())
	}

	anyone := RequireRole(models.RoleAdmin, models.RoleHomeowner, models.RoleContractor)
	parties := RequireRole(models.RoleAdmin, models.RoleHomeowner)
	admin := RequireRole(models.RoleAdmin)

	escrows := api.Group("/escrows")
	escrows.GET("/deposit-preview", anyone, PreviewDeposit(d.Escrows))
	escrows.POST("", parties, CreateEscrow(d.Escrows))
	escrows.GET("", parties, ListEscrows(d.Escrows))
	escrows.GET("/:ref", parties, GetEscrow(d.Escrows))
	escrows.GET("/:ref/events", parties, ListEscrowEvents(d.Escrows))
	escrows.POST("/:ref/confirm", admin, ConfirmEscrow(d.Escrows))
	escrows.POST("/:ref/release", admin, ReleaseEscrow(d.Escrows))
	escrows.POST("/:ref/refund", admin, RefundEscrow(d.Escrows))
	escrows.POST("/:ref/cancel", parties, CancelEscrow(d.Escrows))
	escrows.POST("/:ref/dispute", parties, OpenDispute(d.Escrows))
	escrows.POST("/:ref/dispute/resolve", admin, ResolveDispute(d.Escrows))
	if d.Evidence != nil {
		escrows.POST("/:ref/dispute/evidence", parties, UploadEvidence(d.Escrows, d.Evidence))
		escrows.GET("/:ref/dispute/evidence", parties, ListEvidence(d.Escrows, d.Evidence))
	}

	adm := api.Group("/admin", admin)
	adm.GET("/settings/escrow", GetEscrowPolicy(d.Settings))
	adm.PUT("/settings/escrow", UpdateEscrowPolicy(d.Settings))

	api.GET("/notifications", ListNotifications(d.DB))
	api.PATCH("/notifications/:id/read", ReadNotification(d.DB))
	api.POST("/notifications/read-all", ReadAllNotifications(d.DB))

	if d.Hub != nil {
		upgrader := newUpgrader(d.WSOrigins)
		api.GET("/ws/notifications", NotificationsWS(d.DB, d.Hub, upgrader))
		api.GET("/ws/escrows/:ref/status", parties, EscrowStatusWS(d.Escrows, d.Hub, upgrader))
	}
}
