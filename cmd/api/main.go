// @title Anh Tho Xay Escrow API
// @version 1.0
// @description Escrow settlement for the contractor marketplace
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"anhthoxay/config"
	"anhthoxay/internal/db"
	"anhthoxay/internal/handlers"
	"anhthoxay/internal/logger"
	"anhthoxay/internal/metrics"
	"anhthoxay/internal/notifications"
	"anhthoxay/internal/services"
	"anhthoxay/internal/services/storage"

	docs "anhthoxay/docs"
)

func main() {
	// 1. Config from .env / environment
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config load failed: %v", err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("logger: %v", err)
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database
	gormDB, err := db.NewDB(cfg.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	if err := db.SeedBiddingSettings(gormDB, cfg.DefaultPolicy()); err != nil {
		log.Fatalf("seed bidding settings failed: %v", err)
	}

	// 3. Optional Redis cache for the settings read path
	var rdb *redis.Client
	var policyCache *services.PolicyCache
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unavailable, settings are read from the database")
		}
		policyCache = services.NewPolicyCache(rdb, cfg.SettingsCacheTTL)
		defer rdb.Close()
	}

	st, err := storage.New(ctx, storage.Options{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	if cfg.MinioEndpoint == "" {
		log.Warn("MINIO_ENDPOINT not set, dispute evidence is kept in memory")
	}

	// 4. Services
	m := metrics.New()
	hub := notifications.NewHub(gormDB, log)
	settings := services.NewSettingsService(gormDB, policyCache, log)
	escrows := services.NewEscrowService(db.NewEscrowStore(gormDB), settings,
		services.WithNotifier(hub),
		services.WithMetrics(m),
		services.WithLogger(log),
		services.WithMaxRetries(cfg.EscrowMaxRetries),
	)
	evidence := services.NewEvidenceService(gormDB, st, escrows, cfg.EvidenceMaxBytes, cfg.EvidenceURLTTL, log)
	limiter := handlers.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)

	if cfg.EscrowPendingTTL > 0 {
		expirer := services.NewPendingExpirer(escrows, cfg.EscrowPendingTTL, cfg.EscrowExpirerInterval, log)
		expirer.Start()
		defer expirer.Stop()
	}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Cleanup(10 * time.Minute)
			case <-ctx.Done():
				return
			}
		}
	}()

	// 5. Router
	docs.SwaggerInfo.BasePath = "/"
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))
	corsCfg := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	}
	corsCfg.AddAllowHeaders("Authorization")
	r.Use(cors.New(corsCfg))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	handlers.RegisterRoutes(r, handlers.Deps{
		DB:          gormDB,
		Redis:       rdb,
		Escrows:     escrows,
		Settings:    settings,
		Evidence:    evidence,
		Hub:         hub,
		Metrics:     m,
		RateLimiter: limiter,
		WSOrigins:   cfg.CORSOrigins,
	})

	// 6. Serve until SIGINT/SIGTERM
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("server stopped")
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Error("request failed")
			return
		}
		entry.Debug("request")
	}
}
