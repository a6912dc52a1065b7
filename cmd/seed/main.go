package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"anhthoxay/config"
	"anhthoxay/internal/db"
	"anhthoxay/internal/logger"
	"anhthoxay/internal/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config load failed: %v", err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("logger: %v", err)
	}

	gormDB, err := db.NewDB(cfg.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	if err := db.SeedBiddingSettings(gormDB, cfg.DefaultPolicy()); err != nil {
		log.Fatalf("seed bidding settings failed: %v", err)
	}
	log.Info("bidding settings seeded")

	admin, err := db.SeedUser(gormDB, cfg.SeedAdminUsername, models.RoleAdmin)
	if err != nil {
		log.Fatalf("seed admin failed: %v", err)
	}
	token, err := db.IssueAccessToken(gormDB, admin.ID, cfg.SeedTokenTTL)
	if err != nil {
		log.Fatalf("issue token failed: %v", err)
	}
	log.WithField("username", admin.Username).Info("admin ready")
	fmt.Println(token)
}
