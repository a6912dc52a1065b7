package main

import (
	"github.com/sirupsen/logrus"

	"anhthoxay/config"
	"anhthoxay/internal/db"
	"anhthoxay/internal/logger"
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

	if _, err := db.NewDB(cfg.DSN); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	log.Info("migration completed")
}
