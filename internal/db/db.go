package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"anhthoxay/internal/models"
)

// Models lists every table owned by the escrow service, in migration order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Token{},
		&models.BiddingSettings{},
		&models.EscrowCodeSequence{},
		&models.Escrow{},
		&models.EscrowEvent{},
		&models.EscrowEvidence{},
		&models.Notification{},
	}
}

// Open connects to the database named by dsn. DSNs starting with "sqlite:" or
// "file:" use the embedded SQLite driver, anything else goes to Postgres.
func Open(dsn string, silent bool) (*gorm.DB, error) {
	cfg := &gorm.Config{TranslateError: true}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	if path, ok := strings.CutPrefix(dsn, "sqlite:"); ok {
		return openSQLite(path, cfg)
	}
	if strings.HasPrefix(dsn, "file:") {
		return openSQLite(dsn, cfg)
	}
	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return db, nil
}

func openSQLite(dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}

// NewDB opens the database and migrates it.
func NewDB(dsn string) (*gorm.DB, error) {
	db, err := Open(dsn, false)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
