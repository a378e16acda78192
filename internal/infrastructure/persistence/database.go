package persistence

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vitrina/stockbot/internal/domain/sessionlog"
	"github.com/vitrina/stockbot/internal/infrastructure/config"
)

// Database holds the session log store connection
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the sqlite session log store with a silent logger
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	return NewDatabaseWithLogger(cfg, gormlogger.Default.LogMode(gormlogger.Silent))
}

// NewDatabaseWithLogger opens the sqlite session log store with the given logger
func NewDatabaseWithLogger(cfg *config.DatabaseConfig, logger gormlogger.Interface) (*Database, error) {
	path := cfg.Path
	if path == "" {
		path = "stockbot.db"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                 logger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session log store: %w", err)
	}

	if err := db.AutoMigrate(&sessionlog.SessionRecord{}, &sessionlog.ChatEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session log schema: %w", err)
	}

	return &Database{DB: db}, nil
}

// Close closes the underlying connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the store is reachable
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}
