package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the store. A store path beginning with postgres:// or
// postgresql:// selects the Postgres driver; anything else is treated as a
// SQLite file path (file: URIs included).
func Open(storePath string, verbose bool) (*gorm.DB, error) {
	logLevel := logger.Silent
	if verbose {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var (
		conn *gorm.DB
		err  error
	)
	lower := strings.ToLower(storePath)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		conn, err = gorm.Open(postgres.Open(storePath), cfg)
	} else {
		conn, err = gorm.Open(sqlite.Open(storePath), cfg)
		if err == nil {
			// The sqlite driver leaves foreign key enforcement off unless asked.
			err = conn.Exec("PRAGMA foreign_keys = ON").Error
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", storePath, err)
	}
	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("store ping failed: %w", pingErr)
	}
	return conn, nil
}
