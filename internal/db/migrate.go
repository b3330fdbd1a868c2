package db

import (
	"errors"
	"fmt"

	"github.com/mrobles/facturas/internal/models"
	"gorm.io/gorm"
)

// SchemaError wraps any failure that leaves the schema unusable. It is
// fatal: callers abort startup rather than retry.
type SchemaError struct {
	Version int
	Err     error
}

func (e *SchemaError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("schema migration to version %d: %v", e.Version, e.Err)
	}
	return fmt.Sprintf("schema setup: %v", e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// migrations is the ordered list of forward-only schema steps. Step i
// migrates the store from version i to version i+1. Steps are appended,
// never reordered or removed.
var migrations = []func(tx *gorm.DB) error{
	// v1: initial schema.
	func(tx *gorm.DB) error {
		return tx.AutoMigrate(
			&models.Client{},
			&models.Invoice{},
			&models.LineItem{},
			&models.MigrationRecord{},
		)
	},
}

// CurrentVersion is the schema version this binary expects.
func CurrentVersion() int { return len(migrations) }

// EnsureSchema brings the store to the current schema version and returns
// it. All pending steps run inside one transaction: either the store ends at
// the target version or it stays at the version it already had. Calling it
// again on an up-to-date store is a no-op.
func EnsureSchema(conn *gorm.DB) (int, error) {
	target := len(migrations)

	if err := conn.AutoMigrate(&models.SchemaVersion{}); err != nil {
		return 0, &SchemaError{Err: err}
	}

	var sv models.SchemaVersion
	err := conn.First(&sv).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sv = models.SchemaVersion{Version: 0}
		if err := conn.Create(&sv).Error; err != nil {
			return 0, &SchemaError{Err: err}
		}
	case err != nil:
		return 0, &SchemaError{Err: err}
	}

	if sv.Version > target {
		return sv.Version, &SchemaError{
			Version: sv.Version,
			Err:     fmt.Errorf("store is at version %d but this build only knows %d", sv.Version, target),
		}
	}
	if sv.Version == target {
		return sv.Version, nil
	}

	err = conn.Transaction(func(tx *gorm.DB) error {
		for v := sv.Version; v < target; v++ {
			if err := migrations[v](tx); err != nil {
				return &SchemaError{Version: v + 1, Err: err}
			}
		}
		return tx.Model(&models.SchemaVersion{}).Where("id = ?", sv.ID).Update("version", target).Error
	})
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			return sv.Version, se
		}
		return sv.Version, &SchemaError{Version: target, Err: err}
	}
	return target, nil
}
