package repository

import (
	"errors"
	"fmt"

	"github.com/mrobles/facturas/internal/models"
	"gorm.io/gorm"
)

// MigrationRecord returns the singleton import marker, or ErrNotFound when
// no import has been attempted yet.
func (r *Repository) MigrationRecord() (*models.MigrationRecord, error) {
	var rec models.MigrationRecord
	err := r.read("migration record", 0, func(tx *gorm.DB) error {
		if err := tx.First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("migration record: %w", ErrNotFound)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetMigrationRecord writes the singleton import marker in its own
// transaction. It refuses to overwrite an existing record: the marker is
// written once and never changed.
func (r *Repository) SetMigrationRecord(rec *models.MigrationRecord) error {
	return r.write("migration record", 0, func(tx *gorm.DB) error {
		return r.SetMigrationRecordIn(tx, rec)
	})
}

// SetMigrationRecordIn is the tx-scoped variant used by the importer so the
// marker commits atomically with the imported rows.
func (r *Repository) SetMigrationRecordIn(tx *gorm.DB, rec *models.MigrationRecord) error {
	var count int64
	if err := tx.Model(&models.MigrationRecord{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("migration record already written: %w", ErrValidation)
	}
	rec.ID = 0
	return tx.Create(rec).Error
}
