// Package importer performs the one-time migration of a legacy JSON
// snapshot into the relational store. The import is at-most-once: its
// outcome is recorded in the MigrationRecord and the record commits in the
// same transaction as the imported rows, so a crash mid-import simply
// re-runs cleanly on the next startup.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mrobles/facturas/internal/models"
	"github.com/mrobles/facturas/internal/repository"
	"gorm.io/gorm"
)

// Outcome reports what ImportIfNeeded did.
type Outcome struct {
	Applied  bool   // true when this call performed the import
	Result   string // models.ImportSuccess or models.ImportNotApplicable
	Imported int
	Skipped  int
}

// ImportIfNeeded migrates the legacy snapshot at path into the store exactly
// once. A settled MigrationRecord makes it an immediate no-op; a missing
// file settles the record as not-applicable. The legacy file itself is never
// modified or deleted, so skipped rows stay inspectable.
//
// A document that is not a JSON array at the top level fails the whole
// batch and leaves the record unset, so the operator can fix the file and
// restart.
func ImportIfNeeded(path string, repo *repository.Repository, defaultCurrency string) (Outcome, error) {
	if rec, err := repo.MigrationRecord(); err == nil {
		return Outcome{Result: rec.Outcome, Imported: rec.Imported, Skipped: rec.Skipped}, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return Outcome{}, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		rec := models.MigrationRecord{Outcome: models.ImportNotApplicable, RanAt: time.Now()}
		if err := repo.SetMigrationRecord(&rec); err != nil {
			return Outcome{}, err
		}
		log.Printf("no legacy file at %s, import not applicable", path)
		return Outcome{Applied: true, Result: models.ImportNotApplicable}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("read legacy file %s: %w", path, err)
	}

	var entries []map[string]any
	if err := json.Unmarshal(data, &entries); err != nil {
		return Outcome{}, fmt.Errorf("legacy file %s is not a JSON array: %w", path, err)
	}

	var imported, skipped int
	err = repo.WithTx(func(tx *gorm.DB) error {
		imported, skipped = 0, 0
		// Clients are matched by name; legacy identifiers are not trusted
		// and fresh ones are minted by the store.
		clientIDs := map[string]uint{}

		lookup := func(name string) (uint, bool, error) {
			if id, ok := clientIDs[name]; ok {
				return id, true, nil
			}
			c, err := repo.ClientByNameIn(tx, name)
			if errors.Is(err, repository.ErrNotFound) {
				return 0, false, nil
			}
			if err != nil {
				return 0, false, err
			}
			clientIDs[name] = c.ID
			return c.ID, true, nil
		}

		ensureClient := func(name string) (uint, error) {
			id, ok, err := lookup(name)
			if err != nil {
				return 0, err
			}
			if ok {
				return id, nil
			}
			c := models.Client{Name: name}
			if err := repo.CreateClientIn(tx, &c); err != nil {
				return 0, err
			}
			clientIDs[name] = c.ID
			return c.ID, nil
		}

		for i, raw := range entries {
			r, rowErr := parseRow(i, raw, defaultCurrency)
			if rowErr != nil {
				log.Printf("skipping %v", rowErr)
				skipped++
				continue
			}
			switch r.Kind {
			case kindClient:
				// Duplicate names collapse into one client, like the
				// original app's get-or-create on expense types.
				if _, ok, err := lookup(r.Client.Name); err != nil {
					return err
				} else if ok {
					continue
				}
				c := r.Client
				if err := repo.CreateClientIn(tx, &c); err != nil {
					if errors.Is(err, repository.ErrValidation) {
						// Rows the repository rejects are skipped like any
						// other bad row; only store-level failures abort.
						log.Printf("skipping legacy row %d: %v", i, err)
						skipped++
						continue
					}
					return err
				}
				clientIDs[c.Name] = c.ID
				imported++
			case kindInvoice:
				ownerID, err := ensureClient(r.ClientName)
				if err != nil {
					if errors.Is(err, repository.ErrValidation) {
						log.Printf("skipping legacy row %d: %v", i, err)
						skipped++
						continue
					}
					return err
				}
				inv := r.Invoice
				inv.ClientID = ownerID
				if err := repo.CreateInvoiceIn(tx, &inv); err != nil {
					if errors.Is(err, repository.ErrValidation) {
						log.Printf("skipping legacy row %d: %v", i, err)
						skipped++
						continue
					}
					return err
				}
				imported++
			}
		}

		// The marker commits atomically with the rows: either both are
		// durable or neither is.
		return repo.SetMigrationRecordIn(tx, &models.MigrationRecord{
			Outcome:  models.ImportSuccess,
			Imported: imported,
			Skipped:  skipped,
			RanAt:    time.Now(),
		})
	})
	if err != nil {
		// Record left unset on store-level failure: the import retries on
		// the next startup.
		return Outcome{}, fmt.Errorf("legacy import: %w", err)
	}

	log.Printf("legacy import done: %d imported, %d skipped", imported, skipped)
	return Outcome{Applied: true, Result: models.ImportSuccess, Imported: imported, Skipped: skipped}, nil
}
