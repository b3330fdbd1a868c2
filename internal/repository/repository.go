package repository

import (
	"log"
	"sync"

	"gorm.io/gorm"
)

// Repository is the only component that reads or writes the store. Each call
// runs in its own transaction unless batched through WithTx, and every
// successful write is committed before the call returns. Writes are
// serialized with a mutex so an unexpected concurrent caller (a background
// autosave, say) cannot interleave with a foreground edit.
type Repository struct {
	db *gorm.DB
	mu sync.Mutex
}

func New(db *gorm.DB) *Repository { return &Repository{db: db} }

// WithTx runs fn inside a single transaction, serialized with all other
// writes. The legacy importer uses it to batch its whole import.
func (r *Repository) WithTx(fn func(tx *gorm.DB) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Transaction(fn)
}

// write runs fn in its own transaction, retrying once on store-level
// failures. Rejections (not-found, integrity, transition, validation) come
// back as-is and are never retried.
func (r *Repository) write(entity string, id uint, fn func(tx *gorm.DB) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.db.Transaction(fn)
	if err == nil || rejected(err) {
		return err
	}
	log.Printf("store error on %s, retrying once: %v", entity, err)
	if err = r.db.Transaction(fn); err == nil {
		return nil
	}
	if rejected(err) {
		return err
	}
	return &StoreIOError{Entity: entity, ID: id, Err: err}
}

// read runs fn against the store, retrying once on store-level failures.
func (r *Repository) read(entity string, id uint, fn func(tx *gorm.DB) error) error {
	err := fn(r.db)
	if err == nil || rejected(err) {
		return err
	}
	log.Printf("store error on %s, retrying once: %v", entity, err)
	if err = fn(r.db); err == nil {
		return nil
	}
	if rejected(err) {
		return err
	}
	return &StoreIOError{Entity: entity, ID: id, Err: err}
}
