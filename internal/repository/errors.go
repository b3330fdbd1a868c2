package repository

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to callers as rejected operations. The store is
// unchanged when any of these come back.
var (
	ErrNotFound             = errors.New("not found")
	ErrReferentialIntegrity = errors.New("client has invoices")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrValidation           = errors.New("validation failed")
)

// StoreIOError wraps a store-level failure with the entity kind and
// identifier it occurred on. The repository retries the operation once
// before returning it; it is fatal for that operation only.
type StoreIOError struct {
	Entity string
	ID     uint
	Err    error
}

func (e *StoreIOError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("store i/o on %s %d: %v", e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("store i/o on %s: %v", e.Entity, e.Err)
}

func (e *StoreIOError) Unwrap() error { return e.Err }

// rejected reports whether err is a caller-facing rejection rather than a
// store-level failure. Rejections are never retried.
func rejected(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrReferentialIntegrity) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrValidation)
}
