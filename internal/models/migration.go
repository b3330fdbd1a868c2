package models

import "time"

// Migration record outcomes.
const (
	ImportSuccess       = "success"
	ImportNotApplicable = "not-applicable"
)

// MigrationRecord marks whether the one-time legacy JSON import has run and
// how it went. At most one row ever exists and it is never deleted, so the
// outcome survives restarts and can be inspected after the fact.
type MigrationRecord struct {
	ID       uint   `gorm:"primaryKey"`
	Outcome  string `gorm:"not null"`
	Imported int
	Skipped  int
	RanAt    time.Time
}

// SchemaVersion is the single row recording the store's current schema
// version. The version only ever increases.
type SchemaVersion struct {
	ID        uint `gorm:"primaryKey"`
	Version   int  `gorm:"not null"`
	UpdatedAt time.Time
}
