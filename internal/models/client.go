package models

import "time"

// Client is an invoicing counterparty. The ID is assigned by the store on
// create and is immutable afterwards.
type Client struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null;index"`
	TaxID     string `gorm:"index"`
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
