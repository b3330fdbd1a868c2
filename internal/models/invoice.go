package models

import (
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "DRAFT"
	StatusIssued    InvoiceStatus = "ISSUED"
	StatusPaid      InvoiceStatus = "PAID"
	StatusCancelled InvoiceStatus = "CANCELLED"
)

// allowedTransitions enumerates every legal status change. PAID and
// CANCELLED have no outgoing edges: they are terminal.
var allowedTransitions = map[InvoiceStatus][]InvoiceStatus{
	StatusDraft:  {StatusIssued, StatusCancelled},
	StatusIssued: {StatusPaid, StatusCancelled},
}

// CanTransition reports whether an invoice may move from one status to
// another.
func CanTransition(from, to InvoiceStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusIssued, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Invoice belongs to exactly one Client and exclusively owns its line items.
// Total is derived from the items at read time and never stored.
type Invoice struct {
	ID        uint          `gorm:"primaryKey"`
	Reference string        `gorm:"uniqueIndex;not null"`
	ClientID  uint          `gorm:"not null;index"`
	Client    Client        `gorm:"foreignKey:ClientID"`
	IssueDate time.Time     `gorm:"not null;index"`
	Status    InvoiceStatus `gorm:"not null;default:'DRAFT'"`
	Currency  string        `gorm:"not null;default:'EUR'"`
	Items     []LineItem    `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Total decimal.Decimal `gorm:"-"`
}

// LineItem is one billable entry within an invoice. Monetary fields are
// stored as text so the decimal representation survives the round trip
// exactly.
type LineItem struct {
	ID          uint            `gorm:"primaryKey"`
	InvoiceID   uint            `gorm:"not null;index"`
	Description string          `gorm:"not null"`
	Quantity    decimal.Decimal `gorm:"type:text;not null"`
	UnitPrice   decimal.Decimal `gorm:"type:text;not null"`
	TaxRate     decimal.Decimal `gorm:"type:text;not null"`
}

// MinorUnits returns the number of decimal places a currency uses, falling
// back to 2 for codes the currency table does not know.
func MinorUnits(code string) int32 {
	if c := money.GetCurrency(code); c != nil {
		return int32(c.Fraction)
	}
	return 2
}

// Subtotal is quantity × unit price × (1 + tax rate), rounded to the
// currency's minor-unit precision.
func (li LineItem) Subtotal(currency string) decimal.Decimal {
	gross := li.Quantity.Mul(li.UnitPrice).Mul(decimal.NewFromInt(1).Add(li.TaxRate))
	return gross.Round(MinorUnits(currency))
}

// ComputeTotal sums the item subtotals. Repository reads call this so the
// total can never drift from the stored items.
func (inv *Invoice) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range inv.Items {
		total = total.Add(it.Subtotal(inv.Currency))
	}
	return total
}
