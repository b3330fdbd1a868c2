package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mrobles/facturas/internal/models"
	"gorm.io/gorm"
)

// InvoiceFilter narrows and orders ListInvoices results. Zero fields are
// ignored; From/To bound the issue date inclusively.
type InvoiceFilter struct {
	ClientID uint
	Status   models.InvoiceStatus
	From     time.Time
	To       time.Time
	OrderBy  string // "issue_date" or "id" (default)
}

// CreateInvoice inserts an invoice with its line items in one transaction
// and fills in the generated ID and reference.
func (r *Repository) CreateInvoice(inv *models.Invoice) error {
	return r.write("invoice", 0, func(tx *gorm.DB) error {
		return r.CreateInvoiceIn(tx, inv)
	})
}

// CreateInvoiceIn is the tx-scoped insert, exposed for the legacy importer's
// bulk transaction.
func (r *Repository) CreateInvoiceIn(tx *gorm.DB, inv *models.Invoice) error {
	if err := validateInvoice(inv); err != nil {
		return err
	}
	// A retry after a rolled-back attempt must not reuse the ID the first
	// attempt was assigned.
	inv.ID = 0
	var owner models.Client
	if err := tx.First(&owner, inv.ClientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("client %d: %w", inv.ClientID, ErrNotFound)
		}
		return err
	}
	if inv.Reference == "" {
		inv.Reference = uuid.NewString()
	}
	if err := tx.Omit("Client", "Items").Create(inv).Error; err != nil {
		return err
	}
	for i := range inv.Items {
		inv.Items[i].ID = 0
		inv.Items[i].InvoiceID = inv.ID
	}
	if len(inv.Items) > 0 {
		if err := tx.Create(&inv.Items).Error; err != nil {
			return err
		}
	}
	inv.Total = inv.ComputeTotal()
	return nil
}

func validateInvoice(inv *models.Invoice) error {
	if inv.ClientID == 0 {
		return fmt.Errorf("invoice client is required: %w", ErrValidation)
	}
	if inv.IssueDate.IsZero() {
		return fmt.Errorf("invoice issue date is required: %w", ErrValidation)
	}
	if inv.Status == "" {
		inv.Status = models.StatusDraft
	}
	if !inv.Status.Valid() {
		return fmt.Errorf("unknown invoice status %q: %w", inv.Status, ErrValidation)
	}
	if inv.Currency == "" {
		inv.Currency = "EUR"
	}
	for i := range inv.Items {
		if err := validateItem(&inv.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetInvoice returns one invoice with its items loaded and its total
// recomputed from them.
func (r *Repository) GetInvoice(id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.read("invoice", id, func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Preload("Client").First(&inv, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("invoice %d: %w", id, ErrNotFound)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	inv.Total = inv.ComputeTotal()
	return &inv, nil
}

// UpdateInvoice replaces the mutable fields of an invoice: issue date,
// currency and the full set of line items. Status changes go through
// UpdateInvoiceStatus only.
func (r *Repository) UpdateInvoice(inv *models.Invoice) error {
	if inv.ID == 0 {
		return fmt.Errorf("invoice id is required: %w", ErrValidation)
	}
	if err := validateInvoice(inv); err != nil {
		return err
	}
	err := r.write("invoice", inv.ID, func(tx *gorm.DB) error {
		var existing models.Invoice
		if err := tx.First(&existing, inv.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("invoice %d: %w", inv.ID, ErrNotFound)
			}
			return err
		}
		if inv.ClientID != existing.ClientID {
			var owner models.Client
			if err := tx.First(&owner, inv.ClientID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("client %d: %w", inv.ClientID, ErrNotFound)
				}
				return err
			}
		}
		if err := tx.Model(&existing).Updates(map[string]any{
			"client_id":  inv.ClientID,
			"issue_date": inv.IssueDate,
			"currency":   inv.Currency,
		}).Error; err != nil {
			return err
		}
		// Items are exclusively owned: replace them wholesale.
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.LineItem{}).Error; err != nil {
			return err
		}
		for i := range inv.Items {
			inv.Items[i].ID = 0
			inv.Items[i].InvoiceID = inv.ID
		}
		if len(inv.Items) > 0 {
			if err := tx.Create(&inv.Items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	inv.Total = inv.ComputeTotal()
	return nil
}

// UpdateInvoiceStatus moves an invoice along the status state machine.
// Requesting the current status again is a no-op, not a transition.
func (r *Repository) UpdateInvoiceStatus(id uint, status models.InvoiceStatus) error {
	if !status.Valid() {
		return fmt.Errorf("unknown invoice status %q: %w", status, ErrValidation)
	}
	return r.write("invoice", id, func(tx *gorm.DB) error {
		var existing models.Invoice
		if err := tx.First(&existing, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("invoice %d: %w", id, ErrNotFound)
			}
			return err
		}
		if existing.Status == status {
			return nil
		}
		if !models.CanTransition(existing.Status, status) {
			return fmt.Errorf("invoice %d: %s -> %s: %w", id, existing.Status, status, ErrInvalidTransition)
		}
		return tx.Model(&existing).Update("status", status).Error
	})
}

// DeleteInvoice removes an invoice together with its line items.
func (r *Repository) DeleteInvoice(id uint) error {
	return r.write("invoice", id, func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.LineItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Invoice{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("invoice %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// ListInvoices returns invoices matching the filter, items loaded and
// totals recomputed.
func (r *Repository) ListInvoices(f InvoiceFilter) ([]models.Invoice, error) {
	var out []models.Invoice
	err := r.read("invoice", 0, func(tx *gorm.DB) error {
		q := tx.Model(&models.Invoice{}).Preload("Items").Preload("Client")
		if f.ClientID != 0 {
			q = q.Where("client_id = ?", f.ClientID)
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if !f.From.IsZero() {
			q = q.Where("issue_date >= ?", f.From)
		}
		if !f.To.IsZero() {
			q = q.Where("issue_date <= ?", f.To)
		}
		switch f.OrderBy {
		case "issue_date":
			q = q.Order("issue_date, id")
		default:
			q = q.Order("id")
		}
		return q.Find(&out).Error
	})
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Total = out[i].ComputeTotal()
	}
	return out, nil
}
