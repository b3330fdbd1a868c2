package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mrobles/facturas/internal/models"
	"gorm.io/gorm"
)

// AddLineItem appends one item to an existing invoice.
func (r *Repository) AddLineItem(invoiceID uint, item *models.LineItem) error {
	if err := validateItem(item); err != nil {
		return err
	}
	return r.write("line item", 0, func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.First(&inv, invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("invoice %d: %w", invoiceID, ErrNotFound)
			}
			return err
		}
		item.ID = 0
		item.InvoiceID = invoiceID
		return tx.Create(item).Error
	})
}

// UpdateLineItem replaces the mutable fields of one item.
func (r *Repository) UpdateLineItem(item *models.LineItem) error {
	if item.ID == 0 {
		return fmt.Errorf("line item id is required: %w", ErrValidation)
	}
	if err := validateItem(item); err != nil {
		return err
	}
	return r.write("line item", item.ID, func(tx *gorm.DB) error {
		var existing models.LineItem
		if err := tx.First(&existing, item.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("line item %d: %w", item.ID, ErrNotFound)
			}
			return err
		}
		return tx.Model(&existing).Updates(map[string]any{
			"description": item.Description,
			"quantity":    item.Quantity,
			"unit_price":  item.UnitPrice,
			"tax_rate":    item.TaxRate,
		}).Error
	})
}

// RemoveLineItem deletes one item from its invoice.
func (r *Repository) RemoveLineItem(id uint) error {
	return r.write("line item", id, func(tx *gorm.DB) error {
		res := tx.Delete(&models.LineItem{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("line item %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// ListLineItems returns the items of one invoice in insertion order.
func (r *Repository) ListLineItems(invoiceID uint) ([]models.LineItem, error) {
	var out []models.LineItem
	err := r.read("line item", 0, func(tx *gorm.DB) error {
		return tx.Where("invoice_id = ?", invoiceID).Order("id").Find(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func validateItem(item *models.LineItem) error {
	if strings.TrimSpace(item.Description) == "" {
		return fmt.Errorf("line item description is required: %w", ErrValidation)
	}
	if !item.Quantity.IsPositive() {
		return fmt.Errorf("line item quantity must be positive: %w", ErrValidation)
	}
	if item.UnitPrice.IsNegative() {
		return fmt.Errorf("line item unit price must not be negative: %w", ErrValidation)
	}
	if item.TaxRate.IsNegative() {
		return fmt.Errorf("line item tax rate must not be negative: %w", ErrValidation)
	}
	return nil
}
