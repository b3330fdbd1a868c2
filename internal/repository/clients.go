package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mrobles/facturas/internal/models"
	"gorm.io/gorm"
)

// ClientFilter narrows and orders ListClients results. Zero value lists
// everything by ID.
type ClientFilter struct {
	Name    string // substring match, case-insensitive
	OrderBy string // "name" or "id" (default)
}

// CreateClient inserts a new client and fills in its generated ID.
func (r *Repository) CreateClient(c *models.Client) error {
	return r.write("client", 0, func(tx *gorm.DB) error {
		return r.CreateClientIn(tx, c)
	})
}

// CreateClientIn is the tx-scoped insert, exposed so the legacy importer can
// batch many inserts inside one WithTx transaction.
func (r *Repository) CreateClientIn(tx *gorm.DB, c *models.Client) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("client name is required: %w", ErrValidation)
	}
	// A retry after a rolled-back attempt must not reuse the ID the first
	// attempt was assigned.
	c.ID = 0
	return tx.Create(c).Error
}

// GetClient returns one client by ID.
func (r *Repository) GetClient(id uint) (*models.Client, error) {
	var c models.Client
	err := r.read("client", id, func(tx *gorm.DB) error {
		if err := tx.First(&c, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("client %d: %w", id, ErrNotFound)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateClient updates the mutable fields of an existing client. The ID is
// immutable once assigned.
func (r *Repository) UpdateClient(c *models.Client) error {
	if c.ID == 0 {
		return fmt.Errorf("client id is required: %w", ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("client name is required: %w", ErrValidation)
	}
	return r.write("client", c.ID, func(tx *gorm.DB) error {
		var existing models.Client
		if err := tx.First(&existing, c.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("client %d: %w", c.ID, ErrNotFound)
			}
			return err
		}
		return tx.Model(&existing).Updates(map[string]any{
			"name":    c.Name,
			"tax_id":  c.TaxID,
			"email":   c.Email,
			"phone":   c.Phone,
			"address": c.Address,
		}).Error
	})
}

// DeleteClient removes a client. It is refused while any invoice still
// references the client.
func (r *Repository) DeleteClient(id uint) error {
	return r.write("client", id, func(tx *gorm.DB) error {
		var invoices int64
		if err := tx.Model(&models.Invoice{}).Where("client_id = ?", id).Count(&invoices).Error; err != nil {
			return err
		}
		if invoices > 0 {
			return fmt.Errorf("client %d has %d invoice(s): %w", id, invoices, ErrReferentialIntegrity)
		}
		res := tx.Delete(&models.Client{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("client %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// ListClients returns clients matching the filter.
func (r *Repository) ListClients(f ClientFilter) ([]models.Client, error) {
	var out []models.Client
	err := r.read("client", 0, func(tx *gorm.DB) error {
		q := tx.Model(&models.Client{})
		if f.Name != "" {
			q = q.Where("lower(name) LIKE ?", "%"+strings.ToLower(f.Name)+"%")
		}
		switch f.OrderBy {
		case "name":
			q = q.Order("name, id")
		default:
			q = q.Order("id")
		}
		return q.Find(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ClientByNameIn finds a client by exact name inside a transaction; the
// importer uses it for its get-or-create pass.
func (r *Repository) ClientByNameIn(tx *gorm.DB, name string) (*models.Client, error) {
	var c models.Client
	if err := tx.Where("name = ?", name).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("client %q: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}
