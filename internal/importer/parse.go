package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/mrobles/facturas/internal/models"
	"github.com/shopspring/decimal"
)

// RowError describes one legacy entry that could not be converted. Rows that
// fail are skipped and counted; they never abort the batch.
type RowError struct {
	Index  int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("legacy row %d: %s", e.Index, e.Reason)
}

type rowKind int

const (
	kindClient rowKind = iota
	kindInvoice
)

// row is the typed result of validating one loosely-typed legacy entry.
type row struct {
	Kind       rowKind
	Client     models.Client
	ClientName string // owner of Invoice, matched or created by name
	Invoice    models.Invoice
}

// Legacy snapshots were written over several application generations, so
// every lookup tolerates both the original Spanish keys and their later
// English aliases.
func field(raw map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), true
			}
		}
	}
	return "", false
}

// amount accepts JSON numbers and numeric strings; anything else fails.
func amount(raw map[string]any, keys ...string) (decimal.Decimal, bool, error) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return decimal.NewFromFloat(n), true, nil
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(n, ",", "."))
			d, err := decimal.NewFromString(s)
			if err != nil {
				return decimal.Zero, true, fmt.Errorf("unparseable number %q in %q", n, k)
			}
			return d, true, nil
		default:
			return decimal.Zero, true, fmt.Errorf("field %q is neither number nor string", k)
		}
	}
	return decimal.Zero, false, nil
}

// legacyDate parses the dd/mm/yyyy format the original application wrote,
// plus ISO dates from hand-edited files.
func legacyDate(s string) (time.Time, error) {
	for _, layout := range []string{"02/01/2006", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// parseRow converts one raw legacy entry into a typed row or a RowError.
// This is the only place the loosely-typed document is touched; everything
// past it is statically typed.
func parseRow(idx int, raw map[string]any, defaultCurrency string) (*row, *RowError) {
	// Entries carrying an amount are invoices; everything else must at
	// least name a client.
	val, hasAmount, err := amount(raw, "valor", "amount", "importe")
	if err != nil {
		return nil, &RowError{Index: idx, Reason: err.Error()}
	}

	if !hasAmount {
		name, ok := field(raw, "nombre", "name")
		if !ok {
			return nil, &RowError{Index: idx, Reason: "client entry missing required name"}
		}
		c := models.Client{Name: name}
		c.TaxID, _ = field(raw, "nif", "tax_id")
		c.Email, _ = field(raw, "email", "correo")
		c.Phone, _ = field(raw, "telefono", "phone")
		c.Address, _ = field(raw, "direccion", "address")
		return &row{Kind: kindClient, Client: c}, nil
	}

	owner, ok := field(raw, "cliente", "client", "tipo")
	if !ok {
		return nil, &RowError{Index: idx, Reason: "invoice entry missing required client name"}
	}
	dateStr, ok := field(raw, "fecha", "date")
	if !ok {
		return nil, &RowError{Index: idx, Reason: "invoice entry missing required date"}
	}
	issued, err := legacyDate(dateStr)
	if err != nil {
		return nil, &RowError{Index: idx, Reason: err.Error()}
	}

	qty := decimal.NewFromInt(1)
	if q, has, err := amount(raw, "cantidad", "quantity"); has {
		if err != nil {
			return nil, &RowError{Index: idx, Reason: err.Error()}
		}
		qty = q
	}
	taxRate := decimal.Zero
	if t, has, err := amount(raw, "iva", "tax_rate"); has {
		if err != nil {
			return nil, &RowError{Index: idx, Reason: err.Error()}
		}
		taxRate = t
	}
	if !qty.IsPositive() {
		return nil, &RowError{Index: idx, Reason: "quantity must be positive"}
	}
	if val.IsNegative() {
		return nil, &RowError{Index: idx, Reason: "amount must not be negative"}
	}
	if taxRate.IsNegative() {
		return nil, &RowError{Index: idx, Reason: "tax rate must not be negative"}
	}

	desc, _ := field(raw, "descripcion", "description")
	if desc == "" {
		desc = "imported"
	}
	currency, ok := field(raw, "moneda", "currency")
	if !ok {
		currency = defaultCurrency
	}

	inv := models.Invoice{
		IssueDate: issued,
		Status:    models.StatusIssued,
		Currency:  currency,
		Items: []models.LineItem{{
			Description: desc,
			Quantity:    qty,
			UnitPrice:   val,
			TaxRate:     taxRate,
		}},
	}
	return &row{Kind: kindInvoice, ClientName: owner, Invoice: inv}, nil
}
