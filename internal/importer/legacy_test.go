package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	facdb "github.com/mrobles/facturas/internal/db"
	"github.com/mrobles/facturas/internal/models"
	"github.com/mrobles/facturas/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRepo(t *testing.T) *repository.Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := facdb.EnsureSchema(conn); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return repository.New(conn)
}

func writeLegacy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "facturas_qt.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}
	return path
}

const legacySnapshot = `[
	{"nombre": "Acme", "nif": "B1234", "email": "acme@example.com"},
	{"nombre": "Globex", "telefono": "555-0100"},
	{"nombre": "Initech"},
	{"nif": "X9999"},
	{"cliente": "Acme", "fecha": "15/03/2024", "descripcion": "consultoria", "valor": "120.50", "iva": 0.21},
	{"cliente": "Umbrella", "fecha": "2024-04-01", "descripcion": "licencia", "valor": 99.99}
]`

func TestImportCountsValidAndSkipped(t *testing.T) {
	repo := setupRepo(t)
	path := writeLegacy(t, legacySnapshot)

	out, err := ImportIfNeeded(path, repo, "EUR")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !out.Applied || out.Result != models.ImportSuccess {
		t.Fatalf("outcome = %+v, want applied success", out)
	}
	// 3 named clients + 2 invoices imported; the nameless client entry is
	// skipped. Umbrella is created implicitly and not counted as imported.
	if out.Imported != 5 || out.Skipped != 1 {
		t.Fatalf("imported = %d skipped = %d, want 5 and 1", out.Imported, out.Skipped)
	}

	rec, err := repo.MigrationRecord()
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.Outcome != models.ImportSuccess || rec.Imported != 5 || rec.Skipped != 1 {
		t.Fatalf("record = %+v", rec)
	}

	clients, err := repo.ListClients(repository.ClientFilter{})
	if err != nil {
		t.Fatalf("list clients: %v", err)
	}
	if len(clients) != 4 {
		t.Fatalf("clients = %d, want 4 (3 named + Umbrella)", len(clients))
	}

	invoices, err := repo.ListInvoices(repository.InvoiceFilter{})
	if err != nil {
		t.Fatalf("list invoices: %v", err)
	}
	if len(invoices) != 2 {
		t.Fatalf("invoices = %d, want 2", len(invoices))
	}
	// String amount parsed exactly: 120.50 * 1.21 = 145.81 (rounded).
	var acmeTotal decimal.Decimal
	for _, inv := range invoices {
		if inv.Client.Name == "Acme" {
			acmeTotal = inv.Total
		}
	}
	if !acmeTotal.Equal(decimal.RequireFromString("145.81")) {
		t.Fatalf("Acme invoice total = %s, want 145.81", acmeTotal)
	}
}

func TestImportThreeValidOneMissingName(t *testing.T) {
	repo := setupRepo(t)
	path := writeLegacy(t, `[
		{"nombre": "A"},
		{"nombre": "B"},
		{"nombre": "C"},
		{"email": "no-name@example.com"}
	]`)

	out, err := ImportIfNeeded(path, repo, "EUR")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if out.Result != models.ImportSuccess || out.Imported != 3 || out.Skipped != 1 {
		t.Fatalf("outcome = %+v, want success with 3 imported and 1 skipped", out)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	repo := setupRepo(t)
	path := writeLegacy(t, legacySnapshot)

	first, err := ImportIfNeeded(path, repo, "EUR")
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	second, err := ImportIfNeeded(path, repo, "EUR")
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if second.Applied {
		t.Fatal("second run must be a no-op")
	}
	if second.Imported != first.Imported || second.Skipped != first.Skipped {
		t.Fatalf("second outcome %+v differs from first %+v", second, first)
	}

	clients, err := repo.ListClients(repository.ClientFilter{})
	if err != nil {
		t.Fatalf("list clients: %v", err)
	}
	if len(clients) != 4 {
		t.Fatalf("clients = %d after double import, want 4", len(clients))
	}
	invoices, err := repo.ListInvoices(repository.InvoiceFilter{})
	if err != nil {
		t.Fatalf("list invoices: %v", err)
	}
	if len(invoices) != 2 {
		t.Fatalf("invoices = %d after double import, want 2", len(invoices))
	}
}

func TestImportBadRowDoesNotAbortBatch(t *testing.T) {
	repo := setupRepo(t)
	path := writeLegacy(t, `[
		{"nombre": "Good Client"},
		{"cliente": "Good Client", "fecha": "15/03/2024", "descripcion": "bad", "valor": 10, "iva": -0.21},
		{"cliente": "Good Client", "fecha": "16/03/2024", "descripcion": "good", "valor": 10}
	]`)

	out, err := ImportIfNeeded(path, repo, "EUR")
	if err != nil {
		t.Fatalf("one bad row aborted the batch: %v", err)
	}
	if out.Result != models.ImportSuccess || out.Imported != 2 || out.Skipped != 1 {
		t.Fatalf("outcome = %+v, want success with 2 imported and 1 skipped", out)
	}
	rec, err := repo.MigrationRecord()
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.Outcome != models.ImportSuccess || rec.Imported != 2 || rec.Skipped != 1 {
		t.Fatalf("record = %+v", rec)
	}
	invoices, err := repo.ListInvoices(repository.InvoiceFilter{})
	if err != nil {
		t.Fatalf("list invoices: %v", err)
	}
	if len(invoices) != 1 {
		t.Fatalf("invoices = %d, want only the good one", len(invoices))
	}
}

func TestImportMissingFileIsNotApplicable(t *testing.T) {
	repo := setupRepo(t)
	path := filepath.Join(t.TempDir(), "nope.json")

	out, err := ImportIfNeeded(path, repo, "EUR")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !out.Applied || out.Result != models.ImportNotApplicable {
		t.Fatalf("outcome = %+v, want not-applicable", out)
	}
	rec, err := repo.MigrationRecord()
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.Outcome != models.ImportNotApplicable {
		t.Fatalf("record outcome = %q", rec.Outcome)
	}

	// Still settled if the file shows up later.
	late := writeLegacy(t, legacySnapshot)
	out, err = ImportIfNeeded(late, repo, "EUR")
	if err != nil {
		t.Fatalf("late import: %v", err)
	}
	if out.Applied {
		t.Fatal("import ran despite a settled record")
	}
}

func TestImportMalformedDocumentIsFatalAndRetryable(t *testing.T) {
	repo := setupRepo(t)
	path := writeLegacy(t, `{"not": "an array"}`)

	if _, err := ImportIfNeeded(path, repo, "EUR"); err == nil {
		t.Fatal("expected a fatal error for a malformed document")
	}
	// Record untouched, so a fixed file imports on the next run.
	if _, err := repo.MigrationRecord(); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("record after failure: %v, want ErrNotFound", err)
	}

	if err := os.WriteFile(path, []byte(`[{"nombre": "Acme"}]`), 0o644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}
	out, err := ImportIfNeeded(path, repo, "EUR")
	if err != nil {
		t.Fatalf("retry import: %v", err)
	}
	if out.Result != models.ImportSuccess || out.Imported != 1 {
		t.Fatalf("retry outcome = %+v", out)
	}
}

func TestImportPreservesLegacyFile(t *testing.T) {
	repo := setupRepo(t)
	path := writeLegacy(t, legacySnapshot)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read before: %v", err)
	}

	if _, err := ImportIfNeeded(path, repo, "EUR"); err != nil {
		t.Fatalf("import: %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("legacy file missing after import: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("legacy file was modified by the import")
	}
}

func TestParseRowRejectsBadNumbers(t *testing.T) {
	_, rowErr := parseRow(0, map[string]any{
		"cliente": "Acme", "fecha": "15/03/2024", "valor": "12,three",
	}, "EUR")
	if rowErr == nil {
		t.Fatal("expected a row error for an unparseable amount")
	}
}

func TestParseRowRejectsBadDates(t *testing.T) {
	_, rowErr := parseRow(0, map[string]any{
		"cliente": "Acme", "fecha": "yesterday", "valor": 10,
	}, "EUR")
	if rowErr == nil {
		t.Fatal("expected a row error for an unparseable date")
	}
}

func TestParseRowAcceptsBothFieldGenerations(t *testing.T) {
	r, rowErr := parseRow(0, map[string]any{
		"client": "Acme", "date": "2024-05-01", "amount": "42.00", "description": "support",
	}, "USD")
	if rowErr != nil {
		t.Fatalf("parse: %v", rowErr)
	}
	if r.Kind != kindInvoice || r.ClientName != "Acme" {
		t.Fatalf("row = %+v", r)
	}
	if r.Invoice.Currency != "USD" {
		t.Fatalf("currency = %q, want default USD", r.Invoice.Currency)
	}
	if !r.Invoice.Items[0].UnitPrice.Equal(decimal.RequireFromString("42.00")) {
		t.Fatalf("unit price = %s", r.Invoice.Items[0].UnitPrice)
	}
}
