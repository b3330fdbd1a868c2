package db

import (
	"fmt"
	"testing"

	"github.com/mrobles/facturas/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return conn
}

func TestEnsureSchemaFreshStore(t *testing.T) {
	conn := openTestDB(t)
	version, err := EnsureSchema(conn)
	if err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if version != CurrentVersion() {
		t.Fatalf("version = %d, want %d", version, CurrentVersion())
	}
	for _, table := range []string{"clients", "invoices", "line_items", "migration_records", "schema_versions"} {
		if !conn.Migrator().HasTable(table) {
			t.Errorf("missing table after migration: %s", table)
		}
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	first, err := EnsureSchema(conn)
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	second, err := EnsureSchema(conn)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if first != second {
		t.Fatalf("version changed on re-run: %d then %d", first, second)
	}
	var count int64
	if err := conn.Model(&models.SchemaVersion{}).Count(&count).Error; err != nil {
		t.Fatalf("count versions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single schema version row, got %d", count)
	}
}

func TestEnsureSchemaRejectsNewerStore(t *testing.T) {
	conn := openTestDB(t)
	if _, err := EnsureSchema(conn); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := conn.Model(&models.SchemaVersion{}).Where("1 = 1").Update("version", CurrentVersion()+5).Error; err != nil {
		t.Fatalf("bump version: %v", err)
	}
	if _, err := EnsureSchema(conn); err == nil {
		t.Fatal("expected an error for a store newer than the binary")
	}
}
