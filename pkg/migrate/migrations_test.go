package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/kwetupizza-backend/pkg/db"
	"github.com/angelmondragon/kwetupizza-backend/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matches %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestOrdersMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TYPE order_status AS ENUM",
		"CREATE TYPE payment_status AS ENUM",
		"CREATE TYPE payment_provider AS ENUM",
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_items",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_tx_ref",
		"delay_notified_at TIMESTAMPTZ",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestTransactionsMigrationEnforcesUniqueTxRef(t *testing.T) {
	content := readMigration(t, "*_create_transactions_and_tracking.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS transactions",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_tx_ref",
		"CREATE TABLE IF NOT EXISTS order_tracking",
		"location JSONB",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestAutoMigrateCreatesModelTables(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, migrate.AutoMigrate(context.Background(), db.NewFromGorm(conn)))

	for _, table := range []string{"customers", "products", "orders", "order_items", "transactions", "order_tracking", "inbox_messages"} {
		require.True(t, conn.Migrator().HasTable(table), "table %s", table)
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Delivery Zones")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_delivery_zones.sql"))
	require.NoError(t, migrate.ValidateDir(dir))
}
