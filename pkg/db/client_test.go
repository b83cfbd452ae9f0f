package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/angelmondragon/kwetupizza-backend/pkg/config"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := NewFromGorm(db)

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestNewWithSQLiteDriver(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    "file:client_new?mode=memory&cache=shared",
	}, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer client.Close()

	if client.Driver() != config.DriverSQLite {
		t.Fatalf("unexpected driver %q", client.Driver())
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{Driver: "mysql", DSN: "x"}, nil); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&testModel{Name: "dup"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	err := db.Create(&testModel{Name: "dup"}).Error
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected sqlite unique violation, got %v", err)
	}
	if !IsUniqueViolation(err, "name") {
		t.Fatalf("expected constraint match on column name, got %v", err)
	}

	pgErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "transactions_tx_ref_key"})
	if !IsUniqueViolation(pgErr, "transactions_tx_ref_key") {
		t.Fatal("expected postgres unique violation to match constraint")
	}
	if IsUniqueViolation(pgErr, "orders_pkey") {
		t.Fatal("constraint mismatch should not match")
	}
	if IsUniqueViolation(errors.New("other"), "") {
		t.Fatal("unrelated error should not match")
	}
}
