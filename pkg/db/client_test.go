package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cropchain/cropchain-backend/pkg/config"
	"github.com/cropchain/cropchain-backend/pkg/logger"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:dbclient?mode=memory&cache=shared"), &gorm.Config{
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
	client := NewWithDB(db)

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

func TestPing(t *testing.T) {
	client := NewWithDB(newTestDB(t))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestNewOpensSQLite(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		DSN:       "file:dbclient_new?mode=memory&cache=shared",
		UseSQLite: true,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	defer client.Close()

	if name := client.DB().Dialector.Name(); name != "sqlite" {
		t.Fatalf("expected sqlite dialector, got %s", name)
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{}, nil); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestNewLimitsSQLiteToSingleConnection(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		DSN:          "file:dbclient_pool?mode=memory&cache=shared",
		UseSQLite:    true,
		MaxOpenConns: 20,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("expected a single sqlite connection, got %d", got)
	}
}

func TestGormWriterLogsThroughServiceLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Format: "json", Output: buf})

	gormWriter{logg: logg}.Printf("SLOW SQL >= %s\n", "500ms")

	if !strings.Contains(buf.String(), `"component":"gorm"`) || !strings.Contains(buf.String(), "SLOW SQL >= 500ms") {
		t.Fatalf("unexpected log entry %s", buf.String())
	}
}
