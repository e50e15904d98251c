package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/phenomboxing/storefront/pkg/config"
	"github.com/phenomboxing/storefront/pkg/logger"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
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

func TestQueryLoggerReportsFailuresAndSlowQueries(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	conn := newTestDB(t).Session(&gorm.Session{Logger: newQueryLogger(logg, time.Nanosecond)})

	if err := conn.Create(&testModel{Name: "vendas"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(buf.String(), "db.slow_query") {
		t.Fatalf("expected slow query entry, got %s", buf.String())
	}

	buf.Reset()
	var missing testModel
	if err := conn.First(&missing, 999).Error; !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if strings.Contains(buf.String(), "db.query_failed") {
		t.Fatalf("record not found must not be logged as a failure: %s", buf.String())
	}

	buf.Reset()
	_ = conn.Exec("SELECT * FROM no_such_table").Error
	if !strings.Contains(buf.String(), "db.query_failed") || !strings.Contains(buf.String(), "no_such_table") {
		t.Fatalf("expected failed query with sql, got %s", buf.String())
	}
}

func TestQueryLoggerSilentMode(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	quiet := newQueryLogger(logg, time.Nanosecond).LogMode(gormlogger.Silent)
	conn := newTestDB(t).Session(&gorm.Session{Logger: quiet})
	_ = conn.Exec("SELECT * FROM no_such_table").Error
	if buf.Len() != 0 {
		t.Fatalf("silent mode logged %s", buf.String())
	}
	if newQueryLogger(nil, 0) != gormlogger.Discard {
		t.Fatalf("nil logger should discard")
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestDialectorSelection(t *testing.T) {
	if got := dialectorFor(config.DBConfig{Driver: "sqlite", DSN: "file::memory:"}).Name(); got != "sqlite" {
		t.Fatalf("expected sqlite dialector, got %s", got)
	}
	if got := dialectorFor(config.DBConfig{Driver: "postgres", DSN: "postgres://localhost/x"}).Name(); got != "postgres" {
		t.Fatalf("expected postgres dialector, got %s", got)
	}

	client := Wrap(newTestDB(t))
	if client.Dialect() != "sqlite3" {
		t.Fatalf("expected goose sqlite3 dialect, got %s", client.Dialect())
	}
}

func TestErrorHelpers(t *testing.T) {
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: orders.external_reference"), "") {
		t.Fatalf("sqlite unique violation not detected")
	}
	if !IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "orders_external_reference_key"`), "orders_external_reference_key") {
		t.Fatalf("postgres unique violation not detected")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatalf("nil is not a violation")
	}
	typed := fmt.Errorf("create order: %w", &pgconn.PgError{Code: "23505", ConstraintName: "orders_external_reference_key"})
	if !IsUniqueViolation(typed, "orders_external_reference_key") {
		t.Fatalf("typed pgx unique violation not detected")
	}
	if IsUniqueViolation(typed, "categories_slug_key") {
		t.Fatalf("constraint name should narrow the match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatalf("foreign key failures are not unique violations")
	}
	if !IsNotFound(gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found to match")
	}
}
