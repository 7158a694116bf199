package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"go-gin-gorm-users/internal/core/config"
)

type note struct {
	ID   uint `gorm:"primaryKey"`
	Body string
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewGorm(Opts{
		Driver:   config.DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("NewGorm() error = %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	if err := db.AutoMigrate(&note{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func countNotes(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&note{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestNewGorm_UnsupportedDriver(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "oracle"})
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("error = %v, want ErrUnsupportedDriver", err)
	}
}

func TestPing(t *testing.T) {
	db := openTestDB(t)
	if err := Ping(context.Background(), db); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestWithSession_Commit(t *testing.T) {
	db := openTestDB(t)
	err := WithSession(context.Background(), db, func(tx *gorm.DB) error {
		return tx.Create(&note{Body: "kept"}).Error
	})
	if err != nil {
		t.Fatalf("WithSession() error = %v", err)
	}
	if n := countNotes(t, db); n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestWithSession_RollbackOnError(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("boom")
	err := WithSession(context.Background(), db, func(tx *gorm.DB) error {
		if err := tx.Create(&note{Body: "discarded"}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if n := countNotes(t, db); n != 0 {
		t.Errorf("rows = %d, want 0", n)
	}
}

func TestWithSession_RollbackOnPanic(t *testing.T) {
	db := openTestDB(t)
	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic was swallowed")
			}
		}()
		_ = WithSession(context.Background(), db, func(tx *gorm.DB) error {
			tx.Create(&note{Body: "discarded"})
			panic("handler blew up")
		})
	}()
	if n := countNotes(t, db); n != 0 {
		t.Errorf("rows = %d, want 0", n)
	}

	sqlDB, _ := db.DB()
	if inUse := sqlDB.Stats().InUse; inUse != 0 {
		t.Errorf("connections in use = %d, want 0", inUse)
	}
}

func TestMaskDSN(t *testing.T) {
	cases := []struct{ in, want string }{
		{"root:secret@tcp(db:3306)/app", "root:****@tcp(db:3306)/app"},
		{"postgres://u:p@pg:5432/app", "postgres://u:****@pg:5432/app"},
		{"postgres://u@pg/app", "postgres://u@pg/app"},
		{"/var/lib/users.db", "/var/lib/users.db"},
	}
	for _, tc := range cases {
		if got := MaskDSN(tc.in); got != tc.want {
			t.Errorf("MaskDSN(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSQLiteDSN(t *testing.T) {
	if got := sqliteDSN("a.db"); got != "a.db?_foreign_keys=on&_busy_timeout=5000" {
		t.Errorf("sqliteDSN = %q", got)
	}
	if got := sqliteDSN("file:a.db?_busy_timeout=1"); got != "file:a.db?_busy_timeout=1&_foreign_keys=on" {
		t.Errorf("sqliteDSN = %q", got)
	}
}
