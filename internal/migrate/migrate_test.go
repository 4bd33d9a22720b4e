package migrate

import (
	"database/sql"
	"testing"

	// Link the storage layer so its sqlite dialector's driver registration
	// runs in this test binary alongside this package's own.
	_ "github.com/bher20/ubill/internal/storage"
)

// The storage layer's glebarez GORM dialector and this package must share one
// "sqlite" database/sql driver registration; a second registration would
// panic at init and no binary linking both packages could start.
func TestSqliteDriverRegisteredOnce(t *testing.T) {
	count := 0
	for _, name := range sql.Drivers() {
		if name == "sqlite" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("sqlite driver registered %d times, want 1", count)
	}
}

func TestPostgresDriverRegistered(t *testing.T) {
	for _, name := range sql.Drivers() {
		if name == "pgx" {
			return
		}
	}
	t.Fatal("pgx driver is not registered")
}

func TestOpenDBDefaults(t *testing.T) {
	db, err := openDB("", "")
	if err != nil {
		t.Fatalf("openDB with defaults: %v", err)
	}
	db.Close()
}

func TestConfigureGooseRejectsUnknownDriver(t *testing.T) {
	if err := configureGoose("oracle"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
