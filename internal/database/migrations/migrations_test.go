package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	tables := []string{"topics", "revisions", "operations", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheckDBMigrationStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	err := CheckDBMigrationStatus(db)
	if err == nil {
		t.Fatal("CheckDBMigrationStatus() expected error for fresh database, got nil")
	}
	if err.Error() != "database has no schema version (needs migration)" {
		t.Errorf("CheckDBMigrationStatus() error = %q, want error about needing migration", err.Error())
	}
}

func TestCheckDBMigrationStatus_AfterMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after migration returned error: %v", err)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("First MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("Second MigrateUp() failed: %v (should be idempotent)", err)
	}
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after double migration returned error: %v", err)
	}
}

func TestGetStatus(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	latest, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if latest != 3 {
		t.Errorf("LatestVersion() = %d, want 3", latest)
	}

	before, err := GetStatus(db)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if before.Current() {
		t.Error("fresh database reported as current")
	}
	if before.Version != 0 || before.Latest != latest {
		t.Errorf("GetStatus() = %+v, want version 0 latest %d", before, latest)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	after, err := GetStatus(db)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if !after.Current() {
		t.Errorf("GetStatus() after migration = %+v, want current", after)
	}
}

func TestSchema_TopicNameUnique(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec("INSERT INTO topics (name, category, resource, position, created_at) VALUES ('Backprop', 'DL', '', 0, datetime('now'))")
	if err != nil {
		t.Fatalf("Failed to insert first topic: %v", err)
	}

	_, err = db.Exec("INSERT INTO topics (name, category, resource, position, created_at) VALUES ('Backprop', 'ML', '', 0, datetime('now'))")
	if err == nil {
		t.Error("Expected unique constraint violation for duplicate name, but insert succeeded")
	}
}

func TestSchema_CategoryPositionUnique(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec("INSERT INTO topics (name, category, resource, position, created_at) VALUES ('Backprop', 'DL', '', 0, datetime('now'))")
	if err != nil {
		t.Fatalf("Failed to insert first topic: %v", err)
	}

	_, err = db.Exec("INSERT INTO topics (name, category, resource, position, created_at) VALUES ('Dropout', 'DL', '', 0, datetime('now'))")
	if err == nil {
		t.Error("Expected unique constraint violation for duplicate (category, position), but insert succeeded")
	}

	_, err = db.Exec("INSERT INTO topics (name, category, resource, position, created_at) VALUES ('Bayes', 'Stats', '', 0, datetime('now'))")
	if err != nil {
		t.Errorf("same position in another category should be allowed: %v", err)
	}
}

// openTestDB opens an in-memory SQLite database pinned to one connection.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	return db
}
