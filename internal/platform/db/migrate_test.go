package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSortsByVersionAndSkipsJunk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "002_beds.sql", "CREATE TABLE bed ();")
	writeFile(t, dir, "001_core.sql", "CREATE TABLE patient ();")
	writeFile(t, dir, "010_billing.sql", "CREATE TABLE bill ();")
	writeFile(t, dir, "README.md", "not a migration")
	writeFile(t, dir, "notes.sql", "no numeric prefix")

	m := NewMigrator(nil, dir)
	migrations, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("got %d migrations, want 3", len(migrations))
	}
	wantOrder := []int{1, 2, 10}
	for i, mig := range migrations {
		if mig.Version != wantOrder[i] {
			t.Errorf("position %d: version %d, want %d", i, mig.Version, wantOrder[i])
		}
	}
	if migrations[0].SQL != "CREATE TABLE patient ();" {
		t.Errorf("unexpected SQL payload: %q", migrations[0].SQL)
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	m := NewMigrator(nil, filepath.Join(t.TempDir(), "missing"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
