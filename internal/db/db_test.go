package db

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/gorm"
)

// openTestDB opens a private in-memory SQLite database for one test.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), true)
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func TestOpenPicksDriverByPrefix(t *testing.T) {
	gdb, err := Open("sqlite:file:open_prefix?mode=memory&cache=shared", true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if name := gdb.Dialector.Name(); name != "sqlite" {
		t.Fatalf("expected sqlite dialector, got %s", name)
	}
}
