package migrations

import (
	"strings"
	"testing"
)

func TestLoadEntries_OrderedAndComplete(t *testing.T) {
	entries, err := loadEntries()
	if err != nil {
		t.Fatalf("loadEntries: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("got %d entries, want at least 2", len(entries))
	}
	if entries[0].version != "000_migrations_table.sql" {
		t.Errorf("first migration = %q, want 000_migrations_table.sql", entries[0].version)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].version >= entries[i].version {
			t.Errorf("entries out of order: %q before %q", entries[i-1].version, entries[i].version)
		}
	}
}

func TestLoadEntries_CreatesRequiredTables(t *testing.T) {
	entries, err := loadEntries()
	if err != nil {
		t.Fatalf("loadEntries: %v", err)
	}
	var all strings.Builder
	for _, e := range entries {
		all.WriteString(e.sql)
	}
	for _, table := range RequiredTables {
		if !strings.Contains(all.String(), "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Errorf("no migration creates table %q", table)
		}
	}
}

func TestPending(t *testing.T) {
	entries := []entry{{version: "000_a.sql"}, {version: "001_b.sql"}, {version: "002_c.sql"}}

	got := pending(entries, map[string]bool{"000_a.sql": true, "002_c.sql": true})
	if len(got) != 1 || got[0].version != "001_b.sql" {
		t.Errorf("pending = %+v, want only 001_b.sql", got)
	}

	if got := pending(entries, nil); len(got) != 3 {
		t.Errorf("pending with nothing applied = %d entries, want 3", len(got))
	}

	all := map[string]bool{"000_a.sql": true, "001_b.sql": true, "002_c.sql": true}
	if got := pending(entries, all); len(got) != 0 {
		t.Errorf("pending with everything applied = %d entries, want 0", len(got))
	}
}
