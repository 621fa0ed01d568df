// Package migrations applies the embedded SQL schema for the PostgreSQL store.
//
// Files are named NNN_description.sql and run in lexicographic order. Applied
// versions are recorded in schema_migrations, so Run is idempotent across
// restarts. 000_migrations_table.sql must stay first.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed *.sql
var sqlFiles embed.FS

// RequiredTables are the tables the store reads and writes.
var RequiredTables = []string{"stops", "buses"}

// DB is the subset of *pgxpool.Pool the runner uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// entry is one migration file.
type entry struct {
	version string // file name, unique key in schema_migrations
	sql     string
}

// Run applies every migration not yet recorded in schema_migrations. Each
// migration and its version row commit in a single transaction.
func Run(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS schema_migrations (
            version    VARCHAR(255) PRIMARY KEY,
            applied_at TIMESTAMP DEFAULT NOW()
        )`); err != nil {
		return fmt.Errorf("migrations: ensure tracking table: %w", err)
	}

	entries, err := loadEntries()
	if err != nil {
		return fmt.Errorf("migrations: load files: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return fmt.Errorf("migrations: read applied versions: %w", err)
	}

	todo := pending(entries, applied)
	for _, e := range todo {
		if err := applyEntry(ctx, db, e); err != nil {
			return fmt.Errorf("migrations: apply %q: %w", e.version, err)
		}
	}

	if len(todo) == 0 {
		log.Println("migrations: schema is up to date")
	} else {
		log.Printf("migrations: %d migration(s) applied", len(todo))
	}
	return nil
}

// CheckSchema verifies that RequiredTables exist in the public schema.
func CheckSchema(ctx context.Context, db DB) error {
	for _, table := range RequiredTables {
		var exists bool
		err := db.QueryRow(ctx, `
            SELECT EXISTS (
                SELECT 1
                FROM information_schema.tables
                WHERE table_schema = 'public'
                  AND table_name   = $1
            )`, table).Scan(&exists)
		if err != nil {
			return fmt.Errorf("migrations: check table %q: %w", table, err)
		}
		if !exists {
			return fmt.Errorf("migrations: required table %q is missing", table)
		}
	}
	return nil
}

// pending returns the entries whose version is not in applied, preserving order.
func pending(entries []entry, applied map[string]bool) []entry {
	var out []entry
	for _, e := range entries {
		if applied[e.version] {
			continue
		}
		out = append(out, e)
	}
	return out
}

func appliedVersions(ctx context.Context, db DB) (map[string]bool, error) {
	rows, err := db.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		seen[v] = true
	}
	return seen, rows.Err()
}

// loadEntries reads the embedded files. embed.FS.ReadDir returns them
// sorted by name.
func loadEntries() ([]entry, error) {
	dirEntries, err := sqlFiles.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("read embedded dir: %w", err)
	}

	var out []entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		content, err := sqlFiles.ReadFile(de.Name())
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", de.Name(), err)
		}
		out = append(out, entry{version: de.Name(), sql: string(content)})
	}
	return out, nil
}

func applyEntry(ctx context.Context, db DB, e entry) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, e.sql); err != nil {
		return fmt.Errorf("exec sql: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, e.version); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	log.Printf("migrations: applied %q", e.version)
	return nil
}
