// Package migrate is C11's schema migrator: a small engine over
// database/sql that applies forward-only migrations/*.sql files in
// lexical order and tracks what it has already applied in a
// schema_migrations table, in the spirit of golang-migrate but narrowed to
// the three verbs cmd/migrate needs (migrate, add, recreate) — hand-rolled
// rather than importing golang-migrate/migrate since no repo in the pack
// pulls that dependency in and this surface is considerably narrower than
// what it offers (see DESIGN.md).
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// trackingTableDDL creates the ledger of applied migrations; idempotent so
// Engine.Migrate can always run it first.
const trackingTableDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version     BIGINT PRIMARY KEY,
	name        TEXT NOT NULL,
	applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

var filenamePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// Migration is one forward-only migrations/NNNN_name.sql file.
type Migration struct {
	Version int64
	Name    string
	Path    string
}

// Engine applies migrations/*.sql against a Postgres database.
type Engine struct {
	db  *sql.DB
	dir string
}

// New wraps an already-open *sql.DB; dir is the migrations/ directory to
// read .sql files from.
func New(db *sql.DB, dir string) *Engine {
	return &Engine{db: db, dir: dir}
}

// Discover lists every migrations/NNNN_name.sql file in the migrator's
// directory, sorted by version.
func (e *Engine) Discover() ([]Migration, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations dir %s: %w", e.dir, err)
	}

	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := filenamePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		version, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration file %s has a non-numeric version: %w", entry.Name(), err)
		}
		migrations = append(migrations, Migration{
			Version: version,
			Name:    m[2],
			Path:    filepath.Join(e.dir, entry.Name()),
		})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// Migrate applies every not-yet-applied migration, in version order, each
// inside its own transaction. Forward-only: there is no Down.
func (e *Engine) Migrate(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, trackingTableDDL); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied, err := e.appliedVersions(ctx)
	if err != nil {
		return err
	}

	migrations, err := e.Discover()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := e.apply(ctx, m); err != nil {
			return fmt.Errorf("failed to apply migration %d_%s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func (e *Engine) apply(ctx context.Context, m Migration) error {
	sqlBytes, err := os.ReadFile(m.Path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", m.Path, err)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, $3)`,
		m.Version, m.Name, time.Now().UTC(),
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (e *Engine) appliedVersions(ctx context.Context) (map[int64]bool, error) {
	rows, err := e.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]bool)
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// Add writes a new empty migrations/NNNN_name.sql file, numbered one past
// the highest existing version (or 1 if none exist), matching golang-migrate
// CLI's "create" convention but with a single forward-only file instead of
// paired up/down files.
func (e *Engine) Add(name string) (Migration, error) {
	migrations, err := e.Discover()
	if err != nil {
		return Migration{}, err
	}

	var next int64 = 1
	if len(migrations) > 0 {
		next = migrations[len(migrations)-1].Version + 1
	}

	slug := slugify(name)
	filename := fmt.Sprintf("%04d_%s.sql", next, slug)
	path := filepath.Join(e.dir, filename)

	contents := fmt.Sprintf("-- migration: %s\n-- version: %d\n", slug, next)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return Migration{}, fmt.Errorf("failed to write migration file %s: %w", path, err)
	}
	return Migration{Version: next, Name: slug, Path: path}, nil
}

// Recreate drops and recreates the public schema, then reapplies every
// migration from scratch. Destructive — callers must confirm out-of-band.
func (e *Engine) Recreate(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, `DROP SCHEMA public CASCADE; CREATE SCHEMA public`); err != nil {
		return fmt.Errorf("failed to recreate public schema: %w", err)
	}
	return e.Migrate(ctx)
}

func slugify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('_')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
