package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	upSuffix         = ".up.sql"
	downSuffix       = ".down.sql"
	dropAllFile      = "000_drop_all.sql"
	consolidatedFile = "000_consolidated.sql"
)

var errNothingApplied = errors.New("no applied migration to roll back")

func knownCommand(cmd string) bool {
	switch cmd {
	case "up", "down", "status", "reset", "fresh":
		return true
	}
	return false
}

// migration pairs an up file with its optional down file.
type migration struct {
	Name     string
	UpFile   string
	DownFile string
}

// loadMigrations returns the numbered migrations in dir sorted by name.
// The 000_* scripts are not migrations and are skipped.
func loadMigrations(dir string) ([]migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	files := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			files[e.Name()] = true
		}
	}

	var out []migration
	for f := range files {
		if !strings.HasSuffix(f, upSuffix) {
			continue
		}
		name := strings.TrimSuffix(f, upSuffix)
		m := migration{Name: name, UpFile: filepath.Join(dir, f)}
		if files[name+downSuffix] {
			m.DownFile = filepath.Join(dir, name+downSuffix)
		}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b migration) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// pending returns the migrations not in applied, keeping order.
func pending(all []migration, applied map[string]time.Time) []migration {
	var out []migration
	for _, m := range all {
		if _, ok := applied[m.Name]; !ok {
			out = append(out, m)
		}
	}
	return out
}

// lastApplied returns the highest-named applied migration that is still on disk.
func lastApplied(all []migration, applied map[string]time.Time) (migration, bool) {
	for i := len(all) - 1; i >= 0; i-- {
		if _, ok := applied[all[i].Name]; ok {
			return all[i], true
		}
	}
	return migration{}, false
}

func writeStatus(w io.Writer, all []migration, applied map[string]time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MIGRATION\tAPPLIED AT")
	for _, m := range all {
		at := "pending"
		if t, ok := applied[m.Name]; ok {
			at = t.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\n", m.Name, at)
	}
	return tw.Flush()
}

type migrator struct {
	pool *pgxpool.Pool
	dir  string
	out  io.Writer
}

func (m *migrator) run(ctx context.Context, cmd string) error {
	switch cmd {
	case "up":
		return m.up(ctx)
	case "down":
		return m.down(ctx)
	case "status":
		return m.status(ctx)
	case "reset":
		if err := m.execFile(ctx, dropAllFile); err != nil {
			return err
		}
		return m.consolidated(ctx)
	case "fresh":
		if err := m.execFile(ctx, dropAllFile); err != nil {
			return err
		}
		return m.up(ctx)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (m *migrator) ensureTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func (m *migrator) applied(ctx context.Context) (map[string]time.Time, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	rows, err := m.pool.Query(ctx, "SELECT name, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var name string
		var at time.Time
		if err := rows.Scan(&name, &at); err != nil {
			return nil, err
		}
		out[name] = at
	}
	return out, rows.Err()
}

func (m *migrator) up(ctx context.Context) error {
	all, err := loadMigrations(m.dir)
	if err != nil {
		return err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	todo := pending(all, applied)
	for _, mig := range todo {
		sql, err := os.ReadFile(mig.UpFile)
		if err != nil {
			return err
		}
		err = pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(sql)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO schema_migrations (name) VALUES ($1)", mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", mig.Name, err)
		}
		slog.Info("migration applied", "migration", mig.Name)
	}

	if len(todo) == 0 {
		slog.Info("all migrations already applied")
	} else {
		slog.Info("migrations completed", "count", len(todo))
	}
	return nil
}

func (m *migrator) down(ctx context.Context) error {
	all, err := loadMigrations(m.dir)
	if err != nil {
		return err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}
	mig, ok := lastApplied(all, applied)
	if !ok {
		return errNothingApplied
	}
	if mig.DownFile == "" {
		return fmt.Errorf("migration %s has no %s file", mig.Name, downSuffix)
	}
	sql, err := os.ReadFile(mig.DownFile)
	if err != nil {
		return err
	}
	err = pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, "DELETE FROM schema_migrations WHERE name = $1", mig.Name)
		return err
	})
	if err != nil {
		return fmt.Errorf("roll back %s: %w", mig.Name, err)
	}
	slog.Info("migration rolled back", "migration", mig.Name)
	return nil
}

func (m *migrator) status(ctx context.Context) error {
	all, err := loadMigrations(m.dir)
	if err != nil {
		return err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}
	return writeStatus(m.out, all, applied)
}

func (m *migrator) execFile(ctx context.Context, name string) error {
	sql, err := os.ReadFile(filepath.Join(m.dir, name))
	if err != nil {
		return err
	}
	if _, err := m.pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	slog.Info("script applied", "file", name)
	return nil
}

// consolidated creates the schema in one step and marks every numbered
// migration as applied.
func (m *migrator) consolidated(ctx context.Context) error {
	if err := m.execFile(ctx, consolidatedFile); err != nil {
		return err
	}
	all, err := loadMigrations(m.dir)
	if err != nil {
		return err
	}
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	for _, mig := range all {
		if _, err := m.pool.Exec(ctx, "INSERT INTO schema_migrations (name) VALUES ($1) ON CONFLICT DO NOTHING", mig.Name); err != nil {
			return fmt.Errorf("mark %s: %w", mig.Name, err)
		}
	}
	slog.Info("consolidated schema applied", "migrations_marked", len(all))
	return nil
}
