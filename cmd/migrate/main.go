// Command migrate applies the SQL files in migrations/ to the postgres tier.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kataria/backend/internal/config"
	"github.com/kataria/backend/internal/logging"
	"github.com/kataria/backend/internal/repository"
)

const usageText = `Usage: migrate [command]

Commands:
  up (default)  apply pending migrations, each in its own transaction
  down          roll back the most recently applied migration
  status        list migrations and whether they are applied
  reset         drop every table and recreate from 000_consolidated.sql
  fresh         drop every table and apply all migrations in order`

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("INFO")
		logging.Fatal("invalid configuration", "error", err)
	}
	logging.Setup(cfg.LogLevel)

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	if !knownCommand(cmd) {
		fmt.Fprintln(os.Stderr, usageText)
		os.Exit(2)
	}
	if cfg.Postgres.DatabaseURL == "" {
		logging.Fatal("DATABASE_URL is required to run migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := repository.NewPool(ctx, cfg.Postgres.DatabaseURL)
	if err != nil {
		logging.Fatal("connect failed", "error", err)
	}

	m := &migrator{pool: pool, dir: findMigrationDir(), out: os.Stdout}
	err = m.run(ctx, cmd)
	pool.Close()
	if err != nil {
		logging.Fatal("migrate failed", "command", cmd, "error", err)
	}
}

func findMigrationDir() string {
	for _, dir := range []string{"migrations", "../migrations"} {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return dir
		}
	}
	return "migrations"
}
