// Package backend builds writer tiers by name from configuration.
//
// A backend whose credentials are missing, or whose client cannot be created,
// is returned as an unconfigured placeholder so the writer skips it. Startup
// never fails because a storage tier is unavailable.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"google.golang.org/api/option"

	"github.com/kataria/backend/internal/broker"
	"github.com/kataria/backend/internal/config"
	"github.com/kataria/backend/internal/repository"
	"github.com/kataria/backend/internal/storage"
	"github.com/kataria/backend/internal/writer"
	"github.com/kataria/backend/pkg/appscript"
	"github.com/kataria/backend/pkg/sheets"
)

// Names accepted by Build.
const (
	Postgres    = "postgres"
	Workbook    = "xlsx"
	Sheets      = "sheets"
	AppScript   = "appscript"
	MinIO       = "minio"
	Kafka       = "kafka"
	FallbackLog = "fallback-log"
	None        = "none"
)

type builder func(ctx context.Context, cfg *config.Config) (writer.Backend, func(), error)

var builders = map[string]builder{
	Postgres:    buildPostgres,
	Workbook:    buildWorkbook,
	Sheets:      buildSheets,
	AppScript:   buildAppScript,
	MinIO:       buildMinIO,
	Kafka:       buildKafka,
	FallbackLog: buildFallbackLog,
	None:        buildNone,
}

// Known lists the accepted backend names.
func Known() []string {
	names := make([]string, 0, len(builders))
	for n := range builders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build constructs the named backend. The returned cleanup releases whatever
// the backend opened and is never nil.
func Build(ctx context.Context, name string, cfg *config.Config) (writer.Backend, func()) {
	name = strings.ToLower(strings.TrimSpace(name))
	b, ok := builders[name]
	if !ok {
		slog.Warn("unknown storage backend", "backend", name, "known", Known())
		return writer.Unconfigured(name, "unknown backend"), func() {}
	}
	be, cleanup, err := b(ctx, cfg)
	if err != nil {
		slog.Warn("storage backend unavailable", "backend", name, "error", err)
		return writer.Unconfigured(name, err.Error()), func() {}
	}
	if cleanup == nil {
		cleanup = func() {}
	}
	if !be.Configured() {
		slog.Info("storage backend not configured", "backend", name)
	}
	return be, cleanup
}

func buildPostgres(ctx context.Context, cfg *config.Config) (writer.Backend, func(), error) {
	if cfg.Postgres.DatabaseURL == "" {
		return writer.Unconfigured(Postgres, "DATABASE_URL not set"), nil, nil
	}
	pool, err := repository.NewPool(ctx, cfg.Postgres.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	return repository.NewPgContactRepository(pool), pool.Close, nil
}

func buildWorkbook(_ context.Context, cfg *config.Config) (writer.Backend, func(), error) {
	if cfg.Workbook.Path == "" {
		return writer.Unconfigured(Workbook, "XLSX_PATH not set"), nil, nil
	}
	return storage.NewWorkbookStore(cfg.Workbook.Path), nil, nil
}

func buildSheets(ctx context.Context, cfg *config.Config) (writer.Backend, func(), error) {
	if cfg.Sheets.SpreadsheetID == "" || cfg.Sheets.CredentialsFile == "" {
		return writer.Unconfigured(Sheets, "GOOGLE_SHEETS_SPREADSHEET_ID or GOOGLE_APPLICATION_CREDENTIALS not set"), nil, nil
	}
	c, err := sheets.NewClient(ctx, cfg.Sheets.SpreadsheetID, option.WithCredentialsFile(cfg.Sheets.CredentialsFile))
	if err != nil {
		return nil, nil, err
	}
	hctx, cancel := context.WithTimeout(ctx, cfg.Storage.TierTimeout)
	defer cancel()
	if err := c.EnsureHeader(hctx); err != nil {
		slog.Warn("could not ensure sheet header", "error", err)
	}
	return c, nil, nil
}

func buildAppScript(_ context.Context, cfg *config.Config) (writer.Backend, func(), error) {
	if cfg.AppScript.URL == "" {
		return writer.Unconfigured(AppScript, "APPS_SCRIPT_URL not set"), nil, nil
	}
	return appscript.NewClient(cfg.AppScript.URL), nil, nil
}

func buildMinIO(ctx context.Context, cfg *config.Config) (writer.Backend, func(), error) {
	m := cfg.MinIO
	if m.Endpoint == "" || m.AccessKey == "" || m.SecretKey == "" || m.Bucket == "" {
		return writer.Unconfigured(MinIO, "MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY or MINIO_BUCKET not set"), nil, nil
	}
	store, err := storage.NewObjectStore(m.Endpoint, m.AccessKey, m.SecretKey, m.UseTLS, m.Bucket, m.BasePath)
	if err != nil {
		return nil, nil, err
	}
	bctx, cancel := context.WithTimeout(ctx, cfg.Storage.TierTimeout)
	defer cancel()
	if err := store.EnsureBucket(bctx); err != nil {
		slog.Warn("could not ensure bucket", "bucket", m.Bucket, "error", err)
	}
	return store, nil, nil
}

func buildKafka(_ context.Context, cfg *config.Config) (writer.Backend, func(), error) {
	brokers := cfg.KafkaBrokers()
	if len(brokers) == 0 || cfg.Kafka.Topic == "" {
		return writer.Unconfigured(Kafka, "KAFKA_BROKERS or KAFKA_TOPIC not set"), nil, nil
	}
	p := broker.NewPublisher(brokers, cfg.Kafka.Topic)
	return p, func() {
		if err := p.Close(); err != nil {
			slog.Warn("kafka publisher close", "error", err)
		}
	}, nil
}

func buildFallbackLog(_ context.Context, cfg *config.Config) (writer.Backend, func(), error) {
	return storage.NewFallbackLog(cfg.Storage.FallbackLogPath), nil, nil
}

func buildNone(context.Context, *config.Config) (writer.Backend, func(), error) {
	return writer.Unconfigured(None, "disabled"), nil, nil
}
