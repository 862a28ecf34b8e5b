package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/kataria/backend/internal/backend"
	"github.com/kataria/backend/internal/repository"
	"github.com/kataria/backend/internal/storage"
	"github.com/kataria/backend/internal/writer"
)

func newFallbackCmd(load configLoader) *cobra.Command {
	fallbackCmd := &cobra.Command{
		Use:   "fallback",
		Short: "Inspect or replay the local fallback log",
	}
	fallbackCmd.PersistentFlags().String("log", "", "fallback log path (default FALLBACK_LOG_PATH)")
	fallbackCmd.AddCommand(newFallbackListCmd(load), newFallbackReplayCmd(load))
	return fallbackCmd
}

func openFallbackLog(cmd *cobra.Command, load configLoader) (*storage.FallbackLog, error) {
	path, _ := cmd.Flags().GetString("log")
	if path == "" {
		cfg, err := load()
		if err != nil {
			return nil, err
		}
		path = cfg.Storage.FallbackLogPath
	}
	return storage.NewFallbackLog(path), nil
}

func newFallbackListCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the submissions held in the fallback log, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fl, err := openFallbackLog(cmd, load)
			if err != nil {
				return err
			}
			entries, err := fl.ReadAll(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SUBMISSION ID\tSUBMITTED AT\tLOGGED AT\tNAME\tEMAIL")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.Data.SubmissionID,
					e.Data.SubmittedAt.UTC().Format(time.RFC3339),
					e.Timestamp.UTC().Format(time.RFC3339),
					e.Data.Name,
					e.Data.Email,
				)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d entries in %s\n", len(entries), fl.Path())
			return nil
		},
	}
}

type replaySummary struct {
	Written, Skipped, Failed int
}

func newFallbackReplayCmd(load configLoader) *cobra.Command {
	var (
		to      string
		perSec  float64
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-write fallback log entries into a storage backend",
		Long: `Reads every entry of the fallback log and writes it to the named backend.
The log itself is never modified; rerunning replay is safe for backends that
reject duplicate submission IDs (postgres).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			to = strings.ToLower(strings.TrimSpace(to))
			if to == backend.FallbackLog || to == backend.None {
				return fmt.Errorf("cannot replay into %q", to)
			}
			if perSec <= 0 {
				return errors.New("--rate must be positive")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("log")
			if path == "" {
				path = cfg.Storage.FallbackLogPath
			}
			if timeout <= 0 {
				timeout = cfg.Storage.TierTimeout
			}

			ctx := cmd.Context()
			target, cleanup := backend.Build(ctx, to, cfg)
			defer cleanup()
			if !target.Configured() {
				return fmt.Errorf("backend %q is not configured", to)
			}

			entries, err := storage.NewFallbackLog(path).ReadAll(ctx)
			if err != nil {
				return err
			}

			limiter := rate.NewLimiter(rate.Limit(perSec), 1)
			var sum replaySummary
			for _, e := range entries {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
				err := writeOne(ctx, target, e, timeout)
				switch {
				case err == nil:
					sum.Written++
				case errors.Is(err, repository.ErrDuplicate):
					sum.Skipped++
				default:
					sum.Failed++
					slog.Warn("replay failed", "submission_id", e.Data.SubmissionID, "backend", to, "error", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d entries into %s: %d written, %d already present, %d failed\n",
				len(entries), to, sum.Written, sum.Skipped, sum.Failed)
			if sum.Failed > 0 {
				return fmt.Errorf("%d entries could not be replayed", sum.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "target backend ("+fmt.Sprint(backend.Known())+")")
	cmd.Flags().Float64Var(&perSec, "rate", 5, "maximum writes per second")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-write timeout (default TIER_TIMEOUT)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func writeOne(ctx context.Context, target writer.Backend, e storage.FallbackEntry, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return target.Write(ctx, e.Data)
}
