// Package writer persists accepted contact submissions through an ordered
// chain of storage tiers: primary, secondary, then the local fallback log.
//
// Each tier is attempted at most once per submission, strictly in order, and
// each attempt is bounded by a timeout. The first tier that succeeds is
// recorded on the persisted copy and reported in the Result.
package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kataria/backend/internal/metrics"
	"github.com/kataria/backend/internal/model"
)

// DefaultTierTimeout bounds a single tier attempt when no timeout is configured.
const DefaultTierTimeout = 5 * time.Second

var (
	// ErrNotConfigured marks a tier that was skipped because its backend lacks credentials.
	ErrNotConfigured = errors.New("writer: backend not configured")
	// ErrTierTimeout marks a tier attempt that did not finish before its deadline.
	ErrTierTimeout = errors.New("writer: tier attempt timed out")
	// ErrAllTiersFailed is returned when no tier persisted the submission.
	ErrAllTiersFailed = errors.New("writer: all storage tiers failed")
)

// Backend is any store that can persist one submission.
type Backend interface {
	// Name identifies the concrete backend in logs and metrics, e.g. "postgres".
	Name() string
	// Configured reports whether the backend has what it needs to be attempted.
	Configured() bool
	Write(ctx context.Context, s *model.ContactSubmission) error
}

// TierError records why a tier did not persist a submission.
type TierError struct {
	Tier    model.StorageBackend
	Backend string
	Err     error
}

func (e *TierError) Error() string {
	return fmt.Sprintf("%s tier (%s): %v", e.Tier, e.Backend, e.Err)
}

func (e *TierError) Unwrap() error { return e.Err }

// Result is the outcome of Writer.Write.
type Result struct {
	Persisted bool
	// Backend is the tier that persisted the submission; empty when Persisted is false.
	Backend model.StorageBackend
	// BackendName is the concrete backend behind that tier.
	BackendName string
	// Submission is the persisted copy, carrying StorageBackend.
	Submission *model.ContactSubmission
	// Errors holds every tier that was skipped or failed before the outcome.
	Errors []TierError
}

// Err returns nil when the submission was persisted, otherwise an error that
// wraps ErrAllTiersFailed and every tier error.
func (r Result) Err() error {
	if r.Persisted {
		return nil
	}
	errs := []error{ErrAllTiersFailed}
	for i := range r.Errors {
		errs = append(errs, &r.Errors[i])
	}
	return errors.Join(errs...)
}

// TierInfo describes one slot of the chain for health reporting.
type TierInfo struct {
	Tier       model.StorageBackend `json:"tier"`
	Backend    string               `json:"backend"`
	Configured bool                 `json:"configured"`
}

type tier struct {
	level   model.StorageBackend
	backend Backend
}

// Writer runs the fallback chain.
type Writer struct {
	tiers   []tier
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithTierTimeout sets the per-tier deadline.
func WithTierTimeout(d time.Duration) Option {
	return func(w *Writer) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithLogger sets the logger used for tier failures.
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a Writer over the three tiers. Any tier may be nil, in which
// case it is skipped as unconfigured.
func New(primary, secondary, fallback Backend, opts ...Option) *Writer {
	w := &Writer{
		tiers: []tier{
			{level: model.StoragePrimary, backend: primary},
			{level: model.StorageSecondary, backend: secondary},
			{level: model.StorageLocalFallback, backend: fallback},
		},
		timeout: DefaultTierTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Tiers describes the chain in attempt order.
func (w *Writer) Tiers() []TierInfo {
	out := make([]TierInfo, 0, len(w.tiers))
	for _, t := range w.tiers {
		info := TierInfo{Tier: t.level, Backend: "none"}
		if t.backend != nil {
			info.Backend = t.backend.Name()
			info.Configured = t.backend.Configured()
		}
		out = append(out, info)
	}
	return out
}

// Write persists s in the first tier that accepts it. s itself is never modified.
func (w *Writer) Write(ctx context.Context, s *model.ContactSubmission) Result {
	var errs []TierError
	for _, t := range w.tiers {
		name := "none"
		if t.backend != nil {
			name = t.backend.Name()
		}
		if t.backend == nil || !t.backend.Configured() {
			metrics.RecordTierAttempt(string(t.level), name, "skipped", 0)
			w.logger.Debug("storage tier skipped", "tier", t.level, "backend", name, "submission_id", s.SubmissionID)
			errs = append(errs, TierError{Tier: t.level, Backend: name, Err: ErrNotConfigured})
			continue
		}

		rec := s.Clone()
		rec.StorageBackend = t.level

		start := time.Now()
		err := w.attempt(ctx, t.backend, rec)
		elapsed := time.Since(start)

		if err == nil {
			metrics.RecordTierAttempt(string(t.level), name, "ok", elapsed)
			metrics.RecordPersisted(string(t.level))
			w.logger.Info("submission persisted",
				"tier", t.level,
				"backend", name,
				"submission_id", s.SubmissionID,
				"duration_ms", elapsed.Milliseconds(),
			)
			return Result{
				Persisted:   true,
				Backend:     t.level,
				BackendName: name,
				Submission:  rec,
				Errors:      errs,
			}
		}

		outcome := "error"
		if errors.Is(err, ErrTierTimeout) {
			outcome = "timeout"
		}
		metrics.RecordTierAttempt(string(t.level), name, outcome, elapsed)
		w.logger.Warn("storage tier failed",
			"tier", t.level,
			"backend", name,
			"submission_id", s.SubmissionID,
			"error", err,
		)
		errs = append(errs, TierError{Tier: t.level, Backend: name, Err: err})
	}

	metrics.RecordPersisted("")
	res := Result{Errors: errs}
	w.logger.Error("submission not persisted in any tier",
		"submission_id", s.SubmissionID,
		"error", res.Err(),
	)
	return res
}

// attempt runs one tier write under the tier deadline. A backend that ignores
// its context is abandoned when the deadline passes.
func (w *Writer) attempt(ctx context.Context, b Backend, rec *model.ContactSubmission) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- b.Write(ctx, rec) }()

	select {
	case err := <-done:
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrTierTimeout, err)
		}
		return err
	case <-ctx.Done():
		// Prefer a result that raced with the deadline.
		select {
		case err := <-done:
			if err == nil {
				return nil
			}
		default:
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTierTimeout, w.timeout)
		}
		return ctx.Err()
	}
}
