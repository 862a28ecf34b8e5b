package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kataria/backend/internal/model"
)

// FallbackEntryType is the "type" value of every fallback log line.
const FallbackEntryType = "fallback"

// maxLineBytes bounds a single log line when reading; a validated submission
// is far smaller.
const maxLineBytes = 1 << 20

// FallbackEntry is one line of the fallback log.
type FallbackEntry struct {
	Timestamp time.Time                `json:"timestamp"`
	Type      string                   `json:"type"`
	Data      *model.ContactSubmission `json:"data"`
}

// FallbackLog is the last-resort tier: an append-only JSON-lines file on
// local disk. It needs no network and no credentials. Lines are never
// rewritten or compacted.
type FallbackLog struct {
	path string
	now  func() time.Time
}

// NewFallbackLog creates a FallbackLog writing to path.
func NewFallbackLog(path string) *FallbackLog {
	return &FallbackLog{path: path, now: time.Now}
}

// Path returns the log file location.
func (l *FallbackLog) Path() string { return l.path }

func (l *FallbackLog) Name() string     { return "fallback-log" }
func (l *FallbackLog) Configured() bool { return l.path != "" }

// Write appends one complete line with a single write call. Concurrent
// writers rely on O_APPEND so lines never interleave.
func (l *FallbackLog) Write(ctx context.Context, s *model.ContactSubmission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := json.Marshal(FallbackEntry{
		Timestamp: l.now().UTC(),
		Type:      FallbackEntryType,
		Data:      s,
	})
	if err != nil {
		return fmt.Errorf("storage: encode fallback entry: %w", err)
	}
	line = append(line, '\n')

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("storage: open fallback log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("storage: append fallback log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("storage: close fallback log: %w", err)
	}
	return nil
}

// ReadAll returns every well-formed entry in file order. A missing file is an
// empty log. Lines that do not decode (for example a torn final line after a
// crash) are skipped and logged.
func (l *FallbackLog) ReadAll(ctx context.Context) ([]FallbackEntry, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return []FallbackEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: open fallback log: %w", err)
	}
	defer f.Close()

	entries := []FallbackEntry{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e FallbackEntry
		if err := json.Unmarshal(raw, &e); err != nil || e.Data == nil {
			slog.Warn("skipping malformed fallback log line", "path", l.path, "line", lineNo, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("storage: read fallback log: %w", err)
	}
	return entries, nil
}

// List returns the logged submissions, newest first.
func (l *FallbackLog) List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.ContactSubmission, error) {
	entries, err := l.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	all := make([]*model.ContactSubmission, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		all = append(all, entries[i].Data)
	}
	return model.Paginate(all, opts), nil
}
