package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kataria/backend/internal/config"
	"github.com/kataria/backend/internal/model"
	"github.com/kataria/backend/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.FallbackLogPath = filepath.Join(dir, "contact-backup.jsonl")
	cfg.Storage.TierTimeout = 5 * time.Second
	cfg.Workbook.Path = filepath.Join(dir, "contact_submissions.xlsx")
	return cfg
}

func seedFallbackLog(t *testing.T, path string, ids ...string) {
	t.Helper()
	fl := storage.NewFallbackLog(path)
	for i, id := range ids {
		err := fl.Write(context.Background(), &model.ContactSubmission{
			SubmissionID:   id,
			Name:           "Jane Doe",
			Email:          "jane@example.com",
			Phone:          "9876543210",
			Message:        "Interested in nursery admission",
			SubmittedAt:    time.Date(2026, 3, 4, 5, 6, i, 0, time.UTC),
			StorageBackend: model.StorageLocalFallback,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(func() (*config.Config, error) { return cfg, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// ---------------------------------------------------------------------------
// fallback list
// ---------------------------------------------------------------------------

func TestFallbackList(t *testing.T) {
	cfg := testConfig(t)
	seedFallbackLog(t, cfg.Storage.FallbackLogPath, "CONTACT_1_aaaaaaaaa", "CONTACT_2_bbbbbbbbb")

	out, err := run(t, cfg, "fallback", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	first := strings.Index(out, "CONTACT_1_aaaaaaaaa")
	second := strings.Index(out, "CONTACT_2_bbbbbbbbb")
	if first < 0 || second < 0 || first > second {
		t.Errorf("expected both entries in file order, got:\n%s", out)
	}
	if !strings.Contains(out, "2 entries") {
		t.Errorf("expected entry count, got:\n%s", out)
	}
}

func TestFallbackList_MissingLogIsEmpty(t *testing.T) {
	cfg := testConfig(t)
	out, err := run(t, cfg, "fallback", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "0 entries") {
		t.Errorf("expected 0 entries, got:\n%s", out)
	}
}

func TestFallbackList_LogFlagOverridesConfig(t *testing.T) {
	cfg := testConfig(t)
	other := filepath.Join(t.TempDir(), "other.jsonl")
	seedFallbackLog(t, other, "CONTACT_3_ccccccccc")

	out, err := run(t, cfg, "fallback", "list", "--log", other)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "CONTACT_3_ccccccccc") {
		t.Errorf("expected entry from --log path, got:\n%s", out)
	}
}

// ---------------------------------------------------------------------------
// fallback replay
// ---------------------------------------------------------------------------

func TestFallbackReplay_IntoWorkbook(t *testing.T) {
	cfg := testConfig(t)
	seedFallbackLog(t, cfg.Storage.FallbackLogPath, "CONTACT_1_aaaaaaaaa", "CONTACT_2_bbbbbbbbb")
	before, err := os.ReadFile(cfg.Storage.FallbackLogPath)
	if err != nil {
		t.Fatal(err)
	}

	out, err := run(t, cfg, "fallback", "replay", "--to", "xlsx", "--rate", "1000")
	if err != nil {
		t.Fatalf("replay: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 written") {
		t.Errorf("expected 2 written, got:\n%s", out)
	}

	got, err := storage.NewWorkbookStore(cfg.Workbook.Path).List(context.Background(), model.SubmissionListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("workbook list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows in workbook, got %d", len(got))
	}

	after, err := os.ReadFile(cfg.Storage.FallbackLogPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("replay must not modify the fallback log")
	}
}

func TestFallbackReplay_Rejections(t *testing.T) {
	cfg := testConfig(t)
	tests := []struct {
		name string
		args []string
	}{
		{"missing --to", []string{"fallback", "replay"}},
		{"into the fallback log", []string{"fallback", "replay", "--to", "fallback-log"}},
		{"into none", []string{"fallback", "replay", "--to", "none"}},
		{"unconfigured backend", []string{"fallback", "replay", "--to", "postgres"}},
		{"unknown backend", []string{"fallback", "replay", "--to", "carrier-pigeon"}},
		{"non-positive rate", []string{"fallback", "replay", "--to", "xlsx", "--rate", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, cfg, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// id parse
// ---------------------------------------------------------------------------

func TestIDParse(t *testing.T) {
	out, err := run(t, nil, "id", "parse", "CONTACT_1700000000000_abc123xyz")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if strings.TrimSpace(out) != "2023-11-14T22:13:20Z" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestIDParse_Malformed(t *testing.T) {
	if _, err := run(t, nil, "id", "parse", "CONTACT_abc_123"); err == nil {
		t.Error("expected error for malformed id")
	}
}
