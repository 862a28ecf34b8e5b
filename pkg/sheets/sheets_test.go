package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"

	"github.com/kataria/backend/internal/model"
)

// fakeSheets serves the subset of the Sheets v4 values API the client uses.
type fakeSheets struct {
	mu       sync.Mutex
	rows     [][]interface{}
	appends  int
	lastOpts string
	fail     bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"The caller does not have permission"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var vr struct {
			Values [][]interface{} `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.rows = append(f.rows, vr.Values...)
		f.appends++
		f.lastOpts = r.URL.Query().Get("valueInputOption")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	case r.Method == http.MethodPut:
		var vr struct {
			Values [][]interface{} `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.rows = append(vr.Values, f.rows...)
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	case r.Method == http.MethodGet:
		rows := f.rows
		if strings.Contains(r.URL.Path, "A1:") && len(rows) > 1 {
			rows = rows[:1]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"range": SheetName, "values": rows})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := NewClient(context.Background(), "sheet-1",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func testSubmission(id string) *model.ContactSubmission {
	return &model.ContactSubmission{
		SubmissionID:   id,
		Name:           "Jane Doe",
		Email:          "jane@example.com",
		Phone:          "0987654321",
		Message:        "Interested in nursery admission for my child",
		SubmittedAt:    time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		StorageBackend: model.StorageSecondary,
	}
}

func TestClient_WriteAppendsRawRow(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	if err := c.Write(context.Background(), testSubmission("CONTACT_1_aaaaaaaaa")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if fake.appends != 1 {
		t.Fatalf("expected 1 append, got %d", fake.appends)
	}
	if fake.lastOpts != "RAW" {
		t.Errorf("valueInputOption = %q, want RAW", fake.lastOpts)
	}
	row := fake.rows[0]
	if len(row) != len(model.SheetHeader) {
		t.Fatalf("expected %d cells, got %d", len(model.SheetHeader), len(row))
	}
	if row[4] != "0987654321" {
		t.Errorf("phone cell = %v, leading zero must survive", row[4])
	}
	if row[9] != "secondary" {
		t.Errorf("storage backend cell = %v", row[9])
	}
}

func TestClient_EnsureHeaderThenList(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)
	ctx := context.Background()

	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	for _, id := range []string{"CONTACT_1_aaaaaaaaa", "CONTACT_2_bbbbbbbbb"} {
		if err := c.Write(ctx, testSubmission(id)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	got, err := c.List(ctx, model.SubmissionListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 submissions (header skipped), got %d", len(got))
	}
	if got[0].SubmissionID != "CONTACT_2_bbbbbbbbb" {
		t.Errorf("expected newest first, got %q", got[0].SubmissionID)
	}
	if !got[1].SubmittedAt.Equal(time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)) {
		t.Errorf("submittedAt = %v", got[1].SubmittedAt)
	}
}

func TestClient_WriteSurfacesAPIError(t *testing.T) {
	c := newTestClient(t, &fakeSheets{fail: true})
	if err := c.Write(context.Background(), testSubmission("CONTACT_1_aaaaaaaaa")); err == nil {
		t.Error("expected error from a 403 response")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Error("expected ping error from a 403 response")
	}
}

func TestClient_NotConfigured(t *testing.T) {
	c := &Client{}
	if c.Configured() {
		t.Error("zero client should not be configured")
	}
	if err := c.Write(context.Background(), testSubmission("CONTACT_1_aaaaaaaaa")); err != ErrNotConfigured {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
