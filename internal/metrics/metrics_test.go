package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPersisted_EmptyTierIsNone(t *testing.T) {
	before := testutil.ToFloat64(persisted.WithLabelValues("none"))
	RecordPersisted("")
	if got := testutil.ToFloat64(persisted.WithLabelValues("none")); got != before+1 {
		t.Errorf("expected none counter %v, got %v", before+1, got)
	}
}

func TestRecordTierAttempt_SkippedHasNoLatency(t *testing.T) {
	before := testutil.CollectAndCount(tierDuration)
	RecordTierAttempt("secondary", "carrier-pigeon", "skipped", 0)
	if got := testutil.CollectAndCount(tierDuration); got != before {
		t.Errorf("skipped attempt must not observe latency: series %d -> %d", before, got)
	}
	if got := testutil.ToFloat64(tierAttempts.WithLabelValues("secondary", "carrier-pigeon", "skipped")); got != 1 {
		t.Errorf("expected 1 skipped attempt, got %v", got)
	}
}

func TestHandler_ExposesContactMetrics(t *testing.T) {
	RecordTierAttempt("primary", "postgres", "ok", 12*time.Millisecond)
	RecordValidationError("phone")
	RecordRateLimited()
	RecordHTTPRequest("POST", "", 201, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`contact_writer_tier_attempts_total{backend="postgres",outcome="ok",tier="primary"}`,
		`contact_intake_validation_errors_total{field="phone"}`,
		"contact_intake_rate_limited_total",
		`route="unmatched"`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
