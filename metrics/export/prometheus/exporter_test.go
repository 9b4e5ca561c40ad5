package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/sessionauth"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot sessionauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() sessionauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                         { return f.dropped }

func TestCollectorOnlyDroppedWhenMetricsDisabled(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: sessionauth.MetricsSnapshot{
			Counters:   map[sessionauth.MetricID]uint64{},
			Histograms: map[sessionauth.MetricID][]uint64{},
		},
	})

	if got := testutil.CollectAndCount(c); got != 1 {
		t.Fatalf("expected only the dropped counter, got %d metrics", got)
	}
}

func TestCollectorCountersAndHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: sessionauth.MetricsSnapshot{
			Counters: map[sessionauth.MetricID]uint64{
				sessionauth.MetricLoginSuccess: 7,
			},
			Histograms: map[sessionauth.MetricID][]uint64{
				sessionauth.MetricVerifyTokenLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
			HistogramSums: map[sessionauth.MetricID]time.Duration{
				sessionauth.MetricVerifyTokenLatency: 2 * time.Second,
			},
		},
		dropped: 2,
	})

	reg := prom.NewPedanticRegistry()
	reg.MustRegister(c)

	expected := `
# HELP sessionauth_login_success_total Logins that issued a session token.
# TYPE sessionauth_login_success_total counter
sessionauth_login_success_total 7
# HELP sessionauth_audit_dropped_total Audit events dropped due to dispatcher backpressure.
# TYPE sessionauth_audit_dropped_total counter
sessionauth_audit_dropped_total 2
# HELP sessionauth_verify_token_latency_seconds VerifyToken latency.
# TYPE sessionauth_verify_token_latency_seconds histogram
sessionauth_verify_token_latency_seconds_bucket{le="0.005"} 1
sessionauth_verify_token_latency_seconds_bucket{le="0.01"} 3
sessionauth_verify_token_latency_seconds_bucket{le="0.025"} 6
sessionauth_verify_token_latency_seconds_bucket{le="0.05"} 10
sessionauth_verify_token_latency_seconds_bucket{le="0.1"} 15
sessionauth_verify_token_latency_seconds_bucket{le="0.25"} 21
sessionauth_verify_token_latency_seconds_bucket{le="0.5"} 28
sessionauth_verify_token_latency_seconds_bucket{le="+Inf"} 36
sessionauth_verify_token_latency_seconds_sum 2
sessionauth_verify_token_latency_seconds_count 36
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"sessionauth_login_success_total",
		"sessionauth_audit_dropped_total",
		"sessionauth_verify_token_latency_seconds",
	)
	if err != nil {
		t.Fatal(err)
	}
}

func TestHandlerServesTextFormat(t *testing.T) {
	h := Handler(fakeSource{
		snapshot: sessionauth.MetricsSnapshot{
			Counters: map[sessionauth.MetricID]uint64{sessionauth.MetricLogout: 3},
		},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "sessionauth_logout_total 3") {
		t.Fatalf("logout counter missing:\n%s", body)
	}
}

func TestCollectorFromEngine(t *testing.T) {
	cfg := sessionauth.DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Revocation.PruneInterval = 0
	engine, err := sessionauth.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	c := NewCollector(engine)
	// 11 counters, the latency histogram and the dropped counter.
	if got := testutil.CollectAndCount(c); got != 13 {
		t.Fatalf("expected 13 metrics, got %d", got)
	}
}
