package prometheus

import (
	"net/http/httptest"
	"strings"
	"testing"

	adminauth "github.com/hallgate/adminauth"
)

type fakeSource struct {
	snapshot adminauth.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() adminauth.MetricsSnapshot { return f.snapshot }
func (f *fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestRenderCounters(t *testing.T) {
	source := &fakeSource{
		snapshot: adminauth.MetricsSnapshot{
			Counters: map[adminauth.MetricID]uint64{
				adminauth.MetricLoginSuccess: 7,
				adminauth.MetricLoginLocked:  2,
			},
		},
		dropped: 3,
	}
	out := NewExporterFromSource(source).Render()

	for _, want := range []string{
		"# TYPE adminauth_login_success_total counter",
		"adminauth_login_success_total 7",
		"adminauth_login_locked_total 2",
		"adminauth_login_failure_total 0",
		"adminauth_audit_dropped_total 3",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmptySnapshot(t *testing.T) {
	source := &fakeSource{snapshot: adminauth.MetricsSnapshot{Counters: map[adminauth.MetricID]uint64{}}}
	if out := NewExporterFromSource(source).Render(); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}

func TestHandlerContentType(t *testing.T) {
	source := &fakeSource{
		snapshot: adminauth.MetricsSnapshot{
			Counters: map[adminauth.MetricID]uint64{adminauth.MetricSessionCreated: 1},
		},
	}
	rec := httptest.NewRecorder()
	NewExporterFromSource(source).Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Fatalf("content type = %q", got)
	}
	if !strings.Contains(rec.Body.String(), "adminauth_session_created_total 1") {
		t.Fatalf("body missing counter:\n%s", rec.Body.String())
	}
}
