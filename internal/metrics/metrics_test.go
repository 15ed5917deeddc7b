package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/distopia/districtview/pkg/engine"
)

func TestRecorder(t *testing.T) {
	m := New()
	m.SnapshotAdmitted(4)
	m.SnapshotAdmitted(9)
	m.SnapshotDropped()
	m.SnapshotRejected()
	m.RepaintFailed("incomplete")
	m.RepaintFailed("incomplete")
	m.RepaintDone(3 * time.Millisecond)
	m.StateChanged(engine.Live)

	if got := testutil.ToFloat64(m.admitted); got != 2 {
		t.Errorf("admitted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.lastCounter); got != 9 {
		t.Errorf("last counter = %v, want 9", got)
	}
	if got := testutil.ToFloat64(m.dropped); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("incomplete")); got != 2 {
		t.Errorf("incomplete failures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.state); got != float64(engine.Live) {
		t.Errorf("state = %v, want %v", got, float64(engine.Live))
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.SnapshotDropped()
	if got := testutil.ToFloat64(b.dropped); got != 0 {
		t.Errorf("second registry dropped = %v, want 0", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.MessageReceived("rosbridge", "/evaluated_designs")
	m.HTTPRequest("/api/scene", 404)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`districtview_transport_messages_total{topic="/evaluated_designs",transport="rosbridge"} 1`,
		`districtview_http_requests_total{route="/api/scene",status="4xx"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
