package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordQuery(t *testing.T) {
	m := NewMetrics("test")

	m.RecordQuery("paths", 5*time.Millisecond, 3, false, nil)
	m.RecordQuery("paths", 5*time.Millisecond, 15, true, nil)
	m.RecordQuery("cycles", time.Millisecond, 0, false, errors.New("unknown node"))

	if got := testutil.ToFloat64(m.QueriesTotal.WithLabelValues("paths", "ok")); got != 2 {
		t.Errorf("expected 2 ok path queries, got %v", got)
	}
	if got := testutil.ToFloat64(m.QueriesTotal.WithLabelValues("cycles", "error")); got != 1 {
		t.Errorf("expected 1 failed cycle query, got %v", got)
	}
	if got := testutil.ToFloat64(m.QueryTruncated.WithLabelValues("paths")); got != 1 {
		t.Errorf("expected 1 truncated query, got %v", got)
	}
	if got := testutil.CollectAndCount(m.QueryDuration); got != 2 {
		t.Errorf("expected duration series for 2 kinds, got %d", got)
	}
	// failed queries carry no result count
	if got := testutil.CollectAndCount(m.QueryResults); got != 1 {
		t.Errorf("expected result series for 1 kind, got %d", got)
	}
}

func TestRecordSnapshotAndReload(t *testing.T) {
	m := NewMetrics("test")
	at := time.Unix(1_700_000_000, 0)

	m.RecordSnapshot(4, 5, at)
	m.RecordReload(20*time.Millisecond, nil)
	m.RecordReload(time.Millisecond, errors.New("bad dataset"))
	m.RecordClamp("cycles")

	if got := testutil.ToFloat64(m.SnapshotNodes); got != 4 {
		t.Errorf("expected 4 nodes, got %v", got)
	}
	if got := testutil.ToFloat64(m.SnapshotEdges); got != 5 {
		t.Errorf("expected 5 edges, got %v", got)
	}
	if got := testutil.ToFloat64(m.SnapshotLoaded); got != 1_700_000_000 {
		t.Errorf("unexpected load timestamp %v", got)
	}
	if got := testutil.ToFloat64(m.ReloadsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed reload, got %v", got)
	}
	if got := testutil.ToFloat64(m.DepthClamped.WithLabelValues("cycles")); got != 1 {
		t.Errorf("expected 1 clamp, got %v", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics("test")
	m.RecordQuery("shortest", time.Millisecond, 1, false, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	out := string(body)
	for _, want := range []string{
		`test_queries_total{kind="shortest",status="ok"} 1`,
		"# TYPE test_query_duration_seconds histogram",
		"test_snapshot_nodes 0",
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestDefaultMetrics(t *testing.T) {
	if Default() != Default() {
		t.Error("Default should return a single instance")
	}
}
