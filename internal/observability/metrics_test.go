package observability

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(fmt.Sprintf("mockinterview_test_%d", time.Now().UnixNano()))

	m.ObserveGeneration("question", "ok", 120*time.Millisecond)
	m.ObserveGeneration("question", "ok", 80*time.Millisecond)
	m.DuplicateRejected()
	m.FallbackUsed("question", "TECH")
	m.SetActiveSessions(3)

	if got := testutil.ToFloat64(m.GenerationCalls.WithLabelValues("question", "ok")); got != 2 {
		t.Fatalf("generation calls = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.DuplicateRejections); got != 1 {
		t.Fatalf("duplicate rejections = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FallbacksUsed.WithLabelValues("question", "TECH")); got != 1 {
		t.Fatalf("fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ActiveSessions); got != 3 {
		t.Fatalf("active sessions = %v, want 3", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SessionEvent("created")
	m.ObserveGeneration("answer", "error", time.Second)
	m.RateLimited()
	m.ArchiveFailed()
}
