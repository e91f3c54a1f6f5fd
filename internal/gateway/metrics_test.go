package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveTurn(t *testing.T) {
	t.Parallel()

	m := NewMetrics(nil)
	m.ObserveTurn("chat", "versatile", outcomeOK, 500*time.Millisecond)
	m.ObserveTurn("chat", "versatile", outcomeOK, time.Second)
	m.ObserveTurn("rag", "instant", outcomeError, time.Second)

	if got := testutil.ToFloat64(m.turns.WithLabelValues("chat", "versatile", outcomeOK)); got != 2 {
		t.Errorf("chat turns = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.turns.WithLabelValues("rag", "instant", outcomeError)); got != 1 {
		t.Errorf("rag errors = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.turnLatency); n != 2 {
		t.Errorf("latency series = %d, want 2", n)
	}
}

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := NewMetrics(nil)
	m.ObserveIngest(outcomeOK)
	m.ObserveSummary(outcomeError)
	m.ObserveRejection("turn")

	if got := testutil.ToFloat64(m.ingestions.WithLabelValues(outcomeOK)); got != 1 {
		t.Errorf("ingestions = %v", got)
	}
	if got := testutil.ToFloat64(m.summaries.WithLabelValues(outcomeError)); got != 1 {
		t.Errorf("summaries = %v", got)
	}
	if got := testutil.ToFloat64(m.rejections.WithLabelValues("turn")); got != 1 {
		t.Errorf("rejections = %v", got)
	}
}

func TestMetrics_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	m := NewMetrics(nil)
	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.ObserveTurn("chat", "versatile", outcomeOK, time.Millisecond)
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(m.turns.WithLabelValues("chat", "versatile", outcomeOK)); got != 100 {
		t.Errorf("turns = %v, want 100", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := NewMetrics(func() int { return 3 })
	m.ObserveIngest(outcomeOK)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	for _, want := range []string{"ragchat_ingestions_total", "ragchat_active_sessions 3", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition lacks %q", want)
		}
	}
}

func TestOutcome(t *testing.T) {
	t.Parallel()

	if outcome(nil) != outcomeOK {
		t.Error("nil error should be ok")
	}
	if outcome(io.EOF) != outcomeError {
		t.Error("non-nil error should be error")
	}
}
