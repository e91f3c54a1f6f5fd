package backend

import (
	"sync"
	"time"
)

// Status is a passive health snapshot of one backend. It is derived from
// real invocations only and never influences routing.
type Status struct {
	Name                string    `json:"name"`
	Model               string    `json:"model"`
	Healthy             bool      `json:"healthy"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error,omitempty"`
	LastSuccess         time.Time `json:"last_success,omitzero"`
	LastFailure         time.Time `json:"last_failure,omitzero"`
}

// healthTracker records invocation outcomes for a single backend.
type healthTracker struct {
	mu          sync.Mutex
	failures    int
	lastErr     string
	lastSuccess time.Time
	lastFailure time.Time

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

func newHealthTracker() *healthTracker {
	return &healthTracker{now: time.Now}
}

func (h *healthTracker) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = 0
	h.lastErr = ""
	h.lastSuccess = h.now()
}

func (h *healthTracker) RecordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures++
	h.lastErr = err.Error()
	h.lastFailure = h.now()
}

func (h *healthTracker) snapshot(b Backend) Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Status{
		Name:                b.Name,
		Model:               b.Model,
		Healthy:             h.failures == 0,
		ConsecutiveFailures: h.failures,
		LastError:           h.lastErr,
		LastSuccess:         h.lastSuccess,
		LastFailure:         h.lastFailure,
	}
}
