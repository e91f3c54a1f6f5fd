package orchestrator

import (
	"context"
	"fmt"
	"sync"
)

// LaneLock serializes turns per session. A turn holds its session's lane
// from the history fetch to the append, so two turns of one session never
// interleave. Different sessions proceed in parallel.
//
// A turn waiting for a busy lane gives up when its context ends.
type LaneLock struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

// lane is a one-slot semaphore. refs counts holders and waiters; a stale
// lane is dropped once refs reaches zero.
type lane struct {
	slot  chan struct{}
	refs  int
	stale bool
}

// NewLaneLock creates a ready-to-use LaneLock.
func NewLaneLock() *LaneLock {
	return &LaneLock{lanes: make(map[string]*lane)}
}

// Acquire waits for the session's lane. The returned func releases it and
// may be called more than once.
func (l *LaneLock) Acquire(ctx context.Context, sessionID string) (release func(), err error) {
	l.mu.Lock()
	ln, ok := l.lanes[sessionID]
	if !ok {
		ln = &lane{slot: make(chan struct{}, 1)}
		l.lanes[sessionID] = ln
	}
	ln.refs++
	ln.stale = false
	l.mu.Unlock()

	select {
	case ln.slot <- struct{}{}:
	case <-ctx.Done():
		l.unref(sessionID, ln)
		return nil, fmt.Errorf("waiting for session %s: %w", sessionID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-ln.slot
			l.unref(sessionID, ln)
		})
	}, nil
}

func (l *LaneLock) unref(sessionID string, ln *lane) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ln.refs--
	if ln.refs == 0 && ln.stale && l.lanes[sessionID] == ln {
		delete(l.lanes, sessionID)
	}
}

// Cleanup removes lanes of sessions absent from active. Lanes still held
// or waited on are removed when the last turn lets go. It returns the
// number of lanes removed immediately.
func (l *LaneLock) Cleanup(active map[string]struct{}) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, ln := range l.lanes {
		if _, ok := active[id]; ok {
			ln.stale = false
			continue
		}
		ln.stale = true
		if ln.refs == 0 {
			delete(l.lanes, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked lanes.
func (l *LaneLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}
