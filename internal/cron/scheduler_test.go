package cron

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// simpleJob is a minimal Job for scheduler tests.
type simpleJob struct {
	name     string
	schedule string
	runFunc  func(ctx context.Context) error
	mu       sync.Mutex
	calls    int
}

func (j *simpleJob) Name() string     { return j.name }
func (j *simpleJob) Schedule() string { return j.schedule }
func (j *simpleJob) Run(ctx context.Context) error {
	j.mu.Lock()
	j.calls++
	j.mu.Unlock()
	if j.runFunc != nil {
		return j.runFunc(ctx)
	}
	return nil
}

func TestScheduler_RegisterJob(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	tests := []struct {
		job     Job
		wantErr bool
	}{
		{job: &simpleJob{name: "session_state_cleanup", schedule: defaultStateCleanupSchedule}},
		{job: &simpleJob{name: "lane_cleanup", schedule: "@every 10m"}},
		{job: &simpleJob{name: "session_state_cleanup", schedule: "* * * * *"}, wantErr: true},
		{job: &simpleJob{name: "bad", schedule: "invalid"}, wantErr: true},
		{job: &simpleJob{name: "six_fields", schedule: "0 */5 * * * *"}, wantErr: true},
	}
	for _, tt := range tests {
		if err := s.RegisterJob(tt.job); (err != nil) != tt.wantErr {
			t.Errorf("RegisterJob(%s, %q) = %v, wantErr %v", tt.job.Name(), tt.job.Schedule(), err, tt.wantErr)
		}
	}
	if got := s.Jobs(); !slices.Equal(got, []string{"session_state_cleanup", "lane_cleanup"}) {
		t.Errorf("Jobs() = %v", got)
	}
	if s.ModuleInfo().ID != "cron" {
		t.Errorf("ModuleInfo().ID = %q", s.ModuleInfo().ID)
	}
}

func TestScheduler_Lifecycle(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	_ = s.RegisterJob(&simpleJob{name: "failing", schedule: "* * * * *", runFunc: func(context.Context) error {
		return errors.New("sweep failed")
	}})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// A failing run is logged and does not affect the scheduler.
	if !s.runJob(s.jobs[0]) {
		t.Error("idle job did not run")
	}
	for range 2 {
		if err := s.Stop(context.Background()); err != nil {
			t.Fatalf("Stop: %v", err)
		}
	}
}

func TestScheduler_NoParallelExecution(t *testing.T) {
	t.Parallel()

	// This test verifies that the TryLock mechanism prevents parallel
	// execution of the same job.
	var concurrent atomic.Int32
	var maxConcurrent atomic.Int32

	s := NewScheduler(slog.Default())
	_ = s.RegisterJob(&simpleJob{
		name:     "slow",
		schedule: "* * * * *",
		runFunc: func(_ context.Context) error {
			c := concurrent.Add(1)
			for {
				old := maxConcurrent.Load()
				if c <= old || maxConcurrent.CompareAndSwap(old, c) {
					break
				}
			}
			time.Sleep(50 * time.Millisecond)
			concurrent.Add(-1)
			return nil
		},
	})

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	job := s.jobs[0]
	var (
		wg  sync.WaitGroup
		ran atomic.Int32
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.runJob(job) {
				ran.Add(1)
			}
		}()
	}
	wg.Wait()

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	if maxConcurrent.Load() > 1 {
		t.Errorf("max concurrent = %d, want <= 1", maxConcurrent.Load())
	}
	if ran.Load() < 1 {
		t.Error("job never ran")
	}
}

func TestScheduler_RunJobAfterStopSeesCancelledContext(t *testing.T) {
	t.Parallel()

	var sawCancel atomic.Bool
	s := NewScheduler(slog.Default())
	job := &simpleJob{name: "ctx", schedule: "* * * * *", runFunc: func(ctx context.Context) error {
		sawCancel.Store(ctx.Err() != nil)
		return nil
	}}
	_ = s.RegisterJob(job)
	_ = s.Stop(context.Background())

	s.runJob(job)
	if !sawCancel.Load() {
		t.Error("job context should be cancelled after Stop")
	}
}
