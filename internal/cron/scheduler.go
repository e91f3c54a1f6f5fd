package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flemzord/ragchat/internal/core"
	"github.com/robfig/cron/v3"
)

// Scheduler manages periodic job execution using cron expressions.
// Each job is protected by a per-job mutex so a slow run is never
// overlapped by the next tick.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   []Job
	locks  map[string]*sync.Mutex
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

var (
	_ core.Module  = (*Scheduler)(nil)
	_ core.Starter = (*Scheduler)(nil)
	_ core.Stopper = (*Scheduler)(nil)
)

// NewScheduler creates a scheduler. Jobs must be registered before Start().
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		locks:  make(map[string]*sync.Mutex),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// ModuleInfo implements core.Module. The scheduler is assembled in code
// and appended to the app, so it has no constructor.
func (s *Scheduler) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "cron"}
}

// RegisterJob adds a job. Must be called before Start. Duplicate names and
// unparsable schedules are rejected here so wiring fails before startup.
func (s *Scheduler) RegisterJob(j Job) error {
	if _, err := ParseSchedule(j.Schedule()); err != nil {
		return fmt.Errorf("job %q: %w", j.Name(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.locks[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}
	s.locks[name] = &sync.Mutex{}
	s.jobs = append(s.jobs, j)
	return nil
}

// Jobs returns the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Name()
	}
	return names
}

// Start schedules every registered job.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cron.New(cron.WithParser(scheduleParser))
	for _, job := range s.jobs {
		if _, err := c.AddFunc(job.Schedule(), func() { s.runJob(job) }); err != nil {
			return fmt.Errorf("cron: job %q: %w", job.Name(), err)
		}
	}

	s.cron = c
	s.cron.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.jobs))
	return nil
}

// runJob executes one tick of job unless the previous tick is still running.
// It reports whether the job ran.
func (s *Scheduler) runJob(job Job) bool {
	lock := s.locks[job.Name()]
	if !lock.TryLock() {
		s.logger.Warn("cron: job still running, skipping tick", "job", job.Name())
		return false
	}
	defer lock.Unlock()

	s.logger.Debug("cron: job started", "job", job.Name())
	if err := job.Run(s.ctx); err != nil {
		s.logger.Error("cron: job failed", "job", job.Name(), "error", err)
	} else {
		s.logger.Debug("cron: job completed", "job", job.Name())
	}
	return true
}

// Stop cancels the job context and waits for in-flight jobs.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel()
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
		s.logger.Info("cron: scheduler stopped")
	}
	return nil
}
