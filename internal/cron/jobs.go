package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/ragchat/internal/session"
)

// StatePruner expires idle session states. *session.StateStore satisfies it.
type StatePruner interface {
	Prune(maxIdle time.Duration) []session.State
}

// CollectionDropper deletes a vector collection. *retrieval.Service
// satisfies it.
type CollectionDropper interface {
	Drop(ctx context.Context, collection string) error
}

// StateCleanupJob removes session states idle longer than MaxIdle and drops
// the vector collections they owned. Stored history is kept.
type StateCleanupJob struct {
	States       StatePruner
	Collections  CollectionDropper // nil skips collection cleanup
	MaxIdle      time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = defaultStateCleanupSchedule
}

var _ Job = (*StateCleanupJob)(nil)

// Name implements Job.
func (j *StateCleanupJob) Name() string { return "session_state_cleanup" }

// Schedule implements Job.
func (j *StateCleanupJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return defaultStateCleanupSchedule
}

// Run prunes idle states, then drops each pruned collection. A failed drop
// does not stop the others.
func (j *StateCleanupJob) Run(ctx context.Context) error {
	pruned := j.States.Prune(j.MaxIdle)
	if len(pruned) == 0 {
		return nil
	}

	var errs []error
	dropped := 0
	for _, st := range pruned {
		if st.Collection == "" || j.Collections == nil {
			continue
		}
		if err := j.Collections.Drop(ctx, st.Collection); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", st.SessionID, err))
			continue
		}
		dropped++
	}

	j.Logger.Info("cron: pruned idle session states", "count", len(pruned), "collections", dropped)
	return errors.Join(errs...)
}

// CollectionLister enumerates stored vector collections.
// *retrieval.Service satisfies it.
type CollectionLister interface {
	Collections(ctx context.Context) ([]string, error)
}

// CollectionCleanupJob drops stored vector collections that the runtime
// reports as no longer referenced. A failed drop does not stop the others.
type CollectionCleanupJob struct {
	Store       CollectionLister
	Collections CollectionDropper

	// Referenced returns the subset of stored collections still in use.
	Referenced func(stored []string) map[string]struct{}

	Logger       *slog.Logger
	ScheduleExpr string // empty = defaultCollectionCleanupSchedule
}

var _ Job = (*CollectionCleanupJob)(nil)

// Name implements Job.
func (j *CollectionCleanupJob) Name() string { return "collection_cleanup" }

// Schedule implements Job.
func (j *CollectionCleanupJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return defaultCollectionCleanupSchedule
}

// Run implements Job.
func (j *CollectionCleanupJob) Run(ctx context.Context) error {
	names, err := j.Store.Collections(ctx)
	if err != nil {
		return fmt.Errorf("cron: listing collections: %w", err)
	}
	if len(names) == 0 {
		return nil
	}
	refs := j.Referenced(names)

	var errs []error
	dropped := 0
	for _, name := range names {
		if _, ok := refs[name]; ok {
			continue
		}
		if err := j.Collections.Drop(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("collection %s: %w", name, err))
			continue
		}
		dropped++
	}

	if dropped > 0 {
		j.Logger.Info("cron: dropped unreferenced collections", "count", dropped)
	}
	return errors.Join(errs...)
}

// LaneCleaner removes idle lane locks. *orchestrator.LaneLock satisfies it.
type LaneCleaner interface {
	Cleanup(active map[string]struct{}) int
}

// LaneCleanupJob removes lane locks of sessions that are neither active
// nor locked.
type LaneCleanupJob struct {
	Lanes        LaneCleaner
	Active       func() map[string]struct{}
	Logger       *slog.Logger
	ScheduleExpr string // empty = defaultLaneCleanupSchedule
}

var _ Job = (*LaneCleanupJob)(nil)

// Name implements Job.
func (j *LaneCleanupJob) Name() string { return "lane_cleanup" }

// Schedule implements Job.
func (j *LaneCleanupJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return defaultLaneCleanupSchedule
}

// Run implements Job.
func (j *LaneCleanupJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: lane cleanup cancelled: %w", ctx.Err())
	}
	var active map[string]struct{}
	if j.Active != nil {
		active = j.Active()
	}
	if removed := j.Lanes.Cleanup(active); removed > 0 {
		j.Logger.Debug("cron: removed idle lanes", "count", removed)
	}
	return nil
}

// BucketPruner drops empty rate limit buckets. *security.RateLimiter
// satisfies it.
type BucketPruner interface {
	Prune() int
}

// RateLimitCleanupJob drops rate limit buckets with no recent events.
type RateLimitCleanupJob struct {
	Limiter      BucketPruner
	Logger       *slog.Logger
	ScheduleExpr string // empty = defaultLaneCleanupSchedule
}

var _ Job = (*RateLimitCleanupJob)(nil)

// Name implements Job.
func (j *RateLimitCleanupJob) Name() string { return "ratelimit_cleanup" }

// Schedule implements Job.
func (j *RateLimitCleanupJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return defaultLaneCleanupSchedule
}

// Run implements Job.
func (j *RateLimitCleanupJob) Run(_ context.Context) error {
	if removed := j.Limiter.Prune(); removed > 0 {
		j.Logger.Debug("cron: pruned rate limit buckets", "count", removed)
	}
	return nil
}
