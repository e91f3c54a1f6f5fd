// Package cron runs periodic maintenance for the chat runtime. It expires
// idle session state and its vector collections, drops collections nothing
// references any more, and clears idle lane locks and rate limit buckets.
package cron

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Job is one maintenance task run on a cron schedule.
type Job interface {
	// Name identifies the job in logs. Names are unique per scheduler.
	Name() string

	// Schedule is a standard 5-field expression, e.g. "*/5 * * * *".
	Schedule() string

	// Run performs one sweep. ctx is cancelled when the scheduler stops.
	Run(ctx context.Context) error
}

// Default maintenance cadences.
const (
	defaultStateCleanupSchedule = "*/5 * * * *"
	defaultLaneCleanupSchedule  = "*/10 * * * *"

	defaultCollectionCleanupSchedule = "17 * * * *"
)

// scheduleParser accepts the five standard fields and @-descriptors.
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule checks a job schedule expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := scheduleParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("cron: schedule %q: %w", expr, err)
	}
	return sched, nil
}
