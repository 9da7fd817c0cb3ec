// Package jobs runs the periodic maintenance tasks on cron schedules.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Task performs one run of a job and returns how many items it handled.
type Task func(ctx context.Context) (int, error)

type job struct {
	name     string
	schedule string
	task     Task
}

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler runs registered tasks on their cron schedules. A run that is still in progress
// when its next activation arrives causes that activation to be skipped.
type Scheduler struct {
	mu     sync.Mutex
	jobs   []job
	logger *slog.Logger
}

// NewScheduler creates an empty Scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Add registers a task. schedule accepts standard five-field expressions, an optional leading
// seconds field and descriptors such as "@every 5m". An empty schedule disables the job.
func (s *Scheduler) Add(name, schedule string, task Task) error {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		s.logger.Info("job disabled", slog.String("job", name))
		return nil
	}
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, name, err)
	}
	if strings.Count(schedule, " ") == 5 {
		s.logger.Warn("job uses second level scheduling", slog.String("job", name))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job{name: name, schedule: schedule, task: task})
	return nil
}

// Run starts the schedules and blocks until ctx is done, then waits for running tasks.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s.mu.Lock()
	for _, j := range s.jobs {
		if _, err := c.AddFunc(j.schedule, func() { s.execute(ctx, j) }); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to schedule job %s: %w", j.name, err)
		}
		s.logger.Info("job scheduled", slog.String("job", j.name), slog.String("schedule", j.schedule))
	}
	s.mu.Unlock()

	c.Start()
	<-ctx.Done()
	s.logger.Info("stopping job scheduler")
	<-c.Stop().Done()
	return nil
}

// RunOnce executes every registered task immediately, in registration order.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	jobs := append([]job(nil), s.jobs...)
	s.mu.Unlock()

	for _, j := range jobs {
		if ctx.Err() != nil {
			return
		}
		s.execute(ctx, j)
	}
}

func (s *Scheduler) execute(ctx context.Context, j job) {
	start := time.Now()
	count, err := j.task(ctx)
	if err != nil {
		s.logger.Error("job failed",
			slog.String("job", j.name),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)
		return
	}
	if count > 0 {
		s.logger.Info("job completed",
			slog.String("job", j.name),
			slog.Int("count", count),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
