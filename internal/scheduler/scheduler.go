package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// JobFunc is called when a scheduled job fires.
type JobFunc func(ctx context.Context)

// Scheduler manages cron-based recurring runs. Each named job is guarded
// against overlap: a tick that fires while the previous run of the same job
// is still in flight is skipped, not queued.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	jobs    map[string]cron.EntryID
	running map[string]*sync.Mutex
	logger  *slog.Logger

	ctx context.Context // set by Start, used by fired jobs
}

// New creates a new scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		jobs:    make(map[string]cron.EntryID),
		running: make(map[string]*sync.Mutex),
		logger:  logger,
	}
}

// Start begins the cron scheduler. Blocks until context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

// AddJob registers a named recurring job. The schedule is a standard cron
// expression (5 fields) or a predefined schedule like @every 1h. Adding a
// job under an existing name replaces its schedule.
func (s *Scheduler) AddJob(name, schedule string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.jobs[name]; ok {
		s.cron.Remove(prev)
	}
	guard, ok := s.running[name]
	if !ok {
		guard = &sync.Mutex{}
		s.running[name] = guard
	}

	id, err := s.cron.AddFunc(schedule, func() {
		if !guard.TryLock() {
			s.logger.Warn("scheduled run skipped, previous still in flight", "job", name)
			return
		}
		defer guard.Unlock()

		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		if ctx == nil {
			ctx = context.Background()
		}

		s.logger.Info("cron fired", "job", name)
		fn(ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", schedule, err)
	}

	s.jobs[name] = id
	s.logger.Info("job registered", "job", name, "schedule", schedule)
	return nil
}

// RemoveJob removes a named job.
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.jobs[name]; ok {
		s.cron.Remove(id)
		delete(s.jobs, name)
	}
}

// JobCount returns the number of registered jobs.
func (s *Scheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
