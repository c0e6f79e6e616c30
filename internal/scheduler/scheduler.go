// Package scheduler provides CRON-based scheduling for job execution.
// It allows cleaning jobs to run on a recurring schedule.
package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/tripwash/runtime/internal/logger"
	"github.com/tripwash/runtime/pkg/trip"
)

// Common errors
var (
	// ErrNilJob is returned when a nil job is registered.
	ErrNilJob = errors.New("job is nil")

	// ErrNoSchedule is returned when the job carries no schedule expression.
	ErrNoSchedule = errors.New("job has no schedule")

	// ErrNilRunFunc is returned when the scheduler is built without a run function.
	ErrNilRunFunc = errors.New("run function is nil")
)

// RunFunc executes one job run. The scheduler logs failures; it does not
// retry them.
type RunFunc func(ctx context.Context, job *trip.Job) (*trip.Report, error)

// Scheduler manages scheduled job executions.
type Scheduler struct {
	cron *cron.Cron
	run  RunFunc

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New creates a new scheduler. The standard five-field cron syntax is used;
// pass cron options (e.g. cron.WithSeconds()) to change parsing behavior.
func New(run RunFunc, opts ...cron.Option) (*Scheduler, error) {
	if run == nil {
		return nil, ErrNilRunFunc
	}
	return &Scheduler{
		cron:    cron.New(opts...),
		run:     run,
		entries: make(map[string]cron.EntryID),
	}, nil
}

// Register adds a job to the scheduler using its schedule expression.
// Registering a job ID again replaces the previous schedule.
func (s *Scheduler) Register(job *trip.Job) error {
	if job == nil {
		return ErrNilJob
	}
	if job.Schedule == "" {
		return ErrNoSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, err := s.cron.AddFunc(job.Schedule, func() {
		s.runJob(job)
	})
	if err != nil {
		return err
	}

	if previous, ok := s.entries[job.ID]; ok {
		s.cron.Remove(previous)
	}
	s.entries[job.ID] = entryID

	logger.Info("job scheduled",
		"job_id", job.ID,
		"schedule", job.Schedule,
	)
	return nil
}

// runJob executes one scheduled run and logs the outcome.
func (s *Scheduler) runJob(job *trip.Job) {
	report, err := s.run(context.Background(), job)
	if err != nil {
		logger.Error("scheduled run failed",
			"job_id", job.ID,
			"error", err.Error(),
		)
		return
	}

	logger.Info("scheduled run completed",
		"job_id", job.ID,
		"records_in", report.RecordsIn,
		"records_cleaned", report.RecordsCleaned,
		"records_dropped", report.RecordsDropped,
	)
}

// Jobs returns the IDs of all registered jobs, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Start begins executing scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts all scheduled executions and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
