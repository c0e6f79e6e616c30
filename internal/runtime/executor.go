// Package runtime provides the job execution engine.
// It orchestrates the execution flow: Input → Clean → Output.
package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/tripwash/runtime/internal/cleaner"
	"github.com/tripwash/runtime/internal/errhandling"
	"github.com/tripwash/runtime/internal/factory"
	"github.com/tripwash/runtime/internal/logger"
	"github.com/tripwash/runtime/internal/modules/output"
	"github.com/tripwash/runtime/internal/persistence"
	"github.com/tripwash/runtime/pkg/trip"
)

// Execution status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Execution stage names used in logs and reports.
const (
	StageInput  = "input"
	StageClean  = "clean"
	StageOutput = "output"
)

// Common errors
var (
	// ErrNilJob is returned when the job definition is nil.
	ErrNilJob = errors.New("job definition is nil")

	// ErrNilInput is returned when the job has no input module.
	ErrNilInput = errors.New("job has no input module")
)

// Executor runs cleaning jobs.
//
// The Executor interacts with modules only through their public interfaces,
// so module implementations can evolve independently of the engine.
type Executor struct {
	store  *persistence.StateStore
	dryRun bool
}

// NewExecutor creates a new job executor.
// In dry-run mode the outputs are not written and no state is persisted.
func NewExecutor(dryRun bool) *Executor {
	return &Executor{dryRun: dryRun}
}

// NewExecutorWithStore creates a job executor that records run state in the
// given store after each successful or failed run.
func NewExecutorWithStore(store *persistence.StateStore, dryRun bool) *Executor {
	return &Executor{store: store, dryRun: dryRun}
}

// Execute runs a job with a background context.
// For cancellation support, use ExecuteWithContext instead.
func (e *Executor) Execute(job *trip.Job) (*trip.Report, error) {
	return e.ExecuteWithContext(context.Background(), job)
}

// ExecuteWithContext runs a job with the given context.
//
// Execution flow:
//  1. Validate the job definition and build the rule battery
//  2. Execute the input module to load the dataset
//  3. Run the cleaner to partition the rows
//  4. Write both result sets (unless dry-run mode)
//  5. Return a Report with status, counts and per-rule metrics
//
// The input module is closed immediately after loading; output modules are
// closed when execution finishes. A report is returned even on failure so
// callers can render what happened.
func (e *Executor) ExecuteWithContext(ctx context.Context, job *trip.Job) (*trip.Report, error) {
	startedAt := time.Now()
	report := &trip.Report{
		Status:    StatusError,
		DryRun:    e.dryRun,
		StartedAt: startedAt,
	}

	if job == nil {
		report.CompletedAt = time.Now()
		classified := errhandling.Classify(ErrNilJob, errhandling.CategoryConfig, errhandling.CodeConfigInvalid)
		report.Error = reportError(StageInput, classified)
		return report, classified
	}
	report.JobID = job.ID

	execCtx := logger.ExecutionContext{
		JobID:   job.ID,
		JobName: job.Name,
		DryRun:  e.dryRun,
	}
	logger.LogExecutionStart(execCtx)

	records, inputDuration, err := e.executeInput(ctx, job, execCtx)
	if err != nil {
		return e.fail(report, execCtx, StageInput, err, startedAt)
	}
	report.RecordsIn = len(records)

	result, cleanDuration, err := e.executeClean(ctx, job, execCtx, records)
	if err != nil {
		return e.fail(report, execCtx, StageClean, err, startedAt)
	}
	report.RecordsCleaned = len(result.Cleaned)
	report.RecordsDropped = len(result.Dropped)
	report.RuleCounts = result.RuleCounts

	outputDuration, err := e.executeOutput(job, execCtx, result)
	if err != nil {
		return e.fail(report, execCtx, StageOutput, err, startedAt)
	}

	report.Status = StatusSuccess
	report.CompletedAt = time.Now()

	totalDuration := report.CompletedAt.Sub(startedAt)
	logger.LogMetrics(execCtx, logger.CleanMetrics{
		TotalDuration:  totalDuration,
		InputDuration:  inputDuration,
		CleanDuration:  cleanDuration,
		OutputDuration: outputDuration,
		RecordsIn:      report.RecordsIn,
		RecordsCleaned: report.RecordsCleaned,
		RecordsDropped: report.RecordsDropped,
		RuleCounts:     report.RuleCounts,
	})
	logger.LogExecutionEnd(execCtx, StatusSuccess, report.RecordsIn, totalDuration)

	e.persistState(report)

	return report, nil
}

// executeInput builds the input module, loads the dataset and closes the
// module. Closing right away releases the file handle before cleaning starts.
func (e *Executor) executeInput(ctx context.Context, job *trip.Job, execCtx logger.ExecutionContext) ([]trip.Record, time.Duration, error) {
	stageCtx := execCtx
	stageCtx.Stage = StageInput
	logger.LogStageStart(stageCtx)

	start := time.Now()

	if job.Input == nil {
		err := errhandling.Classify(ErrNilInput, errhandling.CategoryConfig, errhandling.CodeConfigInvalid)
		logger.LogStageEnd(stageCtx, 0, time.Since(start), err)
		return nil, time.Since(start), err
	}

	module, err := factory.CreateInputModule(job.Input)
	if err != nil {
		classified := errhandling.Classify(err, errhandling.CategoryConfig, errhandling.CodeConfigInvalid)
		logger.LogStageEnd(stageCtx, 0, time.Since(start), classified)
		return nil, time.Since(start), classified
	}

	records, err := module.Fetch(ctx)
	if closeErr := module.Close(); closeErr != nil {
		logger.Warn("failed to close input module",
			"job_id", job.ID,
			"error", closeErr.Error(),
		)
	}

	duration := time.Since(start)
	if err != nil {
		classified := errhandling.Classify(err, errhandling.CategoryIO, errhandling.CodeInputFailed)
		logger.LogStageEnd(stageCtx, 0, duration, classified)
		return nil, duration, classified
	}

	logger.LogStageEnd(stageCtx, len(records), duration, nil)
	return records, duration, nil
}

// executeClean builds the rule battery and partitions the dataset.
func (e *Executor) executeClean(ctx context.Context, job *trip.Job, execCtx logger.ExecutionContext, records []trip.Record) (*cleaner.Result, time.Duration, error) {
	stageCtx := execCtx
	stageCtx.Stage = StageClean
	logger.LogStageStart(stageCtx)

	start := time.Now()

	custom := make([]cleaner.Rule, 0, len(job.Rules))
	for _, cfg := range job.Rules {
		rule, err := cleaner.NewCustomRule(cfg)
		if err != nil {
			classified := errhandling.Classify(err, errhandling.CategoryConfig, errhandling.CodeConfigInvalid)
			logger.LogStageEnd(stageCtx, 0, time.Since(start), classified)
			return nil, time.Since(start), classified
		}
		custom = append(custom, rule)
	}

	result, err := cleaner.New(job.Bounds, custom...).Run(ctx, records)
	duration := time.Since(start)
	if err != nil {
		classified := errhandling.Classify(err, errhandling.CategoryUnknown, errhandling.CodeCleanFailed)
		logger.LogStageEnd(stageCtx, 0, duration, classified)
		return nil, duration, classified
	}

	logger.LogStageEnd(stageCtx, len(result.Cleaned), duration, nil)
	return result, duration, nil
}

// executeOutput writes both result sets. In dry-run mode nothing is written.
func (e *Executor) executeOutput(job *trip.Job, execCtx logger.ExecutionContext, result *cleaner.Result) (time.Duration, error) {
	stageCtx := execCtx
	stageCtx.Stage = StageOutput
	logger.LogStageStart(stageCtx)

	start := time.Now()

	if e.dryRun {
		logger.Debug("dry-run mode: skipping output modules",
			"job_id", execCtx.JobID,
			"records_would_write", len(result.Cleaned)+len(result.Dropped),
		)
		logger.LogStageEnd(stageCtx, 0, time.Since(start), nil)
		return time.Since(start), nil
	}

	var written int
	if job.Output != nil {
		destinations := []struct {
			name    string
			cfg     *trip.ModuleConfig
			records []trip.Record
		}{
			{"cleaned", job.Output.Cleaned, result.Cleaned},
			{"dropped", job.Output.Dropped, result.Dropped},
		}

		for _, dest := range destinations {
			count, err := e.writeDestination(job.ID, dest.name, dest.cfg, dest.records)
			if err != nil {
				logger.LogStageEnd(stageCtx, written, time.Since(start), err)
				return time.Since(start), err
			}
			written += count
		}
	}

	duration := time.Since(start)
	logger.LogStageEnd(stageCtx, written, duration, nil)
	return duration, nil
}

// writeDestination writes one result set through its configured module.
// A nil module config means the destination is not wired and is skipped.
func (e *Executor) writeDestination(jobID, name string, cfg *trip.ModuleConfig, records []trip.Record) (int, error) {
	module, err := factory.CreateOutputModule(cfg)
	if err != nil {
		return 0, errhandling.Classify(err, errhandling.CategoryConfig, errhandling.CodeConfigInvalid)
	}
	if module == nil {
		return 0, nil
	}
	defer e.closeOutput(jobID, name, module)

	count, err := module.Send(records)
	if err != nil {
		return count, errhandling.Classify(err, errhandling.CategoryIO, errhandling.CodeOutputFailed)
	}

	logger.Debug("destination written",
		"job_id", jobID,
		"destination", name,
		"records", count,
	)
	return count, nil
}

func (e *Executor) closeOutput(jobID, name string, module output.Module) {
	if err := module.Close(); err != nil {
		logger.Warn("failed to close output module",
			"job_id", jobID,
			"destination", name,
			"error", err.Error(),
		)
	}
}

// fail finalizes the report for a failed stage and records the run state.
func (e *Executor) fail(report *trip.Report, execCtx logger.ExecutionContext, stage string, err error, startedAt time.Time) (*trip.Report, error) {
	classified := errhandling.Classify(err, errhandling.CategoryUnknown, "")
	report.Status = StatusError
	report.CompletedAt = time.Now()
	report.Error = reportError(stage, classified)

	logger.LogExecutionEnd(execCtx, StatusError, report.RecordsIn, time.Since(startedAt))
	e.persistState(report)

	return report, classified
}

// persistState records the run outcome. Dry runs leave no trace.
func (e *Executor) persistState(report *trip.Report) {
	if e.store == nil || e.dryRun || report.JobID == "" {
		return
	}
	if err := e.store.Save(report.JobID, persistence.StateFromReport(report)); err != nil {
		logger.Warn("failed to persist run state",
			"job_id", report.JobID,
			"error", err.Error(),
		)
	}
}

// reportError converts a classified error into its report form.
func reportError(stage string, err *errhandling.ClassifiedError) *trip.ReportError {
	return &trip.ReportError{
		Stage:   stage,
		Code:    err.Code,
		Message: err.Message,
	}
}
