// Package watcher provides directory watch mode for job execution.
// New or rewritten dataset files in the watched directory trigger a job run
// with the input path pointed at the changed file.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tripwash/runtime/internal/logger"
	"github.com/tripwash/runtime/pkg/trip"
)

// debounceDelay is how long a file must stay quiet after the last write
// before a run is triggered. Bulk copies emit many write events.
const debounceDelay = 500 * time.Millisecond

// Common errors
var (
	// ErrNilJob is returned when the watcher is built without a job.
	ErrNilJob = errors.New("job is nil")

	// ErrNilRunFunc is returned when the watcher is built without a run function.
	ErrNilRunFunc = errors.New("run function is nil")

	// ErrNoInput is returned when the job has no input module to override.
	ErrNoInput = errors.New("job has no input module")
)

// extensionsByInputType maps input module types to the file extensions
// that should trigger a run.
var extensionsByInputType = map[string][]string{
	"csv":  {".csv"},
	"xlsx": {".xlsx"},
}

// RunFunc executes one job run against the changed file.
type RunFunc func(ctx context.Context, job *trip.Job) (*trip.Report, error)

// Watcher triggers job runs when dataset files change in a directory.
type Watcher struct {
	job  *trip.Job
	dir  string
	run  RunFunc
	exts []string

	fsWatcher *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a watcher for the given directory.
// The job's input type decides which file extensions trigger runs.
func New(job *trip.Job, dir string, run RunFunc) (*Watcher, error) {
	if job == nil {
		return nil, ErrNilJob
	}
	if job.Input == nil {
		return nil, ErrNoInput
	}
	if run == nil {
		return nil, ErrNilRunFunc
	}

	exts, ok := extensionsByInputType[job.Input.Type]
	if !ok {
		return nil, fmt.Errorf("input type %q has no watchable file extension", job.Input.Type)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	return &Watcher{
		job:       job,
		dir:       dir,
		run:       run,
		exts:      exts,
		fsWatcher: fsWatcher,
		timers:    make(map[string]*time.Timer),
	}, nil
}

// Watch blocks processing file events until the context is cancelled or the
// underlying watcher is closed.
func (w *Watcher) Watch(ctx context.Context) error {
	logger.Info("watching directory",
		"job_id", w.job.ID,
		"dir", w.dir,
		"extensions", strings.Join(w.exts, ","),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error",
				"job_id", w.job.ID,
				"error", err.Error(),
			)
		}
	}
}

// Close stops watching and releases the underlying watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	return w.fsWatcher.Close()
}

// matches reports whether the path has one of the watched extensions.
func (w *Watcher) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range w.exts {
		if ext == want {
			return true
		}
	}
	return false
}

// schedule arms (or re-arms) the per-file debounce timer.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Reset(debounceDelay)
		return
	}

	w.timers[path] = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.runFile(ctx, path)
	})
}

// runFile runs the job against one changed file.
func (w *Watcher) runFile(ctx context.Context, path string) {
	logger.Info("dataset file changed",
		"job_id", w.job.ID,
		"path", path,
	)

	report, err := w.run(ctx, w.jobForFile(path))
	if err != nil {
		logger.Error("watch-triggered run failed",
			"job_id", w.job.ID,
			"path", path,
			"error", err.Error(),
		)
		return
	}

	logger.Info("watch-triggered run completed",
		"job_id", w.job.ID,
		"path", path,
		"records_in", report.RecordsIn,
		"records_cleaned", report.RecordsCleaned,
		"records_dropped", report.RecordsDropped,
	)
}

// jobForFile returns a copy of the job with the input path replaced.
// The original job is never mutated; concurrent runs each get their own copy.
func (w *Watcher) jobForFile(path string) *trip.Job {
	job := *w.job

	cfg := make(map[string]interface{}, len(w.job.Input.Config)+1)
	for k, v := range w.job.Input.Config {
		cfg[k] = v
	}
	cfg["path"] = path

	job.Input = &trip.ModuleConfig{
		Type:   w.job.Input.Type,
		Config: cfg,
	}
	return &job
}
