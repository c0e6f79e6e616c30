// Package persistence provides run-state persistence for cleaning jobs.
// The last run outcome per job is stored as a JSON file so that scheduled
// and watch-mode runs can report progress across restarts.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tripwash/runtime/internal/logger"
	"github.com/tripwash/runtime/pkg/trip"
)

// DefaultStatePath is the default directory for state files.
const DefaultStatePath = "./tripwash-data/state"

// Common errors
var (
	// ErrInvalidJobID is returned when the job ID is empty.
	ErrInvalidJobID = errors.New("job ID is required")

	// ErrNilState is returned when state is nil.
	ErrNilState = errors.New("state is nil")
)

// RunState represents the persisted outcome of a job's last run.
type RunState struct {
	// JobID is the unique identifier for the job.
	JobID string `json:"jobId"`

	// LastRunAt is the start timestamp of the last completed run.
	LastRunAt time.Time `json:"lastRunAt"`

	// Status is the outcome of the last run (success, error).
	Status string `json:"status"`

	// RecordsIn is the number of rows read in the last run.
	RecordsIn int `json:"recordsIn"`

	// RecordsCleaned is the number of rows that survived every rule.
	RecordsCleaned int `json:"recordsCleaned"`

	// RecordsDropped is the number of rows routed to the dropped set.
	RecordsDropped int `json:"recordsDropped"`

	// UpdatedAt is when this state was last written.
	UpdatedAt time.Time `json:"updatedAt"`
}

// StateFromReport builds a RunState from a completed run report.
func StateFromReport(report *trip.Report) *RunState {
	if report == nil {
		return nil
	}
	return &RunState{
		JobID:          report.JobID,
		LastRunAt:      report.StartedAt,
		Status:         report.Status,
		RecordsIn:      report.RecordsIn,
		RecordsCleaned: report.RecordsCleaned,
		RecordsDropped: report.RecordsDropped,
	}
}

// StateStore provides thread-safe persistence of job run state.
// State files are stored as JSON in the configured base path.
type StateStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewStateStore creates a new StateStore with the specified base path.
// If basePath is empty, DefaultStatePath is used.
func NewStateStore(basePath string) *StateStore {
	if basePath == "" {
		basePath = DefaultStatePath
	}
	return &StateStore{
		basePath: basePath,
	}
}

// filePath returns the full path for a job's state file.
func (s *StateStore) filePath(jobID string) string {
	// Base() strips any path separators a job ID could smuggle in.
	safeName := filepath.Base(jobID)
	return filepath.Join(s.basePath, safeName+".json")
}

// Save persists the state for a job.
// Uses atomic write (temp file + rename) to prevent corruption.
// Creates the base directory if it doesn't exist.
func (s *StateStore) Save(jobID string, state *RunState) error {
	if jobID == "" {
		return ErrInvalidJobID
	}
	if state == nil {
		return ErrNilState
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.basePath, 0o700); err != nil {
		// Another process may have created it between check and create.
		if _, statErr := os.Stat(s.basePath); statErr != nil {
			logger.Warn("failed to create state directory",
				"path", s.basePath,
				"error", err.Error(),
			)
			return fmt.Errorf("creating state directory: %w", err)
		}
	}

	state.JobID = jobID
	state.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	// Write to a temp file first, then rename (atomic on POSIX).
	filePath := s.filePath(jobID)
	tempPath := filePath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		logger.Warn("failed to write temp state file",
			"job_id", jobID,
			"path", tempPath,
			"error", err.Error(),
		)
		return fmt.Errorf("writing temp state file: %w", err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		logger.Warn("failed to rename state file",
			"job_id", jobID,
			"temp_path", tempPath,
			"final_path", filePath,
			"error", err.Error(),
		)
		return fmt.Errorf("renaming state file: %w", err)
	}

	logger.Debug("state saved",
		"job_id", jobID,
		"path", filePath,
		"status", state.Status,
	)

	return nil
}

// Load retrieves the state for a job.
// Returns nil, nil if the state file doesn't exist (first run).
func (s *StateStore) Load(jobID string) (*RunState, error) {
	if jobID == "" {
		return nil, ErrInvalidJobID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	filePath := s.filePath(jobID)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("no state file found (first run)",
				"job_id", jobID,
				"path", filePath,
			)
			return nil, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var state RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshaling state file %s: %w", filePath, err)
	}

	return &state, nil
}

// Delete removes the state file for a job.
// Returns nil if the file doesn't exist.
func (s *StateStore) Delete(jobID string) error {
	if jobID == "" {
		return ErrInvalidJobID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath(jobID)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("deleting state file: %w", err)
	}
	return nil
}
