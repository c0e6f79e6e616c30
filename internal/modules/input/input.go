// Package input provides implementations for input modules.
// Input modules load trip records from source files.
package input

import (
	"context"
	"errors"

	"github.com/tripwash/runtime/pkg/trip"
)

// ErrNilConfig is returned when a module is constructed without configuration.
var ErrNilConfig = errors.New("input configuration is nil")

// ErrMissingPath is returned when a file-based module has no path configured.
var ErrMissingPath = errors.New("path is required for input module")

// Module represents an input module that loads trip records from a source.
type Module interface {
	// Fetch loads records from the source.
	// The context can be used to cancel long-running reads.
	Fetch(ctx context.Context) ([]trip.Record, error)
	// Close releases any resources held by the module.
	Close() error
}

// pathFromConfig extracts the required path setting from a module config.
func pathFromConfig(cfg *trip.ModuleConfig) (string, error) {
	if cfg == nil {
		return "", ErrNilConfig
	}
	path, _ := cfg.Config["path"].(string)
	if path == "" {
		return "", ErrMissingPath
	}
	return path, nil
}
