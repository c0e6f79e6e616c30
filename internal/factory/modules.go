// Package factory provides module creation functions for the job runtime.
// It centralizes the logic for instantiating input and output modules from
// their configuration using the module registry.
//
// To add a new module type, see the documentation in internal/registry.
// The factory does not need to change; just register your constructor.
package factory

import (
	"fmt"
	"strings"

	"github.com/tripwash/runtime/internal/modules/input"
	"github.com/tripwash/runtime/internal/modules/output"
	"github.com/tripwash/runtime/internal/registry"
	"github.com/tripwash/runtime/pkg/trip"
)

// CreateInputModule creates an input module instance from configuration.
// Unknown module types are a configuration error since records would
// silently never be loaded otherwise.
func CreateInputModule(cfg *trip.ModuleConfig) (input.Module, error) {
	if cfg == nil {
		return nil, fmt.Errorf("input module configuration is nil")
	}

	constructor := registry.GetInputConstructor(cfg.Type)
	if constructor == nil {
		return nil, fmt.Errorf("unknown input module type %q (available: %s)",
			cfg.Type, strings.Join(registry.InputTypes(), ", "))
	}
	return constructor(cfg)
}

// CreateOutputModule creates an output module instance from configuration.
// A nil config is allowed and yields a nil module; output destinations are
// optional in a job.
func CreateOutputModule(cfg *trip.ModuleConfig) (output.Module, error) {
	if cfg == nil {
		return nil, nil
	}

	constructor := registry.GetOutputConstructor(cfg.Type)
	if constructor == nil {
		return nil, fmt.Errorf("unknown output module type %q (available: %s)",
			cfg.Type, strings.Join(registry.OutputTypes(), ", "))
	}
	return constructor(cfg)
}
