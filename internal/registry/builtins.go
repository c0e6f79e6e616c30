// Package registry provides module registries for the tripwash runtime.
// This file registers all built-in modules during initialization.
package registry

import (
	"github.com/tripwash/runtime/internal/modules/input"
	"github.com/tripwash/runtime/internal/modules/output"
	"github.com/tripwash/runtime/pkg/trip"
)

func init() {
	registerBuiltinInputModules()
	registerBuiltinOutputModules()
}

// registerBuiltinInputModules registers all built-in input module types.
func registerBuiltinInputModules() {
	// csv - delimited text datasets
	RegisterInput("csv", func(cfg *trip.ModuleConfig) (input.Module, error) {
		return input.NewCSVFromConfig(cfg)
	})

	// xlsx - Excel workbooks
	RegisterInput("xlsx", func(cfg *trip.ModuleConfig) (input.Module, error) {
		return input.NewXLSXFromConfig(cfg)
	})
}

// registerBuiltinOutputModules registers all built-in output module types.
func registerBuiltinOutputModules() {
	// csv - delimited text datasets
	RegisterOutput("csv", func(cfg *trip.ModuleConfig) (output.Module, error) {
		return output.NewCSVFromConfig(cfg)
	})

	// json - array-of-objects JSON files
	RegisterOutput("json", func(cfg *trip.ModuleConfig) (output.Module, error) {
		return output.NewJSONFromConfig(cfg)
	})
}
