// Package registry provides module registries for input and output modules.
//
// # Overview
//
// The registry enables extensible module registration for the tripwash
// runtime. Instead of hard-coded switch statements, modules register their
// constructors by type string, so new dataset formats can be added without
// modifying the executor.
//
// # Adding a New Module
//
// To add a new module type (e.g., a "parquet" input module):
//
//  1. Implement the appropriate interface (input.Module or output.Module)
//  2. Create a constructor function matching the registry signature
//  3. Register the constructor in an init() function
//
// Example for a new input module:
//
//	package parquet
//
//	import (
//	    "github.com/tripwash/runtime/internal/modules/input"
//	    "github.com/tripwash/runtime/internal/registry"
//	    "github.com/tripwash/runtime/pkg/trip"
//	)
//
//	func init() {
//	    registry.RegisterInput("parquet", NewParquetModule)
//	}
//
//	func NewParquetModule(cfg *trip.ModuleConfig) (input.Module, error) {
//	    // Parse cfg.Config and return your implementation
//	    return &ParquetModule{...}, nil
//	}
//
// # Built-in Modules
//
// Built-in modules (csv and xlsx inputs, csv and json outputs) are
// registered automatically at startup via init() functions.
package registry

import (
	"sort"
	"sync"

	"github.com/tripwash/runtime/internal/modules/input"
	"github.com/tripwash/runtime/internal/modules/output"
	"github.com/tripwash/runtime/pkg/trip"
)

// InputConstructor is a function that creates an input module from configuration.
// Returns an error if the configuration is invalid.
type InputConstructor func(cfg *trip.ModuleConfig) (input.Module, error)

// OutputConstructor is a function that creates an output module from configuration.
// Returns an error if the configuration is invalid.
type OutputConstructor func(cfg *trip.ModuleConfig) (output.Module, error)

// inputRegistry holds registered input module constructors.
var (
	inputMu       sync.RWMutex
	inputRegistry = make(map[string]InputConstructor)
)

// outputRegistry holds registered output module constructors.
var (
	outputMu       sync.RWMutex
	outputRegistry = make(map[string]OutputConstructor)
)

// RegisterInput registers an input module constructor by type string.
// Registering an already registered type overwrites the previous constructor.
//
// Safe for concurrent use; typically called from init() functions.
func RegisterInput(moduleType string, constructor InputConstructor) {
	inputMu.Lock()
	defer inputMu.Unlock()
	inputRegistry[moduleType] = constructor
}

// GetInputConstructor returns the constructor for the given input module
// type, or nil if the type is not registered.
func GetInputConstructor(moduleType string) InputConstructor {
	inputMu.RLock()
	defer inputMu.RUnlock()
	return inputRegistry[moduleType]
}

// InputTypes returns the registered input module types, sorted.
func InputTypes() []string {
	inputMu.RLock()
	defer inputMu.RUnlock()

	types := make([]string, 0, len(inputRegistry))
	for t := range inputRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// RegisterOutput registers an output module constructor by type string.
// Registering an already registered type overwrites the previous constructor.
//
// Safe for concurrent use; typically called from init() functions.
func RegisterOutput(moduleType string, constructor OutputConstructor) {
	outputMu.Lock()
	defer outputMu.Unlock()
	outputRegistry[moduleType] = constructor
}

// GetOutputConstructor returns the constructor for the given output module
// type, or nil if the type is not registered.
func GetOutputConstructor(moduleType string) OutputConstructor {
	outputMu.RLock()
	defer outputMu.RUnlock()
	return outputRegistry[moduleType]
}

// OutputTypes returns the registered output module types, sorted.
func OutputTypes() []string {
	outputMu.RLock()
	defer outputMu.RUnlock()

	types := make([]string, 0, len(outputRegistry))
	for t := range outputRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
