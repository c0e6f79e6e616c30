package output

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/tripwash/runtime/internal/logger"
	"github.com/tripwash/runtime/pkg/trip"
)

// JSONModule writes trip records to a JSON file as an array of objects.
type JSONModule struct {
	Path   string
	Pretty bool
}

// NewJSONFromConfig creates a JSON output module from configuration.
// Recognized settings: path (required), pretty (optional bool).
func NewJSONFromConfig(cfg *trip.ModuleConfig) (*JSONModule, error) {
	path, err := pathFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	module := &JSONModule{Path: path}
	if pretty, ok := cfg.Config["pretty"].(bool); ok {
		module.Pretty = pretty
	}
	return module, nil
}

// Send writes all records to the destination file.
// NaN and infinite float values are written as null since JSON has no
// representation for them.
func (m *JSONModule) Send(records []trip.Record) (int, error) {
	logger.Info("Writing JSON output",
		slog.String("path", m.Path),
		slog.Int("records", len(records)))

	if err := ensureParentDir(m.Path); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	sanitized := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		row := make(map[string]interface{}, len(record))
		for key, value := range record {
			row[key] = sanitizeJSONValue(value)
		}
		sanitized = append(sanitized, row)
	}

	file, err := os.Create(m.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	if m.Pretty {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(sanitized); err != nil {
		return 0, fmt.Errorf("failed to write JSON file %s: %w", m.Path, err)
	}

	return len(records), nil
}

// Close releases resources (no-op, the file handle is scoped to Send).
func (m *JSONModule) Close() error {
	return nil
}

// Verify JSONModule implements Module
var _ Module = (*JSONModule)(nil)
