package input

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/tripwash/runtime/internal/logger"
	"github.com/tripwash/runtime/pkg/trip"
)

// CSVModule loads trip records from a CSV file.
// Column types are inferred per column, so coordinate and fare columns
// arrive as float64 and untyped columns stay strings.
type CSVModule struct {
	Path      string
	Delimiter rune
}

// NewCSVFromConfig creates a CSV input module from configuration.
// Recognized settings: path (required), delimiter (optional, single character).
func NewCSVFromConfig(cfg *trip.ModuleConfig) (*CSVModule, error) {
	path, err := pathFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	module := &CSVModule{
		Path:      path,
		Delimiter: ',',
	}

	if delim, ok := cfg.Config["delimiter"].(string); ok && delim != "" {
		runes := []rune(delim)
		if len(runes) != 1 {
			return nil, fmt.Errorf("delimiter must be a single character, got %q", delim)
		}
		module.Delimiter = runes[0]
	}

	return module, nil
}

// Fetch reads the whole CSV file into records.
func (m *CSVModule) Fetch(ctx context.Context) ([]trip.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("Reading CSV input",
		slog.String("path", m.Path))

	file, err := os.Open(m.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	df := dataframe.ReadCSV(file,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.WithDelimiter(m.Delimiter))
	if df.Err != nil {
		return nil, fmt.Errorf("failed to parse CSV file %s: %w", m.Path, df.Err)
	}

	records := make([]trip.Record, 0, df.Nrow())
	for _, row := range df.Maps() {
		// gota delivers missing cells in numeric columns as nil; records
		// carry them as NaN, matching the dataset's NaN convention.
		for key, value := range row {
			if value == nil {
				row[key] = math.NaN()
			}
		}
		records = append(records, trip.Record(row))
	}

	logger.Debug("CSV input loaded",
		slog.String("path", m.Path),
		slog.Int("records", len(records)))

	return records, nil
}

// Close releases resources (no-op, the file handle is scoped to Fetch).
func (m *CSVModule) Close() error {
	return nil
}

// Verify CSVModule implements Module
var _ Module = (*CSVModule)(nil)
