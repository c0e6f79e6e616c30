package output

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/tripwash/runtime/internal/logger"
	"github.com/tripwash/runtime/pkg/trip"
)

// CSVModule writes trip records to a CSV file.
// The destination file is replaced on every Send.
type CSVModule struct {
	Path string
}

// NewCSVFromConfig creates a CSV output module from configuration.
// Recognized settings: path (required).
func NewCSVFromConfig(cfg *trip.ModuleConfig) (*CSVModule, error) {
	path, err := pathFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &CSVModule{Path: path}, nil
}

// Send writes all records to the destination file.
// An empty record set still produces a file with only a header when the
// column set is known, or an empty file otherwise.
func (m *CSVModule) Send(records []trip.Record) (int, error) {
	logger.Info("Writing CSV output",
		slog.String("path", m.Path),
		slog.Int("records", len(records)))

	if err := ensureParentDir(m.Path); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(m.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	if len(records) == 0 {
		return 0, nil
	}

	columns := columnOrder(records)

	// Rows are pre-rendered so the frame keeps the canonical column order
	// instead of gota's alphabetical map ordering.
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, columns)
	for _, record := range records {
		row := make([]string, len(columns))
		for i, name := range columns {
			value, ok := record[name]
			if !ok {
				value = nil
			}
			row[i] = formatValue(value)
		}
		rows = append(rows, row)
	}

	df := dataframe.LoadRecords(rows,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String))
	if df.Err != nil {
		return 0, fmt.Errorf("failed to build output frame: %w", df.Err)
	}

	if err := df.WriteCSV(file, dataframe.WriteHeader(true)); err != nil {
		return 0, fmt.Errorf("failed to write CSV file %s: %w", m.Path, err)
	}

	return len(records), nil
}

// Close releases resources (no-op, the file handle is scoped to Send).
func (m *CSVModule) Close() error {
	return nil
}

// Verify CSVModule implements Module
var _ Module = (*CSVModule)(nil)
