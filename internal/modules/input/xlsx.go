package input

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tripwash/runtime/internal/logger"
	"github.com/tripwash/runtime/pkg/trip"
)

// XLSXModule loads trip records from an Excel workbook.
// The first row of the sheet is treated as the header row and all cell
// values are kept as strings for downstream coercion.
type XLSXModule struct {
	Path  string
	Sheet string
}

// NewXLSXFromConfig creates an XLSX input module from configuration.
// Recognized settings: path (required), sheet (optional, defaults to the
// first sheet in the workbook).
func NewXLSXFromConfig(cfg *trip.ModuleConfig) (*XLSXModule, error) {
	path, err := pathFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	module := &XLSXModule{Path: path}
	if sheet, ok := cfg.Config["sheet"].(string); ok {
		module.Sheet = sheet
	}
	return module, nil
}

// Fetch reads the configured sheet into records.
func (m *XLSXModule) Fetch(ctx context.Context) ([]trip.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("Reading XLSX input",
		slog.String("path", m.Path),
		slog.String("sheet", m.Sheet))

	workbook, err := excelize.OpenFile(m.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer workbook.Close()

	sheet := m.Sheet
	if sheet == "" {
		sheet = workbook.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", m.Path)
	}

	rows, err := workbook.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := make([]string, 0, len(rows[0]))
	for _, cell := range rows[0] {
		header = append(header, strings.TrimSpace(cell))
	}

	records := make([]trip.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(trip.Record, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			// GetRows trims trailing empty cells, so short rows are padded.
			if i < len(row) {
				record[name] = row[i]
			} else {
				record[name] = ""
			}
		}
		records = append(records, record)
	}

	logger.Debug("XLSX input loaded",
		slog.String("path", m.Path),
		slog.String("sheet", sheet),
		slog.Int("records", len(records)))

	return records, nil
}

// Close releases resources (no-op, the workbook is scoped to Fetch).
func (m *XLSXModule) Close() error {
	return nil
}

// Verify XLSXModule implements Module
var _ Module = (*XLSXModule)(nil)
