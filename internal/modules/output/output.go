// Package output provides implementations for output modules.
// Output modules write partitioned trip records to destination files.
package output

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/tripwash/runtime/pkg/trip"
)

// ErrNilConfig is returned when a module is constructed without configuration.
var ErrNilConfig = errors.New("output configuration is nil")

// ErrMissingPath is returned when a file-based module has no path configured.
var ErrMissingPath = errors.New("path is required for output module")

// Module represents an output module that writes trip records to a destination.
type Module interface {
	// Send writes records to the destination.
	// Returns the number of records successfully written and any error.
	Send(records []trip.Record) (int, error)

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

// ensureParentDir creates the destination's parent directory when absent.
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// preferredColumns is the canonical column order for trip datasets.
// Columns not listed here are appended alphabetically.
var preferredColumns = []string{
	trip.FieldPickupDatetime,
	trip.FieldPickupLongitude,
	trip.FieldPickupLatitude,
	trip.FieldDropoffLongitude,
	trip.FieldDropoffLatitude,
	trip.FieldFareAmount,
	trip.FieldPassengerCount,
	trip.FieldPickupTime,
	trip.FieldPickupHour,
	trip.FieldDistanceMiles,
}

// columnOrder computes the output column list for a record set.
// Known trip columns come first in canonical order, the rest alphabetically.
func columnOrder(records []trip.Record) []string {
	seen := make(map[string]bool)
	for _, record := range records {
		for key := range record {
			seen[key] = true
		}
	}

	columns := make([]string, 0, len(seen))
	for _, name := range preferredColumns {
		if seen[name] {
			columns = append(columns, name)
			delete(seen, name)
		}
	}

	rest := make([]string, 0, len(seen))
	for name := range seen {
		rest = append(rest, name)
	}
	sort.Strings(rest)

	return append(columns, rest...)
}

// formatValue renders a record value as a CSV cell.
// Absent and nil values render as NaN so that partial rows stay aligned
// with rows that carry derived columns.
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "NaN"
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// sanitizeJSONValue converts values that encoding/json cannot represent.
// NaN and infinities become null, timestamps stay as time.Time.
func sanitizeJSONValue(value interface{}) interface{} {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case float32:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	default:
		return value
	}
}
