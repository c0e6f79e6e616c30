package runtime

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tripwash/runtime/internal/cleaner"
	"github.com/tripwash/runtime/internal/errhandling"
	"github.com/tripwash/runtime/internal/persistence"
	"github.com/tripwash/runtime/pkg/trip"
)

const testDatasetCSV = `pickup_datetime,pickup_longitude,pickup_latitude,dropoff_longitude,dropoff_latitude,fare_amount,passenger_count
2015-05-07 19:52:06 UTC,-74.006,40.7128,-73.9352,40.7306,11.5,1
2015-05-08 08:15:00 UTC,-74.006,40.7128,-73.9352,40.7306,-5.0,1
2015-05-08 09:00:00 UTC,-74.006,40.7128,-73.9352,40.7306,6.0,0
`

var nycBounds = trip.BoundingBox{
	LongMin: -74.3, LongMax: -73.7,
	LatMin: 40.5, LatMax: 40.9,
}

// testJob builds a csv-in, csv-out job over a fresh temp directory.
// Returns the job and the cleaned/dropped destination paths.
func testJob(t *testing.T, dataset string) (*trip.Job, string, string) {
	t.Helper()
	dir := t.TempDir()

	inputPath := filepath.Join(dir, "trips.csv")
	if err := os.WriteFile(inputPath, []byte(dataset), 0o644); err != nil {
		t.Fatal(err)
	}

	cleanedPath := filepath.Join(dir, "cleaned.csv")
	droppedPath := filepath.Join(dir, "dropped.csv")

	job := &trip.Job{
		ID:     "test-job",
		Name:   "test job",
		Bounds: nycBounds,
		Input: &trip.ModuleConfig{
			Type:   "csv",
			Config: map[string]interface{}{"path": inputPath},
		},
		Output: &trip.OutputConfig{
			Cleaned: &trip.ModuleConfig{
				Type:   "csv",
				Config: map[string]interface{}{"path": cleanedPath},
			},
			Dropped: &trip.ModuleConfig{
				Type:   "csv",
				Config: map[string]interface{}{"path": droppedPath},
			},
		},
	}
	return job, cleanedPath, droppedPath
}

func TestExecuteEndToEnd(t *testing.T) {
	job, cleanedPath, droppedPath := testJob(t, testDatasetCSV)

	report, err := NewExecutor(false).Execute(job)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if report.Status != StatusSuccess {
		t.Errorf("expected success status, got %q", report.Status)
	}
	if report.RecordsIn != 3 || report.RecordsCleaned != 1 || report.RecordsDropped != 2 {
		t.Errorf("unexpected counts: in=%d cleaned=%d dropped=%d",
			report.RecordsIn, report.RecordsCleaned, report.RecordsDropped)
	}
	if report.RuleCounts[cleaner.RuleNonPositiveFare] != 1 {
		t.Errorf("expected one fare drop, got %v", report.RuleCounts)
	}
	if report.RuleCounts[cleaner.RuleInvalidPassengerCount] != 1 {
		t.Errorf("expected one passenger drop, got %v", report.RuleCounts)
	}
	if report.CompletedAt.Before(report.StartedAt) {
		t.Error("expected CompletedAt after StartedAt")
	}

	cleaned, err := os.ReadFile(cleanedPath)
	if err != nil {
		t.Fatalf("cleaned output missing: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(cleaned)), "\n"); len(lines) != 2 {
		t.Errorf("expected header plus one cleaned row, got %d lines", len(lines))
	}
	if !strings.Contains(string(cleaned), "distance_miles") {
		t.Error("expected derived distance column in cleaned output")
	}

	dropped, err := os.ReadFile(droppedPath)
	if err != nil {
		t.Fatalf("dropped output missing: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(dropped)), "\n"); len(lines) != 3 {
		t.Errorf("expected header plus two dropped rows, got %d lines", len(lines))
	}
}

func TestExecuteDryRun(t *testing.T) {
	job, cleanedPath, droppedPath := testJob(t, testDatasetCSV)

	report, err := NewExecutor(true).Execute(job)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !report.DryRun {
		t.Error("expected dry-run flag on report")
	}
	if report.RecordsCleaned != 1 || report.RecordsDropped != 2 {
		t.Errorf("expected full cleaning in dry-run, got %+v", report)
	}
	if _, err := os.Stat(cleanedPath); !os.IsNotExist(err) {
		t.Error("expected no cleaned output in dry-run mode")
	}
	if _, err := os.Stat(droppedPath); !os.IsNotExist(err) {
		t.Error("expected no dropped output in dry-run mode")
	}
}

func TestExecuteWithCustomRule(t *testing.T) {
	job, cleanedPath, _ := testJob(t, testDatasetCSV)
	job.Rules = []trip.RuleConfig{
		{Name: "expensive", Lang: "expr", Expression: "fare_amount > 10"},
	}

	report, err := NewExecutor(false).Execute(job)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if report.RecordsCleaned != 0 {
		t.Errorf("expected the surviving row to be dropped by the custom rule, got %d cleaned", report.RecordsCleaned)
	}
	if report.RuleCounts["expensive"] != 1 {
		t.Errorf("expected custom rule count, got %v", report.RuleCounts)
	}

	content, err := os.ReadFile(cleanedPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(content)) != "" {
		t.Errorf("expected empty cleaned file, got: %s", content)
	}
}

func TestExecutePersistsState(t *testing.T) {
	job, _, _ := testJob(t, testDatasetCSV)
	store := persistence.NewStateStore(t.TempDir())

	if _, err := NewExecutorWithStore(store, false).Execute(job); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	state, err := store.Load(job.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state == nil {
		t.Fatal("expected persisted run state")
	}
	if state.Status != StatusSuccess || state.RecordsCleaned != 1 {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestExecuteDryRunSkipsState(t *testing.T) {
	job, _, _ := testJob(t, testDatasetCSV)
	store := persistence.NewStateStore(t.TempDir())

	if _, err := NewExecutorWithStore(store, true).Execute(job); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	state, err := store.Load(job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if state != nil {
		t.Errorf("expected no state after dry-run, got %+v", state)
	}
}

func TestExecuteInputFailure(t *testing.T) {
	job, _, _ := testJob(t, testDatasetCSV)
	job.Input.Config["path"] = filepath.Join(t.TempDir(), "missing.csv")

	report, err := NewExecutor(false).Execute(job)
	if err == nil {
		t.Fatal("expected an error for a missing input file")
	}

	if report.Status != StatusError {
		t.Errorf("expected error status, got %q", report.Status)
	}
	if report.Error == nil || report.Error.Stage != StageInput {
		t.Errorf("expected input stage error, got %+v", report.Error)
	}
	if report.Error.Code != errhandling.CodeInputFailed {
		t.Errorf("expected INPUT_FAILED, got %q", report.Error.Code)
	}
}

func TestExecuteUnknownModuleType(t *testing.T) {
	job, _, _ := testJob(t, testDatasetCSV)
	job.Input.Type = "parquet"

	report, err := NewExecutor(false).Execute(job)
	if err == nil {
		t.Fatal("expected an error for unknown input module type")
	}
	if report.Error == nil || report.Error.Code != errhandling.CodeConfigInvalid {
		t.Errorf("expected CONFIG_INVALID, got %+v", report.Error)
	}
}

func TestExecuteSchemaFailure(t *testing.T) {
	dataset := `pickup_datetime,pickup_longitude,pickup_latitude,fare_amount
2015-05-07 19:52:06 UTC,-74.006,40.7128,11.5
`
	job, _, _ := testJob(t, dataset)

	report, err := NewExecutor(false).Execute(job)
	if err == nil {
		t.Fatal("expected an error for a missing required column")
	}

	if report.Error == nil || report.Error.Stage != StageClean {
		t.Fatalf("expected clean stage error, got %+v", report.Error)
	}
	if report.Error.Code != errhandling.CodeSchemaMissingField {
		t.Errorf("expected SCHEMA_MISSING_FIELD, got %q", report.Error.Code)
	}
	if !errhandling.IsSchemaError(err) {
		t.Errorf("expected a schema error, got %v", err)
	}
}

func TestExecuteNilJob(t *testing.T) {
	report, err := NewExecutor(false).Execute(nil)
	if err == nil {
		t.Fatal("expected an error for nil job")
	}
	if report.Status != StatusError {
		t.Errorf("expected error status, got %q", report.Status)
	}
}

func TestExecuteNilInput(t *testing.T) {
	job, _, _ := testJob(t, testDatasetCSV)
	job.Input = nil

	report, err := NewExecutor(false).Execute(job)
	if err == nil {
		t.Fatal("expected an error for nil input module")
	}
	if report.Error == nil || report.Error.Code != errhandling.CodeConfigInvalid {
		t.Errorf("expected CONFIG_INVALID, got %+v", report.Error)
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	job, _, _ := testJob(t, testDatasetCSV)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewExecutor(false).ExecuteWithContext(ctx, job); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
