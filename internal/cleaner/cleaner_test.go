package cleaner

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/tripwash/runtime/internal/errhandling"
	"github.com/tripwash/runtime/pkg/trip"
)

// nycBounds covers the New York metropolitan area.
var nycBounds = trip.BoundingBox{
	LongMin: -74.3,
	LongMax: -73.7,
	LatMin:  40.5,
	LatMax:  40.9,
}

// validRecord returns a row that passes every built-in rule.
func validRecord() trip.Record {
	return trip.Record{
		"pickup_datetime":   "2015-05-07 19:52:06 UTC",
		"pickup_latitude":   40.7128,
		"pickup_longitude":  -74.0060,
		"dropoff_latitude":  40.7306,
		"dropoff_longitude": -73.9352,
		"fare_amount":       11.5,
		"passenger_count":   1,
	}
}

func mustClean(t *testing.T, c *Cleaner, records []trip.Record) (cleaned, dropped []trip.Record) {
	t.Helper()
	cleaned, dropped, err := c.Clean(context.Background(), records)
	if err != nil {
		t.Fatalf("Clean returned unexpected error: %v", err)
	}
	return cleaned, dropped
}

func TestCleanValidRecord(t *testing.T) {
	c := New(nycBounds)
	cleaned, dropped := mustClean(t, c, []trip.Record{validRecord()})

	if len(cleaned) != 1 || len(dropped) != 0 {
		t.Fatalf("expected 1 cleaned, 0 dropped; got %d, %d", len(cleaned), len(dropped))
	}

	row := cleaned[0]
	if row["pickup_hour"] != 19 {
		t.Errorf("pickup_hour = %v, want 19", row["pickup_hour"])
	}
	d, ok := row["distance_miles"].(float64)
	if !ok {
		t.Fatalf("distance_miles missing or wrong type: %v", row["distance_miles"])
	}
	// WGS-84 geodesic for this pair is 3.9146 miles
	if d < 3.90 || d > 3.93 {
		t.Errorf("distance_miles = %v, want ≈3.9146", d)
	}
}

func TestCleanPartitionProperty(t *testing.T) {
	rows := []trip.Record{validRecord()}

	bad := validRecord()
	bad["fare_amount"] = -3.0
	rows = append(rows, bad)

	bad2 := validRecord()
	bad2["pickup_datetime"] = "not-a-date"
	bad2["passenger_count"] = 0
	rows = append(rows, bad2) // fails two rules, must appear once

	same := validRecord()
	same["dropoff_latitude"] = same["pickup_latitude"]
	same["dropoff_longitude"] = same["pickup_longitude"]
	rows = append(rows, same) // zero distance

	c := New(nycBounds)
	cleaned, dropped := mustClean(t, c, rows)

	if len(cleaned)+len(dropped) != len(rows) {
		t.Errorf("partition violated: %d + %d != %d", len(cleaned), len(dropped), len(rows))
	}
	if len(cleaned) != 1 {
		t.Errorf("expected exactly 1 cleaned row, got %d", len(cleaned))
	}
	if len(dropped) != 3 {
		t.Errorf("expected exactly 3 dropped rows, got %d (multi-rule row duplicated?)", len(dropped))
	}
}

func TestCleanNaNFareDropped(t *testing.T) {
	// A NaN fare passes float coercion and NaN <= 0 is false, so the fare
	// rule must test for NaN explicitly; the original pandas masks let
	// these rows through.
	nanFare := validRecord()
	nanFare["fare_amount"] = math.NaN()

	c := New(nycBounds)
	cleaned, dropped := mustClean(t, c, []trip.Record{validRecord(), nanFare})

	if len(cleaned) != 1 || len(dropped) != 1 {
		t.Fatalf("expected 1 cleaned, 1 dropped; got %d, %d", len(cleaned), len(dropped))
	}
	fare, ok := dropped[0]["fare_amount"].(float64)
	if !ok || !math.IsNaN(fare) {
		t.Errorf("dropped row should be the NaN-fare row, got %v", dropped[0]["fare_amount"])
	}
}

func TestCleanDropOrder(t *testing.T) {
	// Stage-1 drops must precede stage-2 (distance) drops in the dropped
	// set, each preserving input order.
	zeroDist := validRecord()
	zeroDist["dropoff_latitude"] = zeroDist["pickup_latitude"]
	zeroDist["dropoff_longitude"] = zeroDist["pickup_longitude"]
	zeroDist["fare_amount"] = 1.0

	badFare := validRecord()
	badFare["fare_amount"] = 0.0

	badTime := validRecord()
	badTime["pickup_datetime"] = "yesterday-ish"

	rows := []trip.Record{zeroDist, badFare, badTime}
	c := New(nycBounds)
	_, dropped := mustClean(t, c, rows)

	if len(dropped) != 3 {
		t.Fatalf("expected 3 dropped rows, got %d", len(dropped))
	}
	// badFare and badTime are stage-1 drops in input order, zeroDist last
	if dropped[0]["fare_amount"] != 0.0 {
		t.Errorf("first dropped row should be the zero-fare stage-1 drop, got %v", dropped[0])
	}
	if dropped[1]["pickup_datetime"] != "yesterday-ish" {
		t.Errorf("second dropped row should be the bad-timestamp stage-1 drop, got %v", dropped[1])
	}
	if dropped[2]["fare_amount"] != 1.0 {
		t.Errorf("last dropped row should be the zero-distance stage-2 drop, got %v", dropped[2])
	}
}

func TestCleanIdempotent(t *testing.T) {
	rows := []trip.Record{validRecord(), validRecord()}
	rows[1]["passenger_count"] = 10

	c := New(nycBounds)
	cleaned, _ := mustClean(t, c, rows)
	again, droppedAgain := mustClean(t, c, cleaned)

	if len(droppedAgain) != 0 {
		t.Errorf("re-cleaning the cleaned set dropped %d rows", len(droppedAgain))
	}
	if len(again) != len(cleaned) {
		t.Errorf("re-cleaning changed the cleaned count: %d -> %d", len(cleaned), len(again))
	}
	for i := range again {
		if again[i]["pickup_hour"] != cleaned[i]["pickup_hour"] {
			t.Errorf("row %d: pickup_hour changed on re-clean", i)
		}
		if again[i]["distance_miles"] != cleaned[i]["distance_miles"] {
			t.Errorf("row %d: distance_miles changed on re-clean", i)
		}
	}
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	row := validRecord()
	c := New(nycBounds)
	mustClean(t, c, []trip.Record{row})

	for _, derived := range []string{"pickup_time", "pickup_hour", "distance_miles"} {
		if _, ok := row[derived]; ok {
			t.Errorf("input record gained derived field %q", derived)
		}
	}
	if row["fare_amount"] != 11.5 {
		t.Errorf("input record value changed: %v", row["fare_amount"])
	}
}

func TestCleanBoundaryValues(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value interface{}
		kept  bool
	}{
		{"fare zero dropped", "fare_amount", 0.0, false},
		{"fare one cent kept", "fare_amount", 0.01, true},
		{"fare negative dropped", "fare_amount", -1.0, false},
		{"zero passengers dropped", "passenger_count", 0, false},
		{"ten passengers kept", "passenger_count", 10, true},
		{"eleven passengers dropped", "passenger_count", 11, false},
		{"one passenger kept", "passenger_count", 1, true},
	}

	c := New(nycBounds)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRecord()
			row[tt.field] = tt.value
			cleaned, dropped := mustClean(t, c, []trip.Record{row})
			if tt.kept && len(cleaned) != 1 {
				t.Errorf("expected row kept, got dropped (%d cleaned, %d dropped)", len(cleaned), len(dropped))
			}
			if !tt.kept && len(dropped) != 1 {
				t.Errorf("expected row dropped, got kept")
			}
		})
	}
}

func TestCleanInvalidTimestampNoHour(t *testing.T) {
	row := validRecord()
	row["pickup_datetime"] = "not-a-date"

	c := New(nycBounds)
	cleaned, dropped := mustClean(t, c, []trip.Record{row})

	if len(cleaned) != 0 || len(dropped) != 1 {
		t.Fatalf("expected the row dropped, got %d cleaned, %d dropped", len(cleaned), len(dropped))
	}
	if _, ok := dropped[0]["pickup_hour"]; ok {
		t.Error("pickup_hour must be absent for an unparseable timestamp")
	}
	if _, ok := dropped[0]["distance_miles"]; ok {
		t.Error("distance_miles must be absent for stage-1 drops")
	}
}

func TestCleanOutOfBounds(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value float64
	}{
		{"pickup longitude west", "pickup_longitude", -75.0},
		{"pickup latitude south", "pickup_latitude", 39.0},
		{"dropoff longitude east", "dropoff_longitude", -70.0},
		{"dropoff latitude north", "dropoff_latitude", 41.5},
	}

	c := New(nycBounds)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRecord()
			row[tt.field] = tt.value
			cleaned, _ := mustClean(t, c, []trip.Record{row})
			if len(cleaned) != 0 {
				t.Error("expected out-of-bounds row to be dropped")
			}
		})
	}
}

func TestCleanMissingCoordinateValue(t *testing.T) {
	row := validRecord()
	row["dropoff_latitude"] = nil

	c := New(nycBounds)
	cleaned, dropped := mustClean(t, c, []trip.Record{row})
	if len(cleaned) != 0 || len(dropped) != 1 {
		t.Error("expected row with nil coordinate to be dropped")
	}
}

func TestCleanSchemaErrorAborts(t *testing.T) {
	good := validRecord()
	bad := validRecord()
	delete(bad, "fare_amount")

	c := New(nycBounds)
	_, _, err := c.Clean(context.Background(), []trip.Record{good, bad})
	if err == nil {
		t.Fatal("expected schema error for missing required column")
	}

	var schemaErr *errhandling.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *SchemaError, got %T: %v", err, err)
	}
	if schemaErr.Field != "fare_amount" || schemaErr.RecordIndex != 1 {
		t.Errorf("unexpected schema error details: %+v", schemaErr)
	}
}

func TestCleanEmptyDataset(t *testing.T) {
	c := New(nycBounds)
	cleaned, dropped := mustClean(t, c, nil)
	if len(cleaned) != 0 || len(dropped) != 0 {
		t.Errorf("expected empty outputs for empty input, got %d, %d", len(cleaned), len(dropped))
	}
}

func TestCleanContextCancellation(t *testing.T) {
	rows := make([]trip.Record, 500)
	for i := range rows {
		rows[i] = validRecord()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(nycBounds)
	_, _, err := c.Clean(ctx, rows)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunRuleCounts(t *testing.T) {
	badFare := validRecord()
	badFare["fare_amount"] = -1.0

	badFare2 := validRecord()
	badFare2["fare_amount"] = 0.0

	badPassengers := validRecord()
	badPassengers["passenger_count"] = 99

	zeroDist := validRecord()
	zeroDist["dropoff_latitude"] = zeroDist["pickup_latitude"]
	zeroDist["dropoff_longitude"] = zeroDist["pickup_longitude"]

	c := New(nycBounds)
	result, err := c.Run(context.Background(), []trip.Record{
		validRecord(), badFare, badFare2, badPassengers, zeroDist,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := result.RuleCounts[RuleNonPositiveFare]; got != 2 {
		t.Errorf("fare rule count = %d, want 2", got)
	}
	if got := result.RuleCounts[RuleInvalidPassengerCount]; got != 1 {
		t.Errorf("passenger rule count = %d, want 1", got)
	}
	if got := result.RuleCounts[RuleNonPositiveDistance]; got != 1 {
		t.Errorf("distance rule count = %d, want 1", got)
	}
}
