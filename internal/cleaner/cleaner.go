package cleaner

import (
	"context"
	"log/slog"

	"github.com/tripwash/runtime/internal/errhandling"
	"github.com/tripwash/runtime/internal/geo"
	"github.com/tripwash/runtime/internal/logger"
	"github.com/tripwash/runtime/pkg/trip"
)

// ctxCheckInterval is how often long record loops poll for cancellation.
const ctxCheckInterval = 100

// Cleaner partitions a trip dataset into cleaned and dropped sets.
// It is safe for reuse across runs; a Cleaner with only built-in rules is
// also safe for concurrent use (custom js rules hold a per-instance
// JavaScript runtime and are not).
type Cleaner struct {
	bounds trip.BoundingBox
	rules  []Rule
}

// Result holds the outcome of a single cleaning run.
type Result struct {
	// Cleaned contains the rows that passed every rule, in input order.
	Cleaned []trip.Record

	// Dropped contains the rows that failed at least one rule: first-stage
	// drops in input order, then non-positive-distance drops in input order.
	Dropped []trip.Record

	// RuleCounts maps rule name to rows dropped by that rule. A row
	// failing several rules counts once, under the first match.
	RuleCounts map[string]int
}

// New creates a Cleaner for the given bounding box. Extra rules are
// evaluated after the built-in battery, in the order given.
func New(bounds trip.BoundingBox, extra ...Rule) *Cleaner {
	rules := builtinRules(bounds)
	rules = append(rules, extra...)
	return &Cleaner{bounds: bounds, rules: rules}
}

// Clean applies the rule battery and the distance check to the dataset.
// Every input row ends up in exactly one of the two returned sets; the
// input records are never mutated (derived fields are added to copies).
//
// The only error conditions are a required column missing from a row
// (schema error, no partial result) and context cancellation.
func (c *Cleaner) Clean(ctx context.Context, records []trip.Record) (cleaned, dropped []trip.Record, err error) {
	result, err := c.Run(ctx, records)
	if err != nil {
		return nil, nil, err
	}
	return result.Cleaned, result.Dropped, nil
}

// Run is Clean plus per-rule drop counts.
func (c *Cleaner) Run(ctx context.Context, records []trip.Record) (*Result, error) {
	result := &Result{
		Cleaned:    make([]trip.Record, 0, len(records)),
		Dropped:    make([]trip.Record, 0),
		RuleCounts: make(map[string]int),
	}

	// Validate the schema for the whole dataset before doing any work, so
	// a schema error never yields a partial result.
	if err := checkSchema(records); err != nil {
		return nil, err
	}

	// First stage: derive timestamp fields and evaluate the rule battery.
	survivors := make([]trip.Record, 0, len(records))
	for i, record := range records {
		if i%ctxCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		row := record.Clone()
		if t, ok := parsePickupTime(row[trip.FieldPickupDatetime]); ok {
			row[trip.FieldPickupTime] = t
			row[trip.FieldPickupHour] = t.Hour()
		}

		name, drop, err := c.evaluate(row)
		if err != nil {
			return nil, err
		}
		if drop {
			result.Dropped = append(result.Dropped, row)
			result.RuleCounts[name]++
			continue
		}
		survivors = append(survivors, row)
	}

	// Second stage: derive distance_miles for survivors, then apply the
	// distance rule. Distance computation is kept separate from predicate
	// evaluation so it can be tested and optimized independently.
	attachDistances(survivors)

	distRule := distanceRule()
	for i, row := range survivors {
		if i%ctxCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		drop, _ := distRule.Drop(row)
		if drop {
			result.Dropped = append(result.Dropped, row)
			result.RuleCounts[distRule.Name]++
			continue
		}
		result.Cleaned = append(result.Cleaned, row)
	}

	logger.Debug("cleaning pass finished",
		slog.Int("records_in", len(records)),
		slog.Int("records_cleaned", len(result.Cleaned)),
		slog.Int("records_dropped", len(result.Dropped)),
	)

	return result, nil
}

// evaluate runs the first-stage battery on a row. Returns the name of the
// first matching rule, or an error if a custom rule failed fatally.
func (c *Cleaner) evaluate(row trip.Record) (string, bool, error) {
	for _, rule := range c.rules {
		drop, err := rule.Drop(row)
		if err != nil {
			return rule.Name, false, err
		}
		if drop {
			return rule.Name, true, nil
		}
	}
	return "", false, nil
}

// attachDistances computes the geodesic trip distance for each row and
// stores it under distance_miles. Rows reaching this stage have passed the
// missing_coordinate rule, so all four coordinates coerce cleanly.
func attachDistances(rows []trip.Record) {
	if len(rows) == 0 {
		return
	}

	pickLat := make([]float64, len(rows))
	pickLon := make([]float64, len(rows))
	dropLat := make([]float64, len(rows))
	dropLon := make([]float64, len(rows))
	for i, row := range rows {
		pickLat[i], _ = floatValue(row[trip.FieldPickupLatitude])
		pickLon[i], _ = floatValue(row[trip.FieldPickupLongitude])
		dropLat[i], _ = floatValue(row[trip.FieldDropoffLatitude])
		dropLon[i], _ = floatValue(row[trip.FieldDropoffLongitude])
	}

	miles := geo.MilesPairs(pickLat, pickLon, dropLat, dropLon)
	for i, row := range rows {
		row[trip.FieldDistanceMiles] = miles[i]
	}
}

// checkSchema verifies every row carries all required columns.
func checkSchema(records []trip.Record) error {
	for i, record := range records {
		for _, field := range trip.RequiredFields {
			if _, ok := record[field]; !ok {
				return errhandling.NewSchemaError(i, field)
			}
		}
	}
	return nil
}
