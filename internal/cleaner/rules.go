// Package cleaner implements the trip-record cleaner: an ordered battery of
// named drop rules plus a derived geodesic-distance check, partitioning a
// dataset into cleaned and dropped sets.
package cleaner

import (
	"math"
	"strconv"
	"strings"

	"github.com/tripwash/runtime/pkg/trip"
)

// Names of the built-in drop rules. Custom rules from the job config are
// reported under their configured names alongside these.
const (
	RuleInvalidTimestamp      = "invalid_timestamp"
	RuleOutOfBounds           = "out_of_bounds"
	RuleNonPositiveFare       = "non_positive_fare"
	RuleMissingCoordinate     = "missing_coordinate"
	RuleInvalidPassengerCount = "invalid_passenger_count"
	RuleNonPositiveDistance   = "non_positive_distance"
)

// MaxPassengers is the largest accepted passenger count.
const MaxPassengers = 10

// Rule is a named drop predicate. Drop returns true when the record must be
// routed to the dropped set. Built-in rules never return an error; custom
// rules may, and the error is handled according to their onError mode.
type Rule struct {
	// Name identifies the rule in reports and logs.
	Name string

	// Drop reports whether the record fails this rule.
	Drop func(record trip.Record) (bool, error)
}

// builtinRules returns the fixed first-stage battery, in evaluation order.
// The battery matches the six validity conditions: the timestamp condition
// is precomputed by the cleaner (presence of the derived pickup_time field),
// the remaining five are evaluated directly here.
func builtinRules(bounds trip.BoundingBox) []Rule {
	return []Rule{
		{
			Name: RuleInvalidTimestamp,
			Drop: func(r trip.Record) (bool, error) {
				_, ok := r[trip.FieldPickupTime]
				return !ok, nil
			},
		},
		{
			Name: RuleOutOfBounds,
			Drop: func(r trip.Record) (bool, error) {
				return coordOutOfBounds(r, bounds), nil
			},
		},
		{
			Name: RuleNonPositiveFare,
			Drop: func(r trip.Record) (bool, error) {
				fare, ok := floatValue(r[trip.FieldFareAmount])
				// An uncoercible or NaN fare cannot satisfy fare > 0, so
				// it drops here rather than failing the run.
				return !ok || math.IsNaN(fare) || fare <= 0, nil
			},
		},
		{
			Name: RuleMissingCoordinate,
			Drop: func(r trip.Record) (bool, error) {
				return missingAny(r,
					trip.FieldPickupLatitude,
					trip.FieldPickupLongitude,
					trip.FieldDropoffLatitude,
					trip.FieldDropoffLongitude,
				), nil
			},
		},
		{
			Name: RuleInvalidPassengerCount,
			Drop: func(r trip.Record) (bool, error) {
				count, ok := intValue(r[trip.FieldPassengerCount])
				// Fractional or uncoercible counts are invalid; integral
				// floats (CSV type detection yields 2.0) are accepted.
				return !ok || count <= 0 || count > MaxPassengers, nil
			},
		},
	}
}

// distanceRule is the single second-stage rule, evaluated after
// distance_miles has been derived for first-stage survivors.
func distanceRule() Rule {
	return Rule{
		Name: RuleNonPositiveDistance,
		Drop: func(r trip.Record) (bool, error) {
			d, ok := floatValue(r[trip.FieldDistanceMiles])
			return !ok || math.IsNaN(d) || d <= 0, nil
		},
	}
}

// coordOutOfBounds reports whether any present, numeric coordinate lies
// outside the bounding box. Missing or non-numeric coordinates are the
// missing_coordinate rule's concern and do not trigger this rule.
func coordOutOfBounds(r trip.Record, bounds trip.BoundingBox) bool {
	if lat, ok := floatValue(r[trip.FieldPickupLatitude]); ok && !math.IsNaN(lat) && !bounds.ContainsLat(lat) {
		return true
	}
	if long, ok := floatValue(r[trip.FieldPickupLongitude]); ok && !math.IsNaN(long) && !bounds.ContainsLong(long) {
		return true
	}
	if lat, ok := floatValue(r[trip.FieldDropoffLatitude]); ok && !math.IsNaN(lat) && !bounds.ContainsLat(lat) {
		return true
	}
	if long, ok := floatValue(r[trip.FieldDropoffLongitude]); ok && !math.IsNaN(long) && !bounds.ContainsLong(long) {
		return true
	}
	return false
}

// missingAny reports whether any of the fields is absent, nil, NaN, empty
// or otherwise not coercible to a number.
func missingAny(r trip.Record, fields ...string) bool {
	for _, field := range fields {
		v, ok := r[field]
		if !ok {
			return true
		}
		f, ok := floatValue(v)
		if !ok || math.IsNaN(f) {
			return true
		}
	}
	return false
}

// floatValue coerces a record value to float64. Returns false for nil,
// non-numeric strings and unsupported types. NaN coerces successfully
// (callers that care check IsNaN).
func floatValue(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case string:
		s := strings.TrimSpace(val)
		if s == "" || strings.EqualFold(s, "na") || strings.EqualFold(s, "nan") {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// intValue coerces a record value to an integer count. Fractional floats
// and float strings ("1.5") are rejected; integral ones ("2", 2.0) pass.
func intValue(v interface{}) (int, bool) {
	f, ok := floatValue(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
