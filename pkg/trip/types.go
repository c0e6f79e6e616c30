// Package trip provides public types for trip-cleaning jobs.
// This package is intended to be importable by external projects that need
// to interact with the tripwash runtime.
package trip

import "time"

// Record is a single trip row. Values come from the dataset loader and keep
// their detected types (string, int, float64, bool, time.Time). Derived
// fields added by the cleaner are stored under FieldPickupTime,
// FieldPickupHour and FieldDistanceMiles.
type Record map[string]interface{}

// Required dataset columns. A row missing any of these keys is a schema
// error and aborts the whole run.
const (
	FieldPickupDatetime   = "pickup_datetime"
	FieldPickupLatitude   = "pickup_latitude"
	FieldPickupLongitude  = "pickup_longitude"
	FieldDropoffLatitude  = "dropoff_latitude"
	FieldDropoffLongitude = "dropoff_longitude"
	FieldFareAmount       = "fare_amount"
	FieldPassengerCount   = "passenger_count"
)

// Derived columns added by the cleaner.
const (
	FieldPickupTime    = "pickup_time"
	FieldPickupHour    = "pickup_hour"
	FieldDistanceMiles = "distance_miles"
)

// RequiredFields lists the columns every input row must carry.
var RequiredFields = []string{
	FieldPickupDatetime,
	FieldPickupLatitude,
	FieldPickupLongitude,
	FieldDropoffLatitude,
	FieldDropoffLongitude,
	FieldFareAmount,
	FieldPassengerCount,
}

// Clone returns a shallow copy of the record. Values are scalars, so a
// shallow copy is enough to isolate the caller's data from derived-field
// writes.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r)+3)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// BoundingBox is the rectangular geographic region of interest, in degrees.
// The caller is responsible for min <= max; the box is applied as-is.
type BoundingBox struct {
	// LongMin is the minimum accepted longitude
	LongMin float64 `json:"longMin"`

	// LongMax is the maximum accepted longitude
	LongMax float64 `json:"longMax"`

	// LatMin is the minimum accepted latitude
	LatMin float64 `json:"latMin"`

	// LatMax is the maximum accepted latitude
	LatMax float64 `json:"latMax"`
}

// ContainsLat reports whether lat lies within the box's latitude band.
func (b BoundingBox) ContainsLat(lat float64) bool {
	return lat >= b.LatMin && lat <= b.LatMax
}

// ContainsLong reports whether long lies within the box's longitude band.
func (b BoundingBox) ContainsLong(long float64) bool {
	return long >= b.LongMin && long <= b.LongMax
}

// Job represents a complete trip-cleaning job configuration.
// It contains the dataset source, the bounding parameters, optional extra
// rules and the destinations for both result sets.
type Job struct {
	// ID is the unique identifier for this job
	ID string `json:"id"`

	// Name is the human-readable name of the job
	Name string `json:"name"`

	// Description provides additional context about the job
	Description string `json:"description,omitempty"`

	// Input defines the dataset source module
	Input *ModuleConfig `json:"input"`

	// Bounds is the geographic region accepted by the out-of-bounds rule
	Bounds BoundingBox `json:"bounds"`

	// Rules is an ordered list of extra drop rules evaluated after the
	// built-in battery
	Rules []RuleConfig `json:"rules,omitempty"`

	// Output defines where the cleaned and dropped sets are written
	Output *OutputConfig `json:"output"`

	// Schedule defines the CRON expression for recurring execution
	Schedule string `json:"schedule,omitempty"`
}

// ModuleConfig represents the configuration for an input or output module.
type ModuleConfig struct {
	// Type identifies the module type (e.g. "csv", "xlsx", "json")
	Type string `json:"type"`

	// Config contains the module-specific configuration
	Config map[string]interface{} `json:"config"`
}

// OutputConfig holds the destinations for the two result sets.
// Either destination may be nil, in which case that set is not written.
type OutputConfig struct {
	// Cleaned is the destination for rows that pass every rule
	Cleaned *ModuleConfig `json:"cleaned,omitempty"`

	// Dropped is the destination for rows that fail at least one rule
	Dropped *ModuleConfig `json:"dropped,omitempty"`
}

// RuleConfig declares a custom drop rule.
type RuleConfig struct {
	// Name identifies the rule in reports and logs
	Name string `json:"name"`

	// Lang is the rule language: "expr" (default) or "js"
	Lang string `json:"lang,omitempty"`

	// Expression is the boolean expression for expr rules
	Expression string `json:"expression,omitempty"`

	// Script is the JavaScript source for js rules; it must define
	// a drop(record) function returning a truthy value for rows to drop
	Script string `json:"script,omitempty"`

	// OnError specifies evaluation error handling: "fail" (default),
	// "skip" (drop the row) or "log" (keep the row)
	OnError string `json:"onError,omitempty"`
}

// Report represents the result of a job execution.
type Report struct {
	// JobID is the ID of the executed job
	JobID string `json:"jobId"`

	// Status is the execution status ("success" or "error")
	Status string `json:"status"`

	// RecordsIn is the number of rows read from the input
	RecordsIn int `json:"recordsIn"`

	// RecordsCleaned is the number of rows that passed every rule
	RecordsCleaned int `json:"recordsCleaned"`

	// RecordsDropped is the number of rows routed to the dropped set
	RecordsDropped int `json:"recordsDropped"`

	// RuleCounts maps rule name to the number of rows it dropped.
	// A row dropped by several rules is counted once, under the first
	// matching rule in battery order.
	RuleCounts map[string]int `json:"ruleCounts,omitempty"`

	// DryRun indicates the outputs were not written
	DryRun bool `json:"dryRun,omitempty"`

	// StartedAt is when the execution began
	StartedAt time.Time `json:"startedAt"`

	// CompletedAt is when the execution finished
	CompletedAt time.Time `json:"completedAt"`

	// Error contains error details when Status is "error"
	Error *ReportError `json:"error,omitempty"`
}

// ReportError describes the failure recorded in a Report.
type ReportError struct {
	// Stage is the stage that failed ("input", "clean", "output")
	Stage string `json:"stage"`

	// Code is the machine-readable error code
	Code string `json:"code,omitempty"`

	// Message is the human-readable error message
	Message string `json:"message"`
}

// Duration returns the wall-clock execution time.
func (r *Report) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
