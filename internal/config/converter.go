package config

import (
	"fmt"

	"github.com/tripwash/runtime/pkg/trip"
)

// ConvertToJob converts parsed configuration data to a typed Job.
// The data should have been validated against the schema before calling this.
//
// A job document has this shape:
//
//	{
//	  "id": "nyc-trips",
//	  "input": {"type": "csv", "config": {...}},
//	  "bounds": {"longMin": ..., "longMax": ..., "latMin": ..., "latMax": ...},
//	  "rules": [...],
//	  "output": {"cleaned": {...}, "dropped": {...}},
//	  "schedule": "0 3 * * *"
//	}
func ConvertToJob(data map[string]interface{}) (*trip.Job, error) {
	if data == nil {
		return nil, fmt.Errorf("configuration data is nil")
	}

	job := &trip.Job{}

	id, ok := data["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("missing required field 'id'")
	}
	job.ID = id
	// Fall back to the ID when no display name is given.
	job.Name = id

	if name, okName := data["name"].(string); okName && name != "" {
		job.Name = name
	}
	if description, okDesc := data["description"].(string); okDesc {
		job.Description = description
	}

	inputData, ok := data["input"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'input' section")
	}
	input, err := convertModuleConfig(inputData)
	if err != nil {
		return nil, fmt.Errorf("invalid input config: %w", err)
	}
	job.Input = input

	boundsData, ok := data["bounds"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'bounds' section")
	}
	bounds, err := convertBounds(boundsData)
	if err != nil {
		return nil, fmt.Errorf("invalid bounds: %w", err)
	}
	job.Bounds = bounds

	if rulesData, okRules := data["rules"].([]interface{}); okRules {
		for i, ruleData := range rulesData {
			ruleMap, isMap := ruleData.(map[string]interface{})
			if !isMap {
				return nil, fmt.Errorf("invalid rule at index %d", i)
			}
			rule, convertErr := convertRuleConfig(ruleMap)
			if convertErr != nil {
				return nil, fmt.Errorf("invalid rule at index %d: %w", i, convertErr)
			}
			job.Rules = append(job.Rules, rule)
		}
	}

	if outputData, okOutput := data["output"].(map[string]interface{}); okOutput {
		output, convertErr := convertOutputConfig(outputData)
		if convertErr != nil {
			return nil, fmt.Errorf("invalid output config: %w", convertErr)
		}
		job.Output = output
	}

	if schedule, okSchedule := data["schedule"].(string); okSchedule {
		job.Schedule = schedule
	}

	return job, nil
}

// convertModuleConfig converts a raw module section to a ModuleConfig.
func convertModuleConfig(data map[string]interface{}) (*trip.ModuleConfig, error) {
	moduleType, ok := data["type"].(string)
	if !ok || moduleType == "" {
		return nil, fmt.Errorf("missing required field 'type'")
	}

	moduleConfig := &trip.ModuleConfig{
		Type:   moduleType,
		Config: make(map[string]interface{}),
	}

	if cfg, okCfg := data["config"].(map[string]interface{}); okCfg {
		for key, value := range cfg {
			moduleConfig.Config[key] = value
		}
	}

	return moduleConfig, nil
}

// convertBounds converts a raw bounds section to a BoundingBox.
// YAML decodes whole numbers as int, so both int and float forms are accepted.
func convertBounds(data map[string]interface{}) (trip.BoundingBox, error) {
	var bounds trip.BoundingBox

	fields := []struct {
		key  string
		dest *float64
	}{
		{"longMin", &bounds.LongMin},
		{"longMax", &bounds.LongMax},
		{"latMin", &bounds.LatMin},
		{"latMax", &bounds.LatMax},
	}

	for _, field := range fields {
		raw, ok := data[field.key]
		if !ok {
			return bounds, fmt.Errorf("missing required field '%s'", field.key)
		}
		value, err := toFloat(raw)
		if err != nil {
			return bounds, fmt.Errorf("field '%s': %w", field.key, err)
		}
		*field.dest = value
	}

	return bounds, nil
}

// convertRuleConfig converts a raw rule section to a RuleConfig.
func convertRuleConfig(data map[string]interface{}) (trip.RuleConfig, error) {
	var rule trip.RuleConfig

	name, ok := data["name"].(string)
	if !ok || name == "" {
		return rule, fmt.Errorf("missing required field 'name'")
	}
	rule.Name = name

	if lang, okLang := data["lang"].(string); okLang {
		rule.Lang = lang
	}
	if expression, okExpr := data["expression"].(string); okExpr {
		rule.Expression = expression
	}
	if script, okScript := data["script"].(string); okScript {
		rule.Script = script
	}
	if onError, okOnError := data["onError"].(string); okOnError {
		rule.OnError = onError
	}

	return rule, nil
}

// convertOutputConfig converts a raw output section to an OutputConfig.
func convertOutputConfig(data map[string]interface{}) (*trip.OutputConfig, error) {
	output := &trip.OutputConfig{}

	if cleanedData, ok := data["cleaned"].(map[string]interface{}); ok {
		cleaned, err := convertModuleConfig(cleanedData)
		if err != nil {
			return nil, fmt.Errorf("invalid 'cleaned' module: %w", err)
		}
		output.Cleaned = cleaned
	}

	if droppedData, ok := data["dropped"].(map[string]interface{}); ok {
		dropped, err := convertModuleConfig(droppedData)
		if err != nil {
			return nil, fmt.Errorf("invalid 'dropped' module: %w", err)
		}
		output.Dropped = dropped
	}

	return output, nil
}

// toFloat coerces JSON and YAML numeric scalars to float64.
func toFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", value)
	}
}
