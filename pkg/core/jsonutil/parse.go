// Package jsonutil implements the repair-then-validate cascade every LLM
// JSON response passes through before it's trusted as structured output.
// Grounded on the teacher's pkg/core/utils/json_validator.go.
package jsonutil

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"

	"disclosurecore/pkg/core/errs"
)

// Repair attempts to fix common LLM JSON mistakes: unquoted keys, single
// quotes, trailing commas, markdown code fences, unclosed brackets.
func Repair(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("jsonutil: repair failed: %w: %w", errs.Model, err)
	}
	return repaired, nil
}

// ParseHJSON parses the lenient Hjson dialect (comments, unquoted keys,
// optional commas) and returns the equivalent strict JSON.
func ParseHJSON(input string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(input), &result); err != nil {
		return "", fmt.Errorf("jsonutil: hjson parse failed: %w: %w", errs.Model, err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("jsonutil: hjson remarshal failed: %w", err)
	}
	return string(out), nil
}

// SmartParse unmarshals input into dst, trying three strategies in order:
// strict JSON, json-repair, then Hjson. This is the single entry point
// the Section Detector, Section Content Extractor and Comparison
// Orchestrator use to decode an LLM response — on failure the caller
// follows the single-retry-then-empty-result rule at the call site, not
// inside this function.
func SmartParse(input string, dst interface{}) error {
	if err := json.Unmarshal([]byte(input), dst); err == nil {
		return nil
	}

	if repaired, err := Repair(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), dst); err == nil {
			return nil
		}
	}

	if hjsonResult, err := ParseHJSON(input); err == nil {
		if err := json.Unmarshal([]byte(hjsonResult), dst); err == nil {
			return nil
		}
	}

	return fmt.Errorf("jsonutil: all parse strategies failed: %w", errs.Model)
}
