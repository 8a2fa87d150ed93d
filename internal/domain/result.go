// Package domain contains core business types and interfaces.
//
// This file defines the AnalysisResult type and the validation that turns a
// raw backend payload into one.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// Overall Condition
// =============================================================================

// OverallCondition is the binary judgment for an analyzed photograph.
type OverallCondition string

const (
	ConditionSound   OverallCondition = "Sound"
	ConditionDamaged OverallCondition = "Damaged"
)

// String returns the string representation of the condition.
func (c OverallCondition) String() string {
	return string(c)
}

// IsValid returns true if the condition is a recognized value.
func (c OverallCondition) IsValid() bool {
	return c == ConditionSound || c == ConditionDamaged
}

// ParseOverallCondition parses s case-insensitively.
func ParseOverallCondition(s string) (OverallCondition, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sound":
		return ConditionSound, true
	case "damaged":
		return ConditionDamaged, true
	}
	return "", false
}

// =============================================================================
// Analysis Result
// =============================================================================

// AnalysisResult is one completed analysis of a photograph.
//
// A result is only produced by a successful analysis call and is treated as
// immutable afterwards; holders hand out copies via Clone.
type AnalysisResult struct {
	OverallCondition OverallCondition // Sound or Damaged
	Summary          string           // Short narrative from the backend
	Defects          []DetectedDefect // Backend-reported order, never nil
}

// IsDamaged returns true if the overall condition is Damaged.
func (r *AnalysisResult) IsDamaged() bool {
	return r != nil && r.OverallCondition == ConditionDamaged
}

// DefectCount returns the number of detected defects.
func (r *AnalysisResult) DefectCount() int {
	if r == nil {
		return 0
	}
	return len(r.Defects)
}

// Clone returns a deep copy of the result.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Defects = make([]DetectedDefect, len(r.Defects))
	copy(out.Defects, r.Defects)
	return &out
}

// =============================================================================
// Validation
// =============================================================================

// ConfidencePolicy decides what happens to confidences outside [0, 1].
type ConfidencePolicy string

const (
	// ConfidenceClamp limits out-of-range values to the nearest bound.
	ConfidenceClamp ConfidencePolicy = "clamp"

	// ConfidenceStrict rejects the payload when any value is out of range.
	ConfidenceStrict ConfidencePolicy = "strict"
)

// IsValid returns true if the policy is a recognized value.
func (p ConfidencePolicy) IsValid() bool {
	return p == ConfidenceClamp || p == ConfidenceStrict
}

const validateOp = "result.validate"

// rawResult mirrors the structured payload requested from the backend.
type rawResult struct {
	OverallCondition *string     `json:"overallCondition"`
	Summary          string      `json:"summary"`
	Defects          []rawDefect `json:"defects"`
}

type rawDefect struct {
	Kind        string          `json:"kind"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Confidence  json.RawMessage `json:"confidence"`
}

// ParseAnalysisResult validates a raw backend payload with the default
// clamping policy.
func ParseAnalysisResult(raw []byte) (*AnalysisResult, error) {
	return ParseAnalysisResultWithPolicy(raw, ConfidenceClamp)
}

// ParseAnalysisResultWithPolicy validates a raw backend payload.
//
// It fails with a *ValidationError when the payload is not a JSON object,
// when overallCondition is missing or unrecognized, or when any defect's
// confidence is missing or non-numeric. Defect kinds never fail; unknown
// values become DefectKindOther.
func ParseAnalysisResultWithPolicy(raw []byte, policy ConfidencePolicy) (*AnalysisResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, NewValidationError(validateOp, "response", "response is not a JSON object")
	}

	var in rawResult
	if err := json.Unmarshal(trimmed, &in); err != nil {
		return nil, NewValidationError(validateOp, "response", fmt.Sprintf("malformed JSON: %v", err))
	}

	if in.OverallCondition == nil {
		return nil, NewValidationError(validateOp, "overallCondition", "overallCondition is required")
	}
	condition, ok := ParseOverallCondition(*in.OverallCondition)
	if !ok {
		return nil, NewValidationError(validateOp, "overallCondition",
			fmt.Sprintf("unrecognized overallCondition %q", *in.OverallCondition))
	}

	result := &AnalysisResult{
		OverallCondition: condition,
		Summary:          strings.TrimSpace(in.Summary),
		Defects:          make([]DetectedDefect, 0, len(in.Defects)),
	}

	for i, d := range in.Defects {
		field := fmt.Sprintf("defects[%d].confidence", i)

		confidence, err := parseConfidence(d.Confidence)
		if err != nil {
			return nil, NewValidationError(validateOp, field, err.Error())
		}
		if confidence < 0 || confidence > 1 {
			if policy == ConfidenceStrict {
				return nil, NewValidationError(validateOp, field,
					fmt.Sprintf("confidence %v is outside [0, 1]", confidence))
			}
			confidence = ClampConfidence(confidence)
		}

		kind := d.Kind
		if kind == "" {
			kind = d.Type
		}

		result.Defects = append(result.Defects, DetectedDefect{
			Kind:        ParseDefectKind(kind),
			Description: strings.TrimSpace(d.Description),
			Confidence:  confidence,
		})
	}

	return result, nil
}

// parseConfidence decodes a JSON number, rejecting absent, null and
// non-numeric values.
func parseConfidence(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("confidence is required")
	}
	var c float64
	if err := json.Unmarshal(raw, &c); err != nil {
		return 0, fmt.Errorf("confidence must be a number, got %s", raw)
	}
	return c, nil
}
