// Package domain contains core business types and interfaces.
//
// This file defines the defect categories and findings reported by the
// image analysis backend for a building photograph.
package domain

import (
	"strings"
	"unicode"
)

// =============================================================================
// Defect Kind
// =============================================================================

// DefectKind is the closed set of categories a building defect can fall into.
type DefectKind string

const (
	DefectKindCracks                  DefectKind = "Cracks"
	DefectKindConcreteSpalling        DefectKind = "ConcreteSpalling"
	DefectKindPlasterAndFinishDefects DefectKind = "PlasterAndFinishDefects"
	DefectKindWindowAndDoorDefects    DefectKind = "WindowAndDoorDefects"
	DefectKindFlawedOverallDesign     DefectKind = "FlawedOverallDesign"
	DefectKindOther                   DefectKind = "Other"
)

var defectKinds = []DefectKind{
	DefectKindCracks,
	DefectKindConcreteSpalling,
	DefectKindPlasterAndFinishDefects,
	DefectKindWindowAndDoorDefects,
	DefectKindFlawedOverallDesign,
	DefectKindOther,
}

// defectKindAliases maps normalized spellings to kinds. Besides the
// canonical names it carries the human labels the backend sometimes echoes
// back instead ("Plaster & Finish Defects").
var defectKindAliases = map[string]DefectKind{
	"plasterfinishdefects": DefectKindPlasterAndFinishDefects,
	"windowdoordefects":    DefectKindWindowAndDoorDefects,
	"spalling":             DefectKindConcreteSpalling,
	"crack":                DefectKindCracks,
}

// AllDefectKinds returns every DefectKind in display order.
func AllDefectKinds() []DefectKind {
	out := make([]DefectKind, len(defectKinds))
	copy(out, defectKinds)
	return out
}

// String returns the string representation of the kind.
func (k DefectKind) String() string {
	return string(k)
}

// IsValid returns true if the kind is a member of the closed set.
func (k DefectKind) IsValid() bool {
	switch k {
	case DefectKindCracks, DefectKindConcreteSpalling, DefectKindPlasterAndFinishDefects,
		DefectKindWindowAndDoorDefects, DefectKindFlawedOverallDesign, DefectKindOther:
		return true
	}
	return false
}

// ParseDefectKind maps a backend-supplied category onto the closed set.
// Unrecognized values map to DefectKindOther; it never fails.
func ParseDefectKind(s string) DefectKind {
	key := normalizeToken(s)
	if key == "" {
		return DefectKindOther
	}
	for _, k := range defectKinds {
		if normalizeToken(string(k)) == key {
			return k
		}
	}
	if k, ok := defectKindAliases[key]; ok {
		return k
	}
	return DefectKindOther
}

// normalizeToken lowercases s and drops everything but letters and digits.
func normalizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// =============================================================================
// Detected Defect
// =============================================================================

// DetectedDefect is a single finding in an analysis.
type DetectedDefect struct {
	Kind        DefectKind // Category of the defect
	Description string     // Free text supplied by the backend
	Confidence  float64    // Always within [0, 1]
}

// ClampConfidence limits c to the closed interval [0, 1].
func ClampConfidence(c float64) float64 {
	return min(1, max(0, c))
}
