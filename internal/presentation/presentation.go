// Package presentation derives display-ready values from analysis results.
//
// Everything here is a pure function of its inputs.
package presentation

import (
	"math"

	"github.com/DukeRupert/defectlens/internal/domain"
)

// =============================================================================
// Defect Labels
// =============================================================================

var kindLabels = map[domain.DefectKind]string{
	domain.DefectKindCracks:                  "Cracks",
	domain.DefectKindConcreteSpalling:        "Concrete Spalling",
	domain.DefectKindPlasterAndFinishDefects: "Plaster & Finish Defects",
	domain.DefectKindWindowAndDoorDefects:    "Window & Door Defects",
	domain.DefectKindFlawedOverallDesign:     "Flawed Overall Design",
	domain.DefectKindOther:                   "Other",
}

// Label returns the human-readable name of a defect kind. Values outside
// the closed set are shown as Other.
func Label(kind domain.DefectKind) string {
	if label, ok := kindLabels[kind]; ok {
		return label
	}
	return kindLabels[domain.DefectKindOther]
}

// =============================================================================
// Confidence
// =============================================================================

// Bucket is a coarse confidence band.
type Bucket string

const (
	BucketHigh   Bucket = "High"
	BucketMedium Bucket = "Medium"
	BucketLow    Bucket = "Low"
)

// String returns the string representation of the bucket.
func (b Bucket) String() string {
	return string(b)
}

// Color returns the palette name used for the bucket's confidence bar.
func (b Bucket) Color() string {
	switch b {
	case BucketHigh:
		return "emerald"
	case BucketMedium:
		return "yellow"
	default:
		return "red"
	}
}

// ConfidenceBucket maps a confidence onto High (> 0.7), Medium (> 0.4) or Low.
func ConfidenceBucket(confidence float64) Bucket {
	switch {
	case confidence > 0.7:
		return BucketHigh
	case confidence > 0.4:
		return BucketMedium
	default:
		return BucketLow
	}
}

// ConfidencePercent converts a confidence to a whole percentage.
func ConfidencePercent(confidence float64) int {
	return int(math.Round(domain.ClampConfidence(confidence) * 100))
}

// =============================================================================
// Condition
// =============================================================================

// ConditionIsDamaged reports whether the result's overall condition is Damaged.
func ConditionIsDamaged(result *domain.AnalysisResult) bool {
	return result.IsDamaged()
}

// ConditionLabel returns the badge text for a result.
func ConditionLabel(result *domain.AnalysisResult) string {
	if result == nil {
		return ""
	}
	return result.OverallCondition.String()
}

// ConditionColor returns the palette name for the condition badge.
func ConditionColor(result *domain.AnalysisResult) string {
	if ConditionIsDamaged(result) {
		return "red"
	}
	return "green"
}

// ErrorBanner returns the banner text shown for a failed analysis.
func ErrorBanner(err error) string {
	if err == nil {
		return ""
	}
	return "Analysis failed: " + domain.ErrorMessage(err)
}
