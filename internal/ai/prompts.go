package ai

import (
	"github.com/DukeRupert/defectlens/internal/domain"
)

// Response field names shared by every backend's schema
const (
	FieldOverallCondition = "overallCondition"
	FieldSummary          = "summary"
	FieldDefects          = "defects"
	FieldKind             = "kind"
	FieldDescription      = "description"
	FieldConfidence       = "confidence"
)

// Field descriptions handed to backends that accept them in the schema
const (
	DescOverallCondition = "Overall condition of the building: Sound if no significant defects are visible, Damaged otherwise."
	DescSummary          = "One or two sentences summarizing the condition of the building."
	DescDefects          = "Defects visible in the image, most significant first. Empty when the building is sound."
	DescKind             = "Category of the defect."
	DescDescription      = "Specific description of the defect and where it appears in the image."
	DescConfidence       = "Confidence that the defect is present, from 0.0 to 1.0."
)

// ConditionValues returns the allowed overallCondition values.
func ConditionValues() []string {
	return []string{domain.ConditionSound.String(), domain.ConditionDamaged.String()}
}

// KindValues returns the allowed defect kind values.
func KindValues() []string {
	kinds := domain.AllDefectKinds()
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k.String())
	}
	return out
}

// BuildAnalysisPrompt creates the instruction text sent alongside the image.
func BuildAnalysisPrompt() string {
	return `You are an expert building surveyor analyzing a photograph of a building. Your task is to identify structural and cosmetic defects.

Classify each defect into exactly one of these categories:
- Cracks: cracks in walls, columns, beams or facades
- ConcreteSpalling: concrete breaking off, exposed or corroded reinforcement
- PlasterAndFinishDefects: peeling, blistering or missing plaster, paint or render
- WindowAndDoorDefects: damaged frames, broken glazing, misaligned openings
- FlawedOverallDesign: visible design or construction faults affecting the whole building
- Other: any defect that fits none of the above

For each defect provide a specific description and a confidence between 0.0 and 1.0.
Set overallCondition to "Damaged" if any significant defect is visible, otherwise "Sound".
Only report defects you can reasonably identify from the visible evidence.`
}
