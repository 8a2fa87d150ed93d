// Package domain contains core business types and interfaces.
//
// This file defines the lifecycle states of an analysis workflow.
package domain

// =============================================================================
// Workflow State
// =============================================================================

// WorkflowState represents the lifecycle state of an analysis workflow.
type WorkflowState string

const (
	// WorkflowStateIdle indicates no image is selected.
	WorkflowStateIdle WorkflowState = "idle"

	// WorkflowStateReady indicates an image is selected and no outcome is held.
	WorkflowStateReady WorkflowState = "ready"

	// WorkflowStateAnalyzing indicates an analysis request is in flight.
	WorkflowStateAnalyzing WorkflowState = "analyzing"

	// WorkflowStateCompleted indicates a result is available.
	WorkflowStateCompleted WorkflowState = "completed"

	// WorkflowStateFailed indicates the last analysis failed and its error is available.
	WorkflowStateFailed WorkflowState = "failed"
)

// String returns the string representation of the state.
func (s WorkflowState) String() string {
	return string(s)
}

// IsValid returns true if the state is a recognized value.
func (s WorkflowState) IsValid() bool {
	switch s {
	case WorkflowStateIdle, WorkflowStateReady, WorkflowStateAnalyzing,
		WorkflowStateCompleted, WorkflowStateFailed:
		return true
	}
	return false
}

// CanTransitionTo checks if the workflow can move to the target state.
//
// Valid transitions:
// - any -> ready (image selected)
// - any -> idle (controller disposed)
// - ready, completed, failed -> analyzing (analysis started with an image held)
// - analyzing -> completed | failed (outcome applied)
func (s WorkflowState) CanTransitionTo(target WorkflowState) bool {
	if target == WorkflowStateReady || target == WorkflowStateIdle {
		return true
	}

	switch s {
	case WorkflowStateReady, WorkflowStateCompleted, WorkflowStateFailed:
		return target == WorkflowStateAnalyzing
	case WorkflowStateAnalyzing:
		return target == WorkflowStateCompleted || target == WorkflowStateFailed
	}

	return false
}
