package workflow

import (
	"time"

	"github.com/DukeRupert/defectlens/internal/domain"
	"github.com/google/uuid"
)

// ImageInfo describes the held image without its bytes.
type ImageInfo struct {
	ID          uuid.UUID
	Filename    string
	ContentType string
	SizeBytes   int64
	SelectedAt  time.Time
	Width       int // 0 when the preview could not decode the image
	Height      int
}

// SizeMB returns the file size in megabytes.
func (i *ImageInfo) SizeMB() float64 {
	return float64(i.SizeBytes) / (1024 * 1024)
}

// Snapshot is a point-in-time copy of the controller state for rendering.
// It shares nothing mutable with the controller.
type Snapshot struct {
	State        domain.WorkflowState
	PreviewURL   string                 // Empty when no image is held
	PreviewKey   string                 // Storage key of the preview object
	Image        *ImageInfo             // Nil when no image is held
	Result       *domain.AnalysisResult // Set only when completed
	Err          error                  // Set only when failed
	ErrorMessage string                 // User-facing text for Err
	Invocation   uint64
}

// HasImage reports whether an image is held.
func (s Snapshot) HasImage() bool {
	return s.Image != nil
}

// CanAnalyze reports whether StartAnalysis would be accepted.
func (s Snapshot) CanAnalyze() bool {
	return s.Image != nil && s.State != domain.WorkflowStateAnalyzing
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:      c.state,
		PreviewURL: c.preview.URL,
		PreviewKey: c.preview.Key,
		Result:     c.result.Clone(),
		Err:        c.err,
		Invocation: c.invocation,
	}
	if c.image != nil {
		snap.Image = &ImageInfo{
			ID:          c.image.ID,
			Filename:    c.image.Filename,
			ContentType: c.image.ContentType,
			SizeBytes:   c.image.SizeBytes,
			SelectedAt:  c.image.SelectedAt,
			Width:       c.preview.Width,
			Height:      c.preview.Height,
		}
	}
	if c.err != nil {
		snap.ErrorMessage = "Analysis failed: " + domain.ErrorMessage(c.err)
	}
	return snap
}
