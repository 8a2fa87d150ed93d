// Package workflow implements the analysis workflow controller: the state
// machine that owns the selected image, its preview, the in-flight analysis
// and the last outcome.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/defectlens/internal/ai"
	"github.com/DukeRupert/defectlens/internal/domain"
	"github.com/DukeRupert/defectlens/internal/metrics"
	"github.com/DukeRupert/defectlens/internal/preview"
)

// Causes carried by EINVALID guard rejections.
var (
	ErrAnalysisInProgress = errors.New("analysis in progress")
	ErrNoImage            = errors.New("no image selected")
	ErrClosed             = errors.New("workflow closed")
)

// PreviewPublisher creates and releases displayable previews.
type PreviewPublisher interface {
	Create(ctx context.Context, img *domain.SelectedImage) (preview.Ref, error)
	Release(ctx context.Context, ref preview.Ref) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source used to stamp selections.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithAnalysisTimeout bounds each analyzer call. Zero leaves the caller's
// context deadline in charge.
func WithAnalysisTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.analysisTimeout = d
	}
}

// Controller drives one analysis session.
//
// Commands are serialized by mu. Preview creation, preview release and the
// analyzer call run without mu held so Snapshot stays responsive while they
// are in flight. Every command that changes
// what an outcome would apply to advances invocation; an analyzer outcome
// is applied only if the invocation it started under is still current.
type Controller struct {
	analyzer        ai.Analyzer
	previews        PreviewPublisher
	logger          *slog.Logger
	now             func() time.Time
	analysisTimeout time.Duration

	mu         sync.Mutex
	state      domain.WorkflowState
	image      *domain.SelectedImage
	preview    preview.Ref
	result     *domain.AnalysisResult
	err        error
	invocation uint64
	disposed   bool
}

// New creates a Controller in the idle state.
func New(analyzer ai.Analyzer, previews PreviewPublisher, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		analyzer: analyzer,
		previews: previews,
		logger:   logger,
		now:      time.Now,
		state:    domain.WorkflowStateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SelectImage replaces the held image.
//
// Oversized, empty or unsupported files are rejected with an EINVALID error
// before anything else happens; the state is left exactly as it was. On
// success the previous preview is released, any result or error is cleared
// and the controller moves to ready. A selection made while an analysis is
// in flight makes that analysis's outcome stale.
func (c *Controller) SelectImage(ctx context.Context, file domain.ImageFile) error {
	const op = "workflow.select_image"

	if err := validateFile(op, file); err != nil {
		metrics.ImageSelected(false)
		c.logger.Info("Image rejected", "filename", file.Filename, "size", file.Size(), "reason", domain.ErrorMessage(err))
		return err
	}

	c.mu.Lock()
	disposed := c.disposed
	c.mu.Unlock()
	if disposed {
		return domain.Wrap(ErrClosed, domain.EINVALID, op, "The workflow has been closed")
	}

	img := domain.NewSelectedImage(file, c.now())

	// Thumbnailing and upload run unlocked; the result is applied below
	// only if the controller is still open.
	ref, err := c.previews.Create(ctx, img)
	if err != nil {
		metrics.ImageSelected(false)
		c.logger.Error("Failed to create preview", "image_id", img.ID, "error", err)
		return err
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		c.releasePreview(ctx, ref)
		return domain.Wrap(ErrClosed, domain.EINVALID, op, "The workflow has been closed")
	}

	old := c.preview
	c.image = img
	c.preview = ref
	c.result = nil
	c.err = nil
	c.invocation++
	c.transition(domain.WorkflowStateReady)
	invocation := c.invocation
	c.mu.Unlock()

	c.releasePreview(ctx, old)

	metrics.ImageSelected(true)
	c.logger.Info("Image selected",
		"image_id", img.ID,
		"filename", img.Filename,
		"content_type", img.ContentType,
		"size", img.SizeBytes,
		"invocation", invocation,
	)
	return nil
}

// StartAnalysis submits the held image and waits for the outcome.
//
// It returns an EINVALID error, changing nothing, when no image is held or
// an analysis is already in flight. Otherwise it returns nil once the
// outcome has been applied or discarded; analysis failures are recorded in
// the snapshot rather than returned.
func (c *Controller) StartAnalysis(ctx context.Context) error {
	const op = "workflow.start_analysis"

	c.mu.Lock()
	if c.state == domain.WorkflowStateAnalyzing {
		c.mu.Unlock()
		metrics.AnalysisRejected()
		return domain.Wrap(ErrAnalysisInProgress, domain.EINVALID, op, "An analysis is already in progress")
	}
	if c.disposed {
		c.mu.Unlock()
		metrics.AnalysisRejected()
		return domain.Wrap(ErrClosed, domain.EINVALID, op, "The workflow has been closed")
	}
	if c.image == nil {
		c.mu.Unlock()
		metrics.AnalysisRejected()
		return domain.Wrap(ErrNoImage, domain.EINVALID, op, "Please upload an image first.")
	}

	c.invocation++
	id := c.invocation
	img := c.image
	c.result = nil
	c.err = nil
	c.transition(domain.WorkflowStateAnalyzing)
	c.mu.Unlock()

	metrics.AnalysisStarted()
	c.logger.Info("Analysis started", "image_id", img.ID, "invocation", id)

	callCtx := ctx
	if c.analysisTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.analysisTimeout)
		defer cancel()
	}

	result, err := c.analyzer.AnalyzeImage(callCtx, ai.AnalyzeImageParams{
		ImageData:   img.Data,
		ContentType: img.ContentType,
		ImageID:     img.ID,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed || id != c.invocation {
		metrics.AnalysisFinished("stale", nil)
		c.logger.Info("Discarding stale analysis outcome",
			"image_id", img.ID,
			"invocation", id,
			"current_invocation", c.invocation,
			"failed", err != nil,
		)
		return nil
	}

	if err != nil {
		c.err = err
		c.transition(domain.WorkflowStateFailed)
		metrics.AnalysisFinished("failed", nil)
		attrs := []any{"image_id", img.ID, "invocation", id, "code", domain.ErrorCode(err), "error", err}
		if cause := domain.ErrorCause(err); cause != nil {
			attrs = append(attrs, "cause", cause.Error())
		}
		c.logger.Warn("Analysis failed", attrs...)
		return nil
	}

	c.result = result
	c.transition(domain.WorkflowStateCompleted)
	metrics.AnalysisFinished("completed", result)
	c.logger.Info("Analysis completed",
		"image_id", img.ID,
		"invocation", id,
		"condition", result.OverallCondition,
		"defects", result.DefectCount(),
	)
	return nil
}

// ClearImage drops the held image and its preview and returns to idle.
// Any in-flight outcome becomes stale. Clearing with nothing held is a no-op.
func (c *Controller) ClearImage(ctx context.Context) error {
	const op = "workflow.clear_image"

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return domain.Wrap(ErrClosed, domain.EINVALID, op, "The workflow has been closed")
	}
	if c.image == nil && c.state == domain.WorkflowStateIdle {
		c.mu.Unlock()
		return nil
	}

	old := c.preview
	c.image = nil
	c.preview = preview.Ref{}
	c.result = nil
	c.err = nil
	c.invocation++
	c.transition(domain.WorkflowStateIdle)
	invocation := c.invocation
	c.mu.Unlock()

	c.logger.Info("Image cleared", "invocation", invocation)

	c.releasePreview(ctx, old)
	return nil
}

// Dispose releases the held preview and returns the controller to idle.
// Later commands fail with EINVALID and any in-flight outcome is discarded.
// Calling Dispose more than once is safe.
func (c *Controller) Dispose(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}

	old := c.preview
	c.disposed = true
	c.image = nil
	c.preview = preview.Ref{}
	c.result = nil
	c.err = nil
	c.invocation++
	c.transition(domain.WorkflowStateIdle)
	invocation := c.invocation
	c.mu.Unlock()

	c.logger.Info("Workflow disposed", "invocation", invocation)

	if old.IsZero() {
		return nil
	}
	if err := c.previews.Release(ctx, old); err != nil {
		c.logger.Error("Failed to release preview", "key", old.Key, "error", err)
		return err
	}
	return nil
}

// State returns the current state.
func (c *Controller) State() domain.WorkflowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// transition moves to target. Callers hold mu.
func (c *Controller) transition(target domain.WorkflowState) {
	if !c.state.CanTransitionTo(target) {
		c.logger.Error("Illegal workflow transition", "from", c.state, "to", target)
	}
	c.state = target
}

// releasePreview releases ref, logging failures. The new preview is already
// in place, so a failed release only leaks the old object.
func (c *Controller) releasePreview(ctx context.Context, ref preview.Ref) {
	if ref.IsZero() {
		return
	}
	if err := c.previews.Release(ctx, ref); err != nil {
		c.logger.Error("Failed to release preview", "key", ref.Key, "error", err)
	}
}

// validateFile applies the selection-time checks.
func validateFile(op string, file domain.ImageFile) error {
	if err := domain.ValidateImageSize(file.Size()); err != nil {
		return err
	}
	if int64(len(file.Data)) > domain.MaxImageSize {
		return domain.ValidateImageSize(int64(len(file.Data)))
	}
	if len(file.Data) == 0 {
		return domain.Invalid(op, "Image file is empty")
	}
	return domain.ValidateImageContentType(file.ContentType)
}
