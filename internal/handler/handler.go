// Package handler contains the HTTP handlers of the demo host.
//
// The host drives a single workflow controller and renders its state as
// a JSON analysis report. It stands in for an interactive front end.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/defectlens/internal/domain"
	"github.com/DukeRupert/defectlens/internal/presentation"
	"github.com/DukeRupert/defectlens/internal/workflow"
)

const (
	// ImageField is the multipart form field carrying the upload.
	ImageField = "image"

	// multipartOverhead is the allowance for form framing on top of the image
	multipartOverhead = 1 << 20
)

// Workflow is the controller surface the handlers drive.
type Workflow interface {
	SelectImage(ctx context.Context, file domain.ImageFile) error
	StartAnalysis(ctx context.Context) error
	ClearImage(ctx context.Context) error
	Snapshot() workflow.Snapshot
}

// =============================================================================
// Handler Configuration
// =============================================================================

// WorkflowHandler handles workflow HTTP requests.
type WorkflowHandler struct {
	workflow Workflow
	logger   *slog.Logger
}

// NewWorkflowHandler creates a new WorkflowHandler.
func NewWorkflowHandler(wf Workflow, logger *slog.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		workflow: wf,
		logger:   logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers all workflow routes with the provided mux.
//
// Routes:
// - GET    /health  -> Health
// - GET    /state   -> State
// - POST   /image   -> SelectImage
// - DELETE /image   -> ClearImage
// - POST   /analyze -> Analyze
func (h *WorkflowHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /state", h.State)
	mux.HandleFunc("POST /image", h.SelectImage)
	mux.HandleFunc("DELETE /image", h.ClearImage)
	mux.HandleFunc("POST /analyze", h.Analyze)
}

// =============================================================================
// Handlers
// =============================================================================

// Health reports that the process is serving.
func (h *WorkflowHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// State renders the current analysis report.
func (h *WorkflowHandler) State(w http.ResponseWriter, r *http.Request) {
	h.writeReport(w)
}

// SelectImage accepts a multipart upload and hands it to the controller.
func (h *WorkflowHandler) SelectImage(w http.ResponseWriter, r *http.Request) {
	file, err := readImageFile(w, r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.workflow.SelectImage(r.Context(), file); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.writeReport(w)
}

// ClearImage drops the held image.
func (h *WorkflowHandler) ClearImage(w http.ResponseWriter, r *http.Request) {
	if err := h.workflow.ClearImage(r.Context()); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.writeReport(w)
}

// Analyze runs an analysis of the held image and renders the outcome.
//
// The request blocks until the outcome is applied or discarded. A client
// disconnect does not cancel the analysis; the report stays available from
// GET /state.
func (h *WorkflowHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if err := h.workflow.StartAnalysis(context.WithoutCancel(r.Context())); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.writeReport(w)
}

func (h *WorkflowHandler) writeReport(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, presentation.BuildReport(h.workflow.Snapshot()))
}

// =============================================================================
// Upload Parsing
// =============================================================================

// readImageFile extracts the uploaded image from a multipart request.
//
// Size and type checks are left to the controller; the body is only capped
// so an oversized upload cannot exhaust memory. The declared size is taken
// from the multipart header so the controller sees the real length even
// when the body was truncated.
func readImageFile(w http.ResponseWriter, r *http.Request) (domain.ImageFile, error) {
	const op = "handler.read_image"

	limit := int64(domain.MaxImageSize + multipartOverhead)
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.ImageFile{}, domain.Invalid(op, "File is too large. Please upload an image under 4MB.")
		}
		return domain.ImageFile{}, domain.Invalid(op, "Failed to parse upload form")
	}

	f, header, err := r.FormFile(ImageField)
	if err != nil {
		return domain.ImageFile{}, domain.Invalid(op, fmt.Sprintf("No image uploaded in field %q", ImageField))
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, domain.MaxImageSize+1))
	if err != nil {
		return domain.ImageFile{}, domain.Internal(err, op, "Failed to read uploaded image")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return domain.ImageFile{
		Filename:    header.Filename,
		ContentType: contentType,
		SizeBytes:   header.Size,
		Data:        data,
	}, nil
}
