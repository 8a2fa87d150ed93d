package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/DukeRupert/defectlens/internal/domain"
	"github.com/DukeRupert/defectlens/internal/presentation"
	"github.com/DukeRupert/defectlens/internal/report"
)

// ReportHandler exports the completed analysis as a document.
type ReportHandler struct {
	workflow  Workflow
	generator report.Generator
	images    report.ImageLoader
	logger    *slog.Logger
	now       func() time.Time
}

// NewReportHandler creates a new ReportHandler. A nil images loader
// produces reports without the preview.
func NewReportHandler(wf Workflow, generator report.Generator, images report.ImageLoader, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		workflow:  wf,
		generator: generator,
		images:    images,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterRoutes registers the report routes with the provided mux.
//
// Routes:
// - GET /report.pdf -> Download
func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /report.pdf", h.Download)
}

// Download renders the current result. Without a completed analysis it
// answers 409.
func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	const op = "handler.download_report"

	snap := h.workflow.Snapshot()
	if snap.State != domain.WorkflowStateCompleted || snap.Result == nil {
		writeJSONError(w, http.StatusConflict, domain.EINVALID, "There is no completed analysis to export.")
		return
	}

	data := &report.Data{
		Report:      presentation.BuildReport(snap),
		GeneratedAt: h.now(),
	}

	if h.images != nil && snap.PreviewKey != "" {
		img, err := h.images.Load(r.Context(), snap.PreviewKey)
		if err != nil {
			// Render without the preview
			h.logger.Warn("Failed to load preview for report", "key", snap.PreviewKey, "error", err)
		} else {
			data.Image = img
		}
	}

	var buf bytes.Buffer
	if _, err := h.generator.Generate(r.Context(), data, &buf); err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to generate report"))
		return
	}

	w.Header().Set("Content-Type", h.generator.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="defect-report.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
