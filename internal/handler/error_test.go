package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DukeRupert/defectlens/internal/domain"
	"github.com/DukeRupert/defectlens/internal/workflow"
	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", domain.Invalid("op", "bad"), http.StatusBadRequest},
		{"in progress", domain.Wrap(workflow.ErrAnalysisInProgress, domain.EINVALID, "op", "busy"), http.StatusConflict},
		{"closed", domain.Wrap(workflow.ErrClosed, domain.EINVALID, "op", "closed"), http.StatusConflict},
		{"no image", domain.Wrap(workflow.ErrNoImage, domain.EINVALID, "op", "upload"), http.StatusBadRequest},
		{"backend", domain.Backend(nil, "op", "bad payload"), http.StatusBadGateway},
		{"unreachable", domain.Unreachable(nil, "op", "down"), http.StatusBadGateway},
		{"internal", domain.Internal(nil, "op", "oops"), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusForError(tt.err))
		})
	}
}

func TestErrorResponse_HidesInternalDetails(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	err := domain.Internal(errors.New("disk quota exceeded on /var/lib/previews"), "preview.create", "Failed to store preview")

	req := httptest.NewRequest(http.MethodPost, "/image", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, logger, err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk quota")
	assert.NotContains(t, rec.Body.String(), "preview.create")
	assert.Contains(t, rec.Body.String(), domain.EINTERNAL)

	assert.Contains(t, logs.String(), "disk quota")
	assert.Contains(t, logs.String(), "level=ERROR")
	assert.Contains(t, logs.String(), "op=preview.create")
}

func TestErrorResponse_ClientErrorsLogAtInfo(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	rec := httptest.NewRecorder()
	ErrorResponse(rec, httptest.NewRequest(http.MethodPost, "/analyze", nil), logger, domain.Invalid("op", "Please upload an image first."))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"invalid_input","message":"Please upload an image first."}}`, rec.Body.String())
	assert.Contains(t, logs.String(), "level=INFO")
}
