package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/defectlens/internal/domain"
	"github.com/DukeRupert/defectlens/internal/workflow"
)

// JSONError is the body of every error response.
type JSONError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ErrorResponse writes err as a JSON error response.
// Internal details never reach the client; the full error is logged.
func ErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)
	op := domain.ErrorOp(err)
	status := StatusForError(err)

	logError(logger, r, err, code, op, status)
	writeJSONError(w, status, code, message)
}

// StatusForError maps an error to an HTTP status code.
//
// Guard rejections caused by the workflow's current state are conflicts;
// other invalid input is a bad request. Failures of the analysis service are
// reported as a bad gateway.
func StatusForError(err error) int {
	if errors.Is(err, workflow.ErrAnalysisInProgress) || errors.Is(err, workflow.ErrClosed) {
		return http.StatusConflict // 409
	}
	return ErrorCodeToHTTPStatus(domain.ErrorCode(err))
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest // 400
	case domain.EBACKEND, domain.EUNREACHABLE:
		return http.StatusBadGateway // 502
	case domain.EINTERNAL:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// logError logs the error with appropriate level based on status code.
func logError(logger *slog.Logger, r *http.Request, err error, code, op string, status int) {
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
	}
	if op != "" {
		attrs = append(attrs, "op", op)
	}
	if cause := domain.ErrorCause(err); cause != nil {
		attrs = append(attrs, "cause", cause.Error())
	}

	if status >= 500 {
		logger.Error("server error", attrs...)
	} else {
		logger.Info("client error", attrs...)
	}
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	var body JSONError
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
