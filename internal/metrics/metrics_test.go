package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DukeRupert/defectlens/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/state", "/state"},
		{"/files/previews/123e4567-e89b-12d3-a456-426614174000.jpg", "/files/previews/{id}"},
		{"/files/previews/123e4567-e89b-12d3-a456-426614174000", "/files/previews/{id}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePath(tt.in))
	}
}

func TestMiddleware_RecordsStatus(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/analyze", "409"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/analyze", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/analyze", "409")))
}

func TestAICallFinished(t *testing.T) {
	okBefore := testutil.ToFloat64(AIAPICalls.WithLabelValues("test", "ok"))
	errBefore := testutil.ToFloat64(AIAPICalls.WithLabelValues("test", domain.EUNREACHABLE))

	AICallFinished("test", nil, time.Second)
	AICallFinished("test", domain.Unreachable(errors.New("refused"), "op", "down"), time.Second)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(AIAPICalls.WithLabelValues("test", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(AIAPICalls.WithLabelValues("test", domain.EUNREACHABLE)))
}

func TestAnalysisFinished_CountsDefects(t *testing.T) {
	before := testutil.ToFloat64(DefectsDetected.WithLabelValues("Cracks"))
	inFlight := testutil.ToFloat64(AnalysesInFlight)

	AnalysisStarted()
	AnalysisFinished("completed", &domain.AnalysisResult{
		Defects: []domain.DetectedDefect{
			{Kind: domain.DefectKindCracks},
			{Kind: domain.DefectKindCracks},
		},
	})

	assert.Equal(t, before+2, testutil.ToFloat64(DefectsDetected.WithLabelValues("Cracks")))
	assert.Equal(t, inFlight, testutil.ToFloat64(AnalysesInFlight))
}
