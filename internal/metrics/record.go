package metrics

import (
	"time"

	"github.com/DukeRupert/defectlens/internal/domain"
)

// AICallFinished records the outcome of one backend call
func AICallFinished(provider string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = domain.ErrorCode(err)
	}
	AIAPICalls.WithLabelValues(provider, status).Inc()
	AIAPIDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// ImageSelected records an accepted or rejected image selection
func ImageSelected(accepted bool) {
	if accepted {
		ImagesSelected.WithLabelValues("accepted").Inc()
		return
	}
	ImagesSelected.WithLabelValues("rejected").Inc()
}

// AnalysisStarted should be called when a request goes in flight
func AnalysisStarted() {
	AnalysesInFlight.Inc()
}

// AnalysisFinished records an applied or discarded outcome and releases the
// in-flight slot taken by AnalysisStarted
func AnalysisFinished(status string, result *domain.AnalysisResult) {
	AnalysesInFlight.Dec()
	AnalysesTotal.WithLabelValues(status).Inc()
	if result == nil {
		return
	}
	for _, d := range result.Defects {
		DefectsDetected.WithLabelValues(d.Kind.String()).Inc()
	}
}

// AnalysisRejected records a start command refused by the workflow guard
func AnalysisRejected() {
	AnalysesTotal.WithLabelValues("rejected").Inc()
}
