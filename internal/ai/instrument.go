package ai

import (
	"context"
	"log/slog"
	"time"

	"github.com/DukeRupert/defectlens/internal/domain"
	"github.com/DukeRupert/defectlens/internal/metrics"
)

// instrumented decorates an Analyzer with metrics and call logging.
type instrumented struct {
	provider string
	next     Analyzer
	logger   *slog.Logger
}

// Instrument wraps next so every call is timed, counted and logged under
// the given provider name.
func Instrument(provider string, next Analyzer, logger *slog.Logger) Analyzer {
	return &instrumented{provider: provider, next: next, logger: logger}
}

// AnalyzeImage delegates to the wrapped analyzer.
func (a *instrumented) AnalyzeImage(ctx context.Context, params AnalyzeImageParams) (*domain.AnalysisResult, error) {
	start := time.Now()
	result, err := a.next.AnalyzeImage(ctx, params)
	duration := time.Since(start)

	metrics.AICallFinished(a.provider, err, duration)

	attrs := []any{
		"provider", a.provider,
		"image_id", params.ImageID,
		"content_type", params.ContentType,
		"size", len(params.ImageData),
		"duration_ms", duration.Milliseconds(),
	}
	if err != nil {
		attrs = append(attrs, "code", domain.ErrorCode(err), "error", err)
		if cause := domain.ErrorCause(err); cause != nil {
			attrs = append(attrs, "cause", cause.Error())
		}
		a.logger.Warn("AI analysis failed", attrs...)
		return nil, err
	}

	a.logger.Info("AI analysis completed", append(attrs, "condition", result.OverallCondition, "defects", result.DefectCount())...)
	return result, nil
}
