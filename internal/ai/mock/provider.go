package mock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/DukeRupert/defectlens/internal/ai"
	"github.com/DukeRupert/defectlens/internal/domain"
)

const op = "mock.analyze_image"

// Provider is a mock AI provider for testing and development
type Provider struct {
	logger *slog.Logger

	mu sync.Mutex

	// Configurable responses for testing
	AnalyzeImageResponse *domain.AnalysisResult
	AnalyzeImageError    error
	RawResponse          []byte                  // Decoded through the normal validation path when set
	ConfidencePolicy     domain.ConfidencePolicy // Applied to RawResponse

	// Gate, when non-nil, blocks each call until a value is received or the
	// context is done.
	Gate chan struct{}

	// Call tracking for testing
	analyzeImageCalls int
	lastParams        ai.AnalyzeImageParams
}

// New creates a new mock AI provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// AnalyzeImage returns a canned response describing a damaged facade
func (p *Provider) AnalyzeImage(ctx context.Context, params ai.AnalyzeImageParams) (*domain.AnalysisResult, error) {
	if err := ai.ValidateImageParams(params); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.analyzeImageCalls++
	p.lastParams = params
	gate := p.Gate
	resp, respErr, raw, policy := p.AnalyzeImageResponse, p.AnalyzeImageError, p.RawResponse, p.ConfidencePolicy
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ai.TransportError(op, ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, ai.TransportError(op, err)
	}

	p.logger.Debug("Mock analysis", "image_id", params.ImageID, "size", len(params.ImageData))

	// If a custom response or error is set, use it
	if respErr != nil {
		return nil, respErr
	}
	if raw != nil {
		if !policy.IsValid() {
			policy = domain.ConfidenceClamp
		}
		return ai.DecodeResult(op, raw, policy)
	}
	if resp != nil {
		return resp.Clone(), nil
	}

	return DefaultResult(), nil
}

// DefaultResult is the canned result returned when nothing else is configured
func DefaultResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		OverallCondition: domain.ConditionDamaged,
		Summary:          "The facade shows diagonal cracking near the window openings and localized spalling at the balcony edge.",
		Defects: []domain.DetectedDefect{
			{
				Kind:        domain.DefectKindCracks,
				Description: "Diagonal crack running from the upper corner of the second floor window",
				Confidence:  0.92,
			},
			{
				Kind:        domain.DefectKindConcreteSpalling,
				Description: "Concrete breaking away at the balcony slab edge with exposed reinforcement",
				Confidence:  0.64,
			},
			{
				Kind:        domain.DefectKindPlasterAndFinishDefects,
				Description: "Peeling paint below the parapet",
				Confidence:  0.31,
			},
		},
	}
}

// AnalyzeImageCalls returns the number of calls that passed validation
func (p *Provider) AnalyzeImageCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.analyzeImageCalls
}

// LastParams returns the parameters of the most recent call
func (p *Provider) LastParams() ai.AnalyzeImageParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastParams
}

// Reset clears call counters and custom responses for testing
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.analyzeImageCalls = 0
	p.lastParams = ai.AnalyzeImageParams{}
	p.AnalyzeImageResponse = nil
	p.AnalyzeImageError = nil
	p.RawResponse = nil
	p.Gate = nil
}
