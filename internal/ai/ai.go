package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/DukeRupert/defectlens/internal/domain"
	"github.com/google/uuid"
)

// Analyzer defines the interface for AI-powered building defect analysis
type Analyzer interface {
	// AnalyzeImage submits a building photograph and returns the validated
	// result. Every failure is a *domain.Error with code EINVALID, EBACKEND
	// or EUNREACHABLE.
	AnalyzeImage(ctx context.Context, params AnalyzeImageParams) (*domain.AnalysisResult, error)
}

// AnalyzeImageParams contains parameters for image analysis
type AnalyzeImageParams struct {
	ImageData   []byte    // Raw image bytes
	ContentType string    // MIME type (e.g., "image/jpeg")
	ImageID     uuid.UUID // Image ID for tracking
}

// ProviderConfig contains common configuration for AI providers
type ProviderConfig struct {
	RequestTimeout   time.Duration           // Timeout for the single backend request
	ConfidencePolicy domain.ConfidencePolicy // How out-of-range confidences are treated
}

// WithDefaults fills unset fields.
func (c ProviderConfig) WithDefaults() ProviderConfig {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 60 * time.Second
	}
	if !c.ConfidencePolicy.IsValid() {
		c.ConfidencePolicy = domain.ConfidenceClamp
	}
	return c
}

// Provider names
const (
	ProviderMock      = "mock"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Causes wrapped inside backend errors, for diagnostics and errors.Is checks
var (
	// ErrRateLimited indicates the API rate limit has been exceeded
	ErrRateLimited = errors.New("ai provider rate limit exceeded")

	// ErrContentPolicy indicates the image was refused by the provider
	ErrContentPolicy = errors.New("image violates content policy")

	// ErrUnavailable indicates the AI service reported itself unavailable
	ErrUnavailable = errors.New("ai service temporarily unavailable")

	// ErrUnauthorized indicates invalid API credentials
	ErrUnauthorized = errors.New("ai provider authentication failed")

	// ErrEmptyResponse indicates the provider returned no usable content
	ErrEmptyResponse = errors.New("ai provider returned no content")
)

// ValidateBaseURL checks that raw is an absolute http or https URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base URL %q: must be an absolute http(s) URL", raw)
	}
	return nil
}

// ValidateImageParams checks the local preconditions for an analysis call.
// It never touches the network.
func ValidateImageParams(params AnalyzeImageParams) error {
	const op = "ai.validate"
	if len(params.ImageData) == 0 {
		return domain.Invalid(op, "Image data is empty")
	}
	if len(params.ImageData) > domain.MaxImageSize {
		return domain.Errorf(domain.EINVALID, op, "Image size %d bytes exceeds maximum of %d bytes", len(params.ImageData), domain.MaxImageSize)
	}
	if params.ContentType == "" {
		return domain.Invalid(op, "Content type is required")
	}
	if !domain.IsValidImageContentType(params.ContentType) {
		return domain.Errorf(domain.EINVALID, op, "Unsupported content type %s", params.ContentType)
	}
	return nil
}

// MapHTTPStatus converts a non-2xx backend response into a backend error.
func MapHTTPStatus(op string, statusCode int, detail string) error {
	var cause error
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		cause = ErrUnauthorized
	case http.StatusTooManyRequests:
		cause = ErrRateLimited
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		cause = ErrUnavailable
	default:
		cause = fmt.Errorf("status %d", statusCode)
	}
	if detail != "" {
		cause = fmt.Errorf("%w: %s", cause, detail)
	}
	return domain.Backend(cause, op, fmt.Sprintf("The analysis service returned an error (status %d)", statusCode))
}

// TransportError converts a failed round trip into an unreachable error.
func TransportError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Unreachable(err, op, "The analysis service timed out")
	}
	return domain.Unreachable(err, op, "Could not reach the analysis service")
}

// DecodeResult validates a structured payload and wraps validation failures
// as backend errors.
func DecodeResult(op string, raw []byte, policy domain.ConfidencePolicy) (*domain.AnalysisResult, error) {
	result, err := domain.ParseAnalysisResultWithPolicy(raw, policy)
	if err != nil {
		return nil, domain.Backend(err, op, "The analysis service returned an unusable result")
	}
	return result, nil
}
