package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/defectlens/internal/ai"
	"github.com/DukeRupert/defectlens/internal/domain"
)

const (
	// APIBaseURL is the base URL for the Anthropic API
	APIBaseURL = "https://api.anthropic.com/v1/messages"

	// APIVersion is the Anthropic API version
	APIVersion = "2023-06-01"

	// DefaultModel is the default Claude model to use
	DefaultModel = "claude-sonnet-4-20250514"

	// maxResponseBytes bounds how much of a response body is read
	maxResponseBytes = 1 << 20

	// toolName is the single tool Claude is forced to call with the result
	toolName = "record_building_analysis"

	op = "anthropic.analyze_image"
)

// Config contains configuration for the Anthropic provider
type Config struct {
	APIKey         string
	Model          string
	BaseURL        string // Overrides APIBaseURL, mainly for tests
	ProviderConfig ai.ProviderConfig
}

// Provider implements ai.Analyzer using Anthropic's Claude API
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new Anthropic AI provider
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	// Set defaults
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = APIBaseURL
	}
	if err := ai.ValidateBaseURL(config.BaseURL); err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	config.ProviderConfig = config.ProviderConfig.WithDefaults()

	return &Provider{
		config: config,
		client: &http.Client{
			Timeout: config.ProviderConfig.RequestTimeout,
		},
		logger: logger,
	}, nil
}

// AnalyzeImage analyzes a building photograph for defects using Claude
func (p *Provider) AnalyzeImage(ctx context.Context, params ai.AnalyzeImageParams) (*domain.AnalysisResult, error) {
	// Validate input
	if err := ai.ValidateImageParams(params); err != nil {
		return nil, err
	}

	// Build the request
	req, err := p.buildAnalyzeImageRequest(ctx, params)
	if err != nil {
		return nil, domain.Backend(err, op, "Failed to build analysis request")
	}

	// Single attempt; the caller decides whether to try again
	resp, err := p.executeRequest(req)
	if err != nil {
		return nil, err
	}

	input, err := extractToolInput(resp)
	if err != nil {
		return nil, domain.Backend(err, op, "The analysis service returned an unusable result")
	}

	p.logger.Debug("Claude response received",
		"image_id", params.ImageID,
		"model", resp.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)

	return ai.DecodeResult(op, input, p.config.ProviderConfig.ConfidencePolicy)
}

// buildAnalyzeImageRequest builds the HTTP request for image analysis
func (p *Provider) buildAnalyzeImageRequest(ctx context.Context, params ai.AnalyzeImageParams) (*http.Request, error) {
	reqBody := apiRequest{
		Model:     p.config.Model,
		MaxTokens: 4096,
		Messages: []apiMessage{
			{
				Role: "user",
				Content: []apiContent{
					{
						Type: "image",
						Source: &apiImageSource{
							Type:      "base64",
							MediaType: domain.NormalizeContentType(params.ContentType),
							Data:      base64.StdEncoding.EncodeToString(params.ImageData),
						},
					},
					{
						Type: "text",
						Text: ai.BuildAnalysisPrompt() + "\n\nRecord your analysis with the " + toolName + " tool.",
					},
				},
			},
		},
		Tools: []apiTool{
			{
				Name:        toolName,
				Description: "Record the defect analysis of the building photograph.",
				InputSchema: InputSchema(),
			},
		},
		ToolChoice: &apiToolChoice{Type: "tool", Name: toolName},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.config.APIKey)
	req.Header.Set("anthropic-version", APIVersion)

	return req, nil
}

// executeRequest executes a single HTTP request
func (p *Provider) executeRequest(req *http.Request) (*apiResponse, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, ai.TransportError(op, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, ai.TransportError(op, fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiErrorResponse
		_ = json.Unmarshal(bodyBytes, &errResp)
		return nil, ai.MapHTTPStatus(op, resp.StatusCode, errResp.Error.Message)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, domain.Backend(err, op, "The analysis service returned an unusable result")
	}

	return &apiResp, nil
}

// extractToolInput returns the input Claude passed to the analysis tool
func extractToolInput(resp *apiResponse) ([]byte, error) {
	for _, content := range resp.Content {
		if content.Type == "tool_use" && content.Name == toolName && len(content.Input) > 0 {
			return content.Input, nil
		}
	}
	if resp.StopReason == "refusal" {
		return nil, ai.ErrContentPolicy
	}
	return nil, ai.ErrEmptyResponse
}

// InputSchema returns the JSON Schema the analysis tool input must satisfy
func InputSchema() *apiSchema {
	return &apiSchema{
		Type: "object",
		Properties: map[string]*apiSchema{
			ai.FieldOverallCondition: {
				Type:        "string",
				Description: ai.DescOverallCondition,
				Enum:        ai.ConditionValues(),
			},
			ai.FieldSummary: {
				Type:        "string",
				Description: ai.DescSummary,
			},
			ai.FieldDefects: {
				Type:        "array",
				Description: ai.DescDefects,
				Items: &apiSchema{
					Type: "object",
					Properties: map[string]*apiSchema{
						ai.FieldKind: {
							Type:        "string",
							Description: ai.DescKind,
							Enum:        ai.KindValues(),
						},
						ai.FieldDescription: {
							Type:        "string",
							Description: ai.DescDescription,
						},
						ai.FieldConfidence: {
							Type:        "number",
							Description: ai.DescConfidence,
						},
					},
					Required: []string{ai.FieldKind, ai.FieldDescription, ai.FieldConfidence},
				},
			},
		},
		Required: []string{ai.FieldOverallCondition, ai.FieldSummary, ai.FieldDefects},
	}
}

// API request/response types

type apiRequest struct {
	Model      string         `json:"model"`
	MaxTokens  int            `json:"max_tokens"`
	Messages   []apiMessage   `json:"messages"`
	Tools      []apiTool      `json:"tools,omitempty"`
	ToolChoice *apiToolChoice `json:"tool_choice,omitempty"`
}

type apiTool struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	InputSchema *apiSchema `json:"input_schema"`
}

type apiToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type apiSchema struct {
	Type        string                `json:"type"`
	Description string                `json:"description,omitempty"`
	Enum        []string              `json:"enum,omitempty"`
	Properties  map[string]*apiSchema `json:"properties,omitempty"`
	Items       *apiSchema            `json:"items,omitempty"`
	Required    []string              `json:"required,omitempty"`
}

type apiMessage struct {
	Role    string       `json:"role"`
	Content []apiContent `json:"content"`
}

type apiContent struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Source *apiImageSource `json:"source,omitempty"`
}

type apiImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type apiResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []apiContentOutput `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
	Usage      apiUsage           `json:"usage"`
}

type apiContentOutput struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiErrorResponse struct {
	Type  string   `json:"type"`
	Error apiError `json:"error"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
