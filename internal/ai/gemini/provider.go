package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/DukeRupert/defectlens/internal/ai"
	"github.com/DukeRupert/defectlens/internal/domain"
)

const (
	// DefaultBaseURL is the base URL for the Gemini models API
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

	// DefaultModel is the default Gemini model to use
	DefaultModel = "gemini-2.5-flash"

	// maxResponseBytes bounds how much of a response body is read
	maxResponseBytes = 1 << 20

	op = "gemini.analyze_image"
)

// Config contains configuration for the Gemini provider
type Config struct {
	APIKey         string
	Model          string
	BaseURL        string
	ProviderConfig ai.ProviderConfig
}

// Provider implements ai.Analyzer using the Gemini generateContent API
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new Gemini provider
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	if err := ai.ValidateBaseURL(config.BaseURL); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
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

// AnalyzeImage analyzes a building photograph for defects using Gemini
func (p *Provider) AnalyzeImage(ctx context.Context, params ai.AnalyzeImageParams) (*domain.AnalysisResult, error) {
	if err := ai.ValidateImageParams(params); err != nil {
		return nil, err
	}

	req, err := p.buildRequest(ctx, params)
	if err != nil {
		return nil, domain.Backend(err, op, "Failed to build analysis request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, ai.TransportError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, ai.TransportError(op, fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiErrorResponse
		_ = json.Unmarshal(body, &errResp)
		return nil, ai.MapHTTPStatus(op, resp.StatusCode, errResp.Error.Message)
	}

	text, err := p.extractText(body)
	if err != nil {
		return nil, domain.Backend(err, op, "The analysis service returned an unusable result")
	}

	p.logger.Debug("Gemini response received", "image_id", params.ImageID, "bytes", len(text))

	return ai.DecodeResult(op, []byte(text), p.config.ProviderConfig.ConfidencePolicy)
}

// buildRequest builds the HTTP request for image analysis
func (p *Provider) buildRequest(ctx context.Context, params ai.AnalyzeImageParams) (*http.Request, error) {
	reqBody := apiRequest{
		Contents: []apiContent{
			{
				Role: "user",
				Parts: []apiPart{
					{
						InlineData: &apiInlineData{
							MimeType: domain.NormalizeContentType(params.ContentType),
							Data:     base64.StdEncoding.EncodeToString(params.ImageData),
						},
					},
					{Text: ai.BuildAnalysisPrompt()},
				},
			},
		},
		GenerationConfig: apiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   ResponseSchema(),
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", p.config.BaseURL, p.config.Model, url.QueryEscape(p.config.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

// extractText pulls the JSON text out of the first candidate
func (p *Provider) extractText(body []byte) (string, error) {
	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if apiResp.PromptFeedback != nil && apiResp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: %s", ai.ErrContentPolicy, apiResp.PromptFeedback.BlockReason)
	}
	if len(apiResp.Candidates) == 0 {
		return "", ai.ErrEmptyResponse
	}

	candidate := apiResp.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		return "", fmt.Errorf("%w: finish reason %s", ai.ErrContentPolicy, candidate.FinishReason)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		b.WriteString(part.Text)
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ai.ErrEmptyResponse
	}
	return b.String(), nil
}

// ResponseSchema returns the OpenAPI-subset schema Gemini enforces on the output
func ResponseSchema() *apiSchema {
	return &apiSchema{
		Type: "OBJECT",
		Properties: map[string]*apiSchema{
			ai.FieldOverallCondition: {
				Type:        "STRING",
				Description: ai.DescOverallCondition,
				Enum:        ai.ConditionValues(),
			},
			ai.FieldSummary: {
				Type:        "STRING",
				Description: ai.DescSummary,
			},
			ai.FieldDefects: {
				Type:        "ARRAY",
				Description: ai.DescDefects,
				Items: &apiSchema{
					Type: "OBJECT",
					Properties: map[string]*apiSchema{
						ai.FieldKind: {
							Type:        "STRING",
							Description: ai.DescKind,
							Enum:        ai.KindValues(),
						},
						ai.FieldDescription: {
							Type:        "STRING",
							Description: ai.DescDescription,
						},
						ai.FieldConfidence: {
							Type:        "NUMBER",
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
	Contents         []apiContent        `json:"contents"`
	GenerationConfig apiGenerationConfig `json:"generationConfig"`
}

type apiContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []apiPart `json:"parts"`
}

type apiPart struct {
	Text       string         `json:"text,omitempty"`
	InlineData *apiInlineData `json:"inlineData,omitempty"`
}

type apiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type apiGenerationConfig struct {
	ResponseMimeType string     `json:"responseMimeType"`
	ResponseSchema   *apiSchema `json:"responseSchema,omitempty"`
}

type apiSchema struct {
	Type        string                `json:"type"`
	Description string                `json:"description,omitempty"`
	Enum        []string              `json:"enum,omitempty"`
	Properties  map[string]*apiSchema `json:"properties,omitempty"`
	Items       *apiSchema            `json:"items,omitempty"`
	Required    []string              `json:"required,omitempty"`
}

type apiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
