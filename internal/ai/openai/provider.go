package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/DukeRupert/defectlens/internal/ai"
	"github.com/DukeRupert/defectlens/internal/domain"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	// DefaultModel is the default vision-capable model to use
	DefaultModel = "gpt-4o-mini"

	// maxTokens bounds the completion length
	maxTokens = 2048

	// schemaName identifies the structured output schema
	schemaName = "building_defect_analysis"

	op = "openai.analyze_image"
)

// Config contains configuration for the OpenAI provider
type Config struct {
	APIKey         string
	Model          string
	BaseURL        string // Optional, for OpenAI-compatible endpoints
	ProviderConfig ai.ProviderConfig
}

// Provider implements ai.Analyzer using the OpenAI chat completions API
type Provider struct {
	config Config
	client *openai.Client
	logger *slog.Logger
}

// New creates a new OpenAI provider
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	config.ProviderConfig = config.ProviderConfig.WithDefaults()

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		if err := ai.ValidateBaseURL(config.BaseURL); err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		clientConfig.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: config.ProviderConfig.RequestTimeout,
	}

	return &Provider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger,
	}, nil
}

// AnalyzeImage analyzes a building photograph for defects using an OpenAI vision model
func (p *Provider) AnalyzeImage(ctx context.Context, params ai.AnalyzeImageParams) (*domain.AnalysisResult, error) {
	if err := ai.ValidateImageParams(params); err != nil {
		return nil, err
	}

	req := openai.ChatCompletionRequest{
		Model:     p.config.Model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: ai.BuildAnalysisPrompt(),
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURI(params),
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: ResponseSchema(),
				Strict: true,
			},
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, domain.Backend(ai.ErrEmptyResponse, op, "The analysis service returned an unusable result")
	}
	if refusal := resp.Choices[0].Message.Refusal; refusal != "" {
		return nil, domain.Backend(fmt.Errorf("%w: %s", ai.ErrContentPolicy, refusal), op, "The analysis service refused the image")
	}
	if strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, domain.Backend(ai.ErrEmptyResponse, op, "The analysis service returned an unusable result")
	}

	p.logger.Debug("OpenAI response received",
		"image_id", params.ImageID,
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return ai.DecodeResult(op, []byte(resp.Choices[0].Message.Content), p.config.ProviderConfig.ConfidencePolicy)
}

// mapError converts a go-openai client error into a domain error
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return ai.MapHTTPStatus(op, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return ai.MapHTTPStatus(op, reqErr.HTTPStatusCode, "")
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ai.TransportError(op, err)
	}

	return domain.Backend(err, op, "The analysis service returned an unusable result")
}

// dataURI inlines the image as a base64 data URI
func dataURI(params ai.AnalyzeImageParams) string {
	return fmt.Sprintf("data:%s;base64,%s",
		domain.NormalizeContentType(params.ContentType),
		base64.StdEncoding.EncodeToString(params.ImageData))
}

// ResponseSchema returns the strict JSON schema for structured output.
// Strict mode requires every property to be listed as required.
func ResponseSchema() *jsonschema.Definition {
	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			ai.FieldOverallCondition: {
				Type:        jsonschema.String,
				Description: ai.DescOverallCondition,
				Enum:        ai.ConditionValues(),
			},
			ai.FieldSummary: {
				Type:        jsonschema.String,
				Description: ai.DescSummary,
			},
			ai.FieldDefects: {
				Type:        jsonschema.Array,
				Description: ai.DescDefects,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						ai.FieldKind: {
							Type:        jsonschema.String,
							Description: ai.DescKind,
							Enum:        ai.KindValues(),
						},
						ai.FieldDescription: {
							Type:        jsonschema.String,
							Description: ai.DescDescription,
						},
						ai.FieldConfidence: {
							Type:        jsonschema.Number,
							Description: ai.DescConfidence,
						},
					},
					Required:             []string{ai.FieldKind, ai.FieldDescription, ai.FieldConfidence},
					AdditionalProperties: false,
				},
			},
		},
		Required:             []string{ai.FieldOverallCondition, ai.FieldSummary, ai.FieldDefects},
		AdditionalProperties: false,
	}
}
