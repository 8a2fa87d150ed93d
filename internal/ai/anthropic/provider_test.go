package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/DukeRupert/defectlens/internal/ai"
	"github.com/DukeRupert/defectlens/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testParams() ai.AnalyzeImageParams {
	return ai.AnalyzeImageParams{
		ImageData:   []byte("fake-webp-bytes"),
		ContentType: "image/webp",
		ImageID:     uuid.New(),
	}
}

func messageBody(content ...apiContentOutput) string {
	b, _ := json.Marshal(apiResponse{
		ID:         "msg_test",
		Type:       "message",
		Role:       "assistant",
		Model:      DefaultModel,
		Content:    content,
		StopReason: "tool_use",
		Usage:      apiUsage{InputTokens: 100, OutputTokens: 20},
	})
	return string(b)
}

func toolUse(input string) apiContentOutput {
	return apiContentOutput{Type: "tool_use", ID: "toolu_test", Name: toolName, Input: json.RawMessage(input)}
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*Provider, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	p, err := New(Config{APIKey: "test-key", BaseURL: srv.URL}, testLogger())
	require.NoError(t, err)
	return p, &calls
}

func TestAnalyzeImage_Success(t *testing.T) {
	var captured apiRequest
	var raw map[string]any
	p, calls := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, APIVersion, r.Header.Get("anthropic-version"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))
		require.NoError(t, json.Unmarshal(body, &raw))

		_, _ = io.WriteString(w, messageBody(toolUse(`{
			"overallCondition": "Damaged",
			"summary": "Spalled soffit with exposed rebar.",
			"defects": [{"type": "Concrete Spalling", "description": "Exposed rebar", "confidence": 0.81}]
		}`)))
	})

	result, err := p.AnalyzeImage(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, domain.ConditionDamaged, result.OverallCondition)
	require.Len(t, result.Defects, 1)
	assert.Equal(t, domain.DefectKindConcreteSpalling, result.Defects[0].Kind)

	require.Len(t, captured.Messages, 1)
	content := captured.Messages[0].Content
	require.Len(t, content, 2)
	assert.Equal(t, "image/webp", content[0].Source.MediaType)

	require.Len(t, captured.Tools, 1)
	tool := captured.Tools[0]
	assert.Equal(t, toolName, tool.Name)
	require.NotNil(t, tool.InputSchema)
	assert.Equal(t, "object", tool.InputSchema.Type)
	assert.ElementsMatch(t, []string{ai.FieldOverallCondition, ai.FieldSummary, ai.FieldDefects}, tool.InputSchema.Required)
	assert.Equal(t, ai.ConditionValues(), tool.InputSchema.Properties[ai.FieldOverallCondition].Enum)
	assert.Equal(t, ai.KindValues(), tool.InputSchema.Properties[ai.FieldDefects].Items.Properties[ai.FieldKind].Enum)
	require.NotNil(t, captured.ToolChoice)
	assert.Equal(t, apiToolChoice{Type: "tool", Name: toolName}, *captured.ToolChoice)

	// Wire names as the Messages API expects them
	assert.Contains(t, raw, "tool_choice")
	tools := raw["tools"].([]any)
	assert.Contains(t, tools[0].(map[string]any), "input_schema")
}

func TestAnalyzeImage_IgnoresTextBlocks(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, messageBody(
			apiContentOutput{Type: "text", Text: "Recording the analysis now."},
			toolUse(`{"overallCondition":"Sound","summary":"No visible defects.","defects":[]}`),
		))
	})

	result, err := p.AnalyzeImage(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, domain.ConditionSound, result.OverallCondition)
	assert.Empty(t, result.Defects)
}

func TestAnalyzeImage_StatusErrorsNotRetried(t *testing.T) {
	p, calls := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	})

	_, err := p.AnalyzeImage(context.Background(), testParams())
	assert.True(t, domain.IsBackendError(err))
	assert.ErrorIs(t, err, ai.ErrUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestAnalyzeImage_MalformedPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "oops"},
		{"no content", `{"id":"x","type":"message","content":[]}`},
		{"prose only", messageBody(apiContentOutput{Type: "text", Text: "The building is fine."})},
		{"other tool", messageBody(apiContentOutput{Type: "tool_use", Name: "something_else", Input: json.RawMessage(`{"overallCondition":"Sound"}`)})},
		{"refusal", `{"id":"x","type":"message","content":[],"stop_reason":"refusal"}`},
		{"null confidence", messageBody(toolUse(`{"overallCondition":"Damaged","summary":"","defects":[{"kind":"Cracks","description":"x","confidence":null}]}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})

			result, err := p.AnalyzeImage(context.Background(), testParams())
			assert.Nil(t, result)
			assert.True(t, domain.IsBackendError(err), "got %v", err)
		})
	}
}

func TestAnalyzeImage_CanceledContext(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, messageBody(toolUse(`{}`)))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.AnalyzeImage(ctx, testParams())
	assert.True(t, domain.IsBackendUnreachable(err), "got %v", err)
}

func TestExtractToolInput_Refusal(t *testing.T) {
	_, err := extractToolInput(&apiResponse{StopReason: "refusal"})
	assert.ErrorIs(t, err, ai.ErrContentPolicy)

	_, err = extractToolInput(&apiResponse{StopReason: "end_turn"})
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
}

func TestNew(t *testing.T) {
	_, err := New(Config{}, testLogger())
	assert.Error(t, err)

	_, err = New(Config{APIKey: "k", BaseURL: "not a url"}, testLogger())
	assert.Error(t, err)

	p, err := New(Config{APIKey: "k"}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, p.config.Model)
	assert.Equal(t, APIBaseURL, p.config.BaseURL)
}
