package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key NewConfig reads so a developer's .env or shell
// does not leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "PORT", "LOG_LEVEL", "BASE_URL",
		"AI_PROVIDER", "AI_REQUEST_TIMEOUT", "ANALYSIS_TIMEOUT", "CONFIDENCE_POLICY",
		"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL",
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
		"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "ANTHROPIC_BASE_URL",
		"STORAGE_PROVIDER", "LOCAL_STORAGE_PATH", "LOCAL_STORAGE_URL",
		"R2_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY", "R2_BUCKET_NAME",
		"R2_PUBLIC_URL", "R2_ENDPOINT", "R2_REGION",
		"PREVIEW_URL_TTL", "PREVIEW_MAX_SIZE",
	} {
		t.Setenv(key, "")
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Empty(t, cfg.AnthropicModel)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "mock", cfg.AIProvider)
	assert.Equal(t, "clamp", cfg.ConfidencePolicy)
	assert.Equal(t, "memory", cfg.StorageProvider)
	assert.Equal(t, 60*time.Second, cfg.AIRequestTimeout)
	assert.Equal(t, 15*time.Minute, cfg.PreviewURLTTL)
	assert.Equal(t, 1024, cfg.PreviewMaxSize)
	assert.Equal(t, "http://localhost:8080/files", cfg.LocalStorageURL)
}

func TestNewConfig_ReadsEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("AI_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("CONFIDENCE_POLICY", "strict")
	t.Setenv("AI_REQUEST_TIMEOUT", "5s")
	t.Setenv("PREVIEW_URL_TTL", "2m")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "gemini", cfg.AIProvider)
	assert.Equal(t, "g-key", cfg.GeminiAPIKey)
	assert.Equal(t, "strict", cfg.ConfidencePolicy)
	assert.Equal(t, 5*time.Second, cfg.AIRequestTimeout)
	assert.Equal(t, 2*time.Minute, cfg.PreviewURLTTL)
	assert.Equal(t, "http://localhost:9090/files", cfg.LocalStorageURL)
}

func TestNewConfig_IgnoresUnparseableNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "eighty")
	t.Setenv("AI_REQUEST_TIMEOUT", "soon")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 60*time.Second, cfg.AIRequestTimeout)
}

func TestNewConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "gemini without key",
			env:     map[string]string{"AI_PROVIDER": "gemini"},
			wantErr: "GEMINI_API_KEY",
		},
		{
			name:    "openai without key",
			env:     map[string]string{"AI_PROVIDER": "openai"},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "anthropic without key",
			env:     map[string]string{"AI_PROVIDER": "anthropic"},
			wantErr: "ANTHROPIC_API_KEY",
		},
		{
			name:    "unknown provider",
			env:     map[string]string{"AI_PROVIDER": "oracle"},
			wantErr: "AI_PROVIDER",
		},
		{
			name:    "unknown storage",
			env:     map[string]string{"STORAGE_PROVIDER": "floppy"},
			wantErr: "STORAGE_PROVIDER",
		},
		{
			name:    "r2 without account",
			env:     map[string]string{"STORAGE_PROVIDER": "r2"},
			wantErr: "R2_ACCOUNT_ID",
		},
		{
			name: "r2 without bucket",
			env: map[string]string{
				"STORAGE_PROVIDER":     "r2",
				"R2_ACCOUNT_ID":        "acct",
				"R2_ACCESS_KEY_ID":     "id",
				"R2_SECRET_ACCESS_KEY": "secret",
			},
			wantErr: "R2_BUCKET_NAME",
		},
		{
			name:    "bad confidence policy",
			env:     map[string]string{"CONFIDENCE_POLICY": "round"},
			wantErr: "CONFIDENCE_POLICY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := NewConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewConfig_R2WithEndpoint(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_PROVIDER", "r2")
	t.Setenv("R2_ENDPOINT", "http://localhost:9000")
	t.Setenv("R2_ACCESS_KEY_ID", "id")
	t.Setenv("R2_SECRET_ACCESS_KEY", "secret")
	t.Setenv("R2_BUCKET_NAME", "previews")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.R2Region)
	assert.Equal(t, "http://localhost:9000", cfg.R2Endpoint)
}

func TestNewConfig_LocalStorageURLFollowsBaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("BASE_URL", "https://defects.example.com/")
	t.Setenv("AI_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "a-key")
	t.Setenv("ANTHROPIC_BASE_URL", "http://127.0.0.1:9999/v1/messages")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://defects.example.com", cfg.BaseURL)
	assert.Equal(t, "https://defects.example.com/files", cfg.LocalStorageURL)
	assert.Equal(t, "http://127.0.0.1:9999/v1/messages", cfg.AnthropicBaseURL)
}
