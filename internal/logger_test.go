package internal

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLogger_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", "info")

	logger.Debug("hidden")
	logger.Info("analysis completed", "defects", 2)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "analysis completed", record["msg"])
	assert.Equal(t, "defectlens", record["service"])
	assert.EqualValues(t, 2, record["defects"])
}

func TestNewLogger_DevelopmentWritesText(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "development", "debug").Debug("selected image", "size", 10)

	assert.Contains(t, buf.String(), "msg=\"selected image\"")
	assert.Contains(t, buf.String(), "size=10")
}
