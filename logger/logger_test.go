package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" warn ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestWithComponent(t *testing.T) {
	defer Init("info", false)

	var buf bytes.Buffer
	InitWriter(&buf, "debug", false)

	WithComponent("pipeline").Debug().Int("frames", 3).Msg("done")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "pipeline", entry["component"])
	assert.Equal(t, "done", entry["message"])
	assert.EqualValues(t, 3, entry["frames"])
}

func TestInitWriterFiltersBelowLevel(t *testing.T) {
	defer Init("info", false)

	var buf bytes.Buffer
	InitWriter(&buf, "warn", false)

	Get().Info().Msg("hidden")
	assert.Empty(t, buf.String())

	Get().Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
