package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	log := New()
	assert.NotEqual(t, zerolog.Disabled, log.GetLevel())
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	require.NotEmpty(t, buf.String())
	assert.Contains(t, buf.String(), "test message")
}

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zerolog.Level
		wantJSON  bool
	}{
		{name: "debug json", level: "debug", format: "json", wantLevel: zerolog.DebugLevel, wantJSON: true},
		{name: "upper case level", level: "WARN", format: "json", wantLevel: zerolog.WarnLevel, wantJSON: true},
		{name: "unknown level falls back to info", level: "chatty", format: "json", wantLevel: zerolog.InfoLevel, wantJSON: true},
		{name: "empty level", level: "", format: "console", wantLevel: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log := NewFromConfig(tt.level, tt.format, buf)

			assert.Equal(t, tt.wantLevel, log.GetLevel())

			log.WithLevel(zerolog.ErrorLevel).Msg("hello")
			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"message":"hello"`)
			} else {
				assert.Contains(t, buf.String(), "hello")
				assert.NotContains(t, buf.String(), `"message"`)
			}
		})
	}
}

func TestNewFromConfig_FiltersBelowLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewFromConfig("error", FormatJSON, buf)

	log.Info().Msg("dropped")
	assert.Empty(t, buf.String())
}

func TestWithContext(t *testing.T) {
	ctxWithLogger := WithContext(context.Background(), New())
	assert.NotNil(t, ctxWithLogger.Value(LoggerKey))
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	retrievedLog := FromContext(ctx)
	retrievedLog.Info().Msg("test")

	assert.NotZero(t, buf.Len())
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())
	assert.NotEqual(t, zerolog.Disabled, log.GetLevel())
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"file": "a.json",
		"rows": 3,
	})
	log.Info().Msg("test message")

	output := buf.String()
	assert.Contains(t, output, `"file":"a.json"`)
	assert.Contains(t, output, `"rows":3`)
}

func TestWithRun(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithRun(NewWithWriter(buf), "run-1", "tempus_challenge_dag")
	log.Info().Msg("x")

	assert.Contains(t, buf.String(), `"run_id":"run-1"`)
	assert.Contains(t, buf.String(), `"pipeline":"tempus_challenge_dag"`)
}
