package logging_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/ppmi500/pkg/logging"
)

func TestDefaultLogger(t *testing.T) {
	original := *logging.Default()
	t.Cleanup(func() { logging.SetDefault(original) })

	buf := &bytes.Buffer{}
	logging.SetDefault(zerolog.New(buf).Level(zerolog.InfoLevel))

	logging.Debug().Msg("debug message")
	logging.Info().Msg("info message")
	logging.Warn().Msg("warning message")

	assert.NotContains(t, buf.String(), "debug message")
	assert.Contains(t, buf.String(), "info message")
	assert.Contains(t, buf.String(), "warning message")
}

func TestContextLogger(t *testing.T) {
	testLogger := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), testLogger.Logger)
	ctx = logging.WithStage(ctx, "qc")
	ctx = logging.WithSite(ctx, "AR")
	ctx = logging.WithSubject(ctx, "3001")
	ctx = logging.WithSource(ctx, "subject_json")

	logging.FromContext(ctx).Info().Msg("normalized reviewer column")

	entries := testLogger.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "qc", entries[0]["stage"])
	assert.Equal(t, "AR", entries[0]["site"])
	assert.Equal(t, "3001", entries[0]["subject_id"])
	assert.Equal(t, "subject_json", entries[0]["source"])
	testLogger.AssertContains(t, "normalized reviewer column")
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, logging.Default(), logging.FromContext(context.Background()))
	//nolint:staticcheck // nil context is accepted on purpose
	assert.Same(t, logging.Default(), logging.FromContext(nil))
	assert.Same(t, logging.Default(), logging.FromContext(logging.WithLogger(context.Background(), nil)))
}

func TestContextTags(t *testing.T) {
	testLogger := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), testLogger.Logger)

	ctx = logging.WithStage(ctx, "assemble")
	ctx = logging.WithSubject(ctx, "3001")
	ctx = logging.WithField(ctx, "rows", 3)

	logging.FromContext(ctx).Warn().Msg("partial table")

	entries := testLogger.EntriesAt(zerolog.WarnLevel)
	require.Len(t, entries, 1)
	assert.Equal(t, "assemble", entries[0]["stage"])
	assert.Equal(t, "3001", entries[0]["subject_id"])
	assert.EqualValues(t, 3, entries[0]["rows"])
}

func TestCaptureLoggingForTest(t *testing.T) {
	captured := logging.CaptureLoggingForTest(t)
	logging.Warn().Str("field", "age_BL").Msg("still missing")

	assert.Equal(t, 1, captured.Count())
	captured.AssertContains(t, "age_BL")
	captured.AssertNotContains(t, "commonSex")

	captured.Clear()
	assert.Equal(t, 0, captured.Count())
}

func TestNewLoggerFromConfig(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(originalLevel) })

	t.Run("defaults", func(t *testing.T) {
		cfg := logging.DefaultConfig()
		assert.Equal(t, "info", cfg.Level)
		assert.Equal(t, "auto", cfg.Format)
		assert.Equal(t, "stderr", cfg.Output)
		assert.False(t, cfg.AddCaller)
	})

	t.Run("writes json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "run.log")
		logger := logging.NewLoggerFromConfig(&logging.Config{
			Level:  "debug",
			Format: "json",
			Output: path,
			Fields: map[string]any{"run": "nightly"},
		})
		logger.Info().Msg("pipeline finished")

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "pipeline finished")
		assert.Contains(t, string(content), `"run":"nightly"`)
		assert.Contains(t, string(content), `"caller"`)
	})

	t.Run("discard", func(t *testing.T) {
		logger := logging.NewLoggerFromConfig(&logging.Config{Level: "warn", Output: "discard"})
		assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		"":        zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, logging.ParseLevel(in))
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_FIELDS", "site=AR, stage=qc")

	cfg := logging.ConfigFromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, map[string]any{"site": "AR", "stage": "qc"}, cfg.Fields)
}
