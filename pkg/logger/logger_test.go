package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgharvest/pkg/config"
)

func newBufferLogger(t *testing.T) (Logger, *bytes.Buffer) {
	t.Helper()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	return NewWithWriter(&buf), &buf
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"empty level", &config.LoggingConfig{}, false},
		{"invalid level", &config.LoggingConfig{Level: "invalid"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
			if tt.cfg.File != "" {
				assert.FileExists(t, tt.cfg.File)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLoggerWritesAppField(t *testing.T) {
	logger, buf := newBufferLogger(t)

	logger.Info("starting run")

	assert.Contains(t, buf.String(), "starting run")
	assert.Contains(t, buf.String(), `"app":"imgharvest"`)
}

func TestWithFieldsChaining(t *testing.T) {
	logger, buf := newBufferLogger(t)

	logger.
		WithField("label", "red").
		WithFields(map[string]interface{}{"saved": 3, "done": true}).
		Info("label finished")

	output := buf.String()
	assert.Contains(t, output, `"label":"red"`)
	assert.Contains(t, output, `"saved":3`)
	assert.Contains(t, output, `"done":true`)
}

func TestWithFieldsDoesNotLeakIntoParent(t *testing.T) {
	logger, buf := newBufferLogger(t)

	_ = logger.WithField("label", "red")
	logger.Info("parent")

	assert.NotContains(t, buf.String(), `"label"`)
}

func TestWithError(t *testing.T) {
	logger, buf := newBufferLogger(t)

	assert.Same(t, logger, logger.WithError(nil))

	logger.WithError(errors.New("connection reset")).Error("fetch failed")
	assert.Contains(t, buf.String(), "connection reset")
	assert.Contains(t, buf.String(), "fetch failed")
}

func TestFieldTypes(t *testing.T) {
	logger, buf := newBufferLogger(t)

	logger.InfoWithFields("all types", map[string]interface{}{
		"int64":    int64(456),
		"float":    3.5,
		"time":     time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		"duration": 5 * time.Second,
		"strings":  []string{"a", "b"},
		"ints":     []int{1, 2},
		"cause":    errors.New("boom"),
		"custom":   struct{ Name string }{Name: "x"},
	})

	output := buf.String()
	assert.Contains(t, output, `"int64":456`)
	assert.Contains(t, output, `"strings":["a","b"]`)
	assert.Contains(t, output, `"cause":"boom"`)
	assert.Contains(t, output, `"custom":{"Name":"x"}`)
}

func TestHelpers(t *testing.T) {
	logger := NewTestLogger()

	LogImageSaved(logger, "red", "http://img/1.jpg", "/out/red/1.jpg", nil)
	LogImageSaved(logger, "red", "http://img/2.jpg", "", errors.New("404"))
	LogDirectory(logger, "/out/red", true, nil)
	LogDirectory(logger, "/out/red", false, nil)
	LogLabelProgress(logger, "red", 1, 4)

	assert.True(t, logger.HasMessage("Image saved"))
	assert.True(t, logger.HasMessage("Image skipped"))
	assert.True(t, logger.HasMessage("Directory created"))
	assert.True(t, logger.HasMessage("Directory already exists"))

	skipped := logger.GetMessagesByLevel("WARN")
	require.Len(t, skipped, 1)
	assert.EqualError(t, skipped[0].Error, "404")

	progress := logger.GetMessagesByLevel("INFO")
	assert.Equal(t, "25.0%", progress[len(progress)-1].Fields["percentage"])
}

func TestTestLoggerSharesSink(t *testing.T) {
	logger := NewTestLogger()

	logger.WithField("label", "blue").Info("child message")
	logger.Error("parent message")

	messages := logger.GetMessages()
	require.Len(t, messages, 2)
	assert.Equal(t, "blue", messages[0].Fields["label"])
	assert.NotContains(t, messages[1].Fields, "label")
	assert.True(t, logger.HasError())

	logger.Clear()
	assert.Empty(t, logger.GetMessages())
}

func TestGlobalLogger(t *testing.T) {
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "debug"}))
	assert.NotNil(t, GetLogger())

	Debug("debug message")
	Info("info message")
	WithField("key", "value").Info("with field")
	WithError(errors.New("x")).Warn("with error")
}
