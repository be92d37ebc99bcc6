package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs an outbound HTTP request against its response status
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration":    duration,
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogImageSaved logs the outcome of fetching and writing one image
func LogImageSaved(l Logger, label, sourceURL, path string, err error) {
	entry := l.WithFields(map[string]interface{}{
		"label":      label,
		"source_url": sourceURL,
	})

	if err != nil {
		entry.WithError(err).Warn("Image skipped")
		return
	}
	entry.WithField("path", path).Debug("Image saved")
}

// LogDirectory reports whether a directory was created, already existed or failed
func LogDirectory(l Logger, path string, created bool, err error) {
	entry := l.WithField("path", path)
	switch {
	case err != nil:
		entry.WithError(err).Error("Failed to create directory")
	case created:
		entry.Info("Directory created")
	default:
		entry.Debug("Directory already exists")
	}
}

// LogRateLimit logs a throttling event from the search provider
func LogRateLimit(l Logger, endpoint string, wait time.Duration) {
	l.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"wait":     wait,
		"action":   "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogLabelProgress logs how many images a label has produced so far
func LogLabelProgress(l Logger, label string, saved, target int) {
	percentage := 0.0
	if target > 0 {
		percentage = float64(saved) / float64(target) * 100
	}

	l.WithFields(map[string]interface{}{
		"label":      label,
		"saved":      saved,
		"target":     target,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Info("Label progress")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	entry := l.WithField("component", component)
	if len(settings) > 0 {
		entry = entry.WithFields(settings)
	}
	entry.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// LogMetrics logs run metrics under a single operation name
func LogMetrics(l Logger, operation string, metrics map[string]interface{}) {
	fields := map[string]interface{}{
		"operation": operation,
		"type":      "metrics",
	}
	for k, v := range metrics {
		fields[k] = v
	}
	l.InfoWithFields("Run metrics", fields)
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}

func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
