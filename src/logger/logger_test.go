package logger

import (
	"bytes"
	"testing"

	"indicator-observer/src/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerTo_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo(&models.MConfig{LogLevel: "WARNING"}, "Aggregator", &buf)

	log.Info("hidden %d", 1)
	log.Warning("shown %d", 2)
	log.Named("Batch").Error("nested %s", "error")

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "Aggregator.Batch")
	assert.Contains(t, out, "nested error")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"Warning": zapcore.WarnLevel,
		"ERROR":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for input, want := range tests {
		assert.Equal(t, want, parseLevel(input), input)
	}
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	log.Error("dropped")
	log.Sync()
}
