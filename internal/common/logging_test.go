package common

import (
	"bytes"
	"testing"
)

func TestNewLogger_ReturnsNonNil(t *testing.T) {
	logger := NewLogger("info")
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}
}

func TestNewLoggerFromConfig_FluentAPI(t *testing.T) {
	logger := NewLoggerFromConfig(LoggingConfig{Level: "error", Outputs: []string{"console"}})
	logger.Info().Str("key", "value").Msg("test message")
	logger.Warn().Int("count", 42).Msg("warning")
	logger.Error().Err(nil).Msg("error message")
	logger.Debug().Float64("rate", 3.14).Bool("ok", true).Msg("debug")
}

func TestNewLoggerWithOutput_WritesToProvidedWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("info", &buf)
	logger.Info().Str("key", "value").Msg("hello")

	if buf.String() == "" {
		t.Error("expected output to provided writer, got empty string")
	}
}

func TestWriterAdapter_PassesThroughNonJSON(t *testing.T) {
	var buf bytes.Buffer
	w := &writerAdapter{out: &buf}
	w.Write([]byte("plain text"))
	if buf.String() != "plain text" {
		t.Errorf("expected passthrough, got %q", buf.String())
	}
}

func TestNewSilentLogger_DiscardsOutput(t *testing.T) {
	logger := NewSilentLogger()
	if logger == nil {
		t.Fatal("NewSilentLogger returned nil")
	}
	logger.Info().Msg("should be discarded")
}

func TestWithCorrelationId(t *testing.T) {
	logger := NewSilentLogger().WithCorrelationId("abc-123")
	if logger == nil || logger.ILogger == nil {
		t.Fatal("WithCorrelationId returned nil logger")
	}
	logger.Info().Msg("correlated")
}
