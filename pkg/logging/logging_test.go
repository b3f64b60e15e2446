package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}

	if cfg.Pretty != false {
		t.Error("Expected default pretty to be false")
	}
}

func TestSetup(t *testing.T) {
	tests := []struct {
		name     string
		level    LogLevel
		testMsg  string
		contains string
	}{
		{"info_level", LevelInfo, "test info message", "test info message"},
		{"debug_level", LevelDebug, "test debug message", "test debug message"},
		{"warn_level", LevelWarn, "test warn message", "test warn message"},
		{"error_level", LevelError, "test error message", "test error message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger, err := Setup(Config{
				Level:  tt.level,
				Pretty: false,
				Output: buf,
			})
			if err != nil {
				t.Fatalf("Setup failed: %v", err)
			}

			switch tt.level {
			case LevelDebug:
				logger.Debug().Msg(tt.testMsg)
			case LevelInfo:
				logger.Info().Msg(tt.testMsg)
			case LevelWarn:
				logger.Warn().Msg(tt.testMsg)
			case LevelError:
				logger.Error().Msg(tt.testMsg)
			}

			output := buf.String()
			if !strings.Contains(output, tt.contains) {
				t.Errorf("Expected output to contain %q, got %q", tt.contains, output)
			}
		})
	}
}

func TestSetupWritesDatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "harvest.log")
	buf := &bytes.Buffer{}

	logger, err := Setup(Config{
		Level:  LevelInfo,
		Output: buf,
		File:   file,
	})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Info().Msg("teed message")

	dated := DatedFileName(file, time.Now())
	content, err := os.ReadFile(dated)
	if err != nil {
		t.Fatalf("Expected dated log file %s: %v", dated, err)
	}
	if !strings.Contains(string(content), "teed message") {
		t.Errorf("File output missing message, got %q", content)
	}
	if !strings.Contains(buf.String(), "teed message") {
		t.Error("Console output missing message")
	}
}

func TestDatedFileName(t *testing.T) {
	ts := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		expected string
	}{
		{"harvest.log", "harvest.20260824.log"},
		{"logs/harvest.log", "logs/harvest.20260824.log"},
		{"noext", "noext.20260824"},
	}

	for _, tt := range tests {
		if got := DatedFileName(tt.name, ts); got != tt.expected {
			t.Errorf("DatedFileName(%q) = %q, want %q", tt.name, got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"invalid", zerolog.InfoLevel}, // Should default to Info
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	if _, err := Setup(Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: buf,
	}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger := NewLogger("planner")
	logger.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "planner") {
		t.Errorf("Expected output to contain 'planner', got %q", output)
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got %q", output)
	}
}

func TestLogLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	if _, err := Setup(Config{
		Level:  LevelWarn,
		Pretty: false,
		Output: buf,
	}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger := NewLogger("test")

	// These should NOT appear (below warn level)
	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")

	// These SHOULD appear (warn level and above)
	logger.Warn().Msg("warn message")
	logger.Error().Msg("error message")

	output := buf.String()

	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered out at Warn level")
	}
	if strings.Contains(output, "info message") {
		t.Error("Info message should be filtered out at Warn level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("Warn message should be included at Warn level")
	}
	if !strings.Contains(output, "error message") {
		t.Error("Error message should be included at Warn level")
	}
}
