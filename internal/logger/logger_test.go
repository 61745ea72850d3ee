package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	buf := &bytes.Buffer{}
	config := Config{
		Level:  LevelInfo,
		Format: FormatText,
		Outputs: []OutputConfig{
			{Type: OutputStdout, Writer: buf},
		},
	}

	logger, err := New(config)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Shutdown()

	logger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("log output missing message: %s", output)
	}
}

func TestNew_InvalidFile(t *testing.T) {
	logger, err := New(Config{
		File:    FileConfig{Enabled: true},
		Outputs: []OutputConfig{{Type: OutputFile}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if logger != nil {
		t.Errorf("expected nil logger on error, got %T", logger)
	}
}

func TestLogger_NullLogger(t *testing.T) {
	var logger Logger = &NullLogger{}

	// 不應該 panic
	logger.Info("should not crash")
	logger.Debug("should not crash")
	logger.Warn("should not crash")
	logger.Error("should not crash")

	if logger.With("k", "v") != logger {
		t.Error("NullLogger.With should return itself")
	}
	if err := logger.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
	if err := logger.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestLogger_Shutdown(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{
		Level:  LevelInfo,
		Format: FormatText,
		Outputs: []OutputConfig{
			{Type: OutputStdout, Writer: buf},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("before shutdown")
	if err := logger.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}

	if err := logger.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	// 再次呼叫應該不會 panic
	if err := logger.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestParseLevelAndFormat(t *testing.T) {
	levels := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"WARN":    LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range levels {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if ParseFormat("JSON") != FormatJSON || ParseFormat("text") != FormatText || ParseFormat("") != FormatText || ParseFormat("yaml") != FormatText {
		t.Error("ParseFormat returned unexpected format")
	}
}
