package logging_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"filecompressor/internal/infrastructure/logging"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for input, want := range tests {
		if got := logging.ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestWriterLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriterLogger(&buf, "warning")

	logger.Info("скрыто %d", 1)
	logger.Warning("страница %d пропущена", 2)
	logger.Success("готово")
	_ = logger.Close()

	out := buf.String()
	if strings.Contains(out, "скрыто") {
		t.Error("Info message should be filtered at warning level")
	}
	if !strings.Contains(out, "страница 2 пропущена") || !strings.Contains(out, "WARN") {
		t.Errorf("Warning message missing: %q", out)
	}
	if strings.Contains(out, "готово") {
		t.Error("Success is logged at info level and should be filtered")
	}
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := logging.NewFileLogger(path, "debug", true)
	if err != nil {
		t.Fatalf("NewFileLogger() error: %v", err)
	}
	logger.Debug("отладка")
	logger.Success("файл %s сохранен", "a.pdf")
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "отладка") || !strings.Contains(string(data), "файл a.pdf сохранен") {
		t.Errorf("Log file content: %q", data)
	}

	disabled, err := logging.NewFileLogger(filepath.Join(t.TempDir(), "none.log"), "info", false)
	if err != nil {
		t.Fatal(err)
	}
	disabled.Info("ничего")
	if err := disabled.Close(); err != nil {
		t.Errorf("Close() on disabled logger: %v", err)
	}
}
