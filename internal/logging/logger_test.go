package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pillcheck/internal/logging"
)

func TestNewWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "pillcheck.log")

	logger, err := logging.New(logging.Options{
		Format:           "json",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("verification scored", logging.Float64("final_score", 0.91))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "verification scored") {
		t.Fatalf("expected log message in file, got %q", content)
	}
	if !strings.Contains(string(content), "final_score") {
		t.Fatalf("expected structured field in file, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	logger.Error("should not panic", logging.Error(nil))
}
