package util

import (
	"path/filepath"
	"testing"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", []string{filepath.Join(t.TempDir(), "all.log")})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !logger.Core().Enabled(-1) {
		t.Error("Expected debug level to be enabled")
	}

	if _, err := NewLogger("loud", nil); err == nil {
		t.Error("Expected error for invalid level")
	}
}
