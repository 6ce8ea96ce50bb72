package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_Levels(t *testing.T) {
	t.Run("default hides debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Options{Writer: &buf})

		logger.Debug("hidden")
		logger.Info("shown")

		out := buf.String()
		if strings.Contains(out, "hidden") {
			t.Error("debug message logged without Verbose")
		}
		if !strings.Contains(out, "shown") {
			t.Error("info message not logged")
		}
	})

	t.Run("verbose shows debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Options{Verbose: true, Writer: &buf})

		logger.Debug("trace line")

		if !strings.Contains(buf.String(), "trace line") {
			t.Error("debug message not logged with Verbose")
		}
	})
}

func TestNew_With(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf})

	logger.With("component", "sqlwrap").Info("message")

	if !strings.Contains(buf.String(), "component=sqlwrap") {
		t.Errorf("attribute missing from output: %q", buf.String())
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Debug("a")
	logger.Info("b")
	logger.Warn("c")
	logger.Error("d")
	if logger.With("k", "v") != logger {
		t.Error("With() should return the same NopLogger")
	}
}
