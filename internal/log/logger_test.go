package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)

	logger := Logger("test")
	logger.Info("test message", "key", "value")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("expected log message in buffer, got: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("expected key=value in buffer, got: %s", output)
	}
	if !strings.Contains(output, "subsystem=test") {
		t.Errorf("expected subsystem=test in buffer, got: %s", output)
	}
}

func TestSetOutput_ExistingLogger(t *testing.T) {
	logger := Logger("test2")

	buf := &bytes.Buffer{}
	SetOutput(buf)

	logger.Info("after switch", "key", "value")

	output := buf.String()
	if !strings.Contains(output, "after switch") {
		t.Errorf("expected log message in buffer, got: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("expected key=value in buffer, got: %s", output)
	}
}
