package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "component", "test")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if rec["msg"] != "shown" || rec["component"] != "test" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestNewTextDefault(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	New("", "", &buf).Debug("debug by default")
	if !strings.Contains(buf.String(), "msg=\"debug by default\"") {
		t.Fatalf("text handler output = %q", buf.String())
	}
}
