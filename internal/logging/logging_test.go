package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("component", "planner")).Info(context.Background(), "batch done",
		Int("plans", 17), Float("seconds", 1.5), Err(errors.New("boom")))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if got["msg"] != "batch done" {
		t.Fatalf("msg = %v, want batch done", got["msg"])
	}
	if got["component"] != "planner" {
		t.Fatalf("component = %v, want planner", got["component"])
	}
	if got["plans"] != float64(17) {
		t.Fatalf("plans = %v, want 17", got["plans"])
	}
	if got["error"] != "boom" {
		t.Fatalf("error = %v, want boom", got["error"])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden too")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}

	log.Warn(context.Background(), "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestContextLogger(t *testing.T) {
	if _, ok := FromContext(context.Background()).(noopLogger); !ok {
		t.Fatalf("empty context should yield noop logger")
	}

	l := New(Config{})
	ctx := ContextWithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatalf("FromContext did not return the stored logger")
	}
}
