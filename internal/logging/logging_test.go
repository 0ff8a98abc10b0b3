package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for name, want := range cases {
		if got := ParseLevel(name); got != want {
			t.Fatalf("ParseLevel(%q) = %v want %v", name, got, want)
		}
	}
}

func TestStartSpanAnnotatesLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info")

	ctx, span := StartSpan(WithLogger(context.Background(), logger), "upload")
	if TraceIDFromContext(ctx) == "" || SpanIDFromContext(ctx) == "" {
		t.Fatal("expected trace and span ids on context")
	}

	childCtx, child := StartSpan(ctx, "transfer")
	if TraceIDFromContext(childCtx) != TraceIDFromContext(ctx) {
		t.Fatal("child span must share the trace id")
	}
	child.End()
	span.End()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines got %d", len(lines))
	}

	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["span_name"] != "transfer" {
		t.Fatalf("unexpected span name: %v", entry["span_name"])
	}
	if entry["parent_span_id"] != SpanIDFromContext(ctx) {
		t.Fatalf("expected parent span id %s got %v", SpanIDFromContext(ctx), entry["parent_span_id"])
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Fatal("expected default logger")
	}
	if RequestIDFromContext(WithRequestID(context.Background(), "req-1")) != "req-1" {
		t.Fatal("expected request id round trip")
	}
}
