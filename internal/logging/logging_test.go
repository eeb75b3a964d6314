package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	base := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	scoped := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	if got := Resolve(context.Background(), base); got != base {
		t.Fatalf("expected base logger without context logger")
	}
	ctx := ContextWithLogger(context.Background(), scoped)
	if got := Resolve(ctx, base); got != scoped {
		t.Fatalf("expected context logger to win")
	}
	if got := Resolve(context.Background(), nil); got == nil {
		t.Fatalf("expected slog.Default fallback")
	}
}

func TestNew_WritesJSONAtLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)
	logger.Info("dropped")
	logger.Warn("kept", "usage_id", "u-1")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["usage_id"] != "u-1" {
		t.Fatalf("unexpected entry %v", entry)
	}
}
