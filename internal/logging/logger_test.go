package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/myrjola/fittracker/internal/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{name: "", want: slog.LevelInfo, wantErr: false},
		{name: "debug", want: slog.LevelDebug, wantErr: false},
		{name: "WARN", want: slog.LevelWarn, wantErr: false},
		{name: "error", want: slog.LevelError, wantErr: false},
		{name: "info+2", want: slog.LevelInfo + 2, wantErr: false},
		{name: "loud", want: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := logging.ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNewLogger_ContextAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, slog.LevelInfo)

	ctx := logging.WithAttrs(context.Background(), slog.String("command", "log"))
	first := logging.WithAttrs(ctx, slog.String("exercise", "1"))
	second := logging.WithAttrs(ctx, slog.String("exercise", "2"))

	logger.LogAttrs(first, slog.LevelInfo, "first")
	logger.LogAttrs(second, slog.LevelInfo, "second")
	logger.LogAttrs(ctx, slog.LevelDebug, "hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "command=log exercise=1") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "command=log exercise=2") || strings.Contains(lines[1], "exercise=1") {
		t.Errorf("unexpected second line %q", lines[1])
	}
}
