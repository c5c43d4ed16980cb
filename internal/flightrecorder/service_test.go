package flightrecorder_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/fittracker/internal/flightrecorder"
	"github.com/myrjola/fittracker/internal/testhelpers"
)

// The tests are not parallel because only one flight recorder may run at a time.

func TestNew_Validation(t *testing.T) {
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tests := []struct {
		name string
		cfg  flightrecorder.Config
	}{
		{name: "no logger", cfg: flightrecorder.Config{Directory: t.TempDir()}},
		{name: "no directory", cfg: flightrecorder.Config{Logger: logger}},
		{name: "directory is a file", cfg: flightrecorder.Config{Logger: logger, Directory: file}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := flightrecorder.New(tt.cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestService_Capture(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "traces")
	svc, err := flightrecorder.New(flightrecorder.Config{
		Logger:    testhelpers.NewLogger(testhelpers.NewWriter(t)),
		Directory: dir,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := t.Context()
	if err = svc.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer svc.Stop(ctx)

	path := svc.Capture(ctx, "get_recommendation")
	if path == "" {
		t.Fatal("expected a trace file")
	}
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "slow-get_recommendation-") || !strings.HasSuffix(name, ".trace") {
		t.Errorf("unexpected trace file name %s", name)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() == 0 {
		t.Error("expected a non-empty trace")
	}

	if again := svc.Capture(ctx, "get_recommendation"); again != "" {
		t.Errorf("expected the cooldown to skip the capture, got %s", again)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected one trace file, got %d", len(entries))
	}
}

func TestService_CaptureAfterCooldown(t *testing.T) {
	svc, err := flightrecorder.New(flightrecorder.Config{
		Logger:    testhelpers.NewLogger(testhelpers.NewWriter(t)),
		Directory: t.TempDir(),
		Cooldown:  time.Nanosecond,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := t.Context()
	if err = svc.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer svc.Stop(ctx)

	if svc.Capture(ctx, "first") == "" {
		t.Fatal("expected the first capture")
	}
	if svc.Capture(ctx, "second") == "" {
		t.Error("expected a capture once the cooldown has passed")
	}
}
