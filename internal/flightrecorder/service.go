// Package flightrecorder keeps a rolling execution trace and writes it to disk when an operation runs slow.
package flightrecorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/trace"
	"sync/atomic"
	"time"

	"github.com/myrjola/fittracker/internal/errors"
)

const (
	defaultMinAge   = 2 * time.Minute
	defaultMaxBytes = 16 * 1024 * 1024
	defaultCooldown = 30 * time.Minute
)

// Service captures flight recorder traces of slow operations.
type Service struct {
	logger         *slog.Logger
	recorder       *trace.FlightRecorder
	directory      string
	cooldown       time.Duration
	lastCaptureSec atomic.Int64
}

// Config configures the service. Zero durations and sizes use defaults.
type Config struct {
	Logger *slog.Logger
	// Directory receives the trace files. It is created when missing.
	Directory string
	MinAge    time.Duration
	MaxBytes  uint64
	// Cooldown is the minimum time between two captures.
	Cooldown time.Duration
}

// New creates a Service. Call Start to begin recording.
func New(cfg Config) (*Service, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Directory == "" {
		return nil, errors.New("traces directory is required")
	}
	stat, err := os.Stat(cfg.Directory)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err = os.MkdirAll(cfg.Directory, 0o750); err != nil { //nolint:mnd // owner and group
			return nil, errors.Wrap(err, "create traces directory", slog.String("dir", cfg.Directory))
		}
	case err != nil:
		return nil, errors.Wrap(err, "stat traces directory", slog.String("dir", cfg.Directory))
	case !stat.IsDir():
		return nil, errors.New("traces path is not a directory", slog.String("dir", cfg.Directory))
	}

	minAge := cmpOr(cfg.MinAge, defaultMinAge)
	maxBytes := cmpOr(cfg.MaxBytes, defaultMaxBytes)
	return &Service{
		logger:         cfg.Logger,
		recorder:       trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: minAge, MaxBytes: maxBytes}),
		directory:      cfg.Directory,
		cooldown:       cmpOr(cfg.Cooldown, defaultCooldown),
		lastCaptureSec: atomic.Int64{},
	}, nil
}

func cmpOr[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}

// Start begins recording. Only one flight recorder can run per process.
func (s *Service) Start(ctx context.Context) error {
	if err := s.recorder.Start(); err != nil {
		return errors.Wrap(err, "start flight recorder")
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started",
		slog.String("dir", s.directory), slog.Duration("cooldown", s.cooldown))
	return nil
}

// Stop ends recording.
func (s *Service) Stop(ctx context.Context) {
	s.recorder.Stop()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

// Capture writes the recorded trace to a file named after reason. Captures within the cooldown of the previous
// one are skipped. It returns the path of the written file or "" when nothing was written.
func (s *Service) Capture(ctx context.Context, reason string) string {
	now := time.Now()
	last := s.lastCaptureSec.Load()
	if last > 0 && now.Sub(time.Unix(last, 0)) < s.cooldown {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "skipping trace capture during cooldown",
			slog.String("reason", reason), slog.Time("lastCapture", time.Unix(last, 0)))
		return ""
	}
	if !s.lastCaptureSec.CompareAndSwap(last, now.Unix()) {
		return ""
	}

	path := filepath.Join(s.directory, fmt.Sprintf("slow-%s-%s.trace", reason, now.UTC().Format("20060102-150405")))
	written, err := s.write(path)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to capture trace", errors.SlogError(err))
		return ""
	}
	s.logger.LogAttrs(ctx, slog.LevelWarn, "captured slow operation trace",
		slog.String("reason", reason), slog.String("file", path), slog.Int64("bytes", written))
	return path
}

func (s *Service) write(path string) (_ int64, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(err, "create trace file", slog.String("file", path))
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "close trace file", slog.String("file", path)))
		}
	}()
	written, err := s.recorder.WriteTo(f)
	if err != nil {
		return 0, errors.Wrap(err, "write trace", slog.String("file", path))
	}
	return written, nil
}
