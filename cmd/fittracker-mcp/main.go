// Command fittracker-mcp serves the training log to AI assistants over MCP on stdin and stdout.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/myrjola/fittracker/internal/assistant"
	"github.com/myrjola/fittracker/internal/envstruct"
	"github.com/myrjola/fittracker/internal/errors"
	"github.com/myrjola/fittracker/internal/flightrecorder"
	"github.com/myrjola/fittracker/internal/logging"
	"github.com/myrjola/fittracker/internal/periodization"
	"github.com/myrjola/fittracker/internal/sqlite"
	"github.com/myrjola/fittracker/internal/workout"
)

type config struct {
	SqliteURL    string `env:"FITTRACKER_SQLITE_URL" envDefault:"./fittracker.sqlite3"`
	PlanPath     string `env:"FITTRACKER_PLAN_PATH" envDefault:""`
	PartialSetup bool   `env:"FITTRACKER_PARTIAL_SETUP" envDefault:"false"`
	LogLevel     string `env:"FITTRACKER_LOG_LEVEL" envDefault:"info"`
	// TracesDir enables the flight recorder. Slow tool calls write an execution trace here.
	TracesDir      string `env:"FITTRACKER_TRACES_DIR" envDefault:""`
	SlowToolMillis int    `env:"FITTRACKER_SLOW_TOOL_MS" envDefault:"2000"`
}

const optimizeInterval = 24 * time.Hour

func version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func run(
	ctx context.Context,
	lookupEnv func(string) (string, bool),
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	var cfg config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "parse log level", slog.String("level", cfg.LogLevel))
	}
	// stdout carries the protocol so logs go to stderr.
	logger := logging.NewLogger(stderr, level)

	engine, err := periodization.LoadEngine(cfg.PlanPath, cfg.PartialSetup)
	if err != nil {
		return errors.Wrap(err, "configure engine", slog.String("planPath", cfg.PlanPath))
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelWarn, "close db", errors.SlogError(closeErr))
		}
	}()

	assistantOpts := []assistant.Option{assistant.WithSQL(db)}
	if cfg.TracesDir != "" {
		recorder, recErr := flightrecorder.New(flightrecorder.Config{
			Logger:    logger,
			Directory: cfg.TracesDir,
			MinAge:    0,
			MaxBytes:  0,
			Cooldown:  0,
		})
		if recErr != nil {
			return errors.Wrap(recErr, "new flight recorder")
		}
		if err = recorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer recorder.Stop(ctx)
		threshold := time.Duration(cfg.SlowToolMillis) * time.Millisecond
		assistantOpts = append(assistantOpts, assistant.WithTracer(recorder, threshold))
	}

	svc := workout.NewService(db, logger, engine)
	mcpServer := assistant.New(svc, version(), logger, time.Now, assistantOpts...)

	go db.RunOptimizer(ctx, optimizeInterval)

	stdio := server.NewStdioServer(mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
	logger.LogAttrs(ctx, slog.LevelInfo, "serving MCP on stdio", slog.String("version", version()))
	if err = stdio.Listen(ctx, stdin, stdout); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "listen")
	}
	return nil
}

func main() {
	ctx := context.Background()
	if err := run(ctx, os.LookupEnv, os.Stdin, os.Stdout, os.Stderr); err != nil {
		logger := logging.NewLogger(os.Stderr, slog.LevelError)
		logger.LogAttrs(ctx, slog.LevelError, "fittracker-mcp failed", errors.SlogError(err))
		os.Exit(1)
	}
}
