// Command fittracker logs weight training and cardio and prescribes the next session of periodized exercises.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/myrjola/fittracker/internal/envstruct"
	"github.com/myrjola/fittracker/internal/errors"
	"github.com/myrjola/fittracker/internal/i18n"
	"github.com/myrjola/fittracker/internal/logging"
	"github.com/myrjola/fittracker/internal/periodization"
	"github.com/myrjola/fittracker/internal/sqlite"
	"github.com/myrjola/fittracker/internal/workout"
)

type config struct {
	// SqliteURL is the path to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"FITTRACKER_SQLITE_URL" envDefault:"./fittracker.sqlite3"`
	// PlanPath is an optional YAML file replacing the built-in three week plan.
	PlanPath string `env:"FITTRACKER_PLAN_PATH" envDefault:""`
	// PartialSetup accepts exercises with only a base weight configured.
	PartialSetup bool `env:"FITTRACKER_PARTIAL_SETUP" envDefault:"false"`
	// BackupURL is the endpoint that emails backups.
	BackupURL string `env:"FITTRACKER_BACKUP_URL" envDefault:""`
	// OpenAIAPIKeys is a comma-separated list of keys tried in order when one is rate limited.
	OpenAIAPIKeys []string `env:"FITTRACKER_OPENAI_API_KEYS" envDefault:""`
	OpenAIBaseURL string   `env:"FITTRACKER_OPENAI_BASE_URL" envDefault:""`
	OpenAIModel   string   `env:"FITTRACKER_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	// Language of headings and labels, en or zh-TW.
	Language string `env:"FITTRACKER_LANGUAGE" envDefault:"zh-TW"`
	LogLevel string `env:"FITTRACKER_LOG_LEVEL" envDefault:"warn"`
}

type application struct {
	cfg            config
	logger         *slog.Logger
	out            io.Writer
	lang           i18n.Language
	workoutService *workout.Service
	now            func() time.Time
}

func run(
	ctx context.Context,
	args []string,
	lookupEnv func(string) (string, bool),
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
	logger := logging.NewLogger(stderr, level)

	lang := i18n.Language(cfg.Language)
	if !i18n.IsSupported(lang) {
		return errors.New("unsupported language", slog.String("language", cfg.Language))
	}

	if len(args) == 0 {
		printUsage(stdout)
		return errors.New("missing command")
	}
	cmd, ok := lookupCommand(args[0])
	if !ok {
		printUsage(stdout)
		return errors.New("unknown command", slog.String("command", args[0]))
	}
	ctx = logging.WithAttrs(ctx, slog.String("command", cmd.name))

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

	app := &application{
		cfg:            cfg,
		logger:         logger,
		out:            stdout,
		lang:           lang,
		workoutService: workout.NewService(db, logger, engine),
		now:            time.Now,
	}
	if err = cmd.run(app, ctx, args[1:]); err != nil {
		return errors.Wrap(err, cmd.name)
	}
	return nil
}

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.LookupEnv, os.Stdout, os.Stderr); err != nil {
		logger := logging.NewLogger(os.Stderr, slog.LevelError)
		logger.LogAttrs(ctx, slog.LevelError, "fittracker failed", errors.SlogError(err))
		os.Exit(1)
	}
}
