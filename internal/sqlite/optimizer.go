package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Optimize runs PRAGMA optimize. See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) Optimize(ctx context.Context) error {
	start := time.Now()
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		return fmt.Errorf("optimize database: %w", err)
	}
	db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database", slog.Duration("duration", time.Since(start)))
	return nil
}

// RunOptimizer optimizes the database every interval until ctx is done. It is meant for long-lived processes
// such as the MCP server; short commands rely on the optimization in [Database.Close].
func (db *Database) RunOptimizer(ctx context.Context, interval time.Duration) {
	// Analyze tables that have never been analyzed on the first run.
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize = 0x10002;"); err != nil {
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", slog.Any("error", err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.Optimize(ctx); err != nil {
				db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", slog.Any("error", err))
			}
		}
	}
}
