// Package sqlite opens the fittracker database and keeps its schema up to date.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	_ "embed"
)

//go:embed schema.sql
var schemaDefinition string

//go:embed fixtures.sql
var fixtures string

// fixturesVersion is stored in PRAGMA user_version once the built-in exercises have been seeded so that
// exercises the user deletes stay deleted.
const fixturesVersion = 1

// Database holds a single-connection read-write pool and a read-only pool on the same SQLite file.
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger
}

// NewDatabase opens the database at url, migrates the schema and seeds the built-in exercises into a new
// database.
//
// The url parameter is the path to the SQLite database file or ":memory:" for a private in-memory database.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(ctx, url, logger)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err = db.migrate(ctx, schemaDefinition); err != nil {
		return nil, errors.Join(fmt.Errorf("migrate: %w", err), db.Close())
	}

	if err = db.seed(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("seed: %w", err), db.Close())
	}

	return db, nil
}

func (db *Database) seed(ctx context.Context) error {
	var version int
	if err := db.ReadWrite.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version >= fixturesVersion {
		return nil
	}
	if _, err := db.ReadWrite.ExecContext(ctx, fixtures); err != nil {
		return fmt.Errorf("apply fixtures: %w", err)
	}
	if _, err := db.ReadWrite.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", fixturesVersion)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	db.logger.LogAttrs(ctx, slog.LevelInfo, "seeded built-in exercises")
	return nil
}

//nolint:gochecknoglobals // the driver must only be registered once per process.
var once sync.Once

const optimizedDriver = "sqlite3optimized"

func registerOptimizedDriver() {
	sql.Register(optimizedDriver,
		&sqlite3.SQLiteDriver{
			Extensions: nil,
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				if _, err := conn.Exec(
					// Temporary tables and indices live in memory.
					"PRAGMA temp_store = memory;"+
						// Memory-mapped I/O saves read syscalls.
						"PRAGMA mmap_size = 268435456;", nil); err != nil {
					return fmt.Errorf("exec optimization pragmas: %w", err)
				}
				return nil
			},
		})
}

func connect(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	// In-memory databases need a unique name and shared cache so that both pools see the same data.
	// See https://www.sqlite.org/inmemorydb.html.
	inMemoryConfig := ""
	if strings.Contains(url, ":memory:") {
		url = rand.Text()
		inMemoryConfig = "&mode=memory&cache=shared"
	}
	// Options prefixed with '_' are documented at https://pkg.go.dev/github.com/mattn/go-sqlite3#SQLiteDriver.Open
	// and the rest at https://www.sqlite.org/uri.html.
	commonConfig := strings.Join([]string{
		"_defer_foreign_keys=1",
		"_journal_mode=wal",
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
	}, "&")
	readWriteDSN := fmt.Sprintf("file:%s?mode=rwc&_txlock=immediate&%s%s", url, commonConfig, inMemoryConfig)
	readDSN := fmt.Sprintf("file:%s?mode=ro&_txlock=deferred&_query_only=true&%s%s", url, commonConfig, inMemoryConfig)
	if inMemoryConfig != "" {
		// mode=memory replaces the rwc/ro modes.
		readWriteDSN = strings.Replace(readWriteDSN, "mode=rwc&", "", 1)
		readDSN = strings.Replace(readDSN, "mode=ro&", "", 1)
	}

	once.Do(registerOptimizedDriver)

	readWriteDB, err := sql.Open(optimizedDriver, readWriteDSN)
	if err != nil {
		return nil, fmt.Errorf("open read-write database: %w", err)
	}
	readWriteDB.SetMaxOpenConns(1)
	readWriteDB.SetMaxIdleConns(1)
	readWriteDB.SetConnMaxLifetime(time.Hour)
	readWriteDB.SetConnMaxIdleTime(time.Hour)

	// sql.DB is lazy so ping to surface configuration errors now.
	if err = readWriteDB.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping read-write database: %w", err), readWriteDB.Close())
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "opened database", slog.String("dsn", readWriteDSN))

	readDB, err := sql.Open(optimizedDriver, readDSN)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open read database: %w", err), readWriteDB.Close())
	}
	maxReadConns := 4
	readDB.SetMaxOpenConns(maxReadConns)
	readDB.SetMaxIdleConns(maxReadConns)
	readDB.SetConnMaxLifetime(time.Hour)
	readDB.SetConnMaxIdleTime(time.Hour)

	return &Database{
		ReadWrite: readWriteDB,
		ReadOnly:  readDB,
		logger:    logger,
	}, nil
}

// Close optimizes the database and closes both pools.
func (db *Database) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return errors.Join(db.Optimize(ctx), db.ReadOnly.Close(), db.ReadWrite.Close())
}
