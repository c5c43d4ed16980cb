package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// ErrDestructiveMigration is returned when the target schema would remove a column holding training data.
var ErrDestructiveMigration = errors.New("destructive migration")

// schemaDiff lists the changes needed to bring the live schema to the target schema.
type schemaDiff struct {
	newTables     []string
	rebuilt       []tableChange
	orphanTables  []string
	staleEntities []entity
}

type tableChange struct {
	name    string
	liveSQL string
	newSQL  string
}

// entity is an index or a trigger.
type entity struct {
	typ  string
	name string
	sql  string
}

// migrate makes the live schema match schemaDefinition without losing data.
//
// The migration is declarative: the definition is created in an attached in-memory database and diffed
// against the live one. New tables are created, changed tables are rebuilt with the 12-step procedure of
// https://www.sqlite.org/lang_altertable.html#otheralter when the change only adds columns or constraints,
// and indexes and triggers are synchronised. Tables missing from the definition are kept as they are.
func (db *Database) migrate(ctx context.Context, schemaDefinition string) (err error) {
	start := time.Now()

	detach, err := db.attachTarget(ctx, schemaDefinition)
	if err != nil {
		return fmt.Errorf("attach target schema: %w", err)
	}
	defer detach()

	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil {
			err = errors.Join(err, fmt.Errorf("enable foreign keys: %w", fkErr))
		}
	}()

	var tx *sql.Tx
	if tx, err = db.ReadWrite.BeginTx(ctx, nil); err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer db.rollback(ctx, tx)

	var diff schemaDiff
	if diff, err = db.diff(ctx, tx); err != nil {
		return fmt.Errorf("diff schema: %w", err)
	}
	if err = db.apply(ctx, tx, diff); err != nil {
		return fmt.Errorf("apply schema diff: %w", err)
	}

	var violations []string
	if violations, err = queryStrings(ctx, tx, "SELECT DISTINCT \"table\" FROM pragma_foreign_key_check"); err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	if len(violations) > 0 {
		return fmt.Errorf("foreign key violations in %s", strings.Join(violations, ", "))
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	db.logger.LogAttrs(ctx, slog.LevelDebug, "migrated database",
		slog.Int("newTables", len(diff.newTables)),
		slog.Int("rebuiltTables", len(diff.rebuilt)),
		slog.Duration("duration", time.Since(start)))
	return err
}

// attachTarget creates the schema definition in a fresh in-memory database and attaches it as schemaTarget.
func (db *Database) attachTarget(ctx context.Context, schemaDefinition string) (func(), error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	target, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	// The attachment keeps the shared in-memory database alive after this handle closes.
	defer func() {
		if closeErr := target.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close target schema", slog.Any("error", closeErr))
		}
	}()
	if _, err = target.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, fmt.Errorf("create target schema: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", dsn); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach target schema", slog.Any("error", detachErr))
		}
	}, nil
}

func (db *Database) rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction", slog.Any("error", err))
	}
}

const userObjects = "name NOT LIKE 'sqlite_%'"

func (db *Database) diff(ctx context.Context, tx *sql.Tx) (schemaDiff, error) {
	var (
		d   schemaDiff
		err error
	)
	if d.newTables, err = queryStrings(ctx, tx, `SELECT target.sql
FROM schemaTarget.sqlite_schema AS target
WHERE target.type = 'table' AND target.`+userObjects+`
  AND target.name NOT IN (SELECT name FROM main.sqlite_schema WHERE type = 'table')`); err != nil {
		return d, fmt.Errorf("query new tables: %w", err)
	}
	if d.orphanTables, err = queryStrings(ctx, tx, `SELECT live.name
FROM main.sqlite_schema AS live
WHERE live.type = 'table' AND live.`+userObjects+`
  AND live.name NOT IN (SELECT name FROM schemaTarget.sqlite_schema WHERE type = 'table')`); err != nil {
		return d, fmt.Errorf("query orphan tables: %w", err)
	}

	var rows *sql.Rows
	// Renamed tables gain quotes around their name, which are not a schema change.
	if rows, err = tx.QueryContext(ctx, `SELECT live.name, live.sql, target.sql
FROM main.sqlite_schema AS live
JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE live.type = 'table' AND live.`+userObjects+`
  AND REPLACE(live.sql, '"', '') <> REPLACE(target.sql, '"', '')`); err != nil {
		return d, fmt.Errorf("query changed tables: %w", err)
	}
	for rows.Next() {
		var c tableChange
		if err = rows.Scan(&c.name, &c.liveSQL, &c.newSQL); err != nil {
			_ = rows.Close()
			return d, fmt.Errorf("scan changed table: %w", err)
		}
		d.rebuilt = append(d.rebuilt, c)
	}
	if err = errors.Join(rows.Err(), rows.Close()); err != nil {
		return d, fmt.Errorf("iterate changed tables: %w", err)
	}

	if d.staleEntities, err = queryEntities(ctx, tx, `SELECT live.type, live.name, ''
FROM main.sqlite_schema AS live
LEFT JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE live.type IN ('index', 'trigger') AND live.`+userObjects+`
  AND (target.sql IS NULL OR live.sql <> target.sql)`); err != nil {
		return d, fmt.Errorf("query stale entities: %w", err)
	}
	return d, nil
}

func (db *Database) apply(ctx context.Context, tx *sql.Tx, d schemaDiff) error {
	for _, orphan := range d.orphanTables {
		db.logger.LogAttrs(ctx, slog.LevelWarn, "keeping table missing from schema", slog.String("table", orphan))
	}
	for _, e := range d.staleEntities {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP %s %q", strings.ToUpper(e.typ), e.name)); err != nil {
			return fmt.Errorf("drop %s %s: %w", e.typ, e.name, err)
		}
	}
	for _, stmt := range d.newTables {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("query", stmt))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	for _, c := range d.rebuilt {
		if err := db.rebuildTable(ctx, tx, c); err != nil {
			return fmt.Errorf("rebuild %s: %w", c.name, err)
		}
	}
	// Queried only now since rebuilding a table drops its indexes and triggers.
	newEntities, err := queryEntities(ctx, tx, `SELECT target.type, target.name, target.sql
FROM schemaTarget.sqlite_schema AS target
LEFT JOIN main.sqlite_schema AS live ON live.name = target.name AND live.type = target.type
WHERE target.type IN ('index', 'trigger') AND target.`+userObjects+`
  AND live.sql IS NULL`)
	if err != nil {
		return fmt.Errorf("query new entities: %w", err)
	}
	for _, e := range newEntities {
		if _, err = tx.ExecContext(ctx, e.sql); err != nil {
			return fmt.Errorf("create %s %s: %w", e.typ, e.name, err)
		}
	}
	return nil
}

// rebuildTable copies a table into its new definition. Every live column must survive the change.
func (db *Database) rebuildTable(ctx context.Context, tx *sql.Tx, c tableChange) error {
	liveColumns, err := queryStrings(ctx, tx, "SELECT name FROM pragma_table_info(?, 'main')", c.name)
	if err != nil {
		return fmt.Errorf("query live columns: %w", err)
	}
	targetColumns, err := queryStrings(ctx, tx, "SELECT name FROM pragma_table_info(?, 'schemaTarget')", c.name)
	if err != nil {
		return fmt.Errorf("query target columns: %w", err)
	}
	for _, col := range liveColumns {
		if !slices.Contains(targetColumns, col) {
			return fmt.Errorf("%w: column %s.%s would be dropped", ErrDestructiveMigration, c.name, col)
		}
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "rebuilding table",
		slog.String("table", c.name),
		slog.String("liveSQL", c.liveSQL),
		slog.String("newSQL", c.newSQL))

	tmp := c.name + "_migration_tmp"
	quoted := make([]string, len(liveColumns))
	for i, col := range liveColumns {
		quoted[i] = fmt.Sprintf("%q", col)
	}
	columns := strings.Join(quoted, ", ")
	stmts := []string{
		strings.Replace(c.newSQL, c.name, tmp, 1),
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", tmp, columns, columns, c.name),
		fmt.Sprintf("DROP TABLE %s", c.name),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tmp, c.name),
	}
	for _, stmt := range stmts {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func queryStrings(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	var results []string
	for rows.Next() {
		var s string
		if err = rows.Scan(&s); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan: %w", err)
		}
		results = append(results, s)
	}
	if err = errors.Join(rows.Err(), rows.Close()); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return results, nil
}

func queryEntities(ctx context.Context, tx *sql.Tx, query string) ([]entity, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	var results []entity
	for rows.Next() {
		var e entity
		if err = rows.Scan(&e.typ, &e.name, &e.sql); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan: %w", err)
		}
		results = append(results, e)
	}
	if err = errors.Join(rows.Err(), rows.Close()); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return results, nil
}
