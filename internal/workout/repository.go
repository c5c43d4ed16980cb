package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/myrjola/fittracker/internal/sqlite"
)

// repository groups the SQLite repositories of the workout domain.
type repository struct {
	exercises *sqliteExerciseRepository
	sessions  *sqliteSessionRepository
	cardio    *sqliteCardioRepository
	body      *sqliteBodyRepository
	base      baseRepository
}

func newRepository(db *sqlite.Database, logger *slog.Logger) *repository {
	base := baseRepository{db: db, logger: logger}
	return &repository{
		exercises: &sqliteExerciseRepository{baseRepository: base},
		sessions:  &sqliteSessionRepository{baseRepository: base},
		cardio:    &sqliteCardioRepository{baseRepository: base},
		body:      &sqliteBodyRepository{baseRepository: base},
		base:      base,
	}
}

type baseRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

// inTx runs fn in a read-write transaction that is committed when fn succeeds.
func (r baseRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// closeRows closes rows and joins a close error into err.
func closeRows(rows *sql.Rows, err *error) {
	if closeErr := rows.Close(); closeErr != nil {
		*err = errors.Join(*err, fmt.Errorf("close rows: %w", closeErr))
	}
}

// Dataset is the complete training data of the user.
type Dataset struct {
	BodyData       BodyData
	Exercises      []Exercise
	WeightSessions []WeightSession
	CardioRecords  []CardioRecord
}

// replaceAll swaps every stored record for the dataset in one transaction.
func (r *repository) replaceAll(ctx context.Context, data Dataset) error {
	return r.base.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"cycle_advances", "sets", "weight_sessions", "cardio_records", "exercises"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		for _, ex := range data.Exercises {
			if err := r.exercises.insert(ctx, tx, ex); err != nil {
				return fmt.Errorf("insert exercise %s: %w", ex.ID, err)
			}
		}
		for i, sess := range data.WeightSessions {
			if err := r.sessions.insert(ctx, tx, sess, i); err != nil {
				return fmt.Errorf("insert session %s: %w", sess.ID, err)
			}
		}
		for _, rec := range data.CardioRecords {
			if err := r.cardio.insert(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert cardio record %s: %w", rec.ID, err)
			}
		}
		if err := r.body.set(ctx, tx, data.BodyData); err != nil {
			return fmt.Errorf("set body data: %w", err)
		}
		return nil
	})
}
