package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/myrjola/fittracker/internal/periodization"
)

type sqliteExerciseRepository struct {
	baseRepository
}

const exerciseColumns = `id, name, category, usage_count, base_weight, equipment_type, cycle_start_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExercise(row rowScanner) (Exercise, error) {
	var (
		ex             Exercise
		baseWeight     sql.NullFloat64
		equipmentType  sql.NullString
		cycleStartDate sql.NullString
	)
	if err := row.Scan(&ex.ID, &ex.Name, &ex.Category, &ex.UsageCount,
		&baseWeight, &equipmentType, &cycleStartDate); err != nil {
		return Exercise{}, err //nolint:wrapcheck // wrapped by callers
	}
	if baseWeight.Valid {
		ex.BaseWeight = &baseWeight.Float64
	}
	ex.EquipmentType = periodization.EquipmentType(equipmentType.String)
	ex.CycleStartDate = cycleStartDate.String
	return ex, nil
}

// Get retrieves a single exercise by ID.
func (r *sqliteExerciseRepository) Get(ctx context.Context, id string) (Exercise, error) {
	ex, err := scanExercise(r.db.ReadOnly.QueryRowContext(ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Exercise{}, fmt.Errorf("exercise %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Exercise{}, fmt.Errorf("query exercise: %w", err)
	}
	return ex, nil
}

// List returns the exercises of category, or all of them when category is empty, most used first.
func (r *sqliteExerciseRepository) List(ctx context.Context, category Category) (_ []Exercise, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT `+exerciseColumns+`
		FROM exercises
		WHERE ?1 = '' OR category = ?1
		ORDER BY usage_count DESC, created_at, LENGTH(id), id`, string(category))
	if err != nil {
		return nil, fmt.Errorf("query exercises: %w", err)
	}
	defer closeRows(rows, &err)

	var exercises []Exercise
	for rows.Next() {
		var ex Exercise
		if ex, err = scanExercise(rows); err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		exercises = append(exercises, ex)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return exercises, nil
}

// Create stores a new exercise.
func (r *sqliteExerciseRepository) Create(ctx context.Context, ex Exercise) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return r.insert(ctx, tx, ex)
	})
}

func (r *sqliteExerciseRepository) insert(ctx context.Context, tx *sql.Tx, ex Exercise) error {
	baseWeight, equipmentType, cycleStartDate := setupColumns(ex.Setup)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO exercises (id, name, category, usage_count, base_weight, equipment_type, cycle_start_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ex.ID, ex.Name, string(ex.Category), ex.UsageCount, baseWeight, equipmentType, cycleStartDate)
	if err != nil {
		return fmt.Errorf("insert exercise: %w", err)
	}
	return nil
}

func setupColumns(setup periodization.Setup) (sql.NullFloat64, sql.NullString, sql.NullString) {
	var baseWeight sql.NullFloat64
	if setup.BaseWeight != nil {
		baseWeight = sql.NullFloat64{Float64: *setup.BaseWeight, Valid: true}
	}
	return baseWeight,
		sql.NullString{String: string(setup.EquipmentType), Valid: setup.EquipmentType != ""},
		sql.NullString{String: setup.CycleStartDate, Valid: setup.CycleStartDate != ""}
}

// Delete removes an exercise together with its sessions.
func (r *sqliteExerciseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ReadWrite.ExecContext(ctx, `DELETE FROM exercises WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete exercise: %w", err)
	}
	return requireAffected(res, "exercise "+id)
}

// UpdateSetup overwrites the periodization setup of an exercise.
func (r *sqliteExerciseRepository) UpdateSetup(ctx context.Context, id string, setup periodization.Setup) error {
	baseWeight, equipmentType, cycleStartDate := setupColumns(setup)
	res, err := r.db.ReadWrite.ExecContext(ctx, `
		UPDATE exercises
		SET base_weight = ?, equipment_type = ?, cycle_start_date = ?
		WHERE id = ?`, baseWeight, equipmentType, cycleStartDate, id)
	if err != nil {
		return fmt.Errorf("update setup: %w", err)
	}
	return requireAffected(res, "exercise "+id)
}

// Advance records a cycle transition and stores the new setup. It returns false when the exercise was
// already advanced on date.
func (r *sqliteExerciseRepository) Advance(
	ctx context.Context,
	id string,
	date string,
	from float64,
	setup periodization.Setup,
) (bool, error) {
	advanced := false
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO cycle_advances (exercise_id, date, from_weight, to_weight)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (exercise_id, date) DO NOTHING`, id, date, from, *setup.BaseWeight)
		if err != nil {
			return fmt.Errorf("insert cycle advance: %w", err)
		}
		var n int64
		if n, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return nil
		}
		baseWeight, equipmentType, cycleStartDate := setupColumns(setup)
		if _, err = tx.ExecContext(ctx, `
			UPDATE exercises
			SET base_weight = ?, equipment_type = ?, cycle_start_date = ?
			WHERE id = ?`, baseWeight, equipmentType, cycleStartDate, id); err != nil {
			return fmt.Errorf("update setup: %w", err)
		}
		advanced = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return advanced, nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
