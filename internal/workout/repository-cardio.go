package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type sqliteCardioRepository struct {
	baseRepository
}

// List returns the cardio records of date, or all of them when date is empty.
func (r *sqliteCardioRepository) List(ctx context.Context, date string) (_ []CardioRecord, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT id, date, machine, duration, distance, kcal, heart_rate, speed, incline
		FROM cardio_records
		WHERE ?1 = '' OR date = ?1
		ORDER BY date, id`, date)
	if err != nil {
		return nil, fmt.Errorf("query cardio records: %w", err)
	}
	defer closeRows(rows, &err)

	var records []CardioRecord
	for rows.Next() {
		var (
			rec                                      CardioRecord
			distance, kcal, heartRate, speed, incline sql.NullFloat64
		)
		if err = rows.Scan(&rec.ID, &rec.Date, &rec.Machine, &rec.Duration,
			&distance, &kcal, &heartRate, &speed, &incline); err != nil {
			return nil, fmt.Errorf("scan cardio record: %w", err)
		}
		rec.Distance = floatPtr(distance)
		rec.Kcal = floatPtr(kcal)
		rec.HeartRate = floatPtr(heartRate)
		rec.Speed = floatPtr(speed)
		rec.Incline = floatPtr(incline)
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return records, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

// Create stores a cardio record.
func (r *sqliteCardioRepository) Create(ctx context.Context, rec CardioRecord) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return r.insert(ctx, tx, rec)
	})
}

func (r *sqliteCardioRepository) insert(ctx context.Context, tx *sql.Tx, rec CardioRecord) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cardio_records (id, date, machine, duration, distance, kcal, heart_rate, speed, incline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Date, rec.Machine, rec.Duration,
		nullFloat(rec.Distance), nullFloat(rec.Kcal), nullFloat(rec.HeartRate),
		nullFloat(rec.Speed), nullFloat(rec.Incline)); err != nil {
		return fmt.Errorf("insert cardio record: %w", err)
	}
	return nil
}

type sqliteBodyRepository struct {
	baseRepository
}

// Get returns the stored body data or [DefaultBodyData] when none is stored.
func (r *sqliteBodyRepository) Get(ctx context.Context) (BodyData, error) {
	var body BodyData
	err := r.db.ReadOnly.QueryRowContext(ctx, `SELECT weight_kg, height_cm, age FROM body_data WHERE id = 1`).
		Scan(&body.Weight, &body.Height, &body.Age)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultBodyData(), nil
	}
	if err != nil {
		return BodyData{}, fmt.Errorf("query body data: %w", err)
	}
	return body, nil
}

// Set stores the body data.
func (r *sqliteBodyRepository) Set(ctx context.Context, body BodyData) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return r.set(ctx, tx, body)
	})
}

func (r *sqliteBodyRepository) set(ctx context.Context, tx *sql.Tx, body BodyData) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO body_data (id, weight_kg, height_cm, age) VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			weight_kg = excluded.weight_kg,
			height_cm = excluded.height_cm,
			age = excluded.age`, body.Weight, body.Height, body.Age); err != nil {
		return fmt.Errorf("upsert body data: %w", err)
	}
	return nil
}
