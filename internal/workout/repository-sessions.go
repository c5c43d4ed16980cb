package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type sqliteSessionRepository struct {
	baseRepository
}

// sessionFilter narrows a session listing. Empty fields do not filter.
type sessionFilter struct {
	exerciseID string
	date       string
}

// List returns sessions in date order. Sessions sharing a date keep the order they were recorded in.
func (r *sqliteSessionRepository) List(ctx context.Context, filter sessionFilter) (_ []WeightSession, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT ws.id, ws.exercise_id, ws.date, s.weight_kg, s.reps, s.completed_at, s.rpe
		FROM weight_sessions ws
		LEFT JOIN sets s ON s.session_id = ws.id
		WHERE (?1 = '' OR ws.exercise_id = ?1)
		  AND (?2 = '' OR ws.date = ?2)
		ORDER BY ws.date, ws.position, ws.id, s.set_number`, filter.exerciseID, filter.date)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer closeRows(rows, &err)

	var sessions []WeightSession
	for rows.Next() {
		var (
			id, exerciseID, date string
			weight               sql.NullFloat64
			reps                 sql.NullInt64
			completedAt          sql.NullInt64
			rpe                  sql.NullInt64
		)
		if err = rows.Scan(&id, &exerciseID, &date, &weight, &reps, &completedAt, &rpe); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if len(sessions) == 0 || sessions[len(sessions)-1].ID != id {
			sessions = append(sessions, WeightSession{ID: id, Date: date, ExerciseID: exerciseID, Sets: []SetRecord{}})
		}
		if !weight.Valid {
			continue
		}
		set := SetRecord{
			Weight:    weight.Float64,
			Reps:      int(reps.Int64),
			Timestamp: completedAt.Int64,
			RPE:       nil,
		}
		if rpe.Valid {
			v := int(rpe.Int64)
			set.RPE = &v
		}
		current := &sessions[len(sessions)-1]
		current.Sets = append(current.Sets, set)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return sessions, nil
}

// AppendSet adds a set to the first session of the exercise on date, creating the session when needed, and
// bumps the exercise usage count.
func (r *sqliteSessionRepository) AppendSet(ctx context.Context, exerciseID, date string, set SetRecord) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE exercises SET usage_count = usage_count + 1 WHERE id = ?`, exerciseID)
		if err != nil {
			return fmt.Errorf("bump usage count: %w", err)
		}
		if err = requireAffected(res, "exercise "+exerciseID); err != nil {
			return err
		}

		sessionID, err := firstSessionID(ctx, tx, exerciseID, date)
		if errors.Is(err, sql.ErrNoRows) {
			sessionID = uuid.NewString()
			_, err = tx.ExecContext(ctx, `
				INSERT INTO weight_sessions (id, exercise_id, date, position)
				VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM weight_sessions))`,
				sessionID, exerciseID, date)
			if err != nil {
				return fmt.Errorf("insert session: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("query session: %w", err)
		}

		if _, err = tx.ExecContext(ctx, `
			INSERT INTO sets (session_id, set_number, weight_kg, reps, completed_at, rpe)
			VALUES (?, (SELECT COUNT(*) FROM sets WHERE session_id = ?), ?, ?, ?, ?)`,
			sessionID, sessionID, set.Weight, set.Reps, set.Timestamp, nullInt(set.RPE)); err != nil {
			return fmt.Errorf("insert set: %w", err)
		}
		return nil
	})
}

func firstSessionID(ctx context.Context, tx *sql.Tx, exerciseID, date string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM weight_sessions
		WHERE exercise_id = ? AND date = ?
		ORDER BY position, id
		LIMIT 1`, exerciseID, date).Scan(&id)
	return id, err //nolint:wrapcheck // callers check for sql.ErrNoRows
}

// RateLastSet sets the RPE of the last set of every session the exercise has on date.
func (r *sqliteSessionRepository) RateLastSet(ctx context.Context, exerciseID, date string, rpe int) error {
	res, err := r.db.ReadWrite.ExecContext(ctx, `
		UPDATE sets SET rpe = ?
		WHERE (session_id, set_number) IN (
			SELECT s.session_id, MAX(s.set_number)
			FROM sets s
			JOIN weight_sessions ws ON ws.id = s.session_id
			WHERE ws.exercise_id = ? AND ws.date = ?
			GROUP BY s.session_id)`, rpe, exerciseID, date)
	if err != nil {
		return fmt.Errorf("rate last set: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("set of exercise %s on %s", exerciseID, date))
}

// DeleteSet removes the set at index of the first session of the exercise on date and renumbers the rest.
// A session left without sets is removed.
func (r *sqliteSessionRepository) DeleteSet(ctx context.Context, exerciseID, date string, index int) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		sessionID, err := firstSessionID(ctx, tx, exerciseID, date)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("session of exercise %s on %s: %w", exerciseID, date, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("query session: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM sets WHERE session_id = ? AND set_number = ?`, sessionID, index)
		if err != nil {
			return fmt.Errorf("delete set: %w", err)
		}
		if err = requireAffected(res, fmt.Sprintf("set %d", index)); err != nil {
			return err
		}
		// Shift through negative numbers to keep the primary key unique while renumbering.
		if _, err = tx.ExecContext(ctx, `
			UPDATE sets SET set_number = -set_number WHERE session_id = ? AND set_number > ?`,
			sessionID, index); err != nil {
			return fmt.Errorf("renumber sets: %w", err)
		}
		if _, err = tx.ExecContext(ctx, `
			UPDATE sets SET set_number = -set_number - 1 WHERE session_id = ? AND set_number < 0`,
			sessionID); err != nil {
			return fmt.Errorf("renumber sets: %w", err)
		}
		if _, err = tx.ExecContext(ctx, `
			DELETE FROM weight_sessions
			WHERE id = ? AND NOT EXISTS (SELECT 1 FROM sets WHERE session_id = ?)`,
			sessionID, sessionID); err != nil {
			return fmt.Errorf("delete empty session: %w", err)
		}
		return nil
	})
}

func (r *sqliteSessionRepository) insert(ctx context.Context, tx *sql.Tx, sess WeightSession, position int) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO weight_sessions (id, exercise_id, date, position) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.ExerciseID, sess.Date, position); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	for i, set := range sess.Sets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sets (session_id, set_number, weight_kg, reps, completed_at, rpe)
			VALUES (?, ?, ?, ?, ?, ?)`,
			sess.ID, i, set.Weight, set.Reps, set.Timestamp, nullInt(set.RPE)); err != nil {
			return fmt.Errorf("insert set %d: %w", i, err)
		}
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
