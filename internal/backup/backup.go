// Package backup exports and restores the complete training data as a JSON document.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/myrjola/fittracker/internal/errors"
	"github.com/myrjola/fittracker/internal/workout"
	"golang.org/x/sync/errgroup"
)

// Version is the only backup format version.
const Version = 1

var (
	// ErrMissingFields is returned when a backup lacks one of the data collections.
	ErrMissingFields = errors.NewSentinel("檔案格式不正確，缺少必要欄位。")
	// ErrUnsupportedVersion is returned for backups written by a newer format.
	ErrUnsupportedVersion = errors.NewSentinel("unsupported backup version")
)

// Backup is the exported training data.
type Backup struct {
	Version        int                     `json:"version"`
	ExportedAt     string                  `json:"exportedAt"`
	BodyData       workout.BodyData        `json:"bodyData"`
	Exercises      []workout.Exercise      `json:"exercises"`
	WeightSessions []workout.WeightSession `json:"weightSessions"`
	CardioRecords  []workout.CardioRecord  `json:"cardioRecords"`
}

// Store is the data source and sink of a backup.
type Store interface {
	BodyData(ctx context.Context) (workout.BodyData, error)
	ListExercises(ctx context.Context, category workout.Category) ([]workout.Exercise, error)
	AllSessions(ctx context.Context) ([]workout.WeightSession, error)
	CardioRecords(ctx context.Context, date string) ([]workout.CardioRecord, error)
	ReplaceAll(ctx context.Context, data workout.Dataset) error
}

// FileName is the name a backup exported on date is saved under.
func FileName(date string) string {
	return fmt.Sprintf("fittracker-backup-%s.json", date)
}

// Export loads all training data from store.
func Export(ctx context.Context, store Store, now time.Time) (Backup, error) {
	b := Backup{
		Version:        Version,
		ExportedAt:     now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		BodyData:       workout.BodyData{},
		Exercises:      []workout.Exercise{},
		WeightSessions: []workout.WeightSession{},
		CardioRecords:  []workout.CardioRecord{},
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		body, err := store.BodyData(ctx)
		if err != nil {
			return fmt.Errorf("load body data: %w", err)
		}
		b.BodyData = body
		return nil
	})
	g.Go(func() error {
		exercises, err := store.ListExercises(ctx, "")
		if err != nil {
			return fmt.Errorf("load exercises: %w", err)
		}
		if exercises != nil {
			b.Exercises = exercises
		}
		return nil
	})
	g.Go(func() error {
		sessions, err := store.AllSessions(ctx)
		if err != nil {
			return fmt.Errorf("load weight sessions: %w", err)
		}
		if sessions != nil {
			b.WeightSessions = sessions
		}
		return nil
	})
	g.Go(func() error {
		records, err := store.CardioRecords(ctx, "")
		if err != nil {
			return fmt.Errorf("load cardio records: %w", err)
		}
		if records != nil {
			b.CardioRecords = records
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Backup{}, err //nolint:wrapcheck // wrapped in the goroutines
	}
	return b, nil
}

// Write encodes b as indented JSON.
func Write(w io.Writer, b Backup) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// Read decodes and validates a backup.
func Read(r io.Reader) (Backup, error) {
	var raw struct {
		Version        int                      `json:"version"`
		ExportedAt     string                   `json:"exportedAt"`
		BodyData       *workout.BodyData        `json:"bodyData"`
		Exercises      *[]workout.Exercise      `json:"exercises"`
		WeightSessions *[]workout.WeightSession `json:"weightSessions"`
		CardioRecords  *[]workout.CardioRecord  `json:"cardioRecords"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Backup{}, fmt.Errorf("decode backup: %w", err)
	}
	if raw.BodyData == nil || raw.Exercises == nil || raw.WeightSessions == nil || raw.CardioRecords == nil {
		return Backup{}, ErrMissingFields
	}
	if raw.Version > Version {
		return Backup{}, errors.Wrap(ErrUnsupportedVersion, "read backup", slog.Int("version", raw.Version))
	}
	return Backup{
		Version:        Version,
		ExportedAt:     raw.ExportedAt,
		BodyData:       *raw.BodyData,
		Exercises:      *raw.Exercises,
		WeightSessions: *raw.WeightSessions,
		CardioRecords:  *raw.CardioRecords,
	}, nil
}

// Import replaces all stored data with the backup.
func Import(ctx context.Context, store Store, b Backup) error {
	if err := store.ReplaceAll(ctx, workout.Dataset{
		BodyData:       b.BodyData,
		Exercises:      b.Exercises,
		WeightSessions: b.WeightSessions,
		CardioRecords:  b.CardioRecords,
	}); err != nil {
		return fmt.Errorf("import backup: %w", err)
	}
	return nil
}
