package workout

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/fittracker/internal/periodization"
	"github.com/myrjola/fittracker/internal/sqlite"
)

const dateFormat = time.DateOnly

// Service handles exercise logging and periodized coaching.
type Service struct {
	repo   *repository
	logger *slog.Logger
	engine *periodization.Engine
}

// NewService creates a new workout service that recommends with engine.
func NewService(db *sqlite.Database, logger *slog.Logger, engine *periodization.Engine) *Service {
	return &Service{
		repo:   newRepository(db, logger),
		logger: logger,
		engine: engine,
	}
}

// Plan returns the week configuration the service recommends with.
func (s *Service) Plan() periodization.Plan {
	return s.engine.Plan()
}

func validateDate(date string) error {
	if _, err := time.Parse(dateFormat, date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidInput, date)
	}
	return nil
}

// ListExercises returns the exercises of category, or all when category is empty, most used first.
func (s *Service) ListExercises(ctx context.Context, category Category) ([]Exercise, error) {
	if category != "" && !category.IsValid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
	}
	exercises, err := s.repo.exercises.List(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	return exercises, nil
}

// GetExercise retrieves an exercise by ID.
func (s *Service) GetExercise(ctx context.Context, id string) (Exercise, error) {
	ex, err := s.repo.exercises.Get(ctx, id)
	if err != nil {
		return Exercise{}, fmt.Errorf("get exercise: %w", err)
	}
	return ex, nil
}

// CreateExercise adds a custom exercise.
func (s *Service) CreateExercise(ctx context.Context, name string, category Category) (Exercise, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Exercise{}, fmt.Errorf("%w: exercise name is required", ErrInvalidInput)
	}
	if !category.IsValid() {
		return Exercise{}, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
	}
	ex := Exercise{
		ID:         uuid.NewString(),
		Name:       name,
		Category:   category,
		UsageCount: 0,
		Setup:      periodization.Setup{BaseWeight: nil, EquipmentType: "", CycleStartDate: ""},
	}
	if err := s.repo.exercises.Create(ctx, ex); err != nil {
		return Exercise{}, fmt.Errorf("create exercise: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "created exercise",
		slog.String("id", ex.ID), slog.String("name", ex.Name))
	return ex, nil
}

// DeleteExercise removes an exercise and its sessions.
func (s *Service) DeleteExercise(ctx context.Context, id string) error {
	if err := s.repo.exercises.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete exercise: %w", err)
	}
	return nil
}

// ConfigurePeriodization enables coaching for an exercise. The cycle restarts from today.
func (s *Service) ConfigurePeriodization(
	ctx context.Context,
	id string,
	baseWeight float64,
	equipment periodization.EquipmentType,
	today string,
) (Exercise, error) {
	if baseWeight <= 0 {
		return Exercise{}, fmt.Errorf("%w: base weight must be positive", ErrInvalidInput)
	}
	if !equipment.IsValid() {
		return Exercise{}, fmt.Errorf("%w: unknown equipment type %q", ErrInvalidInput, equipment)
	}
	if err := validateDate(today); err != nil {
		return Exercise{}, err
	}
	setup := periodization.Setup{BaseWeight: &baseWeight, EquipmentType: equipment, CycleStartDate: today}
	if err := s.repo.exercises.UpdateSetup(ctx, id, setup); err != nil {
		return Exercise{}, fmt.Errorf("configure periodization: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "configured periodization",
		slog.String("id", id),
		slog.Float64("baseWeight", baseWeight),
		slog.String("equipment", string(equipment)),
		slog.String("cycleStartDate", today))
	return s.GetExercise(ctx, id)
}

// ClearPeriodization disables coaching for an exercise.
func (s *Service) ClearPeriodization(ctx context.Context, id string) error {
	if err := s.repo.exercises.UpdateSetup(ctx, id, periodization.Setup{}); err != nil {
		return fmt.Errorf("clear periodization: %w", err)
	}
	return nil
}

// LogSet records a completed set of an exercise on date.
func (s *Service) LogSet(
	ctx context.Context,
	exerciseID string,
	date string,
	weight float64,
	reps int,
	rpe *int,
	at time.Time,
) error {
	if err := validateDate(date); err != nil {
		return err
	}
	if weight < 0 || reps < 0 {
		return fmt.Errorf("%w: weight and reps must not be negative", ErrInvalidInput)
	}
	if rpe != nil && (*rpe < 1 || *rpe > 10) {
		return fmt.Errorf("%w: rpe must be between 1 and 10", ErrInvalidInput)
	}
	set := SetRecord{Weight: weight, Reps: reps, Timestamp: at.UnixMilli(), RPE: rpe}
	if err := s.repo.sessions.AppendSet(ctx, exerciseID, date, set); err != nil {
		return fmt.Errorf("log set: %w", err)
	}
	return nil
}

// RateLastSet stores the perceived exertion on the last set of each of the exercise's sessions on date.
func (s *Service) RateLastSet(ctx context.Context, exerciseID, date string, rpe int) error {
	if rpe < 1 || rpe > 10 {
		return fmt.Errorf("%w: rpe must be between 1 and 10", ErrInvalidInput)
	}
	if err := s.repo.sessions.RateLastSet(ctx, exerciseID, date, rpe); err != nil {
		return fmt.Errorf("rate last set: %w", err)
	}
	return nil
}

// DeleteSet removes the set at the 0-based index from the exercise's session on date.
func (s *Service) DeleteSet(ctx context.Context, exerciseID, date string, index int) error {
	if err := s.repo.sessions.DeleteSet(ctx, exerciseID, date, index); err != nil {
		return fmt.Errorf("delete set: %w", err)
	}
	return nil
}

// Sessions returns the sessions of an exercise in date order.
func (s *Service) Sessions(ctx context.Context, exerciseID string) ([]WeightSession, error) {
	sessions, err := s.repo.sessions.List(ctx, sessionFilter{exerciseID: exerciseID, date: ""})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// AllSessions returns every weight session in date order.
func (s *Service) AllSessions(ctx context.Context) ([]WeightSession, error) {
	return s.Sessions(ctx, "")
}

// RecentSessions returns up to n sessions of an exercise, newest first.
func (s *Service) RecentSessions(ctx context.Context, exerciseID string, n int) ([]WeightSession, error) {
	sessions, err := s.Sessions(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	slices.Reverse(sessions)
	if n >= 0 && len(sessions) > n {
		sessions = sessions[:n]
	}
	return sessions, nil
}

// Recommend computes the prescription for the next session of an exercise as of today. It returns nil
// when periodization is not configured for the exercise.
func (s *Service) Recommend(ctx context.Context, exerciseID, today string) (*periodization.Recommendation, error) {
	if today != "" {
		if err := validateDate(today); err != nil {
			return nil, err
		}
	}
	ex, err := s.repo.exercises.Get(ctx, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("get exercise: %w", err)
	}
	sessions, err := s.Sessions(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	return s.engine.Recommend(ex.engineInput(), sessions, today), nil
}

// AdvanceCycle persists a progression that takes effect today: the incremented base weight is stored and
// the cycle restarts from today. It reports whether the exercise advanced.
func (s *Service) AdvanceCycle(ctx context.Context, exerciseID, today string) (bool, error) {
	if err := validateDate(today); err != nil {
		return false, err
	}
	ex, err := s.repo.exercises.Get(ctx, exerciseID)
	if err != nil {
		return false, fmt.Errorf("get exercise: %w", err)
	}
	sessions, err := s.Sessions(ctx, exerciseID)
	if err != nil {
		return false, err
	}
	rec := s.engine.Recommend(ex.engineInput(), sessions, today)
	if rec == nil {
		return false, fmt.Errorf("%w: periodization is not configured for exercise %s", ErrInvalidInput, exerciseID)
	}
	if rec.WeekIndex != 0 || !rec.ShouldProgress {
		return false, nil
	}

	from := *ex.BaseWeight
	setup := ex.Setup
	setup.BaseWeight = &rec.BaseWeight
	setup.CycleStartDate = today
	advanced, err := s.repo.exercises.Advance(ctx, exerciseID, today, from, setup)
	if err != nil {
		return false, fmt.Errorf("advance cycle: %w", err)
	}
	if advanced {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "advanced cycle",
			slog.String("exerciseID", exerciseID),
			slog.Float64("from", from),
			slog.Float64("to", rec.BaseWeight),
			slog.String("date", today))
	}
	return advanced, nil
}

// LogCardio stores a cardio record. A missing ID is generated.
func (s *Service) LogCardio(ctx context.Context, rec CardioRecord) (CardioRecord, error) {
	if err := validateDate(rec.Date); err != nil {
		return CardioRecord{}, err
	}
	rec.Machine = strings.TrimSpace(rec.Machine)
	if rec.Machine == "" {
		return CardioRecord{}, fmt.Errorf("%w: machine is required", ErrInvalidInput)
	}
	if rec.Duration < 0 {
		return CardioRecord{}, fmt.Errorf("%w: duration must not be negative", ErrInvalidInput)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := s.repo.cardio.Create(ctx, rec); err != nil {
		return CardioRecord{}, fmt.Errorf("log cardio: %w", err)
	}
	return rec, nil
}

// CardioRecords returns the cardio records of date, or all of them when date is empty.
func (s *Service) CardioRecords(ctx context.Context, date string) ([]CardioRecord, error) {
	records, err := s.repo.cardio.List(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list cardio records: %w", err)
	}
	return records, nil
}

// BodyData returns the user's body data.
func (s *Service) BodyData(ctx context.Context) (BodyData, error) {
	body, err := s.repo.body.Get(ctx)
	if err != nil {
		return BodyData{}, fmt.Errorf("get body data: %w", err)
	}
	return body, nil
}

// SaveBodyData stores the user's body data.
func (s *Service) SaveBodyData(ctx context.Context, body BodyData) error {
	if body.Weight <= 0 || body.Height <= 0 || body.Age <= 0 {
		return fmt.Errorf("%w: weight, height and age must be positive", ErrInvalidInput)
	}
	if err := s.repo.body.Set(ctx, body); err != nil {
		return fmt.Errorf("save body data: %w", err)
	}
	return nil
}

// DailyStats summarizes the training of date.
func (s *Service) DailyStats(ctx context.Context, date string) (DailySummary, error) {
	if err := validateDate(date); err != nil {
		return DailySummary{}, err
	}
	sessions, err := s.repo.sessions.List(ctx, sessionFilter{exerciseID: "", date: date})
	if err != nil {
		return DailySummary{}, fmt.Errorf("list sessions: %w", err)
	}
	cardio, err := s.CardioRecords(ctx, date)
	if err != nil {
		return DailySummary{}, err
	}
	body, err := s.BodyData(ctx)
	if err != nil {
		return DailySummary{}, err
	}
	return Summarize(sessions, cardio, body, date), nil
}

// ReplaceAll swaps all stored data for data, e.g. when restoring a backup.
func (s *Service) ReplaceAll(ctx context.Context, data Dataset) error {
	if err := s.repo.replaceAll(ctx, data); err != nil {
		return fmt.Errorf("replace all: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "replaced all data",
		slog.Int("exercises", len(data.Exercises)),
		slog.Int("weightSessions", len(data.WeightSessions)),
		slog.Int("cardioRecords", len(data.CardioRecords)))
	return nil
}
