package periodization

import (
	"fmt"
	"math"
)

// Recommendation is the prescription for the upcoming session of an exercise.
type Recommendation struct {
	CycleNumber int `json:"cycleNumber"`
	WeekIndex   int `json:"weekIndex"`
	// WeekType is the week identifier, e.g. W1.
	WeekType  string `json:"weekType"`
	WeekLabel string `json:"weekLabel"`
	// BaseWeight is the effective base weight including an applied increment.
	BaseWeight     float64     `json:"baseWeight"`
	TargetWeight   float64     `json:"targetWeight"`
	TargetRepsMin  int         `json:"targetRepsMin"`
	TargetRepsMax  int         `json:"targetRepsMax"`
	TargetSets     int         `json:"targetSets"`
	ShouldProgress bool        `json:"shouldProgress"`
	Increment      float64     `json:"increment,omitempty"`
	ProgressInfo   string      `json:"progressInfo,omitempty"`
	LastTest       *TestResult `json:"lastTestResult,omitempty"`
}

// Engine produces recommendations from a fixed plan. It is immutable and safe for concurrent use.
type Engine struct {
	plan         Plan
	partialSetup bool
}

type Option func(*Engine)

// AllowPartialSetup relaxes the setup requirement to only a base weight. A missing cycle start date is
// treated as a fresh start and a missing equipment type uses the default increment.
func AllowPartialSetup() Option {
	return func(e *Engine) {
		e.partialSetup = true
	}
}

// New creates an engine for plan.
func New(plan Plan, opts ...Option) (*Engine, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	e := &Engine{plan: plan}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Plan returns the engine's plan.
func (e *Engine) Plan() Plan {
	return e.plan
}

// Recommend computes the prescription for the next session of exercise.
//
// It returns nil when periodization is not configured for the exercise. asOf is the caller's today in
// YYYY-MM-DD form and an empty asOf considers every session.
func (e *Engine) Recommend(exercise Exercise, sessions []Session, asOf string) *Recommendation {
	if !e.configured(exercise.Setup) {
		return nil
	}

	history := BuildHistory(sessions, exercise.ID, asOf)
	pos := e.plan.Locate(history, exercise.CycleStartDate)
	decision := e.plan.Evaluate(history, exercise.Setup, pos)

	base := *exercise.BaseWeight
	if decision.ShouldProgress && decision.Applied {
		base += decision.Increment
	}
	week := e.plan.Weeks[pos.WeekIndex]

	rec := &Recommendation{
		CycleNumber:    pos.CycleNumber,
		WeekIndex:      pos.WeekIndex,
		WeekType:       week.ID,
		WeekLabel:      week.Label,
		BaseWeight:     base,
		TargetWeight:   roundWeight(base * week.Multiplier),
		TargetRepsMin:  week.RepsMin,
		TargetRepsMax:  week.RepsMax,
		TargetSets:     week.Sets,
		ShouldProgress: decision.ShouldProgress,
		Increment:      decision.Increment,
		ProgressInfo:   decision.Info,
		LastTest:       decision.Test,
	}
	return rec
}

func (e *Engine) configured(setup Setup) bool {
	if e.partialSetup {
		return setup.HasBaseWeight()
	}
	return setup.Complete()
}

// roundWeight rounds to one decimal, halves away from zero.
func roundWeight(w float64) float64 {
	return math.Round(w*10) / 10 //nolint:mnd // one decimal
}

var defaultEngine = &Engine{plan: DefaultPlan()}

// Recommend computes a recommendation with the default plan and strict setup rules.
func Recommend(exercise Exercise, sessions []Session, asOf string) *Recommendation {
	return defaultEngine.Recommend(exercise, sessions, asOf)
}

// Increment returns the progression increment of the default plan for the equipment type.
func Increment(equipment EquipmentType) float64 {
	return defaultEngine.plan.Increment(equipment)
}

// Summary renders the prescription as e.g. "31.9kg × 8-12 下 × 4 組".
func Summary(rec Recommendation) string {
	reps := fmt.Sprint(rec.TargetRepsMin)
	if rec.TargetRepsMax != rec.TargetRepsMin {
		reps = fmt.Sprintf("%d-%d", rec.TargetRepsMin, rec.TargetRepsMax)
	}
	return fmt.Sprintf("%skg × %s 下 × %d 組", formatNumber(rec.TargetWeight), reps, rec.TargetSets)
}
