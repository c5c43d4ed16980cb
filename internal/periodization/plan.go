// Package periodization computes periodized training prescriptions from an exercise's setup and its
// logged sessions.
//
// Everything is re-derived on every call from the plan, the setup and the session history. Nothing in
// this package reads the clock, performs I/O or mutates its inputs.
package periodization

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EquipmentType determines the progression increment of an exercise.
type EquipmentType string

const (
	EquipmentUnspecified EquipmentType = ""
	EquipmentBarbell     EquipmentType = "barbell"
	EquipmentDumbbell    EquipmentType = "dumbbell"
	EquipmentMachine     EquipmentType = "machine"
)

// EquipmentTypes lists the configurable equipment types.
func EquipmentTypes() []EquipmentType {
	return []EquipmentType{EquipmentBarbell, EquipmentDumbbell, EquipmentMachine}
}

// IsValid reports whether e is one of the configurable equipment types.
func (e EquipmentType) IsValid() bool {
	switch e {
	case EquipmentBarbell, EquipmentDumbbell, EquipmentMachine:
		return true
	default:
		return false
	}
}

// Increment defaults in kilograms.
const (
	IncrementBarbell  = 5.0
	IncrementDumbbell = 2.5
	IncrementMachine  = 2.5
)

// Week is one position in the repeating cycle.
type Week struct {
	// ID is the short identifier shown to the user, e.g. W1.
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	// Multiplier is applied to the base weight.
	Multiplier float64 `yaml:"multiplier"`
	RepsMin    int     `yaml:"reps_min"`
	RepsMax    int     `yaml:"reps_max"`
	Sets       int     `yaml:"sets"`
}

// Plan is the week-configuration table together with the progression rule.
type Plan struct {
	Name  string `yaml:"name"`
	Weeks []Week `yaml:"weeks"`
	// TestingWeek is the 0-based ordinal of the week that gauges readiness for a load increase.
	TestingWeek int `yaml:"testing_week"`
	// RepThreshold is the max reps in the testing week that triggers progression.
	RepThreshold     int                       `yaml:"rep_threshold"`
	Increments       map[EquipmentType]float64 `yaml:"increments"`
	DefaultIncrement float64                   `yaml:"default_increment"`
}

func defaultIncrements() map[EquipmentType]float64 {
	return map[EquipmentType]float64{
		EquipmentBarbell:  IncrementBarbell,
		EquipmentDumbbell: IncrementDumbbell,
		EquipmentMachine:  IncrementMachine,
	}
}

// DefaultPlan returns the current three week plan where the second week is the testing week.
func DefaultPlan() Plan {
	return Plan{
		Name: "3-week",
		Weeks: []Week{
			{ID: "W1", Label: "肌肥大", Multiplier: 0.75, RepsMin: 8, RepsMax: 12, Sets: 4},
			{ID: "W2", Label: "神經適應", Multiplier: 1.0, RepsMin: 4, RepsMax: 6, Sets: 4},
			{ID: "W3", Label: "減量週", Multiplier: 0.5, RepsMin: 8, RepsMax: 10, Sets: 2},
		},
		TestingWeek:      1,
		RepThreshold:     6, //nolint:mnd // plan table
		Increments:       defaultIncrements(),
		DefaultIncrement: IncrementDumbbell,
	}
}

// FourWeekPlan returns the previous revision of the plan that opened every cycle with the testing week.
func FourWeekPlan() Plan {
	return Plan{
		Name: "4-week",
		Weeks: []Week{
			{ID: "W1", Label: "神經適應", Multiplier: 1.0, RepsMin: 4, RepsMax: 6, Sets: 4},
			{ID: "W2", Label: "肌肥大", Multiplier: 0.8, RepsMin: 10, RepsMax: 12, Sets: 4},
			{ID: "W3", Label: "耐力週", Multiplier: 0.75, RepsMin: 15, RepsMax: 15, Sets: 3},
			{ID: "W4", Label: "減量週", Multiplier: 0.5, RepsMin: 10, RepsMax: 10, Sets: 2},
		},
		TestingWeek:      0,
		RepThreshold:     8, //nolint:mnd // plan table
		Increments:       defaultIncrements(),
		DefaultIncrement: IncrementDumbbell,
	}
}

// CycleLength is the number of weeks in one cycle.
func (p Plan) CycleLength() int {
	return len(p.Weeks)
}

// Increment returns the progression increment for the equipment type. Unknown and unspecified types
// fall back to the default increment.
func (p Plan) Increment(equipment EquipmentType) float64 {
	if inc, ok := p.Increments[equipment]; ok {
		return inc
	}
	return p.DefaultIncrement
}

var ErrInvalidPlan = errors.New("invalid plan")

// Validate checks that the plan can drive the engine.
func (p Plan) Validate() error {
	if len(p.Weeks) == 0 {
		return fmt.Errorf("%w: no weeks", ErrInvalidPlan)
	}
	if p.TestingWeek < 0 || p.TestingWeek >= len(p.Weeks) {
		return fmt.Errorf("%w: testing week %d outside cycle of %d weeks", ErrInvalidPlan, p.TestingWeek, len(p.Weeks))
	}
	if p.RepThreshold <= 0 {
		return fmt.Errorf("%w: rep threshold must be positive", ErrInvalidPlan)
	}
	if p.DefaultIncrement < 0 {
		return fmt.Errorf("%w: negative default increment", ErrInvalidPlan)
	}
	var errs []error
	for i, w := range p.Weeks {
		if w.ID == "" {
			errs = append(errs, fmt.Errorf("%w: week %d has no id", ErrInvalidPlan, i))
		}
		if w.Multiplier <= 0 {
			errs = append(errs, fmt.Errorf("%w: week %s multiplier must be positive", ErrInvalidPlan, w.ID))
		}
		if w.RepsMin < 1 || w.RepsMin > w.RepsMax {
			errs = append(errs, fmt.Errorf("%w: week %s rep range %d-%d", ErrInvalidPlan, w.ID, w.RepsMin, w.RepsMax))
		}
		if w.Sets < 1 {
			errs = append(errs, fmt.Errorf("%w: week %s must have at least one set", ErrInvalidPlan, w.ID))
		}
	}
	for equipment, inc := range p.Increments {
		if inc < 0 {
			errs = append(errs, fmt.Errorf("%w: negative increment for %q", ErrInvalidPlan, equipment))
		}
	}
	return errors.Join(errs...)
}

// ParsePlan decodes a YAML plan. Increments missing from the document keep the built-in defaults.
func ParsePlan(data []byte) (Plan, error) {
	plan := Plan{
		Increments:       defaultIncrements(),
		DefaultIncrement: IncrementDumbbell,
	}
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return Plan{}, fmt.Errorf("unmarshal plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return Plan{}, fmt.Errorf("validate plan: %w", err)
	}
	return plan, nil
}

// LoadPlan reads a YAML plan from path.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan file: %w", err)
	}
	plan, err := ParsePlan(data)
	if err != nil {
		return Plan{}, fmt.Errorf("parse plan %s: %w", path, err)
	}
	return plan, nil
}

// LoadEngine creates an engine for the plan at path, or for the default plan when path is empty.
// partialSetup applies [AllowPartialSetup].
func LoadEngine(path string, partialSetup bool) (*Engine, error) {
	plan := DefaultPlan()
	if path != "" {
		var err error
		if plan, err = LoadPlan(path); err != nil {
			return nil, err
		}
	}
	var opts []Option
	if partialSetup {
		opts = append(opts, AllowPartialSetup())
	}
	return New(plan, opts...)
}
