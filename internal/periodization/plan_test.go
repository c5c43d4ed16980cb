package periodization_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/fittracker/internal/periodization"
	"github.com/myrjola/fittracker/internal/ptr"
)

const fourWeekYAML = `
name: 4-week
testing_week: 0
rep_threshold: 8
increments:
  barbell: 5
weeks:
  - {id: W1, label: 神經適應, multiplier: 1.0, reps_min: 4, reps_max: 6, sets: 4}
  - {id: W2, label: 肌肥大, multiplier: 0.8, reps_min: 10, reps_max: 12, sets: 4}
  - {id: W3, label: 耐力週, multiplier: 0.75, reps_min: 15, reps_max: 15, sets: 3}
  - {id: W4, label: 減量週, multiplier: 0.5, reps_min: 10, reps_max: 10, sets: 2}
`

func TestParsePlan(t *testing.T) {
	t.Parallel()
	got, err := periodization.ParsePlan([]byte(fourWeekYAML))
	if err != nil {
		t.Fatalf("ParsePlan() error = %v", err)
	}
	if diff := cmp.Diff(periodization.FourWeekPlan(), got); diff != "" {
		t.Errorf("ParsePlan() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPlan(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(fourWeekYAML), 0o600); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	plan, err := periodization.LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan() error = %v", err)
	}
	if plan.CycleLength() != 4 {
		t.Errorf("CycleLength() = %d, want 4", plan.CycleLength())
	}

	if _, err = periodization.LoadPlan(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing plan file")
	}
}

func TestPlan_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *periodization.Plan)
		valid  bool
	}{
		{name: "default plan", mutate: func(*periodization.Plan) {}, valid: true},
		{name: "no weeks", mutate: func(p *periodization.Plan) { p.Weeks = nil }, valid: false},
		{name: "testing week out of range", mutate: func(p *periodization.Plan) { p.TestingWeek = 3 }, valid: false},
		{name: "zero threshold", mutate: func(p *periodization.Plan) { p.RepThreshold = 0 }, valid: false},
		{name: "inverted rep range", mutate: func(p *periodization.Plan) { p.Weeks[0].RepsMin = 13 }, valid: false},
		{name: "no sets", mutate: func(p *periodization.Plan) { p.Weeks[2].Sets = 0 }, valid: false},
		{name: "zero multiplier", mutate: func(p *periodization.Plan) { p.Weeks[1].Multiplier = 0 }, valid: false},
		{
			name:   "negative increment",
			mutate: func(p *periodization.Plan) { p.Increments[periodization.EquipmentMachine] = -1 },
			valid:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan := periodization.DefaultPlan()
			tt.mutate(&plan)
			err := plan.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !tt.valid && !errors.Is(err, periodization.ErrInvalidPlan) {
				t.Errorf("Validate() error = %v, want ErrInvalidPlan", err)
			}
		})
	}
}

func TestNew_RejectsInvalidPlan(t *testing.T) {
	t.Parallel()
	if _, err := periodization.New(periodization.Plan{}); !errors.Is(err, periodization.ErrInvalidPlan) {
		t.Errorf("New() error = %v, want ErrInvalidPlan", err)
	}
}

func TestLoadEngine(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(fourWeekYAML), 0o600); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	baseOnly := periodization.Exercise{
		ID:    "row",
		Setup: periodization.Setup{BaseWeight: ptr.Ref(50.0), EquipmentType: "", CycleStartDate: ""},
	}

	strict, err := periodization.LoadEngine("", false)
	if err != nil {
		t.Fatalf("LoadEngine() error = %v", err)
	}
	if diff := cmp.Diff(periodization.DefaultPlan(), strict.Plan()); diff != "" {
		t.Errorf("Plan() mismatch (-want +got):\n%s", diff)
	}
	if rec := strict.Recommend(baseOnly, nil, ""); rec != nil {
		t.Errorf("expected no recommendation without a complete setup, got %+v", rec)
	}

	partial, err := periodization.LoadEngine(path, true)
	if err != nil {
		t.Fatalf("LoadEngine() error = %v", err)
	}
	if partial.Plan().CycleLength() != 4 {
		t.Errorf("CycleLength() = %d, want 4", partial.Plan().CycleLength())
	}
	if rec := partial.Recommend(baseOnly, nil, ""); rec == nil {
		t.Error("expected a recommendation with partial setup allowed")
	}

	if _, err = periodization.LoadEngine(filepath.Join(t.TempDir(), "missing.yaml"), false); err == nil {
		t.Error("expected error for a missing plan file")
	}
}
