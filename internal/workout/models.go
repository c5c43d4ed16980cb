package workout

import (
	"errors"

	"github.com/myrjola/fittracker/internal/periodization"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Category is the muscle group an exercise belongs to.
type Category string

const (
	CategoryChest    Category = "Chest"
	CategoryBack     Category = "Back"
	CategoryShoulder Category = "Shoulder"
	CategoryLegs     Category = "Legs"
	CategoryArms     Category = "Arms"
	CategoryCustom   Category = "Custom"
)

// Categories lists the categories in display order.
func Categories() []Category {
	return []Category{CategoryChest, CategoryBack, CategoryShoulder, CategoryLegs, CategoryArms, CategoryCustom}
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryChest, CategoryBack, CategoryShoulder, CategoryLegs, CategoryArms, CategoryCustom:
		return true
	default:
		return false
	}
}

// Exercise is a movement the user logs sets for. The embedded setup enables periodized coaching.
type Exercise struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Category   Category `json:"category"`
	UsageCount int      `json:"usageCount"`
	periodization.Setup
}

// engineInput is the view of the exercise the recommendation engine consumes.
func (e Exercise) engineInput() periodization.Exercise {
	return periodization.Exercise{ID: e.ID, Setup: e.Setup}
}

type (
	// WeightSession holds one exercise's sets on one date.
	WeightSession = periodization.Session
	// SetRecord is a completed set. Weight is always stored in kilograms.
	SetRecord = periodization.Set
)

// CardioRecord is one cardio machine session. Optional measurements are nil when not recorded.
type CardioRecord struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Machine string `json:"machine"`
	// Duration is in minutes.
	Duration  float64  `json:"duration"`
	Distance  *float64 `json:"distance,omitempty"`
	Kcal      *float64 `json:"kcal,omitempty"`
	HeartRate *float64 `json:"heartRate,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Incline   *float64 `json:"incline,omitempty"`
}

// BodyData is the user's body measurements used for calorie estimates.
type BodyData struct {
	// Weight is in kilograms.
	Weight float64 `json:"weight"`
	// Height is in centimeters.
	Height float64 `json:"height"`
	Age    int     `json:"age"`
}

// DefaultBodyData is used until the user saves their own.
func DefaultBodyData() BodyData {
	return BodyData{Weight: 70, Height: 175, Age: 25} //nolint:mnd // defaults
}

// DailySummary aggregates one date's training.
type DailySummary struct {
	TotalKcal float64 `json:"totalKcal"`
	// TrainingTimeSeconds spans the first to the last set of the day.
	TrainingTimeSeconds int64 `json:"trainingTimeSeconds"`
	// TotalVolume is the sum of weight times reps in kilograms.
	TotalVolume float64 `json:"totalVolume"`
}

// CardioMachine is a cardio machine with its metabolic equivalent.
type CardioMachine struct {
	Name string
	MET  float64
}

// CardioMachines lists the known cardio machines.
func CardioMachines() []CardioMachine {
	return []CardioMachine{
		{Name: "跑步機", MET: 9.8},
		{Name: "飛輪", MET: 8.5},
		{Name: "健身車", MET: 7.5},
		{Name: "階梯機", MET: 9.0},
		{Name: "划船機", MET: 7.0},
		{Name: "橢圓機", MET: 5.0},
	}
}

// RPE quick ratings offered after finishing an exercise.
const (
	RPEEasy     = 4
	RPEModerate = 6
	RPEHard     = 9
)

// RPELabel names an RPE value between 1 and 10.
func RPELabel(rpe int) string {
	labels := [...]string{"極輕", "很輕", "輕鬆", "適中", "稍累", "有感", "偏重", "很重", "極重", "極限"}
	if rpe < 1 || rpe > len(labels) {
		return ""
	}
	return labels[rpe-1]
}
