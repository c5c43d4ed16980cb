package periodization

import (
	"slices"
	"strings"
)

// Set is one completed set.
type Set struct {
	// Weight is stored in kilograms.
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
	// Timestamp is the completion time in unix milliseconds.
	Timestamp int64 `json:"timestamp"`
	// RPE is the optional rate of perceived exertion from 1 to 10.
	RPE *int `json:"rpe,omitempty"`
}

// Session holds the sets of one exercise logged on one calendar date.
type Session struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	ExerciseID string `json:"exerciseId"`
	Sets       []Set  `json:"sets"`
}

// Setup configures periodized coaching for an exercise. The fields are either all absent or all present.
type Setup struct {
	BaseWeight     *float64      `json:"baseWeight,omitempty"`
	EquipmentType  EquipmentType `json:"equipmentType,omitempty"`
	CycleStartDate string        `json:"cycleStartDate,omitempty"`
}

// HasBaseWeight reports whether a non-zero base weight is configured.
func (s Setup) HasBaseWeight() bool {
	return s.BaseWeight != nil && *s.BaseWeight != 0
}

// Complete reports whether all three setup fields are present.
func (s Setup) Complete() bool {
	return s.HasBaseWeight() && s.EquipmentType != EquipmentUnspecified && s.CycleStartDate != ""
}

// Exercise is the part of an exercise the engine needs.
type Exercise struct {
	ID string
	Setup
}

// TrainingDay is one calendar date on which an exercise was trained.
type TrainingDay struct {
	Date string
	// Sets are the sets of the session kept for this date.
	Sets []Set
}

// MaxReps returns the highest rep count across the day's sets.
func (d TrainingDay) MaxReps() int {
	maxReps := 0
	for _, set := range d.Sets {
		maxReps = max(maxReps, set.Reps)
	}
	return maxReps
}

// History is the date-ordered list of unique training days of one exercise.
type History []TrainingDay

// BuildHistory indexes the training days of exerciseID.
//
// Sessions without sets are not training days. When several sessions share a date the first one in
// date order wins. A non-empty asOf excludes sessions dated after it.
func BuildHistory(sessions []Session, exerciseID string, asOf string) History {
	filtered := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if s.ExerciseID != exerciseID || len(s.Sets) == 0 {
			continue
		}
		if asOf != "" && s.Date > asOf {
			continue
		}
		filtered = append(filtered, s)
	}
	slices.SortStableFunc(filtered, func(a, b Session) int {
		return strings.Compare(a.Date, b.Date)
	})

	history := make(History, 0, len(filtered))
	for _, s := range filtered {
		if len(history) > 0 && history[len(history)-1].Date == s.Date {
			continue
		}
		history = append(history, TrainingDay{Date: s.Date, Sets: s.Sets})
	}
	return history
}

// Since returns the days on or after start. h must be sorted by date, as BuildHistory returns it.
func (h History) Since(start string) History {
	idx, _ := slices.BinarySearchFunc(h, start, func(day TrainingDay, target string) int {
		return strings.Compare(day.Date, target)
	})
	return h[idx:]
}
