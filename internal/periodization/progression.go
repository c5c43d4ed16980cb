package periodization

import (
	"fmt"
	"strconv"
)

// TestResult is the snapshot of the most recent testing-week performance.
type TestResult struct {
	// Weight is the weight of the first set.
	Weight  float64 `json:"weight"`
	MaxReps int     `json:"reps"`
	Date    string  `json:"date"`
}

// Decision is the outcome of the progression rule.
type Decision struct {
	ShouldProgress bool
	Increment      float64
	// Applied is true when the increment goes into the upcoming session's base weight.
	Applied bool
	Test    *TestResult
	Info    string
}

// Evaluate applies the progression rule to the most recent testing-week day, however old it is.
//
// Days are counted from the cycle start date or, when unset, from the first recorded day. The increment
// only applies when the upcoming session opens a new cycle.
func (p Plan) Evaluate(history History, setup Setup, pos Position) Decision {
	test, ok := p.lastTestingDay(history, setup.CycleStartDate)
	if !ok {
		return Decision{}
	}

	maxReps := test.MaxReps()
	decision := Decision{
		Test: &TestResult{
			Weight:  test.Sets[0].Weight,
			MaxReps: maxReps,
			Date:    test.Date,
		},
	}
	if maxReps < p.RepThreshold {
		return decision
	}

	decision.ShouldProgress = true
	decision.Increment = p.Increment(setup.EquipmentType)
	decision.Applied = pos.WeekIndex == 0
	decision.Info = fmt.Sprintf("上次 %s 做到 %d 下 (≥%d)，基準重量 +%skg",
		p.Weeks[p.TestingWeek].ID, maxReps, p.RepThreshold, formatNumber(decision.Increment))
	return decision
}

func (p Plan) lastTestingDay(history History, cycleStartDate string) (TrainingDay, bool) {
	if len(history) == 0 {
		return TrainingDay{}, false
	}
	start := cycleStartDate
	if start == "" {
		start = history[0].Date
	}
	relevant := history.Since(start)
	length := p.CycleLength()
	for i := len(relevant) - 1; i >= 0; i-- {
		if i%length == p.TestingWeek {
			return relevant[i], true
		}
	}
	return TrainingDay{}, false
}

// formatNumber renders n in its shortest decimal form, e.g. 5, 2.5 or 31.9.
func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
