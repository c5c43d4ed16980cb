package workout

import "math"

// Metabolic equivalents used when no better estimate exists.
const (
	metCardioFallback   = 7
	metStrengthTraining = 5
	// KgToLbsFactor converts kilograms to pounds.
	KgToLbsFactor = 2.20462
)

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10 //nolint:mnd // one decimal
}

// ExerciseKcal estimates the energy spent in an activity of met for durationMinutes.
func ExerciseKcal(met, weightKg, durationMinutes float64) float64 {
	return met * weightKg * (durationMinutes / 60) //nolint:mnd // minutes per hour
}

// BMR is the Mifflin-St Jeor basal metabolic rate without the sex term.
func BMR(body BodyData) float64 {
	return 10*body.Weight + 6.25*body.Height - 5*float64(body.Age) //nolint:mnd // formula
}

// KgToLbs converts kilograms to pounds rounded to one decimal.
func KgToLbs(kg float64) float64 {
	return roundTenth(kg * KgToLbsFactor)
}

// LbsToKg converts pounds to kilograms rounded to one decimal.
func LbsToKg(lbs float64) float64 {
	return roundTenth(lbs / KgToLbsFactor)
}

// Summarize computes the daily summary of date from the given records. Records of other dates are ignored.
//
// Training time spans the first to the last set of the day. Cardio without a recorded kcal is estimated
// with a moderate MET and strength training time is added with its own MET.
func Summarize(sessions []WeightSession, cardio []CardioRecord, body BodyData, date string) DailySummary {
	var (
		summary      DailySummary
		minTs, maxTs int64
		seen         bool
	)
	for _, sess := range sessions {
		if sess.Date != date {
			continue
		}
		for _, set := range sess.Sets {
			summary.TotalVolume += set.Weight * float64(set.Reps)
			if !seen || set.Timestamp < minTs {
				minTs = set.Timestamp
			}
			if !seen || set.Timestamp > maxTs {
				maxTs = set.Timestamp
			}
			seen = true
		}
	}
	if seen {
		summary.TrainingTimeSeconds = int64(math.Round(float64(maxTs-minTs) / 1000)) //nolint:mnd // ms
	}

	kcal := 0.0
	for _, rec := range cardio {
		if rec.Date != date {
			continue
		}
		if rec.Kcal != nil && *rec.Kcal != 0 {
			kcal += *rec.Kcal
		} else {
			kcal += ExerciseKcal(metCardioFallback, body.Weight, rec.Duration)
		}
	}
	if summary.TrainingTimeSeconds > 0 {
		kcal += ExerciseKcal(metStrengthTraining, body.Weight, float64(summary.TrainingTimeSeconds)/60) //nolint:mnd // s
	}
	summary.TotalKcal = roundTenth(kcal)
	return summary
}
