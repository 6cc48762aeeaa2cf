// Package insight implements the pattern-detection, alerting and exercise
// recommendation pipeline over a couple's check-in history.
package insight

import "github.com/ashureev/tandem/internal/domain"

// StreakResult summarizes runs of values satisfying a condition.
type StreakResult struct {
	HasQualifyingRun bool `json:"has_qualifying_run"`
	// MaxStreak is the longest run seen, not the most recent one.
	MaxStreak int `json:"max_streak"`
	// QualifyingHits counts positions at which the running streak was at
	// least ConsecutiveDays long.
	QualifyingHits int `json:"qualifying_hits"`
}

// EvaluateStreak scans values in order, tracking the current and longest run
// of values satisfying cond. Adjacent values count as consecutive regardless
// of any calendar gap between the check-ins they came from.
func EvaluateStreak(values []int, cond domain.Condition) StreakResult {
	var res StreakResult
	current := 0
	for _, v := range values {
		if !cond.Operator.Compare(float64(v), cond.Threshold) {
			current = 0
			continue
		}
		current++
		if current > res.MaxStreak {
			res.MaxStreak = current
		}
		if current >= cond.ConsecutiveDays {
			res.QualifyingHits++
		}
	}
	res.HasQualifyingRun = res.QualifyingHits > 0
	return res
}
