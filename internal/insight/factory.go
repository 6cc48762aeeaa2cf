package insight

import (
	"fmt"
	"strconv"

	"github.com/ashureev/tandem/internal/domain"
)

type alertCopy struct {
	severity domain.Severity
	title    string
	message  string
	action   string
}

// copyFor returns the user-facing text for a rule type. Unknown types get the
// generic pattern copy.
func copyFor(ruleType domain.RuleType, cond domain.Condition) alertCopy {
	n := cond.ConsecutiveDays
	threshold := formatThreshold(cond.Threshold)

	switch ruleType {
	case domain.RuleLowConnection:
		return alertCopy{
			severity: domain.SeverityMedium,
			title:    "Connection Pattern Detected",
			message:  fmt.Sprintf("%d+ consecutive days with connection ≤ %s", n, threshold),
			action:   "Plan some intentional quality time together this week to reconnect.",
		}
	case domain.RuleLowMood:
		return alertCopy{
			severity: domain.SeverityHigh,
			title:    "Mood Pattern Detected",
			message:  fmt.Sprintf("%d+ consecutive days with mood ≤ %s", n, threshold),
			action:   "Make room for self-care and consider talking with your partner about how you're feeling.",
		}
	case domain.RuleStreakAchieved:
		return alertCopy{
			severity: domain.SeverityLow,
			title:    "Achievement Unlocked",
			message:  fmt.Sprintf("%d+ consecutive days with %s ≥ %s", n, cond.Metric, threshold),
			action:   "Celebrate this together and keep the momentum going.",
		}
	default:
		return alertCopy{
			severity: domain.SeverityMedium,
			title:    "Pattern Detected",
			message:  fmt.Sprintf("%d+ consecutive check-ins with %s %s %s", n, cond.Metric, cond.Operator, threshold),
			action:   "Review your recent check-ins together.",
		}
	}
}

// NewDetection maps a fired rule to its detection result.
func NewDetection(coupleID, userID string, rule domain.PatternRule, maxStreak int) DetectionResult {
	c := copyFor(rule.RuleType, rule.Conditions)
	return DetectionResult{
		CoupleID:        coupleID,
		UserID:          userID,
		RuleID:          rule.ID,
		AlertType:       rule.RuleType,
		Severity:        c.severity,
		Title:           c.title,
		Message:         c.message,
		SuggestedAction: c.action,
		PatternData: domain.PatternData{
			Metric:          rule.Conditions.Metric,
			Operator:        rule.Conditions.Operator,
			Threshold:       rule.Conditions.Threshold,
			ConsecutiveDays: rule.Conditions.ConsecutiveDays,
			CurrentStreak:   maxStreak,
			RuleName:        rule.RuleName,
		},
	}
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
