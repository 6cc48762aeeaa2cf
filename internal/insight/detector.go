package insight

import (
	"context"
	"log/slog"
	"sort"

	"github.com/ashureev/tandem/internal/domain"
	"github.com/ashureev/tandem/internal/store"
)

// DetectionResult is one rule that fired for a user.
type DetectionResult struct {
	CoupleID        string             `json:"couple_id"`
	UserID          string             `json:"user_id"`
	RuleID          string             `json:"rule_id"`
	AlertType       domain.RuleType    `json:"alert_type"`
	Severity        domain.Severity    `json:"severity"`
	Title           string             `json:"title"`
	Message         string             `json:"message"`
	SuggestedAction string             `json:"suggested_action"`
	PatternData     domain.PatternData `json:"pattern_data"`
}

// Detector runs the active rule set over one user's check-ins.
type Detector struct {
	repo   store.Repository
	logger *slog.Logger
}

// NewDetector creates a detector reading from repo.
func NewDetector(repo store.Repository, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{repo: repo, logger: logger}
}

// DetectPatterns evaluates every active rule against the user's own
// check-ins within the couple. Store failures are logged and yield no
// results; the error is returned so callers can tell "nothing matched"
// apart from "could not look".
func (d *Detector) DetectPatterns(ctx context.Context, coupleID, userID string) ([]DetectionResult, error) {
	checkIns, err := d.repo.ListCheckIns(ctx, coupleID)
	if err != nil {
		storeFailures.WithLabelValues("list_check_ins").Inc()
		d.logger.Error("Failed to load check-ins", "couple_id", coupleID, "user_id", userID, "error", err)
		return nil, err
	}

	own := userCheckIns(checkIns, userID)
	if len(own) == 0 {
		return nil, nil
	}

	rules, err := d.repo.ListActiveRules(ctx)
	if err != nil {
		storeFailures.WithLabelValues("list_active_rules").Inc()
		d.logger.Error("Failed to load pattern rules", "error", err)
		return nil, err
	}

	var results []DetectionResult
	for _, rule := range rules {
		values := metricValues(own, rule.Conditions.Metric)
		streak := EvaluateStreak(values, rule.Conditions)
		if !streak.HasQualifyingRun {
			continue
		}
		det := NewDetection(coupleID, userID, rule, streak.MaxStreak)
		detectionsTotal.WithLabelValues(string(det.AlertType)).Inc()
		d.logger.Debug("Pattern detected",
			"couple_id", coupleID,
			"user_id", userID,
			"rule_id", rule.ID,
			"alert_type", rule.RuleType,
			"max_streak", streak.MaxStreak)
		results = append(results, det)
	}
	return results, nil
}

// userCheckIns filters to userID's entries and orders them by date. The sort
// is stable so same-day entries keep their stored order.
func userCheckIns(all []domain.CheckIn, userID string) []domain.CheckIn {
	var own []domain.CheckIn
	for _, c := range all {
		if c.UserID == userID {
			own = append(own, c)
		}
	}
	sort.SliceStable(own, func(i, j int) bool {
		return own[i].Date.Before(own[j].Date)
	})
	return own
}

func metricValues(checkIns []domain.CheckIn, m domain.Metric) []int {
	values := make([]int, len(checkIns))
	for i := range checkIns {
		values[i] = checkIns[i].Value(m)
	}
	return values
}
