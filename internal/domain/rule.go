package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// RuleType classifies a pattern rule and the alert it produces.
type RuleType string

const (
	RuleLowConnection       RuleType = "low_connection"
	RuleLowMood             RuleType = "low_mood"
	RuleStreakAchieved      RuleType = "streak_achieved"
	RulePatternDetected     RuleType = "pattern_detected"
	RuleRelationshipInsight RuleType = "relationship_insight"
)

// Valid reports whether t is one of the known rule types.
func (t RuleType) Valid() bool {
	switch t {
	case RuleLowConnection, RuleLowMood, RuleStreakAchieved, RulePatternDetected, RuleRelationshipInsight:
		return true
	}
	return false
}

// Metric names the check-in field a rule inspects.
type Metric string

const (
	MetricMood       Metric = "mood"
	MetricConnection Metric = "connection"
)

// Operator is a numeric comparison applied against a rule threshold.
type Operator string

const (
	OpLessEqual    Operator = "<="
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpGreater      Operator = ">"
	OpEqual        Operator = "=="
)

// Compare applies the operator as "value op threshold".
func (o Operator) Compare(value, threshold float64) bool {
	switch o {
	case OpLessEqual:
		return value <= threshold
	case OpGreaterEqual:
		return value >= threshold
	case OpLess:
		return value < threshold
	case OpGreater:
		return value > threshold
	case OpEqual:
		return value == threshold
	}
	return false
}

// Condition is the typed threshold/run-length condition of a rule.
type Condition struct {
	Metric          Metric   `json:"metric" yaml:"metric"`
	Operator        Operator `json:"operator" yaml:"operator"`
	Threshold       float64  `json:"threshold" yaml:"threshold"`
	ConsecutiveDays int      `json:"consecutive_days" yaml:"consecutive_days"`
}

// Validate rejects conditions the evaluator cannot interpret.
func (c Condition) Validate() error {
	switch c.Metric {
	case MetricMood, MetricConnection:
	default:
		return fmt.Errorf("unknown metric %q", c.Metric)
	}
	switch c.Operator {
	case OpLessEqual, OpGreaterEqual, OpLess, OpGreater, OpEqual:
	default:
		return fmt.Errorf("unknown operator %q", c.Operator)
	}
	if c.ConsecutiveDays < 1 {
		return fmt.Errorf("consecutive_days must be >= 1, got %d", c.ConsecutiveDays)
	}
	return nil
}

// ParseCondition decodes and validates a stored JSON condition.
func ParseCondition(raw []byte) (Condition, error) {
	var c Condition
	if err := json.Unmarshal(raw, &c); err != nil {
		return Condition{}, fmt.Errorf("decode condition: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Condition{}, err
	}
	return c, nil
}

// PatternRule is a configured condition plus the classification it yields.
type PatternRule struct {
	ID         string    `json:"id" yaml:"id"`
	RuleName   string    `json:"rule_name" yaml:"rule_name"`
	RuleType   RuleType  `json:"rule_type" yaml:"rule_type"`
	Conditions Condition `json:"conditions" yaml:"conditions"`
	Priority   int       `json:"priority" yaml:"priority"`
	IsActive   bool      `json:"is_active" yaml:"is_active"`
	CreatedAt  time.Time `json:"created_at" yaml:"-"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"-"`
}

// Validate checks the rule's type and condition.
func (r *PatternRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if !r.RuleType.Valid() {
		return fmt.Errorf("rule %s: unknown rule_type %q", r.ID, r.RuleType)
	}
	if err := r.Conditions.Validate(); err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}
	return nil
}
