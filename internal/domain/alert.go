package domain

import "time"

// Severity controls how prominently an alert is shown.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// PatternData records what a rule matched when an alert was raised.
type PatternData struct {
	Metric          Metric   `json:"metric"`
	Operator        Operator `json:"operator"`
	Threshold       float64  `json:"threshold"`
	ConsecutiveDays int      `json:"consecutive_days"`
	// CurrentStreak is the longest qualifying run over the evaluated history.
	CurrentStreak int    `json:"current_streak"`
	RuleName      string `json:"rule_name"`
}

// PatternAlert is a user-facing notice that a rule's condition was met.
type PatternAlert struct {
	ID              string      `json:"id"`
	CoupleID        string      `json:"couple_id"`
	UserID          string      `json:"user_id"`
	Type            RuleType    `json:"type"`
	Title           string      `json:"title"`
	Message         string      `json:"message"`
	SuggestedAction string      `json:"suggested_action"`
	PatternData     PatternData `json:"pattern_data"`
	Severity        Severity    `json:"severity"`
	IsRead          bool        `json:"is_read"`
	IsDismissed     bool        `json:"is_dismissed"`
	ExpiresAt       time.Time   `json:"expires_at"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// IsActive returns true if the alert is neither dismissed nor expired at now.
func (a *PatternAlert) IsActive(now time.Time) bool {
	return !a.IsDismissed && a.ExpiresAt.After(now)
}

// AlertData is the input for creating an alert.
type AlertData struct {
	CoupleID        string
	UserID          string
	Type            RuleType
	Title           string
	Message         string
	SuggestedAction string
	PatternData     PatternData
	Severity        Severity
	ExpiresAt       time.Time
	// DedupeKey, when set, makes the insert conditional on no other alert
	// holding the same key.
	DedupeKey string
}
