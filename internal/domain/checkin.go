// Package domain contains core domain types for the tandem insight engine.
package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used for check-in dates.
const DateLayout = "2006-01-02"

// Rating bounds for mood and connection.
const (
	MinRating = 1
	MaxRating = 10
)

// CheckIn is one partner's daily self-report.
type CheckIn struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	CoupleID         string    `json:"couple_id"`
	Date             time.Time `json:"date"`
	MoodRating       int       `json:"mood_rating"`
	ConnectionRating int       `json:"connection_rating"`
	Reflection       string    `json:"reflection"`
	IsShared         bool      `json:"is_shared"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Validate checks rating bounds and required ownership fields.
func (c *CheckIn) Validate() error {
	if c.UserID == "" || c.CoupleID == "" {
		return fmt.Errorf("check-in requires user_id and couple_id")
	}
	if c.MoodRating < MinRating || c.MoodRating > MaxRating {
		return fmt.Errorf("mood_rating must be between %d and %d", MinRating, MaxRating)
	}
	if c.ConnectionRating < MinRating || c.ConnectionRating > MaxRating {
		return fmt.Errorf("connection_rating must be between %d and %d", MinRating, MaxRating)
	}
	if c.Date.IsZero() {
		return fmt.Errorf("check-in date is required")
	}
	return nil
}

// Value returns the rating the given metric inspects.
func (c *CheckIn) Value(m Metric) int {
	if m == MetricConnection {
		return c.ConnectionRating
	}
	return c.MoodRating
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
