package domain

import "time"

// Category groups guided exercises by the need they address.
type Category string

const (
	CategoryCommunication      Category = "communication"
	CategoryConnection         Category = "connection"
	CategoryIntimacy           Category = "intimacy"
	CategoryConflictResolution Category = "conflict_resolution"
	CategoryQualityTime        Category = "quality_time"
	CategoryStressRelief       Category = "stress_relief"
	CategoryEmotionalSupport   Category = "emotional_support"
	CategoryGratitude          Category = "gratitude"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryCommunication, CategoryConnection, CategoryIntimacy, CategoryConflictResolution,
		CategoryQualityTime, CategoryStressRelief, CategoryEmotionalSupport, CategoryGratitude:
		return true
	}
	return false
}

// Difficulty of a guided exercise.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Rank orders difficulties easiest first. Unknown values sort last.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyBeginner:
		return 0
	case DifficultyIntermediate:
		return 1
	case DifficultyAdvanced:
		return 2
	}
	return 3
}

// GuidedExercise is static reference data describing an activity.
type GuidedExercise struct {
	ID              string     `json:"id" yaml:"id"`
	Title           string     `json:"title" yaml:"title"`
	Description     string     `json:"description" yaml:"description"`
	Duration        int        `json:"duration" yaml:"duration"` // minutes
	Category        Category   `json:"category" yaml:"category"`
	Difficulty      Difficulty `json:"difficulty" yaml:"difficulty"`
	Instructions    []string   `json:"instructions" yaml:"instructions"`
	MaterialsNeeded []string   `json:"materials_needed" yaml:"materials_needed"`
	Benefits        []string   `json:"benefits" yaml:"benefits"`
	WhenToUse       string     `json:"when_to_use" yaml:"when_to_use"`
	IsActive        bool       `json:"is_active" yaml:"is_active"`
	CreatedAt       time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt       time.Time  `json:"updated_at" yaml:"-"`
}

// ExerciseRecommendation suggests an exercise to a user in a couple.
type ExerciseRecommendation struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	CoupleID    string     `json:"couple_id"`
	ExerciseID  string     `json:"exercise_id"`
	Reason      string     `json:"reason"`
	Priority    int        `json:"priority"`
	ExpiresAt   time.Time  `json:"expires_at"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	// Exercise is populated on reads that join the catalog.
	Exercise *GuidedExercise `json:"exercise,omitempty"`
}

// IsOpen returns true while the recommendation is incomplete and unexpired.
func (r *ExerciseRecommendation) IsOpen(now time.Time) bool {
	return !r.IsCompleted && r.ExpiresAt.After(now)
}

// RecommendationData is the input for creating a recommendation.
type RecommendationData struct {
	UserID     string
	CoupleID   string
	ExerciseID string
	Reason     string
	Priority   int
	ExpiresAt  time.Time
	DedupeKey  string
}

// ExerciseSession records a completed run-through of an exercise.
type ExerciseSession struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CoupleID    string    `json:"couple_id"`
	ExerciseID  string    `json:"exercise_id"`
	Rating      int       `json:"rating,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}
