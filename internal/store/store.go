// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/tandem/internal/domain"
)

// AlertUpdate lists the user-mutable alert fields. Nil fields are left unchanged.
type AlertUpdate struct {
	IsRead      *bool
	IsDismissed *bool
}

// Repository defines the record store consumed by the insight engine.
// All methods return *Error values classified by Kind on failure.
type Repository interface {
	// InsertCheckIn persists a new check-in, assigning an ID if empty.
	InsertCheckIn(ctx context.Context, checkIn *domain.CheckIn) error

	// ListCheckIns returns every check-in for the couple, oldest date first.
	ListCheckIns(ctx context.Context, coupleID string) ([]domain.CheckIn, error)

	// ListActiveRules returns active rules ordered by priority ascending.
	ListActiveRules(ctx context.Context) ([]domain.PatternRule, error)

	// UpsertRule creates or replaces a rule by ID.
	UpsertRule(ctx context.Context, rule *domain.PatternRule) error

	// InsertAlert persists a new unread, undismissed alert.
	// A dedupe key collision is reported with KindConflict.
	InsertAlert(ctx context.Context, data domain.AlertData) (*domain.PatternAlert, error)

	// GetAlert retrieves an alert by ID. Returns nil, nil when absent.
	GetAlert(ctx context.Context, alertID string) (*domain.PatternAlert, error)

	// ListAlerts returns the couple's alerts, newest first. With activeOnly,
	// dismissed alerts and alerts expiring at or before now are excluded.
	ListAlerts(ctx context.Context, coupleID string, activeOnly bool, now time.Time) ([]domain.PatternAlert, error)

	// FindActiveAlert returns an active alert of the given type for the
	// couple/user pair, or nil, nil.
	FindActiveAlert(ctx context.Context, coupleID, userID string, alertType domain.RuleType, now time.Time) (*domain.PatternAlert, error)

	// UpdateAlert applies fields to an alert owned by userID.
	// Returns ErrNotFound if no such alert belongs to the user.
	UpdateAlert(ctx context.Context, alertID, userID string, fields AlertUpdate) error

	// UpsertExercise creates or replaces a guided exercise by ID.
	UpsertExercise(ctx context.Context, exercise *domain.GuidedExercise) error

	// ListExercisesByCategory returns active exercises in a category, easiest
	// first. A limit <= 0 returns all of them.
	ListExercisesByCategory(ctx context.Context, category domain.Category, limit int) ([]domain.GuidedExercise, error)

	// ListExercises returns all active exercises.
	ListExercises(ctx context.Context) ([]domain.GuidedExercise, error)

	// FindOpenRecommendation returns an incomplete, unexpired recommendation
	// for the tuple, or nil, nil.
	FindOpenRecommendation(ctx context.Context, userID, coupleID, exerciseID string, now time.Time) (*domain.ExerciseRecommendation, error)

	// InsertRecommendation persists a new open recommendation.
	// A dedupe key collision is reported with KindConflict.
	InsertRecommendation(ctx context.Context, data domain.RecommendationData) (*domain.ExerciseRecommendation, error)

	// ListOpenRecommendations returns open recommendations joined with their
	// exercise, highest priority first.
	ListOpenRecommendations(ctx context.Context, userID, coupleID string, now time.Time, limit int) ([]domain.ExerciseRecommendation, error)

	// MarkRecommendationCompleted completes every open recommendation for the
	// tuple and returns how many were flipped.
	MarkRecommendationCompleted(ctx context.Context, userID, coupleID, exerciseID string, now time.Time) (int64, error)

	// InsertExerciseSession records a completed exercise session.
	InsertExerciseSession(ctx context.Context, session *domain.ExerciseSession) error

	// PurgeExpiredRecommendations deletes recommendations that expired
	// before the cutoff, completed or not.
	PurgeExpiredRecommendations(ctx context.Context, before time.Time) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
