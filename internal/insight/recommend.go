package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/tandem/internal/domain"
	"github.com/ashureev/tandem/internal/store"
)

const (
	// DefaultRecommendationTTL is how long a recommendation stays open.
	DefaultRecommendationTTL = 7 * 24 * time.Hour
	// exercisesPerCategory caps candidates fetched for each mapped category.
	exercisesPerCategory = 2
)

var alertCategories = map[domain.RuleType][]domain.Category{
	domain.RuleLowConnection:       {domain.CategoryConnection, domain.CategoryQualityTime, domain.CategoryIntimacy},
	domain.RuleLowMood:             {domain.CategoryStressRelief, domain.CategoryEmotionalSupport, domain.CategoryGratitude},
	domain.RuleStreakAchieved:      {domain.CategoryConnection, domain.CategoryGratitude, domain.CategoryQualityTime},
	domain.RulePatternDetected:     {domain.CategoryCommunication, domain.CategoryConnection, domain.CategoryEmotionalSupport},
	domain.RuleRelationshipInsight: {domain.CategoryCommunication, domain.CategoryIntimacy, domain.CategoryQualityTime},
}

// Higher is more urgent.
var alertTypePriority = map[domain.RuleType]int{
	domain.RuleLowConnection:       3,
	domain.RuleLowMood:             4,
	domain.RuleStreakAchieved:      1,
	domain.RulePatternDetected:     2,
	domain.RuleRelationshipInsight: 2,
}

// Easier exercises are recommended more strongly.
var difficultyPriority = map[domain.Difficulty]int{
	domain.DifficultyBeginner:     3,
	domain.DifficultyIntermediate: 2,
	domain.DifficultyAdvanced:     1,
}

var alertReasons = map[domain.RuleType]string{
	domain.RuleLowConnection:       "Your recent check-ins show connection has been low. This exercise can help you reconnect.",
	domain.RuleLowMood:             "Your mood has been low lately. This exercise can help you recharge and feel supported.",
	domain.RuleStreakAchieved:      "You're on a great streak! This exercise can help you keep the momentum going.",
	domain.RulePatternDetected:     "We noticed a pattern in your check-ins. This exercise can help you talk it through.",
	domain.RuleRelationshipInsight: "Based on your relationship insights, this exercise can deepen your bond.",
}

// CategoriesFor returns the exercise categories mapped to an alert type.
func CategoriesFor(alertType domain.RuleType) []domain.Category {
	return alertCategories[alertType]
}

// Priority scores an exercise for an alert type. Unknown values score zero.
func Priority(alertType domain.RuleType, difficulty domain.Difficulty) int {
	return alertTypePriority[alertType] + difficultyPriority[difficulty]
}

// ReasonFor returns the human-readable reason attached to a recommendation.
func ReasonFor(alertType domain.RuleType) string {
	if r, ok := alertReasons[alertType]; ok {
		return r
	}
	return "This exercise was picked based on your recent check-ins."
}

// Recommender derives exercise recommendations from alert types.
type Recommender struct {
	repo   store.Repository
	now    func() time.Time
	ttl    time.Duration
	limit  int
	logger *slog.Logger
}

// NewRecommender creates a recommender. limit caps personalized listings.
func NewRecommender(repo store.Repository, ttl time.Duration, limit int, now func() time.Time, logger *slog.Logger) *Recommender {
	if ttl <= 0 {
		ttl = DefaultRecommendationTTL
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recommender{repo: repo, now: now, ttl: ttl, limit: limit, logger: logger}
}

// Generate persists recommendations for alertType, skipping any exercise that
// already has an open recommendation for the user and couple. Reads that fail
// skip the affected candidates; write failures are joined into the returned
// error alongside whatever was created.
func (r *Recommender) Generate(ctx context.Context, userID, coupleID string, alertType domain.RuleType) ([]domain.ExerciseRecommendation, error) {
	now := r.now()
	seen := make(map[string]bool)
	var created []domain.ExerciseRecommendation
	var errs []error

	for _, category := range CategoriesFor(alertType) {
		exercises, err := r.repo.ListExercisesByCategory(ctx, category, exercisesPerCategory)
		if err != nil {
			storeFailures.WithLabelValues("list_exercises").Inc()
			r.logger.Warn("Failed to load exercises", "category", category, "error", err)
			continue
		}

		for _, ex := range exercises {
			if seen[ex.ID] {
				continue
			}
			seen[ex.ID] = true

			open, err := r.repo.FindOpenRecommendation(ctx, userID, coupleID, ex.ID, now)
			if err != nil {
				storeFailures.WithLabelValues("find_open_recommendation").Inc()
				r.logger.Warn("Failed to check open recommendation", "user_id", userID, "exercise_id", ex.ID, "error", err)
				continue
			}
			if open != nil {
				continue
			}

			rec, err := r.repo.InsertRecommendation(ctx, domain.RecommendationData{
				UserID:     userID,
				CoupleID:   coupleID,
				ExerciseID: ex.ID,
				Reason:     ReasonFor(alertType),
				Priority:   Priority(alertType, ex.Difficulty),
				ExpiresAt:  now.Add(r.ttl),
				DedupeKey:  recommendationDedupeKey(userID, coupleID, ex.ID, now),
			})
			if store.IsConflict(err) {
				continue
			}
			if err != nil {
				storeFailures.WithLabelValues("insert_recommendation").Inc()
				r.logger.Error("Failed to create recommendation", "user_id", userID, "exercise_id", ex.ID, "error", err)
				errs = append(errs, fmt.Errorf("insert recommendation for %s: %w", ex.ID, err))
				continue
			}
			exercise := ex
			rec.Exercise = &exercise
			recommendationsCreated.WithLabelValues(string(alertType)).Inc()
			created = append(created, *rec)
		}
	}
	return created, errors.Join(errs...)
}

// Personalized lists the user's open recommendations, highest priority
// first. Store failures are logged and produce an empty list.
func (r *Recommender) Personalized(ctx context.Context, userID, coupleID string) []domain.ExerciseRecommendation {
	recs, err := r.repo.ListOpenRecommendations(ctx, userID, coupleID, r.now(), r.limit)
	if err != nil {
		storeFailures.WithLabelValues("list_open_recommendations").Inc()
		r.logger.Error("Failed to list recommendations", "user_id", userID, "couple_id", coupleID, "error", err)
		return []domain.ExerciseRecommendation{}
	}
	if recs == nil {
		recs = []domain.ExerciseRecommendation{}
	}
	return recs
}

// Complete marks the open recommendations for the tuple as completed.
func (r *Recommender) Complete(ctx context.Context, userID, coupleID, exerciseID string) (int64, error) {
	n, err := r.repo.MarkRecommendationCompleted(ctx, userID, coupleID, exerciseID, r.now())
	if err != nil {
		return 0, fmt.Errorf("complete recommendations: %w", err)
	}
	recommendationsCompleted.Add(float64(n))
	return n, nil
}

func recommendationDedupeKey(userID, coupleID, exerciseID string, now time.Time) string {
	return userID + "|" + coupleID + "|" + exerciseID + "|" + now.UTC().Format(domain.DateLayout)
}
