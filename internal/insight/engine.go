package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/tandem/internal/domain"
	"github.com/ashureev/tandem/internal/store"
	"golang.org/x/sync/singleflight"
)

// DefaultRunTimeout bounds one shared Run execution.
const DefaultRunTimeout = 30 * time.Second

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	AlertTTL            time.Duration
	RecommendationTTL   time.Duration
	AlertDedup          bool
	RecommendationLimit int
	RunTimeout          time.Duration
	Now                 func() time.Time
	Logger              *slog.Logger
}

// RunResult is the outcome of one detect-alert-recommend pass.
type RunResult struct {
	Detections      []DetectionResult               `json:"detections"`
	Alerts          []domain.PatternAlert           `json:"alerts"`
	Recommendations []domain.ExerciseRecommendation `json:"recommendations"`
}

// Engine wires the detector, alert manager and recommender over one
// record store. It holds no per-couple state.
type Engine struct {
	repo        store.Repository
	detector    *Detector
	alerts      *AlertManager
	recommender *Recommender
	logger      *slog.Logger
	runTimeout  time.Duration
	runs        singleflight.Group
}

// New creates an Engine over repo.
func New(repo store.Repository, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runTimeout := opts.RunTimeout
	if runTimeout <= 0 {
		runTimeout = DefaultRunTimeout
	}
	return &Engine{
		repo:        repo,
		detector:    NewDetector(repo, logger),
		alerts:      NewAlertManager(repo, opts.AlertTTL, opts.AlertDedup, opts.Now, logger),
		recommender: NewRecommender(repo, opts.RecommendationTTL, opts.RecommendationLimit, opts.Now, logger),
		logger:      logger,
		runTimeout:  runTimeout,
	}
}

// DetectPatterns runs the active rules over the user's check-ins.
func (e *Engine) DetectPatterns(ctx context.Context, coupleID, userID string) ([]DetectionResult, error) {
	return e.detector.DetectPatterns(ctx, coupleID, userID)
}

// CreateAlertsFromDetections persists alerts for detections and returns the
// newly created ones.
func (e *Engine) CreateAlertsFromDetections(ctx context.Context, results []DetectionResult) ([]domain.PatternAlert, error) {
	return e.alerts.CreateFromDetections(ctx, results)
}

// GetActiveAlerts returns the couple's active alerts, newest first.
func (e *Engine) GetActiveAlerts(ctx context.Context, coupleID string) []domain.PatternAlert {
	return e.alerts.ListActive(ctx, coupleID)
}

// MarkAlertRead marks an alert owned by userID as read.
func (e *Engine) MarkAlertRead(ctx context.Context, alertID, userID string) error {
	return e.alerts.MarkRead(ctx, alertID, userID)
}

// DismissAlert dismisses an alert owned by userID.
func (e *Engine) DismissAlert(ctx context.Context, alertID, userID string) error {
	return e.alerts.Dismiss(ctx, alertID, userID)
}

// GenerateRecommendations creates recommendations for an alert type.
func (e *Engine) GenerateRecommendations(ctx context.Context, userID, coupleID string, alertType domain.RuleType) ([]domain.ExerciseRecommendation, error) {
	return e.recommender.Generate(ctx, userID, coupleID, alertType)
}

// GetPersonalizedRecommendations lists the user's open recommendations.
func (e *Engine) GetPersonalizedRecommendations(ctx context.Context, userID, coupleID string) []domain.ExerciseRecommendation {
	return e.recommender.Personalized(ctx, userID, coupleID)
}

// Run detects patterns for the user, creates alerts and generates
// recommendations for each newly created alert. Concurrent calls for the
// same pair within this process share one execution, which is detached from
// any single caller's cancellation and bounded by the run timeout. A caller
// whose ctx ends stops waiting without affecting the others. The returned
// error reports partial failures; the result is always usable.
func (e *Engine) Run(ctx context.Context, coupleID, userID string) (*RunResult, error) {
	key := coupleID + "|" + userID
	ch := e.runs.DoChan(key, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.runTimeout)
		defer cancel()
		return e.run(runCtx, coupleID, userID)
	})

	select {
	case r := <-ch:
		if r.Shared {
			e.logger.Debug("Joined in-flight insight run", "couple_id", coupleID, "user_id", userID)
		}
		res, _ := r.Val.(*RunResult)
		if res == nil {
			res = &RunResult{}
		}
		return res, r.Err
	case <-ctx.Done():
		return &RunResult{}, ctx.Err()
	}
}

func (e *Engine) run(ctx context.Context, coupleID, userID string) (*RunResult, error) {
	start := time.Now()
	defer func() { runDuration.Observe(time.Since(start).Seconds()) }()

	res := &RunResult{
		Detections:      []DetectionResult{},
		Alerts:          []domain.PatternAlert{},
		Recommendations: []domain.ExerciseRecommendation{},
	}

	detections, err := e.detector.DetectPatterns(ctx, coupleID, userID)
	if err != nil {
		return res, fmt.Errorf("detect patterns: %w", err)
	}
	if len(detections) == 0 {
		return res, nil
	}
	res.Detections = detections

	var errs []error
	alerts, err := e.alerts.CreateFromDetections(ctx, detections)
	if err != nil {
		errs = append(errs, err)
	}
	res.Alerts = append(res.Alerts, alerts...)

	for _, alert := range alerts {
		recs, err := e.recommender.Generate(ctx, userID, coupleID, alert.Type)
		if err != nil {
			errs = append(errs, err)
		}
		res.Recommendations = append(res.Recommendations, recs...)
	}

	e.logger.Info("Insight run complete",
		"couple_id", coupleID,
		"user_id", userID,
		"detections", len(res.Detections),
		"alerts_created", len(res.Alerts),
		"recommendations_created", len(res.Recommendations))

	return res, errors.Join(errs...)
}

// RecordExerciseSession stores a session and completes the matching open
// recommendations, returning how many were completed.
func (e *Engine) RecordExerciseSession(ctx context.Context, session *domain.ExerciseSession) (int64, error) {
	if session.UserID == "" || session.CoupleID == "" || session.ExerciseID == "" {
		return 0, fmt.Errorf("exercise session requires user_id, couple_id and exercise_id")
	}
	if err := e.repo.InsertExerciseSession(ctx, session); err != nil {
		return 0, fmt.Errorf("record exercise session: %w", err)
	}
	return e.recommender.Complete(ctx, session.UserID, session.CoupleID, session.ExerciseID)
}
