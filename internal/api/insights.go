package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ashureev/tandem/internal/domain"
	"github.com/ashureev/tandem/internal/identity"
	"github.com/ashureev/tandem/internal/insight"
	"github.com/ashureev/tandem/internal/store"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the insight API. All routes require identity headers.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(identity.Middleware)

		r.Post("/checkins", h.SubmitCheckIn)
		r.Get("/checkins", h.ListCheckIns)

		r.Get("/insights/detections", h.GetDetections)
		r.Post("/insights/run", h.RunInsights)

		r.Get("/alerts", h.GetActiveAlerts)
		r.Post("/alerts/{alertID}/read", h.MarkAlertRead)
		r.Post("/alerts/{alertID}/dismiss", h.DismissAlert)

		r.Get("/recommendations", h.GetRecommendations)
		r.Post("/recommendations/generate", h.GenerateRecommendations)

		r.Post("/sessions", h.RecordSession)
		r.Get("/exercises", h.ListExercises)
	})
}

// GetDetections evaluates the rules for the caller without creating alerts.
func (h *Handler) GetDetections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	detections, _ := h.engine.DetectPatterns(ctx, identity.CoupleIDFromContext(ctx), identity.UserIDFromContext(ctx))
	if detections == nil {
		detections = []insight.DetectionResult{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"detections": detections})
}

// RunInsights runs the full pipeline for the caller.
func (h *Handler) RunInsights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := identity.UserIDFromContext(ctx)
	coupleID := identity.CoupleIDFromContext(ctx)

	res, err := h.engine.Run(ctx, coupleID, userID)
	if err != nil {
		slog.Warn("Insight run finished with errors", "error", err, "user_id", userID, "couple_id", coupleID)
	}
	JSON(w, http.StatusOK, res)
}

// GetActiveAlerts lists the couple's active alerts.
func (h *Handler) GetActiveAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.engine.GetActiveAlerts(r.Context(), identity.CoupleIDFromContext(r.Context()))
	JSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

// MarkAlertRead marks one of the caller's alerts as read.
func (h *Handler) MarkAlertRead(w http.ResponseWriter, r *http.Request) {
	h.updateAlert(w, r, "read", h.engine.MarkAlertRead)
}

// DismissAlert dismisses one of the caller's alerts.
func (h *Handler) DismissAlert(w http.ResponseWriter, r *http.Request) {
	h.updateAlert(w, r, "dismissed", h.engine.DismissAlert)
}

func (h *Handler) updateAlert(w http.ResponseWriter, r *http.Request, status string, apply func(context.Context, string, string) error) {
	ctx := r.Context()
	userID := identity.UserIDFromContext(ctx)
	alertID := chi.URLParam(r, "alertID")

	if err := apply(ctx, alertID, userID); err != nil {
		if store.IsNotFound(err) {
			Error(w, http.StatusNotFound, "alert not found")
			return
		}
		slog.Error("Failed to update alert", "error", err, "alert_id", alertID, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to update alert")
		return
	}

	alert, err := h.repo.GetAlert(ctx, alertID)
	if err != nil {
		slog.Warn("Failed to reload updated alert", "error", err, "alert_id", alertID)
	}
	JSON(w, http.StatusOK, map[string]interface{}{"status": status, "alert": alert})
}

// GetRecommendations lists the caller's open recommendations.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recs := h.engine.GetPersonalizedRecommendations(ctx, identity.UserIDFromContext(ctx), identity.CoupleIDFromContext(ctx))
	JSON(w, http.StatusOK, map[string]interface{}{"recommendations": recs})
}

type generateRequest struct {
	AlertType domain.RuleType `json:"alert_type"`
}

// GenerateRecommendations creates recommendations for an alert type.
func (h *Handler) GenerateRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := identity.UserIDFromContext(ctx)
	coupleID := identity.CoupleIDFromContext(ctx)

	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.AlertType.Valid() {
		Error(w, http.StatusBadRequest, "unknown alert_type")
		return
	}

	recs, err := h.engine.GenerateRecommendations(ctx, userID, coupleID, req.AlertType)
	if err != nil {
		slog.Warn("Recommendation generation finished with errors", "error", err, "user_id", userID, "alert_type", req.AlertType)
	}
	if recs == nil {
		recs = []domain.ExerciseRecommendation{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"recommendations": recs})
}

type sessionRequest struct {
	ExerciseID string `json:"exercise_id"`
	Rating     int    `json:"rating"`
	Notes      string `json:"notes"`
}

// RecordSession stores a completed exercise session and completes the
// matching recommendations.
func (h *Handler) RecordSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := identity.UserIDFromContext(ctx)
	coupleID := identity.CoupleIDFromContext(ctx)

	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ExerciseID == "" {
		Error(w, http.StatusBadRequest, "exercise_id is required")
		return
	}

	session := &domain.ExerciseSession{
		UserID:     userID,
		CoupleID:   coupleID,
		ExerciseID: req.ExerciseID,
		Rating:     req.Rating,
		Notes:      req.Notes,
	}
	completed, err := h.engine.RecordExerciseSession(ctx, session)
	if err != nil {
		slog.Error("Failed to record exercise session", "error", err, "user_id", userID, "exercise_id", req.ExerciseID)
		Error(w, http.StatusInternalServerError, "failed to record session")
		return
	}

	slog.Info("Exercise session recorded", "user_id", userID, "exercise_id", req.ExerciseID, "recommendations_completed", completed)
	JSON(w, http.StatusCreated, map[string]interface{}{
		"session":                   session,
		"recommendations_completed": completed,
	})
}

// ListExercises returns active exercises, optionally filtered by ?category=.
func (h *Handler) ListExercises(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	category := domain.Category(r.URL.Query().Get("category"))

	var exercises []domain.GuidedExercise
	var err error
	switch {
	case category == "":
		exercises, err = h.repo.ListExercises(ctx)
	case category.Valid():
		exercises, err = h.repo.ListExercisesByCategory(ctx, category, 0)
	default:
		Error(w, http.StatusBadRequest, "unknown category")
		return
	}
	if err != nil {
		slog.Error("Failed to list exercises", "error", err, "category", category)
	}
	if exercises == nil {
		exercises = []domain.GuidedExercise{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"exercises": exercises})
}
