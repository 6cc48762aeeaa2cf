package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/tandem/internal/domain"
	"github.com/ashureev/tandem/internal/identity"
	"github.com/ashureev/tandem/internal/insight"
)

type checkInRequest struct {
	Date             string `json:"date"`
	MoodRating       int    `json:"mood_rating"`
	ConnectionRating int    `json:"connection_rating"`
	Reflection       string `json:"reflection"`
	IsShared         bool   `json:"is_shared"`
}

type checkInResponse struct {
	CheckIn  *domain.CheckIn    `json:"check_in"`
	Insights *insight.RunResult `json:"insights"`
}

// SubmitCheckIn stores the caller's check-in and runs the insight pipeline.
func (h *Handler) SubmitCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := identity.UserIDFromContext(ctx)
	coupleID := identity.CoupleIDFromContext(ctx)

	var req checkInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	date := domain.Day(time.Now())
	if req.Date != "" {
		parsed, err := time.Parse(domain.DateLayout, req.Date)
		if err != nil {
			Error(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	checkIn := &domain.CheckIn{
		UserID:           userID,
		CoupleID:         coupleID,
		Date:             date,
		MoodRating:       req.MoodRating,
		ConnectionRating: req.ConnectionRating,
		Reflection:       req.Reflection,
		IsShared:         req.IsShared,
	}
	if err := checkIn.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.InsertCheckIn(ctx, checkIn); err != nil {
		slog.Error("Failed to store check-in", "error", err, "user_id", userID, "couple_id", coupleID)
		Error(w, http.StatusInternalServerError, "failed to store check-in")
		return
	}

	// The check-in is saved; insight failures only shrink what we report back.
	res, err := h.engine.Run(ctx, coupleID, userID)
	if err != nil {
		slog.Warn("Insight run finished with errors", "error", err, "user_id", userID, "couple_id", coupleID)
	}

	JSON(w, http.StatusCreated, checkInResponse{CheckIn: checkIn, Insights: res})
}

// ListCheckIns returns the couple's check-ins. Store failures yield an
// empty list so the dashboard still renders.
func (h *Handler) ListCheckIns(w http.ResponseWriter, r *http.Request) {
	coupleID := identity.CoupleIDFromContext(r.Context())

	checkIns, err := h.repo.ListCheckIns(r.Context(), coupleID)
	if err != nil {
		slog.Error("Failed to list check-ins", "error", err, "couple_id", coupleID)
	}
	if checkIns == nil {
		checkIns = []domain.CheckIn{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"check_ins": checkIns})
}
