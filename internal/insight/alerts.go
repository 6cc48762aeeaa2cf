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

// DefaultAlertTTL is how long an alert stays active after creation.
const DefaultAlertTTL = 7 * 24 * time.Hour

// ErrDuplicateAlert is returned by Create when an equivalent alert is
// already active for the couple/user pair.
var ErrDuplicateAlert = errors.New("duplicate active alert")

// AlertManager owns alert creation, expiry and user-driven state changes.
type AlertManager struct {
	repo   store.Repository
	now    func() time.Time
	ttl    time.Duration
	dedup  bool
	logger *slog.Logger
}

// NewAlertManager creates an alert manager. With dedup enabled at most one
// active alert exists per (couple, user, type), backed by a per-day
// idempotency key in the store.
func NewAlertManager(repo store.Repository, ttl time.Duration, dedup bool, now func() time.Time, logger *slog.Logger) *AlertManager {
	if ttl <= 0 {
		ttl = DefaultAlertTTL
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertManager{repo: repo, now: now, ttl: ttl, dedup: dedup, logger: logger}
}

// Create persists a new unread alert expiring after the manager's TTL unless
// data.ExpiresAt is already set.
func (m *AlertManager) Create(ctx context.Context, data domain.AlertData) (*domain.PatternAlert, error) {
	now := m.now()
	if data.ExpiresAt.IsZero() {
		data.ExpiresAt = now.Add(m.ttl)
	}

	if m.dedup {
		existing, err := m.repo.FindActiveAlert(ctx, data.CoupleID, data.UserID, data.Type, now)
		if err != nil {
			// The idempotency key still guards the insert below.
			storeFailures.WithLabelValues("find_active_alert").Inc()
			m.logger.Warn("Failed to check for active alert", "couple_id", data.CoupleID, "user_id", data.UserID, "alert_type", data.Type, "error", err)
		} else if existing != nil {
			return existing, ErrDuplicateAlert
		}
		data.DedupeKey = alertDedupeKey(data.CoupleID, data.UserID, data.Type, now)
	}

	alert, err := m.repo.InsertAlert(ctx, data)
	if store.IsConflict(err) {
		return nil, ErrDuplicateAlert
	}
	if err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}
	alertsCreated.WithLabelValues(string(alert.Type)).Inc()
	return alert, nil
}

// CreateFromDetections creates one alert per detection and returns only the
// alerts that were newly created. Duplicates are skipped silently; other
// write failures are joined into the returned error without stopping the loop.
func (m *AlertManager) CreateFromDetections(ctx context.Context, results []DetectionResult) ([]domain.PatternAlert, error) {
	var created []domain.PatternAlert
	var errs []error
	for _, det := range results {
		alert, err := m.Create(ctx, domain.AlertData{
			CoupleID:        det.CoupleID,
			UserID:          det.UserID,
			Type:            det.AlertType,
			Title:           det.Title,
			Message:         det.Message,
			SuggestedAction: det.SuggestedAction,
			PatternData:     det.PatternData,
			Severity:        det.Severity,
		})
		if errors.Is(err, ErrDuplicateAlert) {
			alertsDeduplicated.WithLabelValues(string(det.AlertType)).Inc()
			m.logger.Debug("Skipping duplicate alert", "couple_id", det.CoupleID, "user_id", det.UserID, "alert_type", det.AlertType)
			continue
		}
		if err != nil {
			storeFailures.WithLabelValues("insert_alert").Inc()
			m.logger.Error("Failed to create alert", "couple_id", det.CoupleID, "user_id", det.UserID, "alert_type", det.AlertType, "error", err)
			errs = append(errs, err)
			continue
		}
		created = append(created, *alert)
	}
	return created, errors.Join(errs...)
}

// ListActive returns the couple's undismissed, unexpired alerts, newest
// first. Store failures are logged and produce an empty list.
func (m *AlertManager) ListActive(ctx context.Context, coupleID string) []domain.PatternAlert {
	now := m.now()
	alerts, err := m.repo.ListAlerts(ctx, coupleID, true, now)
	if err != nil {
		storeFailures.WithLabelValues("list_alerts").Inc()
		m.logger.Error("Failed to list active alerts", "couple_id", coupleID, "error", err)
		return []domain.PatternAlert{}
	}
	active := make([]domain.PatternAlert, 0, len(alerts))
	for _, a := range alerts {
		if a.IsActive(now) {
			active = append(active, a)
		}
	}
	return active
}

// MarkRead sets is_read on an alert owned by userID.
func (m *AlertManager) MarkRead(ctx context.Context, alertID, userID string) error {
	read := true
	if err := m.repo.UpdateAlert(ctx, alertID, userID, store.AlertUpdate{IsRead: &read}); err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	return nil
}

// Dismiss sets is_dismissed on an alert owned by userID.
func (m *AlertManager) Dismiss(ctx context.Context, alertID, userID string) error {
	dismissed := true
	if err := m.repo.UpdateAlert(ctx, alertID, userID, store.AlertUpdate{IsDismissed: &dismissed}); err != nil {
		return fmt.Errorf("dismiss alert: %w", err)
	}
	return nil
}

func alertDedupeKey(coupleID, userID string, t domain.RuleType, now time.Time) string {
	return coupleID + "|" + userID + "|" + string(t) + "|" + now.UTC().Format(domain.DateLayout)
}
