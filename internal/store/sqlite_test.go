package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/tandem/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "tandem.db"), DefaultOptions())
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var testDay = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func TestCheckInsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, d := range []int{2, 0, 1} {
		c := &domain.CheckIn{
			UserID:           "alice",
			CoupleID:         "couple-1",
			Date:             testDay.AddDate(0, 0, d),
			MoodRating:       5 + i,
			ConnectionRating: 3,
			Reflection:       "ok",
			IsShared:         i == 0,
		}
		if err := s.InsertCheckIn(ctx, c); err != nil {
			t.Fatalf("InsertCheckIn: %v", err)
		}
		if c.ID == "" {
			t.Fatal("expected InsertCheckIn to assign an ID")
		}
	}
	other := &domain.CheckIn{UserID: "carol", CoupleID: "couple-2", Date: testDay, MoodRating: 1, ConnectionRating: 1}
	if err := s.InsertCheckIn(ctx, other); err != nil {
		t.Fatalf("InsertCheckIn: %v", err)
	}

	got, err := s.ListCheckIns(ctx, "couple-1")
	if err != nil {
		t.Fatalf("ListCheckIns: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 check-ins, got %d", len(got))
	}
	for i, c := range got {
		if want := testDay.AddDate(0, 0, i); !c.Date.Equal(want) {
			t.Errorf("check-in %d: expected date %s, got %s", i, want, c.Date)
		}
	}
	if got[2].MoodRating != 5 || !got[2].IsShared {
		t.Errorf("unexpected last check-in: %+v", got[2])
	}
}

func TestListActiveRules(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rules := []domain.PatternRule{
		{ID: "b", RuleName: "second", RuleType: domain.RuleLowMood, Priority: 2, IsActive: true,
			Conditions: domain.Condition{Metric: domain.MetricMood, Operator: domain.OpLessEqual, Threshold: 4, ConsecutiveDays: 3}},
		{ID: "a", RuleName: "first", RuleType: domain.RuleLowConnection, Priority: 1, IsActive: true,
			Conditions: domain.Condition{Metric: domain.MetricConnection, Operator: domain.OpLessEqual, Threshold: 4, ConsecutiveDays: 3}},
		{ID: "c", RuleName: "off", RuleType: domain.RuleLowMood, Priority: 0, IsActive: false,
			Conditions: domain.Condition{Metric: domain.MetricMood, Operator: domain.OpLessEqual, Threshold: 4, ConsecutiveDays: 3}},
	}
	for i := range rules {
		if err := s.UpsertRule(ctx, &rules[i]); err != nil {
			t.Fatalf("UpsertRule: %v", err)
		}
	}

	// A row whose condition no longer decodes is skipped.
	if _, err := s.db.Exec(`INSERT INTO pattern_rules (id, rule_name, rule_type, conditions_json, priority, is_active, created_at, updated_at)
		VALUES ('bad', 'bad', 'low_mood', '{"metric":"sleep"}', 0, 1, 0, 0)`); err != nil {
		t.Fatalf("insert bad rule: %v", err)
	}

	got, err := s.ListActiveRules(ctx)
	if err != nil {
		t.Fatalf("ListActiveRules: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected rules: %+v", got)
	}
	if got[0].Conditions.ConsecutiveDays != 3 || got[0].Conditions.Metric != domain.MetricConnection {
		t.Errorf("conditions not decoded: %+v", got[0].Conditions)
	}

	rules[1].Priority = 5
	if err := s.UpsertRule(ctx, &rules[1]); err != nil {
		t.Fatalf("UpsertRule update: %v", err)
	}
	got, err = s.ListActiveRules(ctx)
	if err != nil {
		t.Fatalf("ListActiveRules: %v", err)
	}
	if got[0].ID != "b" {
		t.Errorf("expected updated priority to reorder rules, got %s first", got[0].ID)
	}
}

func TestAlertLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	data := domain.AlertData{
		CoupleID:    "couple-1",
		UserID:      "alice",
		Type:        domain.RuleLowConnection,
		Title:       "Connection Pattern Detected",
		Message:     "3+ consecutive days with connection ≤ 4",
		Severity:    domain.SeverityMedium,
		PatternData: domain.PatternData{Metric: domain.MetricConnection, Operator: domain.OpLessEqual, Threshold: 4, ConsecutiveDays: 3, CurrentStreak: 4},
		ExpiresAt:   now.Add(time.Hour),
		DedupeKey:   "couple-1|alice|low_connection|2026-03-01",
	}
	alert, err := s.InsertAlert(ctx, data)
	if err != nil {
		t.Fatalf("InsertAlert: %v", err)
	}

	if _, err := s.InsertAlert(ctx, data); !IsConflict(err) {
		t.Fatalf("expected conflict on repeated dedupe key, got %v", err)
	}

	found, err := s.FindActiveAlert(ctx, "couple-1", "alice", domain.RuleLowConnection, now)
	if err != nil {
		t.Fatalf("FindActiveAlert: %v", err)
	}
	if found == nil || found.ID != alert.ID {
		t.Fatalf("expected to find alert %s, got %+v", alert.ID, found)
	}
	if found.PatternData.CurrentStreak != 4 {
		t.Errorf("pattern data not round-tripped: %+v", found.PatternData)
	}

	if err := s.UpdateAlert(ctx, alert.ID, "bob", AlertUpdate{IsDismissed: boolPtr(true)}); !IsNotFound(err) {
		t.Fatalf("expected not found for non-owner, got %v", err)
	}

	if err := s.UpdateAlert(ctx, alert.ID, "alice", AlertUpdate{IsRead: boolPtr(true)}); err != nil {
		t.Fatalf("UpdateAlert read: %v", err)
	}
	active, err := s.ListAlerts(ctx, "couple-1", true, now)
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(active) != 1 || !active[0].IsRead {
		t.Fatalf("expected one read active alert, got %+v", active)
	}

	if err := s.UpdateAlert(ctx, alert.ID, "alice", AlertUpdate{IsDismissed: boolPtr(true)}); err != nil {
		t.Fatalf("UpdateAlert dismiss: %v", err)
	}
	active, err = s.ListAlerts(ctx, "couple-1", true, now)
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active alerts after dismiss, got %d", len(active))
	}
	all, err := s.ListAlerts(ctx, "couple-1", false, now)
	if err != nil {
		t.Fatalf("ListAlerts all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected dismissed alert to remain stored, got %d", len(all))
	}

	found, err = s.FindActiveAlert(ctx, "couple-1", "alice", domain.RuleLowConnection, now)
	if err != nil || found != nil {
		t.Fatalf("expected no active alert, got %+v, %v", found, err)
	}

	missing, err := s.GetAlert(ctx, "missing")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing alert, got %+v, %v", missing, err)
	}
}

func TestListAlertsExcludesExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, expires := range []time.Time{now.Add(-time.Minute), now.Add(time.Hour)} {
		if _, err := s.InsertAlert(ctx, domain.AlertData{
			CoupleID: "couple-1", UserID: "alice", Type: domain.RuleLowMood,
			Title: "Mood Pattern Detected", Severity: domain.SeverityHigh, ExpiresAt: expires,
		}); err != nil {
			t.Fatalf("InsertAlert: %v", err)
		}
	}

	active, err := s.ListAlerts(ctx, "couple-1", true, now)
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(active) != 1 || active[0].ExpiresAt.Unix() != now.Add(time.Hour).Unix() {
		t.Fatalf("expected only the unexpired alert, got %+v", active)
	}
}

func seedExercises(t *testing.T, s *SQLiteStore) {
	t.Helper()
	exercises := []domain.GuidedExercise{
		{ID: "adv", Title: "Advanced", Category: domain.CategoryConnection, Difficulty: domain.DifficultyAdvanced, IsActive: true},
		{ID: "beg", Title: "Beginner", Category: domain.CategoryConnection, Difficulty: domain.DifficultyBeginner, IsActive: true,
			Instructions: []string{"sit", "talk"}, Benefits: []string{"closeness"}},
		{ID: "mid", Title: "Intermediate", Category: domain.CategoryConnection, Difficulty: domain.DifficultyIntermediate, IsActive: true},
		{ID: "off", Title: "Retired", Category: domain.CategoryConnection, Difficulty: domain.DifficultyBeginner, IsActive: false},
		{ID: "grat", Title: "Gratitude", Category: domain.CategoryGratitude, Difficulty: domain.DifficultyBeginner, IsActive: true},
	}
	for i := range exercises {
		if err := s.UpsertExercise(context.Background(), &exercises[i]); err != nil {
			t.Fatalf("UpsertExercise: %v", err)
		}
	}
}

func TestListExercisesByCategory(t *testing.T) {
	s := newTestStore(t)
	seedExercises(t, s)
	ctx := context.Background()

	got, err := s.ListExercisesByCategory(ctx, domain.CategoryConnection, 2)
	if err != nil {
		t.Fatalf("ListExercisesByCategory: %v", err)
	}
	if len(got) != 2 || got[0].ID != "beg" || got[1].ID != "mid" {
		t.Fatalf("expected easiest two exercises, got %+v", got)
	}
	if len(got[0].Instructions) != 2 || got[0].MaterialsNeeded == nil {
		t.Errorf("lists not decoded: %+v", got[0])
	}

	got, err = s.ListExercisesByCategory(ctx, domain.CategoryConnection, 0)
	if err != nil {
		t.Fatalf("ListExercisesByCategory: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected all 3 active exercises, got %d", len(got))
	}

	all, err := s.ListExercises(ctx)
	if err != nil {
		t.Fatalf("ListExercises: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 active exercises, got %d", len(all))
	}
}

func TestRecommendationLifecycle(t *testing.T) {
	s := newTestStore(t)
	seedExercises(t, s)
	ctx := context.Background()
	now := time.Now()

	insert := func(exerciseID string, priority int, key string) {
		t.Helper()
		if _, err := s.InsertRecommendation(ctx, domain.RecommendationData{
			UserID: "alice", CoupleID: "couple-1", ExerciseID: exerciseID,
			Reason: "because", Priority: priority, ExpiresAt: now.Add(time.Hour), DedupeKey: key,
		}); err != nil {
			t.Fatalf("InsertRecommendation %s: %v", exerciseID, err)
		}
	}
	insert("mid", 5, "k-mid")
	insert("beg", 6, "k-beg")
	insert("grat", 4, "")

	if _, err := s.InsertRecommendation(ctx, domain.RecommendationData{
		UserID: "alice", CoupleID: "couple-1", ExerciseID: "beg", ExpiresAt: now.Add(time.Hour), DedupeKey: "k-beg",
	}); !IsConflict(err) {
		t.Fatalf("expected conflict on repeated dedupe key, got %v", err)
	}

	open, err := s.FindOpenRecommendation(ctx, "alice", "couple-1", "beg", now)
	if err != nil || open == nil {
		t.Fatalf("FindOpenRecommendation: %+v, %v", open, err)
	}
	if open, err := s.FindOpenRecommendation(ctx, "bob", "couple-1", "beg", now); err != nil || open != nil {
		t.Fatalf("expected no recommendation for bob, got %+v, %v", open, err)
	}

	recs, err := s.ListOpenRecommendations(ctx, "alice", "couple-1", now, 2)
	if err != nil {
		t.Fatalf("ListOpenRecommendations: %v", err)
	}
	if len(recs) != 2 || recs[0].ExerciseID != "beg" || recs[1].ExerciseID != "mid" {
		t.Fatalf("expected highest priority first, got %+v", recs)
	}
	if recs[0].Exercise == nil || recs[0].Exercise.Title != "Beginner" {
		t.Errorf("expected joined exercise, got %+v", recs[0].Exercise)
	}

	n, err := s.MarkRecommendationCompleted(ctx, "alice", "couple-1", "beg", now)
	if err != nil {
		t.Fatalf("MarkRecommendationCompleted: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 completed, got %d", n)
	}
	recs, err = s.ListOpenRecommendations(ctx, "alice", "couple-1", now, 0)
	if err != nil {
		t.Fatalf("ListOpenRecommendations: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 open recommendations, got %d", len(recs))
	}
	for _, r := range recs {
		if r.ExerciseID == "beg" {
			t.Errorf("completed recommendation still listed")
		}
	}

	// Expired recommendations are neither listed nor completed.
	later := now.Add(2 * time.Hour)
	recs, err = s.ListOpenRecommendations(ctx, "alice", "couple-1", later, 0)
	if err != nil || len(recs) != 0 {
		t.Fatalf("expected no open recommendations later, got %d, %v", len(recs), err)
	}
	if n, err := s.MarkRecommendationCompleted(ctx, "alice", "couple-1", "mid", later); err != nil || n != 0 {
		t.Fatalf("expected 0 completed after expiry, got %d, %v", n, err)
	}
}

func TestInsertExerciseSession(t *testing.T) {
	s := newTestStore(t)
	session := &domain.ExerciseSession{UserID: "alice", CoupleID: "couple-1", ExerciseID: "beg", Rating: 5}
	if err := s.InsertExerciseSession(context.Background(), session); err != nil {
		t.Fatalf("InsertExerciseSession: %v", err)
	}
	if session.ID == "" || session.CompletedAt.IsZero() {
		t.Fatalf("expected ID and CompletedAt to be set, got %+v", session)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM exercise_sessions WHERE user_id = 'alice'`).Scan(&count); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 session, got %d", count)
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "tandem.db"), DefaultOptions())
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err = s.ListCheckIns(context.Background(), "couple-1")
	if err == nil {
		t.Fatal("expected error from closed store")
	}
	if kind := KindOf(err); kind != KindUnavailable {
		t.Errorf("expected %s, got %s", KindUnavailable, kind)
	}
}

func TestSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tandem.db")
	for i := 0; i < 2; i++ {
		s, err := NewSQLite(path, DefaultOptions())
		if err != nil {
			t.Fatalf("NewSQLite attempt %d: %v", i+1, err)
		}
		var version int
		if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
			t.Fatalf("user_version: %v", err)
		}
		if version != currentSchemaVersion {
			t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
		}
		_ = s.Close()
	}
}

func boolPtr(b bool) *bool { return &b }

func TestPurgeExpiredRecommendations(t *testing.T) {
	s := newTestStore(t)
	seedExercises(t, s)
	ctx := context.Background()
	now := time.Now()

	for _, expires := range []time.Time{now.Add(-48 * time.Hour), now.Add(time.Hour)} {
		if _, err := s.InsertRecommendation(ctx, domain.RecommendationData{
			UserID: "alice", CoupleID: "couple-1", ExerciseID: "beg", ExpiresAt: expires,
		}); err != nil {
			t.Fatalf("InsertRecommendation: %v", err)
		}
	}

	n, err := s.PurgeExpiredRecommendations(ctx, now.Add(-24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("expected 1 recommendation purged, got %d, %v", n, err)
	}
	open, err := s.ListOpenRecommendations(ctx, "alice", "couple-1", now, 0)
	if err != nil || len(open) != 1 {
		t.Fatalf("expected 1 remaining recommendation, got %d, %v", len(open), err)
	}
}

func TestCompletionReleasesRecommendationKey(t *testing.T) {
	s := newTestStore(t)
	seedExercises(t, s)
	ctx := context.Background()
	now := time.Now()
	data := domain.RecommendationData{
		UserID: "alice", CoupleID: "couple-1", ExerciseID: "beg",
		ExpiresAt: now.Add(time.Hour), DedupeKey: "alice|couple-1|beg|today",
	}

	if _, err := s.InsertRecommendation(ctx, data); err != nil {
		t.Fatalf("InsertRecommendation: %v", err)
	}
	if _, err := s.InsertRecommendation(ctx, data); !IsConflict(err) {
		t.Fatalf("expected conflict while the key is held, got %v", err)
	}

	n, err := s.MarkRecommendationCompleted(ctx, "alice", "couple-1", "beg", now)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 completion, got %d, %v", n, err)
	}
	if _, err := s.InsertRecommendation(ctx, data); err != nil {
		t.Fatalf("expected same-day insert after completion to succeed, got %v", err)
	}
}
