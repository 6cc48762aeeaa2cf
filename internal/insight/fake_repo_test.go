package insight

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ashureev/tandem/internal/domain"
	"github.com/ashureev/tandem/internal/store"
)

// fakeRepo is an in-memory store.Repository. Operations named in fail
// return a store error of the configured kind.
type fakeRepo struct {
	mu        sync.Mutex
	seq       int
	checkIns  []domain.CheckIn
	rules     []domain.PatternRule
	alerts    []*domain.PatternAlert
	alertKeys map[string]bool
	exercises map[string]domain.GuidedExercise
	recs      []*domain.ExerciseRecommendation
	recKeys   map[string]bool
	recKeyOf  map[string]string
	sessions  []domain.ExerciseSession
	fail      map[string]store.ErrorKind
	calls     map[string]int

	// When listGate is set, ListCheckIns signals listEntered and then waits
	// for the gate to close or for its context to end.
	listGate    chan struct{}
	listEntered chan struct{}
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		alertKeys: make(map[string]bool),
		exercises: make(map[string]domain.GuidedExercise),
		recKeys:   make(map[string]bool),
		recKeyOf:  make(map[string]string),
		fail:      make(map[string]store.ErrorKind),
		calls:     make(map[string]int),
	}
}

func (f *fakeRepo) failOn(op string, kind store.ErrorKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = kind
}

func (f *fakeRepo) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// enter records the call and returns the injected failure, if any. Callers
// must hold f.mu.
func (f *fakeRepo) enter(op string) error {
	f.calls[op]++
	if kind, ok := f.fail[op]; ok {
		return &store.Error{Op: op, Kind: kind, Err: fmt.Errorf("injected %s failure", kind)}
	}
	return nil
}

func (f *fakeRepo) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeRepo) InsertCheckIn(_ context.Context, checkIn *domain.CheckIn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("insert_check_in"); err != nil {
		return err
	}
	if checkIn.ID == "" {
		checkIn.ID = f.nextID("checkin")
	}
	f.checkIns = append(f.checkIns, *checkIn)
	return nil
}

func (f *fakeRepo) ListCheckIns(ctx context.Context, coupleID string) ([]domain.CheckIn, error) {
	if f.listGate != nil {
		select {
		case f.listEntered <- struct{}{}:
		default:
		}
		select {
		case <-f.listGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("list_check_ins"); err != nil {
		return nil, err
	}
	var out []domain.CheckIn
	for _, c := range f.checkIns {
		if c.CoupleID == coupleID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListActiveRules(_ context.Context) ([]domain.PatternRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("list_active_rules"); err != nil {
		return nil, err
	}
	var out []domain.PatternRule
	for _, r := range f.rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (f *fakeRepo) UpsertRule(_ context.Context, rule *domain.PatternRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("upsert_rule"); err != nil {
		return err
	}
	for i := range f.rules {
		if f.rules[i].ID == rule.ID {
			f.rules[i] = *rule
			return nil
		}
	}
	f.rules = append(f.rules, *rule)
	return nil
}

func (f *fakeRepo) InsertAlert(_ context.Context, data domain.AlertData) (*domain.PatternAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("insert_alert"); err != nil {
		return nil, err
	}
	if data.DedupeKey != "" {
		if f.alertKeys[data.DedupeKey] {
			return nil, &store.Error{Op: "insert alert", Kind: store.KindConflict, Err: fmt.Errorf("UNIQUE constraint failed")}
		}
		f.alertKeys[data.DedupeKey] = true
	}
	now := time.Now()
	alert := &domain.PatternAlert{
		ID:              f.nextID("alert"),
		CoupleID:        data.CoupleID,
		UserID:          data.UserID,
		Type:            data.Type,
		Title:           data.Title,
		Message:         data.Message,
		SuggestedAction: data.SuggestedAction,
		PatternData:     data.PatternData,
		Severity:        data.Severity,
		ExpiresAt:       data.ExpiresAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.alerts = append(f.alerts, alert)
	copy := *alert
	return &copy, nil
}

func (f *fakeRepo) GetAlert(_ context.Context, alertID string) (*domain.PatternAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("get_alert"); err != nil {
		return nil, err
	}
	for _, a := range f.alerts {
		if a.ID == alertID {
			copy := *a
			return &copy, nil
		}
	}
	return nil, nil
}

// ListAlerts ignores activeOnly so callers' own filtering is exercised.
func (f *fakeRepo) ListAlerts(_ context.Context, coupleID string, _ bool, _ time.Time) ([]domain.PatternAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("list_alerts"); err != nil {
		return nil, err
	}
	var out []domain.PatternAlert
	for i := len(f.alerts) - 1; i >= 0; i-- {
		if f.alerts[i].CoupleID == coupleID {
			out = append(out, *f.alerts[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) FindActiveAlert(_ context.Context, coupleID, userID string, alertType domain.RuleType, now time.Time) (*domain.PatternAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("find_active_alert"); err != nil {
		return nil, err
	}
	for _, a := range f.alerts {
		if a.CoupleID == coupleID && a.UserID == userID && a.Type == alertType && a.IsActive(now) {
			copy := *a
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) UpdateAlert(_ context.Context, alertID, userID string, fields store.AlertUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("update_alert"); err != nil {
		return err
	}
	for _, a := range f.alerts {
		if a.ID != alertID || a.UserID != userID {
			continue
		}
		if fields.IsRead != nil {
			a.IsRead = *fields.IsRead
		}
		if fields.IsDismissed != nil {
			a.IsDismissed = *fields.IsDismissed
		}
		return nil
	}
	return &store.Error{Op: "update alert", Kind: store.KindNotFound, Err: store.ErrNotFound}
}

func (f *fakeRepo) UpsertExercise(_ context.Context, exercise *domain.GuidedExercise) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("upsert_exercise"); err != nil {
		return err
	}
	f.exercises[exercise.ID] = *exercise
	return nil
}

func (f *fakeRepo) ListExercisesByCategory(_ context.Context, category domain.Category, limit int) ([]domain.GuidedExercise, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("list_exercises_by_category"); err != nil {
		return nil, err
	}
	var out []domain.GuidedExercise
	for _, ex := range f.exercises {
		if ex.Category == category && ex.IsActive {
			out = append(out, ex)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Difficulty.Rank() != out[j].Difficulty.Rank() {
			return out[i].Difficulty.Rank() < out[j].Difficulty.Rank()
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) ListExercises(_ context.Context) ([]domain.GuidedExercise, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("list_exercises"); err != nil {
		return nil, err
	}
	var out []domain.GuidedExercise
	for _, ex := range f.exercises {
		if ex.IsActive {
			out = append(out, ex)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) FindOpenRecommendation(_ context.Context, userID, coupleID, exerciseID string, now time.Time) (*domain.ExerciseRecommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("find_open_recommendation"); err != nil {
		return nil, err
	}
	for _, r := range f.recs {
		if r.UserID == userID && r.CoupleID == coupleID && r.ExerciseID == exerciseID && r.IsOpen(now) {
			copy := *r
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) InsertRecommendation(_ context.Context, data domain.RecommendationData) (*domain.ExerciseRecommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("insert_recommendation"); err != nil {
		return nil, err
	}
	if data.DedupeKey != "" {
		if f.recKeys[data.DedupeKey] {
			return nil, &store.Error{Op: "insert recommendation", Kind: store.KindConflict, Err: fmt.Errorf("UNIQUE constraint failed")}
		}
		f.recKeys[data.DedupeKey] = true
	}
	rec := &domain.ExerciseRecommendation{
		ID:         f.nextID("rec"),
		UserID:     data.UserID,
		CoupleID:   data.CoupleID,
		ExerciseID: data.ExerciseID,
		Reason:     data.Reason,
		Priority:   data.Priority,
		ExpiresAt:  data.ExpiresAt,
		CreatedAt:  time.Now(),
	}
	f.recs = append(f.recs, rec)
	if data.DedupeKey != "" {
		f.recKeyOf[rec.ID] = data.DedupeKey
	}
	copy := *rec
	return &copy, nil
}

func (f *fakeRepo) ListOpenRecommendations(_ context.Context, userID, coupleID string, now time.Time, limit int) ([]domain.ExerciseRecommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("list_open_recommendations"); err != nil {
		return nil, err
	}
	var out []domain.ExerciseRecommendation
	for _, r := range f.recs {
		if r.UserID == userID && r.CoupleID == coupleID && r.IsOpen(now) {
			rec := *r
			if ex, ok := f.exercises[r.ExerciseID]; ok {
				rec.Exercise = &ex
			}
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) MarkRecommendationCompleted(_ context.Context, userID, coupleID, exerciseID string, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("mark_recommendation_completed"); err != nil {
		return 0, err
	}
	var n int64
	for _, r := range f.recs {
		if r.UserID == userID && r.CoupleID == coupleID && r.ExerciseID == exerciseID && !r.IsCompleted {
			r.IsCompleted = true
			completedAt := now
			r.CompletedAt = &completedAt
			delete(f.recKeys, f.recKeyOf[r.ID])
			delete(f.recKeyOf, r.ID)
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) InsertExerciseSession(_ context.Context, session *domain.ExerciseSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("insert_exercise_session"); err != nil {
		return err
	}
	if session.ID == "" {
		session.ID = f.nextID("session")
	}
	f.sessions = append(f.sessions, *session)
	return nil
}

func (f *fakeRepo) PurgeExpiredRecommendations(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("purge_expired_recommendations"); err != nil {
		return 0, err
	}
	kept := f.recs[:0]
	var n int64
	for _, r := range f.recs {
		if r.ExpiresAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.recs = kept
	return n, nil
}

func (f *fakeRepo) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enter("ping")
}

func (f *fakeRepo) Close() error { return nil }

// fixtures

var baseDay = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// addCheckIns stores one check-in per day starting at baseDay with the given
// connection ratings. Mood is fixed at 7.
func (f *fakeRepo) addCheckIns(coupleID, userID string, connection ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, v := range connection {
		f.checkIns = append(f.checkIns, domain.CheckIn{
			ID:               f.nextID("checkin"),
			UserID:           userID,
			CoupleID:         coupleID,
			Date:             baseDay.AddDate(0, 0, i),
			MoodRating:       7,
			ConnectionRating: v,
		})
	}
}

func lowConnectionRule() domain.PatternRule {
	return domain.PatternRule{
		ID:       "rule-low-connection",
		RuleName: "Low connection",
		RuleType: domain.RuleLowConnection,
		Conditions: domain.Condition{
			Metric:          domain.MetricConnection,
			Operator:        domain.OpLessEqual,
			Threshold:       4,
			ConsecutiveDays: 3,
		},
		Priority: 1,
		IsActive: true,
	}
}

func exercise(id string, category domain.Category, difficulty domain.Difficulty) domain.GuidedExercise {
	return domain.GuidedExercise{
		ID:         id,
		Title:      id,
		Category:   category,
		Difficulty: difficulty,
		IsActive:   true,
	}
}

// seedExercises stores two exercises per category used by low_connection.
func (f *fakeRepo) seedExercises() {
	for _, ex := range []domain.GuidedExercise{
		exercise("conn-begin", domain.CategoryConnection, domain.DifficultyBeginner),
		exercise("conn-adv", domain.CategoryConnection, domain.DifficultyAdvanced),
		exercise("conn-mid", domain.CategoryConnection, domain.DifficultyIntermediate),
		exercise("qt-begin", domain.CategoryQualityTime, domain.DifficultyBeginner),
		exercise("qt-mid", domain.CategoryQualityTime, domain.DifficultyIntermediate),
		exercise("int-begin", domain.CategoryIntimacy, domain.DifficultyBeginner),
		exercise("int-adv", domain.CategoryIntimacy, domain.DifficultyAdvanced),
	} {
		f.exercises[ex.ID] = ex
	}
}
