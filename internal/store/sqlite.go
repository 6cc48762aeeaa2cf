package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/tandem/internal/domain"
	"github.com/ashureev/tandem/internal/shared"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const currentSchemaVersion = 1

// Options tunes per-call behaviour of the SQLite store.
type Options struct {
	// Timeout bounds every repository call. Zero disables the deadline.
	Timeout time.Duration
	// MaxRetries is the number of attempts for writes hitting SQLITE_BUSY.
	MaxRetries int
	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Timeout:        3 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 50 * time.Millisecond,
	}
}

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	opts Options
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string, opts Options) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode lets dashboard reads proceed while a check-in is being written.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, opts: opts}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// opContext derives the per-call deadline.
func (s *SQLiteStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}

func (s *SQLiteStore) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var result sql.Result
	err := shared.RetryOnConflict(ctx, op, s.opts.MaxRetries, s.opts.RetryBaseDelay, func() error {
		var execErr error
		result, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return wrapErr("ping", s.db.PingContext(ctx))
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// InsertCheckIn persists a new check-in.
func (s *SQLiteStore) InsertCheckIn(ctx context.Context, c *domain.CheckIn) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt

	query := `
	INSERT INTO check_ins (id, user_id, couple_id, date, mood_rating, connection_rating,
	                       reflection, is_shared, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.exec(ctx, "insert check-in", query,
		c.ID, c.UserID, c.CoupleID, c.Date.Format(domain.DateLayout),
		c.MoodRating, c.ConnectionRating, c.Reflection, c.IsShared,
		c.CreatedAt.Unix(), c.UpdatedAt.Unix(),
	)
	return err
}

// ListCheckIns returns every check-in for the couple, oldest date first.
func (s *SQLiteStore) ListCheckIns(ctx context.Context, coupleID string) ([]domain.CheckIn, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, couple_id, date, mood_rating, connection_rating,
		       reflection, is_shared, created_at, updated_at
		FROM check_ins WHERE couple_id = ?
		ORDER BY date ASC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, coupleID)
	if err != nil {
		return nil, wrapErr("query check-ins", err)
	}
	defer closeRows(rows, "check-ins")

	var out []domain.CheckIn
	for rows.Next() {
		var c domain.CheckIn
		var date string
		var createdAt, updatedAt int64
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.CoupleID, &date, &c.MoodRating, &c.ConnectionRating,
			&c.Reflection, &c.IsShared, &createdAt, &updatedAt,
		); err != nil {
			return nil, wrapErr("scan check-in row", err)
		}
		c.Date, err = time.Parse(domain.DateLayout, date)
		if err != nil {
			return nil, wrapErr("parse check-in date", err)
		}
		c.CreatedAt = time.Unix(createdAt, 0)
		c.UpdatedAt = time.Unix(updatedAt, 0)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate check-ins", err)
	}
	return out, nil
}

// ListActiveRules returns active rules ordered by priority ascending.
// Rows whose condition cannot be decoded are skipped with a warning.
func (s *SQLiteStore) ListActiveRules(ctx context.Context) ([]domain.PatternRule, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := `
		SELECT id, rule_name, rule_type, conditions_json, priority, is_active, created_at, updated_at
		FROM pattern_rules WHERE is_active = 1
		ORDER BY priority ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapErr("query active rules", err)
	}
	defer closeRows(rows, "rules")

	var out []domain.PatternRule
	for rows.Next() {
		var r domain.PatternRule
		var conditions string
		var createdAt, updatedAt int64
		if err := rows.Scan(&r.ID, &r.RuleName, &r.RuleType, &conditions, &r.Priority, &r.IsActive, &createdAt, &updatedAt); err != nil {
			return nil, wrapErr("scan rule row", err)
		}
		cond, err := domain.ParseCondition([]byte(conditions))
		if err != nil {
			slog.Warn("Skipping rule with invalid conditions", "rule_id", r.ID, "error", err)
			continue
		}
		r.Conditions = cond
		r.CreatedAt = time.Unix(createdAt, 0)
		r.UpdatedAt = time.Unix(updatedAt, 0)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate rules", err)
	}
	return out, nil
}

// UpsertRule creates or replaces a rule by ID.
func (s *SQLiteStore) UpsertRule(ctx context.Context, r *domain.PatternRule) error {
	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return wrapErr("encode rule conditions", err)
	}
	now := time.Now().Unix()

	query := `
	INSERT INTO pattern_rules (id, rule_name, rule_type, conditions_json, priority, is_active, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		rule_name = excluded.rule_name,
		rule_type = excluded.rule_type,
		conditions_json = excluded.conditions_json,
		priority = excluded.priority,
		is_active = excluded.is_active,
		updated_at = excluded.updated_at`

	_, err = s.exec(ctx, "upsert rule", query,
		r.ID, r.RuleName, string(r.RuleType), string(conditions), r.Priority, r.IsActive, now, now,
	)
	return err
}

const alertColumns = `id, couple_id, user_id, type, title, message, suggested_action,
	pattern_data_json, severity, is_read, is_dismissed, expires_at, created_at, updated_at`

// InsertAlert persists a new unread, undismissed alert.
func (s *SQLiteStore) InsertAlert(ctx context.Context, data domain.AlertData) (*domain.PatternAlert, error) {
	patternData, err := json.Marshal(data.PatternData)
	if err != nil {
		return nil, wrapErr("encode pattern data", err)
	}

	now := time.Now()
	alert := &domain.PatternAlert{
		ID:              uuid.NewString(),
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

	var dedupeKey any
	if data.DedupeKey != "" {
		dedupeKey = data.DedupeKey
	}

	query := `
	INSERT INTO pattern_alerts (` + alertColumns + `, dedupe_key)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?, ?)`

	_, err = s.exec(ctx, "insert alert", query,
		alert.ID, alert.CoupleID, alert.UserID, string(alert.Type), alert.Title, alert.Message,
		alert.SuggestedAction, string(patternData), string(alert.Severity),
		alert.ExpiresAt.Unix(), now.Unix(), now.Unix(), dedupeKey,
	)
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// GetAlert retrieves an alert by ID.
func (s *SQLiteStore) GetAlert(ctx context.Context, alertID string) (*domain.PatternAlert, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM pattern_alerts WHERE id = ?`, alertID)
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("scan alert", err)
	}
	return alert, nil
}

// ListAlerts returns the couple's alerts, newest first.
func (s *SQLiteStore) ListAlerts(ctx context.Context, coupleID string, activeOnly bool, now time.Time) ([]domain.PatternAlert, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := `SELECT ` + alertColumns + ` FROM pattern_alerts WHERE couple_id = ?`
	args := []any{coupleID}
	if activeOnly {
		query += ` AND is_dismissed = 0 AND expires_at > ?`
		args = append(args, now.Unix())
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("query alerts", err)
	}
	defer closeRows(rows, "alerts")

	var out []domain.PatternAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, wrapErr("scan alert row", err)
		}
		out = append(out, *alert)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate alerts", err)
	}
	return out, nil
}

// FindActiveAlert returns an active alert of the given type for the pair.
func (s *SQLiteStore) FindActiveAlert(ctx context.Context, coupleID, userID string, alertType domain.RuleType, now time.Time) (*domain.PatternAlert, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := `
		SELECT ` + alertColumns + ` FROM pattern_alerts
		WHERE couple_id = ? AND user_id = ? AND type = ? AND is_dismissed = 0 AND expires_at > ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, coupleID, userID, string(alertType), now.Unix())
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find active alert", err)
	}
	return alert, nil
}

// UpdateAlert applies fields to an alert owned by userID.
func (s *SQLiteStore) UpdateAlert(ctx context.Context, alertID, userID string, fields AlertUpdate) error {
	query := `UPDATE pattern_alerts SET updated_at = ?`
	args := []any{time.Now().Unix()}
	if fields.IsRead != nil {
		query += `, is_read = ?`
		args = append(args, *fields.IsRead)
	}
	if fields.IsDismissed != nil {
		query += `, is_dismissed = ?`
		args = append(args, *fields.IsDismissed)
	}
	query += ` WHERE id = ? AND user_id = ?`
	args = append(args, alertID, userID)

	result, err := s.exec(ctx, "update alert", query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return wrapErr("update alert rows affected", err)
	}
	if rows == 0 {
		return wrapErr("update alert", ErrNotFound)
	}
	return nil
}

// UpsertExercise creates or replaces a guided exercise by ID.
func (s *SQLiteStore) UpsertExercise(ctx context.Context, e *domain.GuidedExercise) error {
	instructions, err := marshalList(e.Instructions)
	if err != nil {
		return wrapErr("encode instructions", err)
	}
	materials, err := marshalList(e.MaterialsNeeded)
	if err != nil {
		return wrapErr("encode materials", err)
	}
	benefits, err := marshalList(e.Benefits)
	if err != nil {
		return wrapErr("encode benefits", err)
	}
	now := time.Now().Unix()

	query := `
	INSERT INTO guided_exercises (id, title, description, duration, category, difficulty,
	                              instructions_json, materials_json, benefits_json, when_to_use,
	                              is_active, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		duration = excluded.duration,
		category = excluded.category,
		difficulty = excluded.difficulty,
		instructions_json = excluded.instructions_json,
		materials_json = excluded.materials_json,
		benefits_json = excluded.benefits_json,
		when_to_use = excluded.when_to_use,
		is_active = excluded.is_active,
		updated_at = excluded.updated_at`

	_, err = s.exec(ctx, "upsert exercise", query,
		e.ID, e.Title, e.Description, e.Duration, string(e.Category), string(e.Difficulty),
		instructions, materials, benefits, e.WhenToUse, e.IsActive, now, now,
	)
	return err
}

const exerciseColumns = `e.id, e.title, e.description, e.duration, e.category, e.difficulty,
	e.instructions_json, e.materials_json, e.benefits_json, e.when_to_use, e.is_active,
	e.created_at, e.updated_at`

const difficultyOrder = `CASE e.difficulty
	WHEN 'beginner' THEN 0 WHEN 'intermediate' THEN 1 WHEN 'advanced' THEN 2 ELSE 3 END`

// ListExercisesByCategory returns active exercises in a category, easiest first.
func (s *SQLiteStore) ListExercisesByCategory(ctx context.Context, category domain.Category, limit int) ([]domain.GuidedExercise, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT ` + exerciseColumns + ` FROM guided_exercises e
		WHERE e.category = ? AND e.is_active = 1
		ORDER BY ` + difficultyOrder + `, e.title ASC, e.id ASC
		LIMIT ?`
	return s.queryExercises(ctx, "query exercises by category", query, string(category), limit)
}

// ListExercises returns all active exercises.
func (s *SQLiteStore) ListExercises(ctx context.Context) ([]domain.GuidedExercise, error) {
	query := `
		SELECT ` + exerciseColumns + ` FROM guided_exercises e
		WHERE e.is_active = 1
		ORDER BY e.category ASC, ` + difficultyOrder + `, e.title ASC`
	return s.queryExercises(ctx, "query exercises", query)
}

func (s *SQLiteStore) queryExercises(ctx context.Context, op, query string, args ...any) ([]domain.GuidedExercise, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer closeRows(rows, "exercises")

	var out []domain.GuidedExercise
	for rows.Next() {
		var e domain.GuidedExercise
		if err := scanExercise(rows, &e); err != nil {
			return nil, wrapErr("scan exercise row", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate exercises", err)
	}
	return out, nil
}

const recommendationColumns = `r.id, r.user_id, r.couple_id, r.exercise_id, r.reason, r.priority,
	r.expires_at, r.is_completed, r.completed_at, r.created_at`

// FindOpenRecommendation returns an open recommendation for the tuple.
func (s *SQLiteStore) FindOpenRecommendation(ctx context.Context, userID, coupleID, exerciseID string, now time.Time) (*domain.ExerciseRecommendation, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := `
		SELECT ` + recommendationColumns + ` FROM exercise_recommendations r
		WHERE r.user_id = ? AND r.couple_id = ? AND r.exercise_id = ?
		  AND r.is_completed = 0 AND r.expires_at > ?
		LIMIT 1`

	var rec domain.ExerciseRecommendation
	err := scanRecommendation(s.db.QueryRowContext(ctx, query, userID, coupleID, exerciseID, now.Unix()), &rec)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find open recommendation", err)
	}
	return &rec, nil
}

// InsertRecommendation persists a new open recommendation.
func (s *SQLiteStore) InsertRecommendation(ctx context.Context, data domain.RecommendationData) (*domain.ExerciseRecommendation, error) {
	now := time.Now()
	rec := &domain.ExerciseRecommendation{
		ID:         uuid.NewString(),
		UserID:     data.UserID,
		CoupleID:   data.CoupleID,
		ExerciseID: data.ExerciseID,
		Reason:     data.Reason,
		Priority:   data.Priority,
		ExpiresAt:  data.ExpiresAt,
		CreatedAt:  now,
	}

	var dedupeKey any
	if data.DedupeKey != "" {
		dedupeKey = data.DedupeKey
	}

	query := `
	INSERT INTO exercise_recommendations (id, user_id, couple_id, exercise_id, reason, priority,
	                                      expires_at, is_completed, dedupe_key, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`

	_, err := s.exec(ctx, "insert recommendation", query,
		rec.ID, rec.UserID, rec.CoupleID, rec.ExerciseID, rec.Reason, rec.Priority,
		rec.ExpiresAt.Unix(), dedupeKey, now.Unix(),
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListOpenRecommendations returns open recommendations with their exercise.
func (s *SQLiteStore) ListOpenRecommendations(ctx context.Context, userID, coupleID string, now time.Time, limit int) ([]domain.ExerciseRecommendation, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT ` + recommendationColumns + `, ` + exerciseColumns + `
		FROM exercise_recommendations r
		JOIN guided_exercises e ON e.id = r.exercise_id
		WHERE r.user_id = ? AND r.couple_id = ? AND r.is_completed = 0 AND r.expires_at > ?
		ORDER BY r.priority DESC, r.created_at DESC, r.rowid DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, coupleID, now.Unix(), limit)
	if err != nil {
		return nil, wrapErr("query open recommendations", err)
	}
	defer closeRows(rows, "recommendations")

	var out []domain.ExerciseRecommendation
	for rows.Next() {
		var rec domain.ExerciseRecommendation
		var ex domain.GuidedExercise
		var completedAt sql.NullInt64
		var expiresAt, createdAt int64
		var exInstructions, exMaterials, exBenefits string
		var exCreated, exUpdated int64
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.CoupleID, &rec.ExerciseID, &rec.Reason, &rec.Priority,
			&expiresAt, &rec.IsCompleted, &completedAt, &createdAt,
			&ex.ID, &ex.Title, &ex.Description, &ex.Duration, &ex.Category, &ex.Difficulty,
			&exInstructions, &exMaterials, &exBenefits, &ex.WhenToUse, &ex.IsActive,
			&exCreated, &exUpdated,
		); err != nil {
			return nil, wrapErr("scan recommendation row", err)
		}
		rec.ExpiresAt = time.Unix(expiresAt, 0)
		rec.CreatedAt = time.Unix(createdAt, 0)
		if completedAt.Valid {
			ts := time.Unix(completedAt.Int64, 0)
			rec.CompletedAt = &ts
		}
		if err := decodeExerciseLists(&ex, exInstructions, exMaterials, exBenefits); err != nil {
			return nil, wrapErr("decode exercise lists", err)
		}
		ex.CreatedAt = time.Unix(exCreated, 0)
		ex.UpdatedAt = time.Unix(exUpdated, 0)
		rec.Exercise = &ex
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate recommendations", err)
	}
	return out, nil
}

// MarkRecommendationCompleted completes open recommendations for the tuple
// and releases their dedupe keys so the exercise can be recommended again.
func (s *SQLiteStore) MarkRecommendationCompleted(ctx context.Context, userID, coupleID, exerciseID string, now time.Time) (int64, error) {
	query := `
	UPDATE exercise_recommendations SET is_completed = 1, completed_at = ?, dedupe_key = NULL
	WHERE user_id = ? AND couple_id = ? AND exercise_id = ? AND is_completed = 0 AND expires_at > ?`

	result, err := s.exec(ctx, "complete recommendations", query, now.Unix(), userID, coupleID, exerciseID, now.Unix())
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, wrapErr("complete recommendations rows affected", err)
	}
	return rows, nil
}

// InsertExerciseSession records a completed exercise session.
func (s *SQLiteStore) InsertExerciseSession(ctx context.Context, session *domain.ExerciseSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CompletedAt.IsZero() {
		session.CompletedAt = time.Now()
	}

	query := `
	INSERT INTO exercise_sessions (id, user_id, couple_id, exercise_id, rating, notes, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.exec(ctx, "insert exercise session", query,
		session.ID, session.UserID, session.CoupleID, session.ExerciseID,
		session.Rating, session.Notes, session.CompletedAt.Unix(),
	)
	return err
}

// PurgeExpiredRecommendations deletes recommendations that expired before the
// cutoff. Alerts are never purged.
func (s *SQLiteStore) PurgeExpiredRecommendations(ctx context.Context, before time.Time) (int64, error) {
	const op = "purge recommendations"
	result, err := s.exec(ctx, op, `DELETE FROM exercise_recommendations WHERE expires_at < ?`, before.Unix())
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, wrapErr(op+" rows affected", err)
	}
	return rows, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*domain.PatternAlert, error) {
	var a domain.PatternAlert
	var patternData string
	var expiresAt, createdAt, updatedAt int64

	if err := row.Scan(
		&a.ID, &a.CoupleID, &a.UserID, &a.Type, &a.Title, &a.Message, &a.SuggestedAction,
		&patternData, &a.Severity, &a.IsRead, &a.IsDismissed, &expiresAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(patternData), &a.PatternData); err != nil {
		return nil, fmt.Errorf("decode pattern data: %w", err)
	}
	a.ExpiresAt = time.Unix(expiresAt, 0)
	a.CreatedAt = time.Unix(createdAt, 0)
	a.UpdatedAt = time.Unix(updatedAt, 0)
	return &a, nil
}

func scanExercise(row rowScanner, e *domain.GuidedExercise) error {
	var instructions, materials, benefits string
	var createdAt, updatedAt int64
	if err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Duration, &e.Category, &e.Difficulty,
		&instructions, &materials, &benefits, &e.WhenToUse, &e.IsActive, &createdAt, &updatedAt,
	); err != nil {
		return err
	}
	e.CreatedAt = time.Unix(createdAt, 0)
	e.UpdatedAt = time.Unix(updatedAt, 0)
	return decodeExerciseLists(e, instructions, materials, benefits)
}

func scanRecommendation(row rowScanner, rec *domain.ExerciseRecommendation) error {
	var completedAt sql.NullInt64
	var expiresAt, createdAt int64
	if err := row.Scan(
		&rec.ID, &rec.UserID, &rec.CoupleID, &rec.ExerciseID, &rec.Reason, &rec.Priority,
		&expiresAt, &rec.IsCompleted, &completedAt, &createdAt,
	); err != nil {
		return err
	}
	rec.ExpiresAt = time.Unix(expiresAt, 0)
	rec.CreatedAt = time.Unix(createdAt, 0)
	if completedAt.Valid {
		ts := time.Unix(completedAt.Int64, 0)
		rec.CompletedAt = &ts
	}
	return nil
}

func decodeExerciseLists(e *domain.GuidedExercise, instructions, materials, benefits string) error {
	if err := json.Unmarshal([]byte(instructions), &e.Instructions); err != nil {
		return fmt.Errorf("decode instructions: %w", err)
	}
	if err := json.Unmarshal([]byte(materials), &e.MaterialsNeeded); err != nil {
		return fmt.Errorf("decode materials: %w", err)
	}
	if err := json.Unmarshal([]byte(benefits), &e.Benefits); err != nil {
		return fmt.Errorf("decode benefits: %w", err)
	}
	return nil
}

func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "table", what, "error", err)
	}
}
