package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/clms-app/clms/core/gamification"
)

type (
	progressRow struct {
		ID        string       `db:"id"`
		StudentID string       `db:"student_id"`
		LessonID  string       `db:"lesson_id"`
		Completed bool         `db:"completed"`
		Score     null.Float64 `db:"score"`
		XPEarned  null.Int     `db:"xp_earned"`
		CreatedAt time.Time    `db:"created_at"`
		UpdatedAt time.Time    `db:"updated_at"`
	}

	// progressLessonRow is a progress record joined with its lesson and subject.
	progressLessonRow struct {
		progressRow
		LessonTitle      string `db:"lesson_title"`
		LessonContent    string `db:"lesson_content"`
		SubjectID        string `db:"subject_id"`
		SubjectTitle     string `db:"subject_title"`
		SubjectTeacherID string `db:"subject_teacher_id"`
	}

	standingRow struct {
		ID    string `db:"id"`
		Name  string `db:"name"`
		Email string `db:"email"`
		XP    int    `db:"xp"`
		Level int    `db:"level"`
	}

	badgeRow struct {
		ID          string `db:"id"`
		Name        string `db:"name"`
		Description string `db:"description"`
		XPRequired  int    `db:"xp_required"`
	}

	studentBadgeRow struct {
		ID        string    `db:"id"`
		StudentID string    `db:"student_id"`
		BadgeID   string    `db:"badge_id"`
		EarnedAt  time.Time `db:"earned_at"`
		Badge     badgeRow  `db:"badge"`
	}
)

func (r progressRow) toProgress() gamification.Progress {
	return gamification.Progress{
		ID:        r.ID,
		StudentID: r.StudentID,
		LessonID:  r.LessonID,
		Completed: r.Completed,
		Score:     r.Score,
		XPEarned:  r.XPEarned,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (r progressLessonRow) toProgress() gamification.Progress {
	p := r.progressRow.toProgress()
	p.Lesson = &gamification.LessonSummary{
		ID:        r.LessonID,
		Title:     r.LessonTitle,
		Content:   r.LessonContent,
		SubjectID: r.SubjectID,
		Subject: gamification.SubjectSummary{
			ID:        r.SubjectID,
			Title:     r.SubjectTitle,
			TeacherID: r.SubjectTeacherID,
		},
	}
	return p
}

func (r standingRow) toStanding() gamification.Standing {
	return gamification.Standing{ID: r.ID, Name: r.Name, Email: r.Email, XP: r.XP, Level: r.Level}
}

func (r badgeRow) toBadge() gamification.Badge {
	return gamification.Badge{ID: r.ID, Name: r.Name, Description: r.Description, XPRequired: r.XPRequired}
}

func (r studentBadgeRow) toStudentBadge() gamification.StudentBadge {
	return gamification.StudentBadge{
		ID:        r.ID,
		StudentID: r.StudentID,
		BadgeID:   r.BadgeID,
		EarnedAt:  r.EarnedAt.UTC(),
		Badge:     r.Badge.toBadge(),
	}
}

const (
	progressCols = `id, student_id, lesson_id, completed, score, xp_earned, created_at, updated_at`
	badgeCols    = `id, name, description, xp_required`
)

type gamificationStore struct {
	db *sqlx.DB
	ex sqlx.ExtContext // db, or the running transaction
	tx *sqlx.Tx
}

var _ gamification.Store = (*gamificationStore)(nil) // interface compliance check

func NewGamificationStore(db *sqlx.DB) gamification.Store {
	return &gamificationStore{db: db, ex: db}
}

// WithinTx runs fn in a database transaction. Nested calls join the running transaction.
func (store *gamificationStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo gamification.Repository) error) error {
	if store.tx != nil {
		return fn(ctx, store)
	}

	tx, err := store.db.BeginTxx(ctx, nil)
	if err != nil {
		return dbError("beginning transaction", err, nil)
	}
	if err = fn(ctx, &gamificationStore{db: store.db, ex: tx, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return dbError("committing transaction", err, nil)
	}
	return nil
}

func (store *gamificationStore) LessonExists(ctx context.Context, lessonID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, store.ex, &exists, `SELECT EXISTS (SELECT 1 FROM lesson WHERE id::text = $1)`, lessonID)
	if err != nil {
		return false, dbError("checking lesson", err, nil)
	}
	return exists, nil
}

// GetProgress locks the record for the rest of the transaction, if any.
func (store *gamificationStore) GetProgress(ctx context.Context, studentID, lessonID string) (gamification.Progress, error) {
	q := `SELECT ` + progressCols + ` FROM progress WHERE student_id = $1 AND lesson_id = $2`
	if store.tx != nil {
		q += ` FOR UPDATE`
	}
	var row progressRow
	if err := sqlx.GetContext(ctx, store.ex, &row, q, studentID, lessonID); err != nil {
		return gamification.Progress{}, dbError("getting progress", err, gamification.ErrProgressNotFound)
	}
	return row.toProgress(), nil
}

// CreateProgress does not abort the running transaction on a duplicate.
func (store *gamificationStore) CreateProgress(ctx context.Context, p gamification.Progress) (gamification.Progress, error) {
	const q = `
		INSERT INTO progress (id, student_id, lesson_id, completed, score, xp_earned, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (student_id, lesson_id) DO NOTHING
		RETURNING ` + progressCols

	var row progressRow
	err := sqlx.GetContext(ctx, store.ex, &row, q,
		p.ID, p.StudentID, p.LessonID, p.Completed, p.Score, p.XPEarned, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return gamification.Progress{}, dbError("creating progress", err, gamification.ErrProgressExists)
	}
	return row.toProgress(), nil
}

func (store *gamificationStore) UpdateProgress(ctx context.Context, p gamification.Progress) (gamification.Progress, error) {
	const q = `
		UPDATE progress SET completed = $1, score = $2, xp_earned = $3, updated_at = $4
		WHERE id = $5
		RETURNING ` + progressCols

	var row progressRow
	err := sqlx.GetContext(ctx, store.ex, &row, q, p.Completed, p.Score, p.XPEarned, p.UpdatedAt, p.ID)
	if err != nil {
		return gamification.Progress{}, dbError("updating progress", err, gamification.ErrProgressNotFound)
	}
	return row.toProgress(), nil
}

func (store *gamificationStore) QueryStudentProgress(ctx context.Context, studentID string) ([]gamification.Progress, error) {
	const q = `
		SELECT p.id, p.student_id, p.lesson_id, p.completed, p.score, p.xp_earned, p.created_at, p.updated_at,
		       l.title AS lesson_title, l.content AS lesson_content,
		       s.id AS subject_id, s.title AS subject_title, s.teacher_id AS subject_teacher_id
		FROM progress p
		JOIN lesson l ON l.id = p.lesson_id
		JOIN subject s ON s.id = l.subject_id
		WHERE p.student_id = $1
		ORDER BY p.created_at, p.id`

	var rows []progressLessonRow
	if err := sqlx.SelectContext(ctx, store.ex, &rows, q, studentID); err != nil {
		return nil, dbError("querying progress", err, nil)
	}
	progress := make([]gamification.Progress, 0, len(rows))
	for _, r := range rows {
		progress = append(progress, r.toProgress())
	}
	return progress, nil
}

func (store *gamificationStore) GetStanding(ctx context.Context, studentID string) (gamification.Standing, error) {
	var row standingRow
	err := sqlx.GetContext(ctx, store.ex, &row, `SELECT id, name, email, xp, level FROM student WHERE id = $1`, studentID)
	if err != nil {
		return gamification.Standing{}, dbError("getting standing", err, gamification.ErrStudentNotFound)
	}
	return row.toStanding(), nil
}

func (store *gamificationStore) IncrementStudentXP(ctx context.Context, studentID string, delta int) (int, error) {
	var xp int
	err := sqlx.GetContext(ctx, store.ex, &xp, `UPDATE student SET xp = xp + $1 WHERE id = $2 RETURNING xp`, delta, studentID)
	if err != nil {
		return 0, dbError("incrementing xp", err, gamification.ErrStudentNotFound)
	}
	return xp, nil
}

func (store *gamificationStore) SetStudentLevel(ctx context.Context, studentID string, level int) error {
	res, err := store.ex.ExecContext(ctx, `UPDATE student SET level = $1 WHERE id = $2`, level, studentID)
	return rowsAffected(res, err, "setting level", gamification.ErrStudentNotFound)
}

func (store *gamificationStore) QueryTopStudents(ctx context.Context, limit int) ([]gamification.Standing, error) {
	q := `SELECT id, name, email, xp, level FROM student ORDER BY xp DESC, name, id`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}

	var rows []standingRow
	if err := sqlx.SelectContext(ctx, store.ex, &rows, q, args...); err != nil {
		return nil, dbError("querying top students", err, nil)
	}
	top := make([]gamification.Standing, 0, len(rows))
	for _, r := range rows {
		top = append(top, r.toStanding())
	}
	return top, nil
}

func (store *gamificationStore) selectBadges(ctx context.Context, q string, args ...interface{}) ([]gamification.Badge, error) {
	var rows []badgeRow
	if err := sqlx.SelectContext(ctx, store.ex, &rows, q, args...); err != nil {
		return nil, dbError("querying badges", err, nil)
	}
	badges := make([]gamification.Badge, 0, len(rows))
	for _, r := range rows {
		badges = append(badges, r.toBadge())
	}
	return badges, nil
}

func (store *gamificationStore) QueryAllBadges(ctx context.Context) ([]gamification.Badge, error) {
	return store.selectBadges(ctx, `SELECT `+badgeCols+` FROM badge ORDER BY xp_required, name`)
}

func (store *gamificationStore) GetBadgeByName(ctx context.Context, name string) (gamification.Badge, error) {
	var row badgeRow
	if err := sqlx.GetContext(ctx, store.ex, &row, `SELECT `+badgeCols+` FROM badge WHERE name = $1`, name); err != nil {
		return gamification.Badge{}, dbError("getting badge", err, gamification.ErrBadgeNotFound)
	}
	return row.toBadge(), nil
}

func (store *gamificationStore) CreateBadge(ctx context.Context, b gamification.Badge) (gamification.Badge, error) {
	const q = `
		INSERT INTO badge (` + badgeCols + `) VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO NOTHING
		RETURNING ` + badgeCols

	var row badgeRow
	if err := sqlx.GetContext(ctx, store.ex, &row, q, b.ID, b.Name, b.Description, b.XPRequired); err != nil {
		return gamification.Badge{}, dbError("creating badge", err, gamification.ErrBadgeExists)
	}
	return row.toBadge(), nil
}

func (store *gamificationStore) QueryEarnedBadgeIDs(ctx context.Context, studentID string) ([]string, error) {
	ids := make([]string, 0)
	if err := sqlx.SelectContext(ctx, store.ex, &ids, `SELECT badge_id FROM student_badge WHERE student_id = $1`, studentID); err != nil {
		return nil, dbError("querying earned badges", err, nil)
	}
	return ids, nil
}

func (store *gamificationStore) QueryQualifyingBadges(ctx context.Context, xp int, excludedIDs []string) ([]gamification.Badge, error) {
	const q = `
		SELECT ` + badgeCols + ` FROM badge
		WHERE xp_required <= $1 AND NOT (id::text = ANY($2))
		ORDER BY xp_required, name`
	if excludedIDs == nil {
		// a nil array binds as NULL, which excludes every badge
		excludedIDs = []string{}
	}
	return store.selectBadges(ctx, q, xp, pq.StringArray(excludedIDs))
}

// CreateStudentBadge does not abort the running transaction on a duplicate award.
func (store *gamificationStore) CreateStudentBadge(ctx context.Context, sb gamification.StudentBadge) (gamification.StudentBadge, error) {
	const q = `
		WITH awarded AS (
			INSERT INTO student_badge (id, student_id, badge_id, earned_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (student_id, badge_id) DO NOTHING
			RETURNING id, student_id, badge_id, earned_at
		)
		SELECT a.id, a.student_id, a.badge_id, a.earned_at,
		       b.id AS "badge.id", b.name AS "badge.name", b.description AS "badge.description", b.xp_required AS "badge.xp_required"
		FROM awarded a JOIN badge b ON b.id = a.badge_id`

	var row studentBadgeRow
	if err := sqlx.GetContext(ctx, store.ex, &row, q, sb.ID, sb.StudentID, sb.BadgeID, sb.EarnedAt); err != nil {
		return gamification.StudentBadge{}, dbError("awarding badge", err, gamification.ErrBadgeAlreadyAwarded)
	}
	return row.toStudentBadge(), nil
}

func (store *gamificationStore) QueryStudentBadges(ctx context.Context, studentID string) ([]gamification.StudentBadge, error) {
	const q = `
		SELECT sb.id, sb.student_id, sb.badge_id, sb.earned_at,
		       b.id AS "badge.id", b.name AS "badge.name", b.description AS "badge.description", b.xp_required AS "badge.xp_required"
		FROM student_badge sb
		JOIN badge b ON b.id = sb.badge_id
		WHERE sb.student_id = $1
		ORDER BY b.xp_required, b.name`

	var rows []studentBadgeRow
	if err := sqlx.SelectContext(ctx, store.ex, &rows, q, studentID); err != nil {
		return nil, dbError("querying student badges", err, nil)
	}
	badges := make([]gamification.StudentBadge, 0, len(rows))
	for _, r := range rows {
		badges = append(badges, r.toStudentBadge())
	}
	return badges, nil
}
