package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/clms-app/clms/core/course"
)

type (
	subjectRow struct {
		ID        string    `db:"id"`
		Title     string    `db:"title"`
		TeacherID string    `db:"teacher_id"`
		CreatedAt time.Time `db:"created_at"`
	}

	lessonRow struct {
		ID        string    `db:"id"`
		Title     string    `db:"title"`
		Content   string    `db:"content"`
		SubjectID string    `db:"subject_id"`
		CreatedAt time.Time `db:"created_at"`
	}
)

func (r subjectRow) toSubject() course.Subject {
	return course.Subject{ID: r.ID, Title: r.Title, TeacherID: r.TeacherID, CreatedAt: r.CreatedAt.UTC(), Lessons: []course.Lesson{}}
}

func (r lessonRow) toLesson() course.Lesson {
	return course.Lesson{ID: r.ID, Title: r.Title, Content: r.Content, SubjectID: r.SubjectID, CreatedAt: r.CreatedAt.UTC()}
}

const (
	subjectCols = `id, title, teacher_id, created_at`
	lessonCols  = `id, title, content, subject_id, created_at`
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateSubject(ctx context.Context, s course.Subject) (course.Subject, error) {
	row := subjectRow{ID: s.ID, Title: s.Title, TeacherID: s.TeacherID, CreatedAt: s.CreatedAt}
	q := `INSERT INTO subject (` + subjectCols + `) VALUES (:id, :title, :teacher_id, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return course.Subject{}, dbError("creating subject", err, nil)
	}
	return row.toSubject(), nil
}

func (repo *courseRepository) GetSubjectByID(ctx context.Context, id string) (course.Subject, error) {
	var row subjectRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+subjectCols+` FROM subject WHERE id = $1`, id); err != nil {
		return course.Subject{}, dbError("getting subject", err, course.ErrSubjectNotFound)
	}
	s := row.toSubject()
	lessons, err := repo.QueryLessonsBySubject(ctx, id)
	if err != nil {
		return course.Subject{}, err
	}
	s.Lessons = lessons
	return s, nil
}

func (repo *courseRepository) QuerySubjectsByTeacher(ctx context.Context, teacherID string) ([]course.Subject, error) {
	var rows []subjectRow
	q := `SELECT ` + subjectCols + ` FROM subject WHERE teacher_id = $1 ORDER BY created_at, id`
	if err := repo.db.SelectContext(ctx, &rows, q, teacherID); err != nil {
		return nil, dbError("querying subjects", err, nil)
	}
	if len(rows) == 0 {
		return []course.Subject{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	q, args, err := sqlx.In(`SELECT `+lessonCols+` FROM lesson WHERE subject_id IN (?) ORDER BY created_at, id`, ids)
	if err != nil {
		return nil, dbError("querying lessons", err, nil)
	}
	var lessonRows []lessonRow
	if err = repo.db.SelectContext(ctx, &lessonRows, repo.db.Rebind(q), args...); err != nil {
		return nil, dbError("querying lessons", err, nil)
	}
	lessons := make(map[string][]course.Lesson, len(rows))
	for _, r := range lessonRows {
		lessons[r.SubjectID] = append(lessons[r.SubjectID], r.toLesson())
	}

	subjects := make([]course.Subject, 0, len(rows))
	for _, r := range rows {
		s := r.toSubject()
		if ls, ok := lessons[s.ID]; ok {
			s.Lessons = ls
		}
		subjects = append(subjects, s)
	}
	return subjects, nil
}

func (repo *courseRepository) UpdateSubject(ctx context.Context, s course.Subject) (course.Subject, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE subject SET title = $1 WHERE id = $2`, s.Title, s.ID)
	if err = rowsAffected(res, err, "updating subject", course.ErrSubjectNotFound); err != nil {
		return course.Subject{}, err
	}
	return repo.GetSubjectByID(ctx, s.ID)
}

// DeleteSubject relies on the ON DELETE CASCADE of lesson and progress.
func (repo *courseRepository) DeleteSubject(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM subject WHERE id = $1`, id)
	return rowsAffected(res, err, "deleting subject", course.ErrSubjectNotFound)
}

func (repo *courseRepository) CreateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	row := lessonRow{ID: l.ID, Title: l.Title, Content: l.Content, SubjectID: l.SubjectID, CreatedAt: l.CreatedAt}
	q := `INSERT INTO lesson (` + lessonCols + `) VALUES (:id, :title, :content, :subject_id, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return course.Lesson{}, dbError("creating lesson", err, nil)
	}
	return row.toLesson(), nil
}

func (repo *courseRepository) GetLessonByID(ctx context.Context, id string) (course.Lesson, error) {
	var row lessonRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+lessonCols+` FROM lesson WHERE id = $1`, id); err != nil {
		return course.Lesson{}, dbError("getting lesson", err, course.ErrLessonNotFound)
	}
	return row.toLesson(), nil
}

func (repo *courseRepository) QueryLessonsBySubject(ctx context.Context, subjectID string) ([]course.Lesson, error) {
	var rows []lessonRow
	q := `SELECT ` + lessonCols + ` FROM lesson WHERE subject_id = $1 ORDER BY created_at, id`
	if err := repo.db.SelectContext(ctx, &rows, q, subjectID); err != nil {
		return nil, dbError("querying lessons", err, nil)
	}
	lessons := make([]course.Lesson, 0, len(rows))
	for _, r := range rows {
		lessons = append(lessons, r.toLesson())
	}
	return lessons, nil
}

func (repo *courseRepository) UpdateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	var row lessonRow
	q := `UPDATE lesson SET title = $1, content = $2 WHERE id = $3 RETURNING ` + lessonCols
	if err := repo.db.GetContext(ctx, &row, q, l.Title, l.Content, l.ID); err != nil {
		return course.Lesson{}, dbError("updating lesson", err, course.ErrLessonNotFound)
	}
	return row.toLesson(), nil
}

func (repo *courseRepository) DeleteLesson(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM lesson WHERE id = $1`, id)
	return rowsAffected(res, err, "deleting lesson", course.ErrLessonNotFound)
}
