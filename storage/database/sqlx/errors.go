package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/clms-app/clms/core"
	"github.com/clms-app/clms/core/course"
	"github.com/clms-app/clms/core/gamification"
	"github.com/clms-app/clms/core/user"
)

// postgres error codes
const (
	invalidTextRepresentation = "22P02" // e.g. malformed uuid
	foreignKeyViolation       = "23503"
	uniqueViolation           = "23505"
)

// constraint name -> domain error
var (
	uniqueErrors = map[string]error{
		"teacher_email_key":               user.ErrEmailExists,
		"student_email_key":               user.ErrEmailExists,
		"student_lrn_key":                 user.ErrLRNExists,
		"progress_student_lesson_key":     gamification.ErrProgressExists,
		"badge_name_key":                  gamification.ErrBadgeExists,
		"student_badge_student_badge_key": gamification.ErrBadgeAlreadyAwarded,
	}
	foreignKeyErrors = map[string]error{
		"subject_teacher_id_fkey":       user.ErrTeacherNotFound,
		"lesson_subject_id_fkey":        course.ErrSubjectNotFound,
		"progress_student_id_fkey":      gamification.ErrStudentNotFound,
		"progress_lesson_id_fkey":       gamification.ErrLessonNotFound,
		"student_badge_student_id_fkey": gamification.ErrStudentNotFound,
		"student_badge_badge_id_fkey":   gamification.ErrBadgeNotFound,
	}
)

// dbError translates a driver error into the matching domain error.
// sql.ErrNoRows becomes notFound. Anything unknown is reported as a core.StorageError.
func dbError(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}
	cause := errors.Cause(err)
	if cause == sql.ErrNoRows && notFound != nil {
		return notFound
	}
	if pqErr, ok := cause.(*pq.Error); ok {
		switch pqErr.Code {
		case invalidTextRepresentation:
			if notFound != nil {
				return notFound
			}
		case uniqueViolation:
			if derr, ok := uniqueErrors[pqErr.Constraint]; ok {
				return derr
			}
			return core.NewConflictError(pqErr.Column, pqErr)
		case foreignKeyViolation:
			if derr, ok := foreignKeyErrors[pqErr.Constraint]; ok {
				return derr
			}
			return core.NewNotFoundError(pqErr.Table)
		}
	}
	return core.NewStorageError(op, err)
}

// rowsAffected checks the outcome of an UPDATE or DELETE targeting a single row.
func rowsAffected(res sql.Result, err error, op string, notFound error) error {
	if err != nil {
		return dbError(op, err, notFound)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(op, err, nil)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
