package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/clms-app/clms/core/user"
)

type (
	teacherRow struct {
		ID           string    `db:"id"`
		Name         string    `db:"name"`
		Email        string    `db:"email"`
		PasswordHash []byte    `db:"password_hash"`
		CreatedAt    time.Time `db:"created_at"`
	}

	studentRow struct {
		ID           string    `db:"id"`
		Name         string    `db:"name"`
		Email        string    `db:"email"`
		LRN          string    `db:"lrn"`
		XP           int       `db:"xp"`
		Level        int       `db:"level"`
		PasswordHash []byte    `db:"password_hash"`
		CreatedAt    time.Time `db:"created_at"`
	}
)

func (r teacherRow) toTeacher() user.Teacher {
	return user.Teacher{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func (r studentRow) toStudent() user.Student {
	return user.Student{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		LRN:          r.LRN,
		XP:           r.XP,
		Level:        r.Level,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckTeacherUniqueness(ctx context.Context, email string) error {
	var taken bool
	err := repo.db.GetContext(ctx, &taken, `SELECT EXISTS (SELECT 1 FROM teacher WHERE email = $1)`, email)
	if err != nil {
		return dbError("checking teacher uniqueness", err, nil)
	}
	if taken {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateTeacher(ctx context.Context, t user.Teacher) (user.Teacher, error) {
	const q = `
		INSERT INTO teacher (id, name, email, password_hash, created_at)
		VALUES (:id, :name, :email, :password_hash, :created_at)`

	row := teacherRow{ID: t.ID, Name: t.Name, Email: t.Email, PasswordHash: t.PasswordHash, CreatedAt: t.CreatedAt}
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return user.Teacher{}, dbError("creating teacher", err, nil)
	}
	return t, nil
}

func (repo *userRepository) getTeacher(ctx context.Context, where string, arg interface{}) (user.Teacher, error) {
	var row teacherRow
	err := repo.db.GetContext(ctx, &row, `SELECT id, name, email, password_hash, created_at FROM teacher WHERE `+where, arg)
	if err != nil {
		return user.Teacher{}, dbError("getting teacher", err, user.ErrTeacherNotFound)
	}
	return row.toTeacher(), nil
}

func (repo *userRepository) GetTeacherByID(ctx context.Context, id string) (user.Teacher, error) {
	return repo.getTeacher(ctx, "id = $1", id)
}

func (repo *userRepository) GetTeacherByEmail(ctx context.Context, email string) (user.Teacher, error) {
	return repo.getTeacher(ctx, "email = $1", email)
}

func (repo *userRepository) UpdateTeacherPassword(ctx context.Context, id string, hash []byte) error {
	return repo.updatePassword(ctx, "teacher", id, hash, user.ErrTeacherNotFound)
}

func (repo *userRepository) CheckStudentUniqueness(ctx context.Context, email, lrn string) error {
	var taken struct {
		Email bool `db:"email"`
		LRN   bool `db:"lrn"`
	}
	const q = `
		SELECT EXISTS (SELECT 1 FROM student WHERE email = $1) AS email,
		       EXISTS (SELECT 1 FROM student WHERE lrn = $2) AS lrn`

	if err := repo.db.GetContext(ctx, &taken, q, email, lrn); err != nil {
		return dbError("checking student uniqueness", err, nil)
	}
	switch {
	case taken.Email:
		return user.ErrEmailExists
	case taken.LRN:
		return user.ErrLRNExists
	}
	return nil
}

func (repo *userRepository) CreateStudent(ctx context.Context, s user.Student) (user.Student, error) {
	const q = `
		INSERT INTO student (id, name, email, lrn, xp, level, password_hash, created_at)
		VALUES (:id, :name, :email, :lrn, :xp, :level, :password_hash, :created_at)`

	row := studentRow{
		ID:           s.ID,
		Name:         s.Name,
		Email:        s.Email,
		LRN:          s.LRN,
		XP:           s.XP,
		Level:        s.Level,
		PasswordHash: s.PasswordHash,
		CreatedAt:    s.CreatedAt,
	}
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return user.Student{}, dbError("creating student", err, nil)
	}
	return s, nil
}

func (repo *userRepository) getStudent(ctx context.Context, where string, arg interface{}) (user.Student, error) {
	var row studentRow
	const cols = `SELECT id, name, email, lrn, xp, level, password_hash, created_at FROM student WHERE `
	if err := repo.db.GetContext(ctx, &row, cols+where, arg); err != nil {
		return user.Student{}, dbError("getting student", err, user.ErrStudentNotFound)
	}
	return row.toStudent(), nil
}

func (repo *userRepository) GetStudentByID(ctx context.Context, id string) (user.Student, error) {
	return repo.getStudent(ctx, "id = $1", id)
}

func (repo *userRepository) GetStudentByEmail(ctx context.Context, email string) (user.Student, error) {
	return repo.getStudent(ctx, "email = $1", email)
}

func (repo *userRepository) UpdateStudentPassword(ctx context.Context, id string, hash []byte) error {
	return repo.updatePassword(ctx, "student", id, hash, user.ErrStudentNotFound)
}

// updatePassword sets the password hash of an account. table is one of the account tables, never user input.
func (repo *userRepository) updatePassword(ctx context.Context, table, id string, hash []byte, notFound error) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE `+table+` SET password_hash = $1 WHERE id = $2`, hash, id)
	return rowsAffected(res, err, "updating password", notFound)
}
