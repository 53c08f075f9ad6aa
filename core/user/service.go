package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/clms-app/clms/core"
)

var (
	// errors
	ErrTeacherNotFound    = core.NewNotFoundError("teacher")
	ErrStudentNotFound    = core.NewNotFoundError("student")
	ErrEmailExists        = errors.New("Email already in use")
	ErrLRNExists          = errors.New("LRN already registered")
	ErrInvalidCredentials = errors.New("Invalid password")
)

type (
	Repository interface {
		// CheckTeacherUniqueness returns ErrEmailExists if a teacher with that email exists.
		CheckTeacherUniqueness(ctx context.Context, email string) error
		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		GetTeacherByID(ctx context.Context, id string) (Teacher, error)
		GetTeacherByEmail(ctx context.Context, email string) (Teacher, error)
		UpdateTeacherPassword(ctx context.Context, id string, hash []byte) error

		// CheckStudentUniqueness returns ErrEmailExists or ErrLRNExists on a duplicate.
		CheckStudentUniqueness(ctx context.Context, email, lrn string) error
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		GetStudentByEmail(ctx context.Context, email string) (Student, error)
		UpdateStudentPassword(ctx context.Context, id string, hash []byte) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// conflict converts uniqueness errors into a ConflictError on the matching field.
func conflict(err error) error {
	switch errors.Cause(err) {
	case ErrEmailExists:
		return core.NewConflictError("email", ErrEmailExists)
	case ErrLRNExists:
		return core.NewConflictError("lrn", ErrLRNExists)
	}
	return err
}

func (svc *Service) RegisterTeacher(ctx context.Context, nt NewTeacher) (Teacher, error) {
	nt.Clean()
	if err := svc.validate.Struct(nt); err != nil {
		return Teacher{}, err
	}
	if err := svc.repo.CheckTeacherUniqueness(ctx, nt.Email); err != nil {
		return Teacher{}, conflict(err)
	}

	t := Teacher{
		ID:        uuid.New().String(),
		Name:      nt.Name,
		Email:     nt.Email,
		CreatedAt: time.Now().UTC(),
	}
	if err := t.SetPassword(nt.Password); err != nil {
		return Teacher{}, errors.Wrap(err, "hashing password")
	}
	t, err := svc.repo.CreateTeacher(ctx, t)
	if err != nil {
		return Teacher{}, conflict(err)
	}
	return t, nil
}

func (svc *Service) RegisterStudent(ctx context.Context, ns NewStudent) (Student, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Student{}, err
	}
	if err := svc.repo.CheckStudentUniqueness(ctx, ns.Email, ns.LRN); err != nil {
		return Student{}, conflict(err)
	}

	s := Student{
		ID:        uuid.New().String(),
		Name:      ns.Name,
		Email:     ns.Email,
		LRN:       ns.LRN,
		XP:        0,
		Level:     1,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.SetPassword(ns.Password); err != nil {
		return Student{}, errors.Wrap(err, "hashing password")
	}
	s, err := svc.repo.CreateStudent(ctx, s)
	if err != nil {
		return Student{}, conflict(err)
	}
	return s, nil
}

func (svc *Service) AuthenticateTeacher(ctx context.Context, creds Credentials) (Teacher, error) {
	creds.Clean()
	if err := svc.validate.Struct(creds); err != nil {
		return Teacher{}, err
	}
	t, err := svc.repo.GetTeacherByEmail(ctx, creds.Email)
	if err != nil {
		return Teacher{}, err
	}
	if err = t.CheckPassword(creds.Password); err != nil {
		return Teacher{}, err
	}
	return t, nil
}

func (svc *Service) AuthenticateStudent(ctx context.Context, creds Credentials) (Student, error) {
	creds.Clean()
	if err := svc.validate.Struct(creds); err != nil {
		return Student{}, err
	}
	s, err := svc.repo.GetStudentByEmail(ctx, creds.Email)
	if err != nil {
		return Student{}, err
	}
	if err = s.CheckPassword(creds.Password); err != nil {
		return Student{}, err
	}
	return s, nil
}

func (svc *Service) GetTeacher(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacherByID(ctx, id)
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

// SetPassword replaces the password of the teacher or student identified by email.
func (svc *Service) SetPassword(ctx context.Context, sp SetPassword) error {
	sp.Email = core.CleanString(sp.Email, true /* lower */)
	if err := svc.validate.Struct(sp); err != nil {
		return err
	}
	hash, err := hashPassword(sp.Password)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}

	switch sp.Role {
	case core.RoleTeacher:
		t, err := svc.repo.GetTeacherByEmail(ctx, sp.Email)
		if err != nil {
			return err
		}
		return svc.repo.UpdateTeacherPassword(ctx, t.ID, hash)
	default:
		s, err := svc.repo.GetStudentByEmail(ctx, sp.Email)
		if err != nil {
			return err
		}
		return svc.repo.UpdateStudentPassword(ctx, s.ID, hash)
	}
}
