package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/clms-app/clms/core"
)

var (
	// errors
	ErrSubjectNotFound = core.NewNotFoundError("subject")
	ErrLessonNotFound  = core.NewNotFoundError("lesson")
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		// QuerySubjectsByTeacher returns the teacher's subjects, oldest first, with their lessons.
		QuerySubjectsByTeacher(ctx context.Context, teacherID string) ([]Subject, error)
		UpdateSubject(ctx context.Context, s Subject) (Subject, error)
		// DeleteSubject deletes the subject along with its lessons and their progress records.
		DeleteSubject(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		GetLessonByID(ctx context.Context, id string) (Lesson, error)
		QueryLessonsBySubject(ctx context.Context, subjectID string) ([]Lesson, error)
		UpdateLesson(ctx context.Context, l Lesson) (Lesson, error)
		// DeleteLesson deletes the lesson along with its progress records.
		DeleteLesson(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ownedSubject returns the subject if it belongs to the teacher. Subjects of other teachers are reported as not found.
func (svc *Service) ownedSubject(ctx context.Context, teacher core.Identity, id string) (Subject, error) {
	if !validID(id) {
		return Subject{}, ErrSubjectNotFound
	}
	s, err := svc.repo.GetSubjectByID(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	if s.TeacherID != teacher.ID {
		return Subject{}, ErrSubjectNotFound
	}
	return s, nil
}

func (svc *Service) ownedLesson(ctx context.Context, teacher core.Identity, id string) (Lesson, error) {
	if !validID(id) {
		return Lesson{}, ErrLessonNotFound
	}
	l, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if _, err = svc.ownedSubject(ctx, teacher, l.SubjectID); err != nil {
		if core.IsNotFound(err) {
			return Lesson{}, ErrLessonNotFound
		}
		return Lesson{}, err
	}
	return l, nil
}

func (svc *Service) CreateSubject(ctx context.Context, teacher core.Identity, ns NewSubject) (Subject, error) {
	if err := teacher.Require(core.RoleTeacher); err != nil {
		return Subject{}, err
	}
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Subject{}, err
	}
	return svc.repo.CreateSubject(ctx, Subject{
		ID:        uuid.New().String(),
		Title:     ns.Title,
		TeacherID: teacher.ID, // from the verified identity, never from input
		CreatedAt: time.Now().UTC(),
		Lessons:   []Lesson{},
	})
}

func (svc *Service) ListSubjects(ctx context.Context, teacher core.Identity) ([]Subject, error) {
	if err := teacher.Require(core.RoleTeacher); err != nil {
		return nil, err
	}
	return svc.repo.QuerySubjectsByTeacher(ctx, teacher.ID)
}

func (svc *Service) UpdateSubject(ctx context.Context, teacher core.Identity, id string, us UpdateSubject) (Subject, error) {
	if err := teacher.Require(core.RoleTeacher); err != nil {
		return Subject{}, err
	}
	us.Clean()
	if err := svc.validate.Struct(us); err != nil {
		return Subject{}, err
	}
	s, err := svc.ownedSubject(ctx, teacher, id)
	if err != nil {
		return Subject{}, err
	}
	s.Title = us.Title
	return svc.repo.UpdateSubject(ctx, s)
}

func (svc *Service) DeleteSubject(ctx context.Context, teacher core.Identity, id string) error {
	if err := teacher.Require(core.RoleTeacher); err != nil {
		return err
	}
	if _, err := svc.ownedSubject(ctx, teacher, id); err != nil {
		return err
	}
	return svc.repo.DeleteSubject(ctx, id)
}

func (svc *Service) CreateLesson(ctx context.Context, teacher core.Identity, nl NewLesson) (Lesson, error) {
	if err := teacher.Require(core.RoleTeacher); err != nil {
		return Lesson{}, err
	}
	nl.Clean()
	if err := svc.validate.Struct(nl); err != nil {
		return Lesson{}, err
	}
	if _, err := svc.ownedSubject(ctx, teacher, nl.SubjectID); err != nil {
		return Lesson{}, err
	}
	return svc.repo.CreateLesson(ctx, Lesson{
		ID:        uuid.New().String(),
		Title:     nl.Title,
		Content:   nl.Content,
		SubjectID: nl.SubjectID,
		CreatedAt: time.Now().UTC(),
	})
}

// ListLessons returns the lessons of a subject to any authenticated caller.
func (svc *Service) ListLessons(ctx context.Context, caller core.Identity, subjectID string) ([]Lesson, error) {
	if err := caller.Require(""); err != nil {
		return nil, err
	}
	if !validID(subjectID) {
		return nil, ErrSubjectNotFound
	}
	if _, err := svc.repo.GetSubjectByID(ctx, subjectID); err != nil {
		return nil, err
	}
	return svc.repo.QueryLessonsBySubject(ctx, subjectID)
}

func (svc *Service) UpdateLesson(ctx context.Context, teacher core.Identity, id string, ul UpdateLesson) (Lesson, error) {
	if err := teacher.Require(core.RoleTeacher); err != nil {
		return Lesson{}, err
	}
	ul.Clean()
	if err := svc.validate.Struct(ul); err != nil {
		return Lesson{}, err
	}
	l, err := svc.ownedLesson(ctx, teacher, id)
	if err != nil {
		return Lesson{}, err
	}
	l.Title = ul.Title
	if ul.Content != nil {
		l.Content = *ul.Content
	}
	return svc.repo.UpdateLesson(ctx, l)
}

func (svc *Service) DeleteLesson(ctx context.Context, teacher core.Identity, id string) error {
	if err := teacher.Require(core.RoleTeacher); err != nil {
		return err
	}
	if _, err := svc.ownedLesson(ctx, teacher, id); err != nil {
		return err
	}
	return svc.repo.DeleteLesson(ctx, id)
}
