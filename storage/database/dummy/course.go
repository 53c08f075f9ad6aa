package dummydb

import (
	"context"
	"sort"

	"github.com/clms-app/clms/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) lessonsOf(subjectID string) []course.Lesson {
	lessons := make([]course.Lesson, 0)
	for _, l := range repo.db.tables.lesson {
		if l.SubjectID == subjectID {
			lessons = append(lessons, l)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].CreatedAt.Equal(lessons[j].CreatedAt) {
			return lessons[i].ID < lessons[j].ID
		}
		return lessons[i].CreatedAt.Before(lessons[j].CreatedAt)
	})
	return lessons
}

// deleteLesson removes the lesson and its progress records. Callers hold the write lock.
func (repo *courseRepository) deleteLesson(id string) {
	delete(repo.db.tables.lesson, id)
	for pid, p := range repo.db.tables.progress {
		if p.LessonID == id {
			delete(repo.db.tables.progress, pid)
		}
	}
}

func (repo *courseRepository) CreateSubject(ctx context.Context, s course.Subject) (course.Subject, error) {
	err := repo.db.write(false, func() error {
		s.Lessons = nil
		repo.db.tables.subject[s.ID] = s
		return nil
	})
	if err != nil {
		return course.Subject{}, err
	}
	s.Lessons = []course.Lesson{}
	return s, nil
}

func (repo *courseRepository) GetSubjectByID(ctx context.Context, id string) (course.Subject, error) {
	var s course.Subject
	err := repo.db.read(func() error {
		var ok bool
		if s, ok = repo.db.tables.subject[id]; !ok {
			return course.ErrSubjectNotFound
		}
		s.Lessons = repo.lessonsOf(id)
		return nil
	})
	return s, err
}

func (repo *courseRepository) QuerySubjectsByTeacher(ctx context.Context, teacherID string) ([]course.Subject, error) {
	subjects := make([]course.Subject, 0)
	err := repo.db.read(func() error {
		for _, s := range repo.db.tables.subject {
			if s.TeacherID == teacherID {
				s.Lessons = repo.lessonsOf(s.ID)
				subjects = append(subjects, s)
			}
		}
		return nil
	})
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].CreatedAt.Equal(subjects[j].CreatedAt) {
			return subjects[i].ID < subjects[j].ID
		}
		return subjects[i].CreatedAt.Before(subjects[j].CreatedAt)
	})
	return subjects, err
}

func (repo *courseRepository) UpdateSubject(ctx context.Context, s course.Subject) (course.Subject, error) {
	err := repo.db.write(false, func() error {
		orig, ok := repo.db.tables.subject[s.ID]
		if !ok {
			return course.ErrSubjectNotFound
		}
		orig.Title = s.Title
		repo.db.tables.subject[s.ID] = orig
		s = orig
		s.Lessons = repo.lessonsOf(s.ID)
		return nil
	})
	if err != nil {
		return course.Subject{}, err
	}
	return s, nil
}

func (repo *courseRepository) DeleteSubject(ctx context.Context, id string) error {
	return repo.db.write(false, func() error {
		if _, ok := repo.db.tables.subject[id]; !ok {
			return course.ErrSubjectNotFound
		}
		for _, l := range repo.lessonsOf(id) {
			repo.deleteLesson(l.ID)
		}
		delete(repo.db.tables.subject, id)
		return nil
	})
}

func (repo *courseRepository) CreateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	err := repo.db.write(false, func() error {
		if _, ok := repo.db.tables.subject[l.SubjectID]; !ok {
			return course.ErrSubjectNotFound
		}
		repo.db.tables.lesson[l.ID] = l
		return nil
	})
	if err != nil {
		return course.Lesson{}, err
	}
	return l, nil
}

func (repo *courseRepository) GetLessonByID(ctx context.Context, id string) (course.Lesson, error) {
	var l course.Lesson
	err := repo.db.read(func() error {
		var ok bool
		if l, ok = repo.db.tables.lesson[id]; !ok {
			return course.ErrLessonNotFound
		}
		return nil
	})
	return l, err
}

func (repo *courseRepository) QueryLessonsBySubject(ctx context.Context, subjectID string) ([]course.Lesson, error) {
	var lessons []course.Lesson
	err := repo.db.read(func() error {
		lessons = repo.lessonsOf(subjectID)
		return nil
	})
	return lessons, err
}

func (repo *courseRepository) UpdateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	err := repo.db.write(false, func() error {
		orig, ok := repo.db.tables.lesson[l.ID]
		if !ok {
			return course.ErrLessonNotFound
		}
		orig.Title = l.Title
		orig.Content = l.Content
		repo.db.tables.lesson[l.ID] = orig
		l = orig
		return nil
	})
	if err != nil {
		return course.Lesson{}, err
	}
	return l, nil
}

func (repo *courseRepository) DeleteLesson(ctx context.Context, id string) error {
	return repo.db.write(false, func() error {
		if _, ok := repo.db.tables.lesson[id]; !ok {
			return course.ErrLessonNotFound
		}
		repo.deleteLesson(id)
		return nil
	})
}
