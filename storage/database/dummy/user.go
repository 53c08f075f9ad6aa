package dummydb

import (
	"context"

	"github.com/clms-app/clms/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckTeacherUniqueness(ctx context.Context, email string) error {
	return repo.db.read(func() error {
		for _, t := range repo.db.tables.teacher {
			if t.Email == email {
				return user.ErrEmailExists
			}
		}
		return nil
	})
}

func (repo *userRepository) CreateTeacher(ctx context.Context, t user.Teacher) (user.Teacher, error) {
	err := repo.db.write(false, func() error {
		for _, other := range repo.db.tables.teacher {
			if other.Email == t.Email {
				return user.ErrEmailExists
			}
		}
		repo.db.tables.teacher[t.ID] = t
		return nil
	})
	if err != nil {
		return user.Teacher{}, err
	}
	return t, nil
}

func (repo *userRepository) GetTeacherByID(ctx context.Context, id string) (user.Teacher, error) {
	var t user.Teacher
	err := repo.db.read(func() error {
		var ok bool
		if t, ok = repo.db.tables.teacher[id]; !ok {
			return user.ErrTeacherNotFound
		}
		return nil
	})
	return t, err
}

func (repo *userRepository) GetTeacherByEmail(ctx context.Context, email string) (user.Teacher, error) {
	var t user.Teacher
	err := repo.db.read(func() error {
		for _, other := range repo.db.tables.teacher {
			if other.Email == email {
				t = other
				return nil
			}
		}
		return user.ErrTeacherNotFound
	})
	return t, err
}

func (repo *userRepository) UpdateTeacherPassword(ctx context.Context, id string, hash []byte) error {
	return repo.db.write(false, func() error {
		t, ok := repo.db.tables.teacher[id]
		if !ok {
			return user.ErrTeacherNotFound
		}
		t.PasswordHash = hash
		repo.db.tables.teacher[id] = t
		return nil
	})
}

func (repo *userRepository) CheckStudentUniqueness(ctx context.Context, email, lrn string) error {
	return repo.db.read(func() error {
		return repo.checkStudent(email, lrn)
	})
}

func (repo *userRepository) checkStudent(email, lrn string) error {
	for _, s := range repo.db.tables.student {
		if s.Email == email {
			return user.ErrEmailExists
		}
		if s.LRN == lrn {
			return user.ErrLRNExists
		}
	}
	return nil
}

func (repo *userRepository) CreateStudent(ctx context.Context, s user.Student) (user.Student, error) {
	err := repo.db.write(false, func() error {
		if err := repo.checkStudent(s.Email, s.LRN); err != nil {
			return err
		}
		repo.db.tables.student[s.ID] = s
		return nil
	})
	if err != nil {
		return user.Student{}, err
	}
	return s, nil
}

func (repo *userRepository) GetStudentByID(ctx context.Context, id string) (user.Student, error) {
	var s user.Student
	err := repo.db.read(func() error {
		var ok bool
		if s, ok = repo.db.tables.student[id]; !ok {
			return user.ErrStudentNotFound
		}
		return nil
	})
	return s, err
}

func (repo *userRepository) GetStudentByEmail(ctx context.Context, email string) (user.Student, error) {
	var s user.Student
	err := repo.db.read(func() error {
		for _, other := range repo.db.tables.student {
			if other.Email == email {
				s = other
				return nil
			}
		}
		return user.ErrStudentNotFound
	})
	return s, err
}

func (repo *userRepository) UpdateStudentPassword(ctx context.Context, id string, hash []byte) error {
	return repo.db.write(false, func() error {
		s, ok := repo.db.tables.student[id]
		if !ok {
			return user.ErrStudentNotFound
		}
		s.PasswordHash = hash
		repo.db.tables.student[id] = s
		return nil
	})
}
