package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/clms-app/clms/core"
	"github.com/clms-app/clms/core/course"
	"github.com/clms-app/clms/core/gamification"
	"github.com/clms-app/clms/core/user"
)

// NewValidator returns a validator with every app validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func CreateTeacher(t *testing.T, repo user.Repository, name, email, pwd string) user.Teacher {
	tchr := user.Teacher{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if pwd != "" {
		if err := tchr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateTeacher() failed: %v", err)
		}
	}
	tchr, err := repo.CreateTeacher(context.Background(), tchr)
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tchr
}

// CreateStudent creates a student holding xp, at the matching level.
func CreateStudent(t *testing.T, repo user.Repository, name, email, lrn, pwd string, xp int) user.Student {
	s := user.Student{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		LRN:       lrn,
		XP:        xp,
		Level:     gamification.ComputeLevel(xp),
		CreatedAt: time.Now().UTC(),
	}
	if pwd != "" {
		if err := s.SetPassword(pwd); err != nil {
			t.Fatalf("CreateStudent() failed: %v", err)
		}
	}
	s, err := repo.CreateStudent(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

func CreateSubject(t *testing.T, repo course.Repository, teacherID, title string) course.Subject {
	s, err := repo.CreateSubject(context.Background(), course.Subject{
		ID:        uuid.New().String(),
		Title:     title,
		TeacherID: teacherID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return s
}

func CreateLesson(t *testing.T, repo course.Repository, subjectID, title string) course.Lesson {
	l, err := repo.CreateLesson(context.Background(), course.Lesson{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   title + " content",
		SubjectID: subjectID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return l
}

// SeedBadges creates the default badge catalog.
func SeedBadges(t *testing.T, store gamification.Store) []gamification.Badge {
	ctx := context.Background()
	badges := make([]gamification.Badge, 0, len(gamification.DefaultBadges))
	for _, b := range gamification.DefaultBadges {
		b.ID = uuid.New().String()
		b, err := store.CreateBadge(ctx, b)
		if err != nil {
			t.Fatalf("SeedBadges() failed: %v", err)
		}
		badges = append(badges, b)
	}
	return badges
}

// Logger is a core.Logger recording its messages.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, fmt.Sprintf("%s: %s %v", level, msg, args))
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

func (l *Logger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Messages)
}
