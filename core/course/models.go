package course

import (
	"time"

	"github.com/clms-app/clms/core"
)

type Subject struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	TeacherID string    `json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
	Lessons   []Lesson  `json:"lessons"`
}

type Lesson struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	SubjectID string    `json:"subject_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Title string `json:"title" validate:"required,max=200"`
}

func (ns *NewSubject) Clean() { ns.Title = core.CleanString(ns.Title) }

// UpdateSubject defines what information may be provided to modify an existing Subject.
type UpdateSubject struct {
	Title string `json:"title" validate:"required,max=200"`
}

func (us *UpdateSubject) Clean() { us.Title = core.CleanString(us.Title) }

// NewLesson contains information needed to create a new Lesson.
type NewLesson struct {
	Title     string `json:"title" validate:"required,max=200"`
	Content   string `json:"content"`
	SubjectID string `json:"subject_id" validate:"required,uuid"`
}

func (nl *NewLesson) Clean() {
	nl.Title = core.CleanString(nl.Title)
	nl.SubjectID = core.CleanString(nl.SubjectID, true /* lower */)
}

// UpdateLesson defines what information may be provided to modify an existing Lesson.
// A nil Content leaves the current content untouched.
type UpdateLesson struct {
	Title   string  `json:"title" validate:"required,max=200"`
	Content *string `json:"content"`
}

func (ul *UpdateLesson) Clean() { ul.Title = core.CleanString(ul.Title) }
