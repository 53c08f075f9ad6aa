package gamification

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/clms-app/clms/core"
)

type Progress struct {
	ID        string       `json:"id"`
	StudentID string       `json:"student_id"`
	LessonID  string       `json:"lesson_id"`
	Completed bool         `json:"completed"`
	Score     null.Float64 `json:"score"`
	XPEarned  null.Int     `json:"xp_earned"` // null until the completion XP was awarded
	CreatedAt time.Time    `json:"created_at"` // UTC
	UpdatedAt time.Time    `json:"updated_at"` // UTC

	Lesson *LessonSummary `json:"lesson,omitempty"`
}

type LessonSummary struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	SubjectID string         `json:"subject_id"`
	Subject   SubjectSummary `json:"subject"`
}

type SubjectSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	TeacherID string `json:"teacher_id"`
}

type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	XPRequired  int    `json:"xp_required"`
}

type StudentBadge struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	BadgeID   string    `json:"badge_id"`
	EarnedAt  time.Time `json:"earned_at"` // UTC
	Badge     Badge     `json:"badge"`
}

// Standing is a student's position-relevant data: the leaderboard entry.
type Standing struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"-"`
	XP    int    `json:"xp"`
	Level int    `json:"level"`
}

// Completion is a student's request to mark a lesson completed.
type Completion struct {
	LessonID string       `json:"lesson_id" validate:"required,uuid"`
	Score    null.Float64 `json:"score"`
}

func (c *Completion) Clean() {
	c.LessonID = core.CleanString(c.LessonID, true /* lower */)
}

// CompletionResult is the outcome of a completion.
// Created is false when the lesson had already been completed; no XP nor badge is awarded then.
type CompletionResult struct {
	Created   bool     `json:"created"`
	XPEarned  int      `json:"xp_earned"`
	TotalXP   int      `json:"total_xp"`
	Level     int      `json:"level"`
	NewBadges []Badge  `json:"new_badges"`
	Progress  Progress `json:"progress"`
}

// BadgeNames returns the names of the newly awarded badges.
func (r CompletionResult) BadgeNames() []string {
	names := make([]string, 0, len(r.NewBadges))
	for _, b := range r.NewBadges {
		names = append(names, b.Name)
	}
	return names
}
