package gamification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/clms-app/clms/core"
)

const (
	minScore = 0
	maxScore = 100
)

// CompleteLesson records the student's completion of a lesson.
//
// The first completion awards XP (see AwardXP), re-levels the student and awards the newly qualifying badges.
// Later completions only update the completed flag and score. Everything runs in one unit of work.
func (svc *Service) CompleteLesson(ctx context.Context, student core.Identity, c Completion) (CompletionResult, error) {
	if err := student.Require(core.RoleStudent); err != nil {
		return CompletionResult{}, err
	}
	c.Clean()
	if err := svc.validate.Struct(c); err != nil {
		return CompletionResult{}, err
	}
	if c.Score.Valid && (c.Score.Float64 < minScore || c.Score.Float64 > maxScore) {
		err := errors.New("score must be between 0 and 100")
		return CompletionResult{}, core.NewValidationError(err, core.FieldError{Field: "score", Error: err.Error()})
	}

	var res CompletionResult
	err := svc.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		res, err = svc.recordCompletion(ctx, repo, student.ID, c)
		return err
	})
	if err != nil {
		return CompletionResult{}, err
	}

	if res.XPEarned > 0 {
		svc.afterAward(ctx, student, res)
	}
	return res, nil
}

func (svc *Service) recordCompletion(ctx context.Context, repo Repository, studentID string, c Completion) (CompletionResult, error) {
	exists, err := repo.LessonExists(ctx, c.LessonID)
	if err != nil {
		return CompletionResult{}, err
	}
	if !exists {
		return CompletionResult{}, ErrLessonNotFound
	}

	p, err := repo.GetProgress(ctx, studentID, c.LessonID)
	if err == nil {
		return svc.updateCompletion(ctx, repo, p, c)
	}
	if errors.Cause(err) != ErrProgressNotFound {
		return CompletionResult{}, err
	}

	xp := AwardXP(c.Score)
	now := time.Now().UTC()
	p, err = repo.CreateProgress(ctx, Progress{
		ID:        uuid.New().String(),
		StudentID: studentID,
		LessonID:  c.LessonID,
		Completed: true,
		Score:     c.Score,
		XPEarned:  null.IntFrom(xp),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Cause(err) == ErrProgressExists {
		// a concurrent request recorded it first
		if p, err = repo.GetProgress(ctx, studentID, c.LessonID); err != nil {
			return CompletionResult{}, err
		}
		return svc.updateCompletion(ctx, repo, p, c)
	}
	if err != nil {
		return CompletionResult{}, err
	}

	res, err := svc.award(ctx, repo, studentID, xp)
	if err != nil {
		return CompletionResult{}, err
	}
	res.Created = true
	res.Progress = p
	return res, nil
}

// updateCompletion updates an existing progress record in place.
// XP is only awarded if it never was for this record.
func (svc *Service) updateCompletion(ctx context.Context, repo Repository, p Progress, c Completion) (CompletionResult, error) {
	p.Completed = true
	if c.Score.Valid {
		p.Score = c.Score
	}
	p.UpdatedAt = time.Now().UTC()

	awarding := !p.XPEarned.Valid
	var xp int
	if awarding {
		xp = AwardXP(p.Score)
		p.XPEarned = null.IntFrom(xp)
	}

	p, err := repo.UpdateProgress(ctx, p)
	if err != nil {
		return CompletionResult{}, err
	}

	if awarding {
		res, err := svc.award(ctx, repo, p.StudentID, xp)
		if err != nil {
			return CompletionResult{}, err
		}
		res.Progress = p
		return res, nil
	}

	st, err := repo.GetStanding(ctx, p.StudentID)
	if err != nil {
		return CompletionResult{}, err
	}
	return CompletionResult{
		Created:   false,
		TotalXP:   st.XP,
		Level:     st.Level,
		NewBadges: []Badge{},
		Progress:  p,
	}, nil
}

// award adds xp to the student, re-levels them and awards the newly qualifying badges.
func (svc *Service) award(ctx context.Context, repo Repository, studentID string, xp int) (CompletionResult, error) {
	total, err := repo.IncrementStudentXP(ctx, studentID, xp)
	if err != nil {
		return CompletionResult{}, err
	}
	level := ComputeLevel(total)
	if err = repo.SetStudentLevel(ctx, studentID, level); err != nil {
		return CompletionResult{}, err
	}

	badges, err := svc.evaluateAndAward(ctx, repo, studentID, total)
	if err != nil {
		return CompletionResult{}, err
	}
	return CompletionResult{
		XPEarned:  xp,
		TotalXP:   total,
		Level:     level,
		NewBadges: badges,
	}, nil
}

// afterAward runs the side effects of a committed award: leaderboard cache refresh and badge email.
// Failures are logged, the completion itself stands.
func (svc *Service) afterAward(ctx context.Context, student core.Identity, res CompletionResult) {
	if svc.cache == nil && len(res.NewBadges) == 0 {
		return
	}

	st, err := svc.store.GetStanding(ctx, student.ID)
	if err != nil {
		svc.logger.Error("loading standing after award", err, student)
		return
	}

	if svc.cache != nil {
		if err = svc.cache.Upsert(ctx, st); err != nil {
			svc.logger.Warn("updating leaderboard cache", err, student)
		}
	}
	if len(res.NewBadges) > 0 {
		svc.notifyBadges(st, res.NewBadges)
	}
}
