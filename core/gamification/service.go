package gamification

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/clms-app/clms/core"
)

var (
	// errors
	ErrLessonNotFound      = core.NewNotFoundError("lesson")
	ErrStudentNotFound     = core.NewNotFoundError("student")
	ErrProgressNotFound    = core.NewNotFoundError("progress")
	ErrBadgeNotFound       = core.NewNotFoundError("badge")
	ErrProgressExists      = errors.New("progress already recorded for this lesson")
	ErrBadgeExists         = errors.New("a badge with this name already exists")
	ErrBadgeAlreadyAwarded = errors.New("badge already awarded")
	ErrCacheMiss           = errors.New("leaderboard cache miss")
)

type (
	Repository interface {
		LessonExists(ctx context.Context, lessonID string) (bool, error)

		GetProgress(ctx context.Context, studentID, lessonID string) (Progress, error)
		// CreateProgress returns ErrProgressExists when the (student, lesson) pair is already recorded.
		CreateProgress(ctx context.Context, p Progress) (Progress, error)
		UpdateProgress(ctx context.Context, p Progress) (Progress, error)
		// QueryStudentProgress returns the student's progress records with their lesson and subject.
		QueryStudentProgress(ctx context.Context, studentID string) ([]Progress, error)

		GetStanding(ctx context.Context, studentID string) (Standing, error)
		// IncrementStudentXP atomically adds delta to the student's XP and returns the new total.
		IncrementStudentXP(ctx context.Context, studentID string, delta int) (int, error)
		SetStudentLevel(ctx context.Context, studentID string, level int) error
		// QueryTopStudents returns students by XP descending. A limit <= 0 returns every student.
		QueryTopStudents(ctx context.Context, limit int) ([]Standing, error)

		QueryAllBadges(ctx context.Context) ([]Badge, error)
		GetBadgeByName(ctx context.Context, name string) (Badge, error)
		// CreateBadge returns ErrBadgeExists on a duplicate name.
		CreateBadge(ctx context.Context, b Badge) (Badge, error)
		QueryEarnedBadgeIDs(ctx context.Context, studentID string) ([]string, error)
		// QueryQualifyingBadges returns the badges requiring at most xp, except the excluded ones.
		QueryQualifyingBadges(ctx context.Context, xp int, excludedIDs []string) ([]Badge, error)
		// CreateStudentBadge returns ErrBadgeAlreadyAwarded when the (student, badge) pair exists.
		CreateStudentBadge(ctx context.Context, sb StudentBadge) (StudentBadge, error)
		QueryStudentBadges(ctx context.Context, studentID string) ([]StudentBadge, error)
	}

	// Transactor runs a unit of work: every write made through repo is committed if fn returns nil, and none otherwise.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
	}

	Store interface {
		Repository
		Transactor
	}

	// LeaderboardCache keeps a ranked copy of the student standings.
	LeaderboardCache interface {
		// Top returns ErrCacheMiss when the cache has not been (re)built.
		Top(ctx context.Context, limit int) ([]Standing, error)
		Upsert(ctx context.Context, s Standing) error
		Replace(ctx context.Context, all []Standing) error
	}

	Options struct {
		Conf     *core.Config
		Logger   core.Logger
		Validate *validator.Validate
		MailSvc  core.EmailService
		Cache    LeaderboardCache // optional
	}

	Service struct {
		store    Store
		conf     *core.Config
		logger   core.Logger
		validate *validator.Validate
		mailSvc  core.EmailService
		cache    LeaderboardCache
	}
)

func NewService(store Store, opts Options) *Service {
	return &Service{
		store:    store,
		conf:     opts.Conf,
		logger:   opts.Logger,
		validate: opts.Validate,
		mailSvc:  opts.MailSvc,
		cache:    opts.Cache,
	}
}

func (svc *Service) StudentProgress(ctx context.Context, student core.Identity) ([]Progress, error) {
	if err := student.Require(core.RoleStudent); err != nil {
		return nil, err
	}
	return svc.store.QueryStudentProgress(ctx, student.ID)
}

func (svc *Service) StudentBadges(ctx context.Context, student core.Identity) ([]StudentBadge, error) {
	if err := student.Require(core.RoleStudent); err != nil {
		return nil, err
	}
	return svc.store.QueryStudentBadges(ctx, student.ID)
}

// Standing returns the student's XP and level.
func (svc *Service) Standing(ctx context.Context, student core.Identity) (Standing, error) {
	if err := student.Require(core.RoleStudent); err != nil {
		return Standing{}, err
	}
	return svc.store.GetStanding(ctx, student.ID)
}
