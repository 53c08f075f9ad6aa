package gamification

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/clms-app/clms/core"
)

// DefaultBadges is the seeded badge catalog.
var DefaultBadges = []Badge{
	{Name: "First Step", Description: "Complete your first lesson", XPRequired: 10},
	{Name: "Getting Started", Description: "Reach 50 XP", XPRequired: 50},
	{Name: "Scholar", Description: "Reach 100 XP", XPRequired: 100},
	{Name: "Dedicated", Description: "Reach 250 XP", XPRequired: 250},
	{Name: "Expert", Description: "Reach 500 XP", XPRequired: 500},
	{Name: "Master", Description: "Reach 1000 XP", XPRequired: 1000},
}

// SeedBadges creates the DefaultBadges missing from the catalog, matching them by name.
// It returns the number of badges created and is safe to run repeatedly.
func (svc *Service) SeedBadges(ctx context.Context) (int, error) {
	var created int
	err := svc.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		created = 0
		for _, b := range DefaultBadges {
			_, err := repo.GetBadgeByName(ctx, b.Name)
			if err == nil {
				continue
			}
			if errors.Cause(err) != ErrBadgeNotFound {
				return err
			}

			b.ID = uuid.New().String()
			if _, err = repo.CreateBadge(ctx, b); err != nil {
				if errors.Cause(err) == ErrBadgeExists {
					continue
				}
				return errors.Wrapf(err, "creating badge %q", b.Name)
			}
			created++
		}
		return nil
	})
	return created, err
}

// Badges returns the badge catalog ordered by required XP.
func (svc *Service) Badges(ctx context.Context) ([]Badge, error) {
	return svc.store.QueryAllBadges(ctx)
}

// EvaluateAndAward awards the student every badge whose threshold currentXP reaches and that they have not earned yet.
// It returns the newly awarded badges.
func (svc *Service) EvaluateAndAward(ctx context.Context, studentID string, currentXP int) ([]Badge, error) {
	var badges []Badge
	err := svc.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		badges, err = svc.evaluateAndAward(ctx, repo, studentID, currentXP)
		return err
	})
	if err != nil {
		return nil, err
	}
	return badges, nil
}

func (svc *Service) evaluateAndAward(ctx context.Context, repo Repository, studentID string, currentXP int) ([]Badge, error) {
	earned, err := repo.QueryEarnedBadgeIDs(ctx, studentID)
	if err != nil {
		return nil, err
	}
	qualifying, err := repo.QueryQualifyingBadges(ctx, currentXP, earned)
	if err != nil {
		return nil, err
	}

	awarded := make([]Badge, 0, len(qualifying))
	now := time.Now().UTC()
	for _, b := range qualifying {
		_, err = repo.CreateStudentBadge(ctx, StudentBadge{
			ID:        uuid.New().String(),
			StudentID: studentID,
			BadgeID:   b.ID,
			EarnedAt:  now,
		})
		if errors.Cause(err) == ErrBadgeAlreadyAwarded {
			continue // awarded by a concurrent evaluation
		}
		if err != nil {
			return nil, err
		}
		awarded = append(awarded, b)
	}
	return awarded, nil
}

type badgeEmailData struct {
	Name   string
	XP     int
	Level  int
	Badges []Badge
}

func (svc *Service) notifyBadges(st Standing, badges []Badge) {
	if svc.mailSvc == nil || st.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: st.Name, Address: st.Email}},
		Subject:      "You earned a new badge!",
		TemplateName: "badge_earned",
		TemplateData: badgeEmailData{
			Name:   st.Name,
			XP:     st.XP,
			Level:  st.Level,
			Badges: badges,
		},
	})
}
