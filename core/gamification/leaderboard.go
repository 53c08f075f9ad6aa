package gamification

import (
	"context"

	"github.com/pkg/errors"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// TopStudents returns the students with the most XP, best first.
// The limit defaults to DefaultLeaderboardLimit and is capped at MaxLeaderboardLimit.
func (svc *Service) TopStudents(ctx context.Context, limit int) ([]Standing, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	if svc.cache != nil {
		top, err := svc.cache.Top(ctx, limit)
		switch {
		case err == nil && len(top) == limit:
			return top, nil
		case err != nil && errors.Cause(err) != ErrCacheMiss:
			svc.logger.Warn("reading leaderboard cache", err)
		}
		// a short or cold cache may be missing students; the store is authoritative
	}

	top, err := svc.store.QueryTopStudents(ctx, limit)
	if err != nil {
		return nil, err
	}
	return top, nil
}

// RebuildLeaderboard replaces the cached leaderboard with every student's standing.
func (svc *Service) RebuildLeaderboard(ctx context.Context) error {
	if svc.cache == nil {
		return nil
	}
	all, err := svc.store.QueryTopStudents(ctx, 0)
	if err != nil {
		return errors.Wrap(err, "querying standings")
	}
	if err = svc.cache.Replace(ctx, all); err != nil {
		return errors.Wrap(err, "replacing leaderboard cache")
	}
	return nil
}
