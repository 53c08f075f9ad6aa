package gamification_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clms-app/clms/core/gamification"
)

// memCache is an in-process gamification.LeaderboardCache.
type memCache struct {
	mu      sync.Mutex
	built   bool
	entries map[string]gamification.Standing
	err     error
	upserts int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]gamification.Standing)}
}

func (c *memCache) Top(ctx context.Context, limit int) ([]gamification.Standing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	if !c.built {
		return nil, gamification.ErrCacheMiss
	}
	top := make([]gamification.Standing, 0, len(c.entries))
	for _, s := range c.entries {
		top = append(top, s)
	}
	sort.Slice(top, func(i, j int) bool { return top[i].XP > top[j].XP })
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

func (c *memCache) Upsert(ctx context.Context, s gamification.Standing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upserts++
	c.entries[s.ID] = s
	return nil
}

func (c *memCache) Replace(ctx context.Context, all []gamification.Standing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]gamification.Standing, len(all))
	for _, s := range all {
		c.entries[s.ID] = s
	}
	c.built = true
	return nil
}

func assertSortedByXP(t *testing.T, top []gamification.Standing) {
	t.Helper()
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].XP, top[i].XP, "entry %d", i)
	}
}

func TestService_TopStudents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// D: 12 students
	for i := 0; i < 12; i++ {
		f.newStudent(t, fmt.Sprintf("Student %02d", i), fmt.Sprintf("s%02d@school.io", i), fmt.Sprintf("LRN-%04d", i), (i*37)%150)
	}

	top, err := f.svc.TopStudents(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 10)
	assertSortedByXP(t, top)
	assert.Equal(t, 148, top[0].XP)
	for _, s := range top {
		assert.Equal(t, gamification.ComputeLevel(s.XP), s.Level)
		assert.NotEmpty(t, s.Name)
	}

	top, err = f.svc.TopStudents(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assertSortedByXP(t, top)

	top, err = f.svc.TopStudents(ctx, 500)
	require.NoError(t, err)
	assert.Len(t, top, 12)
}

func TestService_TopStudents_cache(t *testing.T) {
	cache := newMemCache()
	f := setup(t, cache)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		f.newStudent(t, fmt.Sprintf("Student %02d", i), fmt.Sprintf("s%02d@school.io", i), fmt.Sprintf("LRN-%04d", i), i*10)
	}

	// cold cache: the store answers
	top, err := f.svc.TopStudents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 10)
	assert.Equal(t, 110, top[0].XP)

	require.NoError(t, f.svc.RebuildLeaderboard(ctx))
	assert.Len(t, cache.entries, 12)

	// awards refresh the cached standing
	ana := f.newStudent(t, "Ana", "ana@school.io", "LRN-9999", 195)
	_, err = f.svc.CompleteLesson(ctx, ana, complete(f.newLesson(t, "L1").ID, 95))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.upserts)

	top, err = f.svc.TopStudents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 10)
	assert.Equal(t, ana.ID, top[0].ID)
	assert.Equal(t, 215, top[0].XP)
	assert.Equal(t, 3, top[0].Level)

	// a failing cache falls back to the store
	cache.err = errors.New("redis: connection refused")
	top, err = f.svc.TopStudents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 10)
	assert.Equal(t, ana.ID, top[0].ID)
	assert.NotZero(t, f.logger.Len())
}

func TestService_RebuildLeaderboard_noCache(t *testing.T) {
	f := setup(t)
	assert.NoError(t, f.svc.RebuildLeaderboard(context.Background()))
}
