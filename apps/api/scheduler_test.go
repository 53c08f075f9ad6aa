package main

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clms-app/clms/core"
	"github.com/clms-app/clms/testutil"
)

func Test_scheduleLeaderboardRebuild(t *testing.T) {
	conf := core.NewTestConfig()
	logger := new(testutil.Logger)

	conf.Leaderboard.RebuildSpec = "every ten minutes"
	_, err := scheduleLeaderboardRebuild(conf, logger, func(ctx context.Context) error { return nil })
	assert.Error(t, err)

	conf.Leaderboard.RebuildSpec = "@every 1s"
	runs := make(chan struct{}, 4)
	sched, err := scheduleLeaderboardRebuild(conf, logger, func(ctx context.Context) error {
		runs <- struct{}{}
		return errors.New("database is down")
	})
	require.NoError(t, err)
	require.Len(t, sched.Entries(), 1)

	sched.Start()
	defer sched.Stop()

	select {
	case <-runs:
	case <-time.After(3 * time.Second):
		t.Fatal("rebuild never ran")
	}
	// the failure is logged, the schedule goes on
	assert.Eventually(t, func() bool { return logger.Len() > 0 }, time.Second, 10*time.Millisecond)
}

func Test_kvMap(t *testing.T) {
	assert.Equal(t, map[string]interface{}{"now": 1, "entry": "x"}, kvMap([]interface{}{"now", 1, "entry", "x", "dangling"}))
	assert.Empty(t, kvMap(nil))
}
