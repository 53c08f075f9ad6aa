package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/clms-app/clms/core"
)

const rebuildTimeout = time.Minute

// scheduleLeaderboardRebuild registers rebuild on conf.Leaderboard.RebuildSpec.
// Runs never overlap, and a panicking run is recovered and logged. The caller starts the returned scheduler.
func scheduleLeaderboardRebuild(conf *core.Config, logger core.Logger, rebuild func(ctx context.Context) error) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
	)

	_, err := c.AddFunc(conf.Leaderboard.RebuildSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
		defer cancel()

		start := time.Now()
		if err := rebuild(ctx); err != nil {
			logger.Error(fmt.Sprintf("rebuilding leaderboard: %v", err), err)
			return
		}
		logger.Debug("leaderboard rebuilt", map[string]interface{}{"took": time.Since(start).String()})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "parsing schedule %q", conf.Leaderboard.RebuildSpec)
	}
	return c, nil
}

// cronLogger adapts a core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, kvMap(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s: %v", msg, err), err, kvMap(keysAndValues))
}

func kvMap(keysAndValues []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		m[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return m
}
