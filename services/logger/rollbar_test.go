package logsvc

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/clms-app/clms/core"
)

func TestRollbarLogger(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	logger := NewRollbarLogger(zap.New(obs).Sugar(), core.NewTestConfig())

	student := core.Identity{ID: "s1", Role: core.RoleStudent}
	logger.Warn("updating leaderboard cache", fmt.Errorf("redis down"), student, map[string]interface{}{"lesson_id": "l1"})
	logger.Info("server started")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	warn := entries[0]
	assert.Equal(t, zapcore.WarnLevel, warn.Level)
	assert.Equal(t, "updating leaderboard cache", warn.Message)
	assert.Equal(t, map[string]interface{}{
		"error":     "redis down",
		"user_id":   "s1",
		"role":      "student",
		"lesson_id": "l1",
	}, warn.ContextMap())

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Empty(t, entries[1].Context)
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := NewRollbarLogger(zap.NewNop().Sugar(), core.NewTestConfig())
	err := fmt.Errorf("boom")

	rbArgs, fields := logger.prepare("msg", []interface{}{
		err,
		core.Identity{ID: "t1", Role: core.RoleTeacher},
		core.Identity{ID: "t2", Role: core.RoleTeacher},
		42,
	})
	assert.Equal(t, []interface{}{"msg", err, 42}, rbArgs, "identities are not forwarded as extras")
	assert.Equal(t, []interface{}{zap.Error(err), "user_id", "t1", "role", "teacher", "arg3", 42}, fields)
}
