package rediscache

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/clms-app/clms/core"
	"github.com/clms-app/clms/core/gamification"
)

const (
	keyScores   = "clms:leaderboard:xp"    // sorted set: student ID -> XP
	keyStudents = "clms:leaderboard:info"  // hash: student ID -> entry JSON
	keyReady    = "clms:leaderboard:ready" // set by Replace, expires after the cache TTL
)

// entry is the cached part of a standing besides its XP.
type entry struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// NewClient connects to the configured redis server.
func NewClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Redis.Addr,
		Password:     conf.Redis.Password,
		DB:           conf.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// LeaderboardCache is a gamification.LeaderboardCache keeping the standings in a redis sorted set.
type LeaderboardCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ gamification.LeaderboardCache = (*LeaderboardCache)(nil) // interface compliance check

func NewLeaderboardCache(client redis.UniversalClient, conf *core.Config) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: conf.Leaderboard.CacheTTL}
}

// Top returns gamification.ErrCacheMiss until Replace ran, and again once its TTL elapsed.
func (c *LeaderboardCache) Top(ctx context.Context, limit int) ([]gamification.Standing, error) {
	if limit <= 0 {
		return []gamification.Standing{}, nil
	}

	n, err := c.client.Exists(ctx, keyReady).Result()
	if err != nil {
		return nil, errors.Wrap(err, "checking leaderboard cache")
	}
	if n == 0 {
		return nil, gamification.ErrCacheMiss
	}

	scores, err := c.client.ZRevRangeWithScores(ctx, keyScores, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "reading leaderboard scores")
	}
	if len(scores) == 0 {
		return []gamification.Standing{}, nil
	}
	if len(scores) == limit {
		if scores, err = c.withBoundaryTies(ctx, scores); err != nil {
			return nil, err
		}
	}

	ids := make([]string, 0, len(scores))
	for _, z := range scores {
		ids = append(ids, z.Member.(string))
	}
	infos, err := c.client.HMGet(ctx, keyStudents, ids...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "reading leaderboard entries")
	}

	top := make([]gamification.Standing, 0, len(scores))
	for i, z := range scores {
		raw, ok := infos[i].(string)
		if !ok {
			// the entry expired or was never written: only a rebuild can tell the standing
			return nil, gamification.ErrCacheMiss
		}
		var e entry
		if err = json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, errors.Wrapf(err, "decoding leaderboard entry %s", ids[i])
		}
		top = append(top, gamification.Standing{ID: ids[i], Name: e.Name, XP: int(z.Score), Level: e.Level})
	}

	// equal XP ranks like the store does: by name, then ID
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].XP != top[j].XP {
			return top[i].XP > top[j].XP
		}
		if top[i].Name != top[j].Name {
			return top[i].Name < top[j].Name
		}
		return top[i].ID < top[j].ID
	})
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

// withBoundaryTies swaps the members sharing the lowest score of page for every member
// holding that score, so the name order can pick among students cut off by the ZSET order.
func (c *LeaderboardCache) withBoundaryTies(ctx context.Context, page []redis.Z) ([]redis.Z, error) {
	boundary := page[len(page)-1].Score
	bound := strconv.FormatFloat(boundary, 'f', -1, 64)
	tied, err := c.client.ZRangeByScoreWithScores(ctx, keyScores, &redis.ZRangeBy{Min: bound, Max: bound}).Result()
	if err != nil {
		return nil, errors.Wrap(err, "reading tied leaderboard scores")
	}

	merged := make([]redis.Z, 0, len(page)+len(tied))
	for _, z := range page {
		if z.Score > boundary {
			merged = append(merged, z)
		}
	}
	return append(merged, tied...), nil
}

// upsertScript writes the score and entry of ARGV[1] unless the cached XP is already higher.
var upsertScript = redis.NewScript(`
local cur = redis.call('ZSCORE', KEYS[1], ARGV[1])
if cur and tonumber(cur) > tonumber(ARGV[2]) then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[1])
redis.call('HSET', KEYS[2], ARGV[1], ARGV[3])
return 1
`)

// Upsert sets the student's cached standing. XP only grows, so a standing older than the
// cached one is ignored.
func (c *LeaderboardCache) Upsert(ctx context.Context, s gamification.Standing) error {
	data, err := json.Marshal(entry{Name: s.Name, Level: s.Level})
	if err != nil {
		return errors.Wrap(err, "encoding leaderboard entry")
	}

	err = upsertScript.Run(ctx, c.client, []string{keyScores, keyStudents}, s.ID, s.XP, string(data)).Err()
	if err != nil {
		return errors.Wrap(err, "updating leaderboard cache")
	}
	return nil
}

// Replace drops the cached standings for all and marks the cache ready.
func (c *LeaderboardCache) Replace(ctx context.Context, all []gamification.Standing) error {
	members := make([]redis.Z, 0, len(all))
	infos := make(map[string]interface{}, len(all))
	for _, s := range all {
		data, err := json.Marshal(entry{Name: s.Name, Level: s.Level})
		if err != nil {
			return errors.Wrap(err, "encoding leaderboard entry")
		}
		members = append(members, redis.Z{Score: float64(s.XP), Member: s.ID})
		infos[s.ID] = data
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, keyScores, keyStudents)
	if len(members) > 0 {
		pipe.ZAdd(ctx, keyScores, members...)
		pipe.HSet(ctx, keyStudents, infos)
	}
	pipe.Set(ctx, keyReady, time.Now().UTC().Format(time.RFC3339), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "replacing leaderboard cache")
	}
	return nil
}
