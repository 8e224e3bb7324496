package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/presence-coach/internal/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultStatsTTL  = 10 * time.Minute
	defaultStatsKeep = 10
)

// StatsFetcher reads the detector's aggregate statistics.
type StatsFetcher interface {
	Stats(ctx context.Context) (json.RawMessage, error)
}

type StatsSnapshot struct {
	RefreshedAt time.Time       `json:"refreshed_at"`
	Payload     json.RawMessage `json:"payload" swaggertype:"object"`
}

// RedisStatsStore caches detector stats per session in a sorted set scored by
// refresh time. Each refresh is its own member, so identical payloads are
// still kept apart. Only the newest few snapshots are kept and the key
// expires once the session stops refreshing it.
type RedisStatsStore struct {
	redis   *redis.Client
	fetcher StatsFetcher
	ttl     time.Duration
	keep    int
	clock   clock.Clock
}

func NewRedisStatsStore(redisClient *redis.Client, fetcher StatsFetcher, ttl time.Duration, clk clock.Clock) *RedisStatsStore {
	if ttl == 0 {
		ttl = DefaultStatsTTL
	}
	if clk == nil {
		clk = clock.New()
	}
	return &RedisStatsStore{
		redis:   redisClient,
		fetcher: fetcher,
		ttl:     ttl,
		keep:    defaultStatsKeep,
		clock:   clk,
	}
}

// storedStats is the sorted-set member for one refresh.
type storedStats struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

func statsKey(sessionID string) string {
	return fmt.Sprintf("coach:session:%s:stats", sessionID)
}

// Publish fetches fresh stats and caches them for the session.
func (s *RedisStatsStore) Publish(ctx context.Context, sessionID string) error {
	payload, err := s.fetcher.Stats(ctx)
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}
	return s.Put(ctx, sessionID, payload)
}

func (s *RedisStatsStore) Put(ctx context.Context, sessionID string, payload json.RawMessage) error {
	key := statsKey(sessionID)
	data, err := json.Marshal(storedStats{ID: uuid.NewString(), Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	member := redis.Z{
		Score:  float64(s.clock.Now().UnixMilli()),
		Member: string(data),
	}

	pipe := s.redis.Pipeline()
	pipe.ZAdd(ctx, key, member)
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-s.keep-1))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}
	return nil
}

// Latest returns the newest cached snapshot or shared.ErrNotFound.
func (s *RedisStatsStore) Latest(ctx context.Context, sessionID string) (*StatsSnapshot, error) {
	snaps, err := s.Recent(ctx, sessionID, 1)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, shared.ErrNotFound
	}
	return &snaps[0], nil
}

// Recent returns up to limit cached snapshots, newest first.
func (s *RedisStatsStore) Recent(ctx context.Context, sessionID string, limit int) ([]StatsSnapshot, error) {
	if limit <= 0 {
		limit = s.keep
	}

	results, err := s.redis.ZRevRangeWithScores(ctx, statsKey(sessionID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	snaps := make([]StatsSnapshot, 0, len(results))
	for _, r := range results {
		data, ok := r.Member.(string)
		if !ok {
			continue
		}
		var stored storedStats
		if err := json.Unmarshal([]byte(data), &stored); err != nil {
			continue
		}
		snaps = append(snaps, StatsSnapshot{
			RefreshedAt: time.UnixMilli(int64(r.Score)).UTC(),
			Payload:     stored.Payload,
		})
	}
	return snaps, nil
}

func (s *RedisStatsStore) Forget(ctx context.Context, sessionID string) error {
	return s.redis.Del(ctx, statsKey(sessionID)).Err()
}
