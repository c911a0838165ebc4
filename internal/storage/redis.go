package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"sco-server/internal/game"
	"sco-server/internal/snapshot"
)

const (
	gameKeyPrefix = "sco:game:"
	gameIndexKey  = "sco:games"
	lockKeyPrefix = "sco:lock:"
)

// RedisStore keeps encoded snapshots under sco:game:<id> and the set of ids
// under sco:games.
type RedisStore struct {
	client *redis.Client
	codec  *snapshot.Codec
	logger *slog.Logger
}

func NewRedisStore(client *redis.Client, codec *snapshot.Codec, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, codec: codec, logger: logger}
}

func (r *RedisStore) Save(ctx context.Context, s *snapshot.Snapshot) error {
	data, err := r.codec.Encode(s)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKeyPrefix+s.Game.ID, data, 0)
		pipe.SAdd(ctx, gameIndexKey, s.Game.ID)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save game", "component", "redis_store", "game_id", s.Game.ID, "error", err)
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, gameID string) (*snapshot.Snapshot, error) {
	data, err := r.client.Get(ctx, gameKeyPrefix+gameID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	return r.codec.Decode(data)
}

func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, gameIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock taken over by another replica is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker serialises turn resolution of a game across replicas. The lock
// expires after ttl in case its holder dies mid-resolution.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, logger: logger}
}

func (l *RedisLocker) Lock(ctx context.Context, gameID string) (func(), error) {
	key := lockKeyPrefix + gameID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, game.ErrLocked
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("Failed to release resolution lock",
				"component", "redis_locker", "game_id", gameID, "error", err)
		}
	}, nil
}
