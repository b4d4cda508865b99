package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nhle/eminus-watch/internal/model"
)

// redisLockTTL bounds how long a crashed run can keep others out.
const redisLockTTL = 10 * time.Minute

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps each namespace as a Redis list under <prefix>:<namespace>.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var (
	_ SetStore = (*RedisStore)(nil)
	_ Locker   = (*RedisStore)(nil)
)

// NewRedisStore connects to the Redis server described by url
// (redis://[user:pass@]host:port/db or rediss:// for TLS).
func NewRedisStore(url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewRedisStoreWithClient(redis.NewClient(opts), prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: strings.TrimSuffix(prefix, ":")}
}

func (s *RedisStore) key(ns Namespace) string {
	return s.prefix + ":" + string(ns)
}

func (s *RedisStore) lockKey() string {
	return s.prefix + ":lock"
}

// Load reads the list for ns. A missing key yields an empty set; a key of the
// wrong type is reported as ErrCorrupt.
func (s *RedisStore) Load(ctx context.Context, ns Namespace) (*model.IDSet, error) {
	members, err := s.client.LRange(ctx, s.key(ns), 0, -1).Result()
	if err != nil {
		if strings.HasPrefix(err.Error(), "WRONGTYPE") {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.key(ns), err)
		}
		return nil, fmt.Errorf("loading set %s: %w", s.key(ns), err)
	}
	return model.NewIDSet(members...), nil
}

// Save replaces the list for ns inside a MULTI/EXEC transaction.
func (s *RedisStore) Save(ctx context.Context, ns Namespace, set *model.IDSet) error {
	return s.SaveAll(ctx, map[Namespace]*model.IDSet{ns: set})
}

// SaveAll replaces every list in sets inside one MULTI/EXEC transaction.
func (s *RedisStore) SaveAll(ctx context.Context, sets map[Namespace]*model.IDSet) error {
	order := saveOrder(sets)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, ns := range order {
			key := s.key(ns)
			pipe.Del(ctx, key)
			items := sets[ns].Items()
			if len(items) == 0 {
				continue
			}
			values := make([]any, len(items))
			for i, item := range items {
				values[i] = item
			}
			pipe.RPush(ctx, key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving sets %v: %w", order, err)
	}
	return nil
}

// Lock sets a lock key with a random token. It fails with ErrLocked when the
// key already exists.
func (s *RedisStore) Lock(ctx context.Context) (func() error, error) {
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, s.lockKey(), token, redisLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring redis lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, s.lockKey())
	}

	return func() error {
		err := releaseScript.Run(context.Background(), s.client, []string{s.lockKey()}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("releasing redis lock: %w", err)
		}
		return nil
	}, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
