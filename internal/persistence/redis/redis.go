// Package redis stores the collection slots as Redis string keys.
package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/example/eventform/internal/persistence"
)

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every slot name.
	Prefix string
}

// Storage is a persistence.SlotStore backed by Redis.
type Storage struct {
	client *redis.Client
	prefix string
}

var _ persistence.SlotStore = (*Storage)(nil)

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}
	return NewWithClient(client, cfg.Prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string) *Storage {
	return &Storage{client: client, prefix: prefix}
}

// Close releases the client.
func (s *Storage) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Storage) key(name string) string {
	return s.prefix + name
}

// LoadSlots implements persistence.SlotStore.
func (s *Storage) LoadSlots(ctx context.Context, names ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(names))
	if len(names) == 0 {
		return out, nil
	}

	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = s.key(name)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read slots from Redis")
	}

	for i, value := range values {
		switch v := value.(type) {
		case nil:
		case string:
			out[names[i]] = []byte(v)
		default:
			return nil, errors.Errorf("unexpected Redis value type %T for slot %s", value, names[i])
		}
	}
	return out, nil
}

// SaveSlots implements persistence.SlotStore. The slots are written with a
// single MSET inside MULTI/EXEC.
func (s *Storage) SaveSlots(ctx context.Context, slots map[string][]byte) error {
	if len(slots) == 0 {
		return nil
	}
	pairs := make([]interface{}, 0, len(slots)*2)
	for name, payload := range slots {
		pairs = append(pairs, s.key(name), payload)
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.MSet(ctx, pairs...)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to write slots to Redis")
	}
	return nil
}
