package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/redis/go-redis/v9"

	"github.com/nao1215/foilscan/internal/model"
)

// DefaultRedisKey is the key used when a Redis location names none.
const DefaultRedisKey = "foilscan:session"

// RedisStore keeps the credential as a JSON cookie array in one Redis key.
// The key has no TTL; cookie expiry is handled by the content surface.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore returns a store using client and key.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// NewRedisStoreFromURL builds a store from a redis:// URL such as
// redis://:password@localhost:6379/0?key=foilscan:session:axis.
func NewRedisStoreFromURL(location string) (*RedisStore, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse redis location: %w", err)
	}
	q := u.Query()
	key := q.Get("key")
	q.Del("key")
	u.RawQuery = q.Encode()

	opts, err := redis.ParseURL(u.String())
	if err != nil {
		return nil, fmt.Errorf("parse redis location: %w", err)
	}
	return NewRedisStore(redis.NewClient(opts), key), nil
}

// Key returns the Redis key holding the credential.
func (s *RedisStore) Key() string {
	return s.key
}

// Load reads the credential key.
func (s *RedisStore) Load(ctx context.Context) (*model.SessionCredential, error) {
	val, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCredentialMissing
		}
		return nil, fmt.Errorf("read credential from redis: %w", err)
	}

	var cred model.SessionCredential
	if err := json.Unmarshal(val, &cred); err != nil {
		return nil, fmt.Errorf("%w: redis key %s: %v", ErrCorruptCredential, s.key, err)
	}
	return &cred, nil
}

// Save overwrites the credential key.
func (s *RedisStore) Save(ctx context.Context, cred *model.SessionCredential) error {
	if cred == nil {
		return ErrNilCredential
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("write credential to redis: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
