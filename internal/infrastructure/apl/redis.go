package apl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one JSON encoded AuthData per key "<app_base_url>:<api_url>".
// It is suitable for deployments with several instances.
type RedisStore struct {
	client     redis.UniversalClient
	appBaseURL string
}

var _ CredentialStore = (*RedisStore)(nil)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and checks the connection
func NewRedisStore(cfg RedisConfig, appBaseURL string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreWithClient(client, appBaseURL), nil
}

// NewRedisStoreWithClient creates a store on an existing client
func NewRedisStoreWithClient(client redis.UniversalClient, appBaseURL string) *RedisStore {
	return &RedisStore{client: client, appBaseURL: appBaseURL}
}

func (s *RedisStore) key(apiURL string) string {
	return s.appBaseURL + ":" + apiURL
}

func (s *RedisStore) Get(ctx context.Context, apiURL string) (*AuthData, error) {
	raw, err := s.client.Get(ctx, s.key(apiURL)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, apiURL)
	}
	if err != nil {
		return nil, fmt.Errorf("apl: redis get: %w", err)
	}
	var data AuthData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("apl: decode %s: %w", apiURL, err)
	}
	return &data, nil
}

func (s *RedisStore) Set(ctx context.Context, data AuthData) error {
	if err := data.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("apl: encode: %w", err)
	}
	if err := s.client.Set(ctx, s.key(data.APIURL), raw, 0).Err(); err != nil {
		return fmt.Errorf("apl: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, apiURL string) error {
	if err := s.client.Del(ctx, s.key(apiURL)).Err(); err != nil {
		return fmt.Errorf("apl: redis del: %w", err)
	}
	return nil
}

// All scans every key of this app and returns the decoded entries ordered by API URL
func (s *RedisStore) All(ctx context.Context) ([]AuthData, error) {
	prefix := s.appBaseURL + ":"
	var out []AuthData
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		apiURL := strings.TrimPrefix(iter.Val(), prefix)
		data, err := s.Get(ctx, apiURL)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *data)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("apl: redis scan: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].APIURL < out[j].APIURL })
	return out, nil
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
