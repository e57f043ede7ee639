// Package cache keeps the last good result of every list query in Redis so
// a degraded response can serve real data before falling back to fixtures.
// It also records revoked session tokens.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/airtable"
)

const DefaultTTL = 15 * time.Minute

// Key identifies one cached list query.
type Key struct {
	Kind   string
	Month  string
	Client string
}

func (k Key) String() string {
	client := k.Client
	if client == "" {
		client = "all"
	}
	month := strings.ReplaceAll(k.Month, " ", "_")
	if month == "" {
		month = "any"
	}
	return k.Kind + ":" + month + ":" + client
}

type entry struct {
	Records []airtable.Record `json:"records"`
	SavedAt time.Time         `json:"saved_at"`
}

type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: "portal:", ttl: ttl}
}

func (s *RedisStore) listKey(key Key) string {
	return s.prefix + "lastgood:" + key.String()
}

func (s *RedisStore) revokedKey(tokenID string) string {
	return s.prefix + "revoked:" + tokenID
}

// SaveRecords overwrites the last good result for key.
func (s *RedisStore) SaveRecords(ctx context.Context, key Key, records []airtable.Record) error {
	if records == nil {
		records = []airtable.Record{}
	}
	payload, err := json.Marshal(entry{Records: records, SavedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := s.client.Set(ctx, s.listKey(key), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cache entry: %w", err)
	}
	return nil
}

// LoadRecords returns the last good result for key. A miss is not an error.
func (s *RedisStore) LoadRecords(ctx context.Context, key Key) ([]airtable.Record, bool, error) {
	raw, err := s.client.Get(ctx, s.listKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load cache entry: %w", err)
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false, fmt.Errorf("unmarshal cache entry: %w", err)
	}
	return e.Records, true, nil
}

// Revoke marks a session token id as unusable until it would have expired.
func (s *RedisStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.revokedKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
