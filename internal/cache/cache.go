// Package cache keeps transcripts so repeated narration requests skip the AI service.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hyobinnSeo/VoiceSync/internal/aiclient"
)

// TranscriptCache stores transcripts per video and target language.
type TranscriptCache interface {
	Get(ctx context.Context, videoID, language string) (*aiclient.Transcript, bool, error)
	Put(ctx context.Context, videoID, language string, t *aiclient.Transcript) error
	Close() error
}

// Key builds the cache key of a transcript.
func Key(prefix, videoID, language string) string {
	return fmt.Sprintf("%s:transcript:%s:%s", prefix, videoID, strings.ToLower(language))
}

// RedisCache is a TranscriptCache backed by Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// ConnectRedis establishes a connection to Redis and pings it.
func ConnectRedis(ctx context.Context, addr, password string, db int, prefix string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}, nil
}

// Get returns the cached transcript, if any.
func (r *RedisCache) Get(ctx context.Context, videoID, language string) (*aiclient.Transcript, bool, error) {
	data, err := r.client.Get(ctx, Key(r.prefix, videoID, language)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error reading transcript cache: %w", err)
	}
	var t aiclient.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, false, fmt.Errorf("corrupt cached transcript: %w", err)
	}
	return &t, true, nil
}

// Put stores t with the configured TTL.
func (r *RedisCache) Put(ctx context.Context, videoID, language string, t *aiclient.Transcript) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	if err := r.client.Set(ctx, Key(r.prefix, videoID, language), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("error writing transcript cache: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Nop is the cache used when Redis is not configured.
type Nop struct{}

func (Nop) Get(context.Context, string, string) (*aiclient.Transcript, bool, error) {
	return nil, false, nil
}
func (Nop) Put(context.Context, string, string, *aiclient.Transcript) error { return nil }
func (Nop) Close() error                                                  { return nil }
