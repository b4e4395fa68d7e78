// Package cache provides the Redis-backed freeze tracker.
// The cryo facility publishes frozen crew names into a Redis set; the engine only reads it.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultFrozenKey is the set holding the names of frozen crew.
const DefaultFrozenKey = "crewaging:frozen"

// RedisClient is the subset of go-redis the freeze tracker needs.
// This allows for easy mocking in tests.
type RedisClient interface {
	SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
}

// FrozenSet answers whether a crew member is currently frozen.
type FrozenSet struct {
	client  RedisClient
	key     string
	timeout time.Duration
}

// NewFrozenSet creates a freeze tracker over the set at key.
func NewFrozenSet(client RedisClient, key string) *FrozenSet {
	if key == "" {
		key = DefaultFrozenKey
	}
	return &FrozenSet{
		client:  client,
		key:     key,
		timeout: 500 * time.Millisecond, // keep a slow Redis from stalling a tick
	}
}

// NewClient parses a redis:// URL into a client.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// IsSuspended reports whether name is in the frozen set.
func (f *FrozenSet) IsSuspended(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	frozen, err := f.client.SIsMember(ctx, f.key, name).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check frozen set: %w", err)
	}
	return frozen, nil
}

// Frozen lists every frozen crew member.
func (f *FrozenSet) Frozen(ctx context.Context) ([]string, error) {
	names, err := f.client.SMembers(ctx, f.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list frozen set: %w", err)
	}
	return names, nil
}

// Freeze adds name to the frozen set.
func (f *FrozenSet) Freeze(ctx context.Context, name string) error {
	if err := f.client.SAdd(ctx, f.key, name).Err(); err != nil {
		return fmt.Errorf("failed to freeze %s: %w", name, err)
	}
	return nil
}

// Thaw removes name from the frozen set.
func (f *FrozenSet) Thaw(ctx context.Context, name string) error {
	if err := f.client.SRem(ctx, f.key, name).Err(); err != nil {
		return fmt.Errorf("failed to thaw %s: %w", name, err)
	}
	return nil
}
