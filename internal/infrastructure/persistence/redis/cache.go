// Package redis implements the Redis side of the portal: the rating cache,
// the top-mentor ranking, distributed job locks, and the pub/sub transport
// used by the event bus.
//
// Redis never holds source-of-truth data. Every key can be dropped at any
// time and is rebuilt from the store on the next read or worker run.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// MinIdleConns is the minimum number of idle connections.
	MinIdleConns int

	// MaxRetries is the maximum number of retries before giving up.
	MaxRetries int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrCacheMiss is returned when the requested key is not found in cache.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheConnection is returned when Redis connection fails.
	ErrCacheConnection = errors.New("cache: connection failed")

	// ErrCacheSerialization is returned when serialization/deserialization fails.
	ErrCacheSerialization = errors.New("cache: serialization failed")

	// ErrCacheKeyEmpty is returned when an empty key is provided.
	ErrCacheKeyEmpty = errors.New("cache: key cannot be empty")

	// ErrLockHeld is returned when a distributed lock is owned by someone else.
	ErrLockHeld = errors.New("cache: lock held by another owner")
)

// ══════════════════════════════════════════════════════════════════════════════
// KEYS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// PrefixRating holds one JSON rating summary per alumnus.
	PrefixRating = "rating:"

	// PrefixRatingVersion holds a counter bumped on every invalidation of
	// the alumnus' summary.
	PrefixRatingVersion = "rating-version:"

	// KeyTopMentors is the sorted set alumniID -> average rating.
	KeyTopMentors = "mentors:top"

	// PrefixLock is the prefix for distributed lock keys.
	PrefixLock = "lock:"
)

// Default TTLs.
const (
	TTLRating          = 5 * time.Minute
	TTLRatingVersion   = 24 * time.Hour
	TTLTopMentors      = 1 * time.Hour
	TTLDistributedLock = 30 * time.Second
)

// RatingKey returns the cache key of an alumnus' rating summary.
func RatingKey(alumniID string) string {
	return PrefixRating + alumniID
}

// RatingVersionKey returns the key of an alumnus' rating version counter.
func RatingVersionKey(alumniID string) string {
	return PrefixRatingVersion + alumniID
}

// LockKey generates a cache key for distributed locks.
func LockKey(resource string) string {
	return PrefixLock + resource
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Cache wraps a go-redis client with JSON helpers.
type Cache struct {
	client *redis.Client
}

// NewCache connects to Redis and pings it once.
func NewCache(cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	return &Cache{client: client}, nil
}

// NewCacheFromClient wraps an existing client without pinging it.
func NewCacheFromClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Client returns the underlying Redis client.
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get decodes the JSON stored under key into dest.
// Returns ErrCacheMiss if the key doesn't exist.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return nil
}

// Delete removes keys from the cache.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// DISTRIBUTED LOCKS
// ══════════════════════════════════════════════════════════════════════════════

// releaseScript deletes the lock only if the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireLock takes resource for ttl on behalf of owner. It returns
// ErrLockHeld if another owner has it.
func (c *Cache) AcquireLock(ctx context.Context, resource, owner string, ttl time.Duration) error {
	if resource == "" {
		return ErrCacheKeyEmpty
	}
	if ttl <= 0 {
		ttl = TTLDistributedLock
	}
	ok, err := c.client.SetNX(ctx, LockKey(resource), owner, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// ReleaseLock frees resource if owner still holds it.
func (c *Cache) ReleaseLock(ctx context.Context, resource, owner string) error {
	return releaseScript.Run(ctx, c.client, []string{LockKey(resource)}, owner).Err()
}
