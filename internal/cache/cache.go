package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/therealutkarshpriyadarshi/autocaptions/internal/config"
	"github.com/therealutkarshpriyadarshi/autocaptions/pkg/models"
)

// Cache provides caching functionality using Redis
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a cache from configuration
func New(cfg config.CacheConfig) (*Cache, error) {
	c, err := NewCache(cfg.Host, cfg.Port, cfg.Password, cfg.DB)
	if err != nil {
		return nil, err
	}
	c.ttl = cfg.TTL
	return c, nil
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client, ttl: time.Hour}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// TTL returns the expiry applied by SetCaptions when ttl is zero
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// CaptionsKey returns the cache key for a video URL
func CaptionsKey(videoURL string) string {
	sum := sha256.Sum256([]byte(videoURL))
	return "captions:" + hex.EncodeToString(sum[:])
}

// SetCaptions caches a caption track. Empty tracks are not cached.
func (c *Cache) SetCaptions(ctx context.Context, videoURL string, track *models.CaptionTrack, ttl time.Duration) error {
	if track.Empty() {
		return nil
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	data, err := json.Marshal(track)
	if err != nil {
		return fmt.Errorf("failed to marshal captions: %w", err)
	}

	return c.client.Set(ctx, CaptionsKey(videoURL), data, ttl).Err()
}

// GetCaptions retrieves a caption track. A miss returns nil, nil. An entry
// that cannot be decoded is removed and reported as an error.
func (c *Cache) GetCaptions(ctx context.Context, videoURL string) (*models.CaptionTrack, error) {
	data, err := c.client.Get(ctx, CaptionsKey(videoURL)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get captions from cache: %w", err)
	}

	var track models.CaptionTrack
	if err := json.Unmarshal(data, &track); err != nil {
		// Drop the entry so the next request repopulates it
		if delErr := c.DeleteCaptions(ctx, videoURL); delErr != nil {
			return nil, fmt.Errorf("failed to unmarshal captions: %w (evict: %v)", err, delErr)
		}
		return nil, fmt.Errorf("failed to unmarshal captions: %w", err)
	}

	return &track, nil
}

// DeleteCaptions removes a caption track from the cache
func (c *Cache) DeleteCaptions(ctx context.Context, videoURL string) error {
	return c.client.Del(ctx, CaptionsKey(videoURL)).Err()
}

// Health check
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
