package cache

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

const (
	previewKeyPrefix = "trivia:preview:"
	recentKeyPrefix  = "trivia:recent:"

	// Resolved stream URLs expire server-side, keep the cache shorter than
	// typical link lifetimes.
	previewTTL = 3 * time.Hour

	recentWindow = 200
)

// PreviewCache keeps resolved preview URLs keyed by track ID so a repeated
// question skips the network lookup.
type PreviewCache struct {
	client *redislib.Client
}

func NewPreviewCache(client *redislib.Client) *PreviewCache {
	return &PreviewCache{client: client}
}

func NewPreviewCacheFromDefault() *PreviewCache {
	return &PreviewCache{client: Client()}
}

func (c *PreviewCache) ensureClient() error {
	if c.client != nil {
		return nil
	}

	c.client = Client()
	if c.client == nil {
		return ErrCacheUnavailable
	}

	return nil
}

func (c *PreviewCache) Get(ctx context.Context, trackID int64) (string, bool) {
	if err := c.ensureClient(); err != nil {
		return "", false
	}

	url, err := c.client.Get(ctx, previewKey(trackID)).Result()
	if err != nil || url == "" {
		return "", false
	}
	return url, true
}

func (c *PreviewCache) Set(ctx context.Context, trackID int64, url string) error {
	if err := c.ensureClient(); err != nil {
		return err
	}
	if url == "" {
		return fmt.Errorf("preview url is required")
	}

	return c.client.Set(ctx, previewKey(trackID), url, previewTTL).Err()
}

func previewKey(trackID int64) string {
	return fmt.Sprintf("%s%d", previewKeyPrefix, trackID)
}

// RecentlyPlayed records which tracks a session already used so the
// candidate picker can bias away from repeats. Rolling list, capped.
type RecentlyPlayed struct {
	client *redislib.Client
}

func NewRecentlyPlayed(client *redislib.Client) *RecentlyPlayed {
	return &RecentlyPlayed{client: client}
}

func (r *RecentlyPlayed) ensureClient() error {
	if r.client != nil {
		return nil
	}

	r.client = Client()
	if r.client == nil {
		return ErrCacheUnavailable
	}

	return nil
}

func (r *RecentlyPlayed) Record(ctx context.Context, profileName string, trackID int64) error {
	if err := r.ensureClient(); err != nil {
		return err
	}
	if profileName == "" {
		return fmt.Errorf("profile name is required")
	}

	key := recentKey(profileName)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, trackID)
	pipe.LTrim(ctx, key, 0, recentWindow-1)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RecentlyPlayed) List(ctx context.Context, profileName string) ([]int64, error) {
	if err := r.ensureClient(); err != nil {
		return nil, err
	}
	if profileName == "" {
		return nil, fmt.Errorf("profile name is required")
	}

	raw, err := r.client.LRange(ctx, recentKey(profileName), 0, recentWindow-1).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		var id int64
		if _, err := fmt.Sscanf(v, "%d", &id); err == nil {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func (r *RecentlyPlayed) Clear(ctx context.Context, profileName string) error {
	if err := r.ensureClient(); err != nil {
		return err
	}
	if profileName == "" {
		return fmt.Errorf("profile name is required")
	}

	return r.client.Del(ctx, recentKey(profileName)).Err()
}

func recentKey(profileName string) string {
	return recentKeyPrefix + profileName
}
