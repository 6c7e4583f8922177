package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

// ErrCacheUnavailable means the cache endpoint could not be reached. Callers
// treat it as a degradation, not a failure: the engine keeps playing with
// every lookup going to the network.
var ErrCacheUnavailable = errors.New("cache unavailable")

const (
	pingTimeout  = 3 * time.Second
	pingAttempts = 5
	pingBackoff  = 200 * time.Millisecond
)

type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var (
	client *redislib.Client
	once   sync.Once
)

// Init connects the shared client behind PreviewCache and RecentlyPlayed.
// Safe to call more than once; the first configuration wins.
func Init(cfg Config) (*redislib.Client, error) {
	var initErr error

	once.Do(func() {
		client, initErr = connect(cfg)
	})

	if client == nil && initErr == nil {
		initErr = ErrCacheUnavailable
	}

	return client, initErr
}

// connect dials and verifies the endpoint, backing off between pings so a
// cache that is still starting up does not fail the launch.
func connect(cfg Config) (*redislib.Client, error) {
	c := redislib.NewClient(&redislib.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	backoff := pingBackoff
	var lastErr error

	for attempt := 1; attempt <= pingAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		lastErr = c.Ping(ctx).Err()
		cancel()

		if lastErr == nil {
			return c, nil
		}

		log.Printf("Warning: cache ping failed (attempt %d/%d): %v", attempt, pingAttempts, lastErr)
		if attempt < pingAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	_ = c.Close()
	return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, lastErr)
}

// Client returns the shared client, nil when Init never succeeded.
func Client() *redislib.Client {
	return client
}

func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}
