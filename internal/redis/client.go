// Package redis holds the live-session client and the key layout shared by
// sessions, locks and rate limits.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

const keyPrefix = "coaching:"

type Client struct {
	*redis.Client
}

// NewClient parses a redis:// or rediss:// URL and checks the server answers.
func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}

	return &Client{client}, nil
}

func SessionKey(userID string) string   { return keyPrefix + "session:" + userID }
func LockKey(userID string) string      { return keyPrefix + "lock:" + userID }
func RateLimitKey(userID string) string { return keyPrefix + "ratelimit:" + userID }
