package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	rkeys "github.com/maeum-coach/coaching-server-go/internal/redis"
)

// releaseScript deletes the lock only if the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// UserLock is a short-lived advisory lock keyed by user id.
type UserLock interface {
	// Acquire returns an owner token and true when the lock was taken.
	Acquire(ctx context.Context, userID string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, userID, token string) error
}

type userLock struct {
	client redis.UniversalClient
}

func NewUserLock(client redis.UniversalClient) UserLock {
	return &userLock{client: client}
}

func (l *userLock) Acquire(ctx context.Context, userID string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, rkeys.LockKey(userID), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *userLock) Release(ctx context.Context, userID, token string) error {
	return releaseScript.Run(ctx, l.client, []string{rkeys.LockKey(userID)}, token).Err()
}
