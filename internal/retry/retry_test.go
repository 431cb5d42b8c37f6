package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/maeum-coach/coaching-server-go/internal/errors"
)

func TestPolicy_Do(t *testing.T) {
	transient := apperrors.UpstreamTransient("test", errors.New("503"))

	t.Run("returns nil on first success", func(t *testing.T) {
		calls := 0
		p := Policy{MaxRetries: 2, Backoff: time.Millisecond}

		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient errors until success", func(t *testing.T) {
		calls := 0
		p := Policy{MaxRetries: 2, Backoff: time.Millisecond}

		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return transient
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		p := Policy{MaxRetries: 2, Backoff: time.Millisecond}

		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return transient
		})

		require.Error(t, err)
		assert.True(t, apperrors.IsTransient(err))
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		calls := 0
		rejected := apperrors.UpstreamRejected("test", 400)
		p := Policy{MaxRetries: 2, Backoff: time.Millisecond}

		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return rejected
		})

		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, err, rejected)
	})

	t.Run("uses custom retryable predicate", func(t *testing.T) {
		calls := 0
		flaky := errors.New("flaky")
		p := Policy{
			MaxRetries: 1,
			Backoff:    time.Millisecond,
			Retryable:  func(err error) bool { return errors.Is(err, flaky) },
		}

		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return flaky
		})

		assert.ErrorIs(t, err, flaky)
		assert.Equal(t, 2, calls)
	})

	t.Run("zero retries runs once", func(t *testing.T) {
		calls := 0
		p := Policy{Backoff: time.Millisecond}

		_ = p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return transient
		})

		assert.Equal(t, 1, calls)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		p := Policy{MaxRetries: 5, Backoff: 10 * time.Millisecond}

		err := p.Do(ctx, func(ctx context.Context) error {
			calls++
			cancel()
			return transient
		})

		require.Error(t, err)
		assert.Less(t, calls, 6)
	})
}
