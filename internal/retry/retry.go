// Package retry holds the one retry policy applied at every outbound boundary
// (language model calls, session store reads and writes).
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	apperrors "github.com/maeum-coach/coaching-server-go/internal/errors"
)

// Policy retries an operation up to MaxRetries additional times with a fixed
// Backoff between attempts. Only errors accepted by Retryable are retried.
type Policy struct {
	Name       string
	MaxRetries int
	Backoff    time.Duration
	Retryable  func(error) bool
}

// Do runs op until it succeeds, returns a non-retryable error, the retries
// are exhausted, or ctx is done. The last error is returned unchanged.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = apperrors.IsTransient
	}

	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Backoff), uint64(maxRetries)),
		ctx,
	)

	return backoff.RetryNotify(operation, b, func(err error, wait time.Duration) {
		log.Warn().
			Err(err).
			Str("policy", p.Name).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("retrying after transient failure")
	})
}
