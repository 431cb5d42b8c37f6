package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const cleanupTimeout = 30 * time.Second

// CacheSweeper drops expired entries from the process-local session cache.
type CacheSweeper interface {
	PurgeExpiredCache(ctx context.Context) (int64, error)
}

// ArchivePruner deletes archived sessions that ended before a cutoff.
type ArchivePruner interface {
	DeleteEndedBefore(ctx context.Context, before time.Time) (int64, error)
}

type CleanupJob struct {
	cache     CacheSweeper
	archive   ArchivePruner
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	done      chan struct{}
	stopped   chan struct{}
}

// NewCleanupJob builds the periodic sweep. archive may be nil, and a
// non-positive retention keeps archives forever.
func NewCleanupJob(cache CacheSweeper, archive ArchivePruner, retention, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		cache:     cache,
		archive:   archive,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("retention", j.retention).Msg("cleanup job started")
}

// Stop signals the loop and waits for an in-progress sweep to finish.
func (j *CleanupJob) Stop() {
	close(j.done)
	<-j.stopped
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	defer close(j.stopped)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if j.cache != nil {
		j.runCleanup(ctx, "session cache", j.cache.PurgeExpiredCache)
	}
	if j.archive != nil && j.retention > 0 {
		cutoff := j.now().Add(-j.retention)
		j.runCleanup(ctx, "archived sessions", func(ctx context.Context) (int64, error) {
			return j.archive.DeleteEndedBefore(ctx, cutoff)
		})
	}
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
