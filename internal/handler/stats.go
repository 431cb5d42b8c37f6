package handler

import (
	"context"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maeum-coach/coaching-server-go/internal/httputil"
)

// Stats counts webhook traffic since process start.
type Stats struct {
	requests  atomic.Int64
	errors    atomic.Int64
	startedAt time.Time
}

func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

func (s *Stats) RecordRequest() { s.requests.Add(1) }

func (s *Stats) RecordError() { s.errors.Add(1) }

type StatsSnapshot struct {
	TotalRequests    int64   `json:"total_requests"`
	Errors           int64   `json:"errors"`
	SuccessRate      float64 `json:"success_rate"`
	UptimeSeconds    int64   `json:"uptime_seconds"`
	CachedSessions   int     `json:"cached_sessions"`
	CompletedLastDay int     `json:"completed_last_24h"`
}

func (s *Stats) Snapshot(now time.Time) StatsSnapshot {
	total := s.requests.Load()
	failed := s.errors.Load()

	rate := 100.0
	if total > 0 {
		rate = math.Round(float64(total-failed)/float64(total)*10000) / 100
	}
	return StatsSnapshot{
		TotalRequests: total,
		Errors:        failed,
		SuccessRate:   rate,
		UptimeSeconds: int64(now.Sub(s.startedAt).Seconds()),
	}
}

type CacheSizer interface {
	CacheSize() int
}

type ArchiveCounter interface {
	CountSince(ctx context.Context, since time.Time) (int, error)
}

type StatsHandler struct {
	stats   *Stats
	cache   CacheSizer
	archive ArchiveCounter
	now     func() time.Time
}

func NewStatsHandler(stats *Stats, cache CacheSizer, archive ArchiveCounter) *StatsHandler {
	return &StatsHandler{stats: stats, cache: cache, archive: archive, now: time.Now}
}

func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	snapshot := h.stats.Snapshot(now)
	if h.cache != nil {
		snapshot.CachedSessions = h.cache.CacheSize()
	}
	if h.archive != nil {
		count, err := h.archive.CountSince(r.Context(), now.Add(-24*time.Hour))
		if err != nil {
			log.Warn().Err(err).Msg("failed to count completed sessions")
		}
		snapshot.CompletedLastDay = count
	}
	httputil.WriteJSON(w, http.StatusOK, snapshot)
}

func Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
	})
}
