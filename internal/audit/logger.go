// Package audit records coaching events that operators review separately
// from request logs: crisis detection, resets, endings and stats access.
package audit

import (
	"context"
	"net"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/maeum-coach/coaching-server-go/internal/util"
)

type EventType string

const (
	EventCrisisDetected    EventType = "crisis_detected"
	EventSessionReset      EventType = "session_reset"
	EventSessionEnded      EventType = "session_ended"
	EventSessionCompleted  EventType = "session_completed"
	EventStatsAuthFailure  EventType = "stats_auth_failure"
	EventSignatureRejected EventType = "signature_rejected"
)

type Event struct {
	Type      EventType
	UserID    string
	IP        string
	UserAgent string
	Details   map[string]interface{}
}

// Log writes one line through the context logger, so request ids attached by
// the request logger follow the event. User ids are masked.
func Log(ctx context.Context, event Event) {
	e := log.Ctx(ctx).Info().
		Str("audit", "coaching").
		Str("event_type", string(event.Type))

	if event.UserID != "" {
		e = e.Str("user", util.MaskUserID(event.UserID))
	}
	if event.IP != "" {
		e = e.Str("ip", event.IP)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", event.UserAgent)
	}
	if len(event.Details) > 0 {
		e = e.Fields(event.Details)
	}
	e.Msg("coaching audit event")
}

// LogFromRequest fills the client address and agent from r. RemoteAddr is
// expected to be rewritten by chi's RealIP middleware.
func LogFromRequest(r *http.Request, event Event) {
	event.IP = clientIP(r.RemoteAddr)
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}

func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
