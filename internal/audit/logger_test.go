package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureContext(buf *bytes.Buffer) context.Context {
	logger := zerolog.New(buf)
	return logger.WithContext(context.Background())
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	ctx := captureContext(&buf)

	Log(ctx, Event{
		Type:    EventCrisisDetected,
		UserID:  "kakao-user-123456",
		Details: map[string]interface{}{"stage": 2, "track": "student"},
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "coaching", line["audit"])
	assert.Equal(t, "crisis_detected", line["event_type"])
	assert.Equal(t, float64(2), line["stage"])
	assert.Equal(t, "student", line["track"])
	assert.NotContains(t, line["user"], "123456")
}

func TestLogFromRequest(t *testing.T) {
	var buf bytes.Buffer
	req := httptest.NewRequest("GET", "/stats", nil)
	req = req.WithContext(captureContext(&buf))
	req.RemoteAddr = "10.0.0.1:52344"
	req.Header.Set("User-Agent", "curl/8")

	LogFromRequest(req, Event{Type: EventStatsAuthFailure})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "10.0.0.1", line["ip"])
	assert.Equal(t, "curl/8", line["user_agent"])
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "10.0.0.1", clientIP("10.0.0.1:80"))
	assert.Equal(t, "203.0.113.9", clientIP("203.0.113.9"))
	assert.Equal(t, "::1", clientIP("[::1]:8080"))
}

func TestLogWithoutContextLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		Log(context.Background(), Event{Type: EventSessionReset, UserID: "u"})
	})
}
