package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/maeum-coach/coaching-server-go/internal/errors"
	"github.com/maeum-coach/coaching-server-go/internal/retry"
)

func TestIsKakaoCallbackURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://api.kakao.com/v1/callback", true},
		{"https://kakao.com/cb", true},
		{"https://t1.kakaocdn.net/callback", true},
		{"https://bot.kakaoenterprise.com/webhook", true},
		{"https://deep.nested.kakao.com/path", true},
		{"http://api.kakao.com/callback", false},
		{"https://evil.com/callback", false},
		{"https://kakao.evil.com/callback", false},
		{"https://faketalkakao.com/callback", false},
		{"not-a-url", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			u, err := url.Parse(tc.url)
			require.NoError(t, err)
			assert.Equal(t, tc.want, isKakaoCallbackURL(u))
		})
	}
}

func testCallbackClient(retries int) *CallbackClient {
	c := NewCallbackClient(retry.Policy{MaxRetries: retries})
	c.allowed = func(*url.URL) bool { return true }
	return c
}

func TestSendCallback(t *testing.T) {
	t.Run("posts JSON payload", func(t *testing.T) {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		}))
		defer srv.Close()

		err := testCallbackClient(0).SendCallback(context.Background(), srv.URL, map[string]string{"version": "2.0"})
		require.NoError(t, err)
		assert.Equal(t, "2.0", got["version"])
	})

	t.Run("refuses non-kakao URL", func(t *testing.T) {
		err := NewCallbackClient(retry.Policy{}).SendCallback(context.Background(), "https://evil.com/cb", nil)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})

	t.Run("4xx is not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusGone)
		}))
		defer srv.Close()

		err := testCallbackClient(2).SendCallback(context.Background(), srv.URL, map[string]string{})
		assert.Equal(t, apperrors.ErrCodeUpstreamRejected, apperrors.GetCode(err))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("5xx is retried until success", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
			}
		}))
		defer srv.Close()

		err := testCallbackClient(2).SendCallback(context.Background(), srv.URL, map[string]string{})
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("gives up after retries", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		err := testCallbackClient(1).SendCallback(context.Background(), srv.URL, map[string]string{})
		assert.True(t, apperrors.IsTransient(err))
		assert.Equal(t, int32(2), calls.Load())
	})
}
