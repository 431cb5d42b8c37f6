package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/maeum-coach/coaching-server-go/internal/errors"
	"github.com/maeum-coach/coaching-server-go/internal/retry"
)

const callbackAttemptTimeout = 5 * time.Second

// Callback URLs handed out by the Kakao skill platform live under these
// domains. Anything else is refused before a request is built.
var callbackDomains = []string{"kakao.com", "kakaocdn.net", "kakaoenterprise.com"}

// CallbackClient posts deferred replies to the callbackUrl Kakao provides
// with useCallback requests. 5xx answers and network errors are retried.
type CallbackClient struct {
	http    *http.Client
	retry   retry.Policy
	allowed func(*url.URL) bool
}

func NewCallbackClient(policy retry.Policy) *CallbackClient {
	if policy.Name == "" {
		policy.Name = "kakao-callback"
	}
	return &CallbackClient{
		http:    &http.Client{Timeout: callbackAttemptTimeout},
		retry:   policy,
		allowed: isKakaoCallbackURL,
	}
}

func (c *CallbackClient) SendCallback(ctx context.Context, callbackURL string, payload any) error {
	target, err := url.Parse(callbackURL)
	if err != nil || !c.allowed(target) {
		log.Ctx(ctx).Warn().Str("host", hostOf(target)).Msg("refusing callback outside kakao domains")
		return apperrors.ValidationError("invalid callback URL")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode callback payload: %w", err)
	}

	start := time.Now()
	err = c.retry.Do(ctx, func(ctx context.Context) error {
		return c.post(ctx, target.String(), body)
	})
	event := log.Ctx(ctx).Info()
	if err != nil {
		event = log.Ctx(ctx).Error().Err(err)
	}
	event.Str("host", target.Hostname()).Dur("elapsed", time.Since(start)).Msg("kakao callback")
	return err
}

func (c *CallbackClient) post(ctx context.Context, target string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.UpstreamTransient("kakao callback", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.UpstreamTransient("kakao callback", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 300:
		return apperrors.UpstreamRejected("kakao callback", resp.StatusCode)
	}
	return nil
}

func isKakaoCallbackURL(u *url.URL) bool {
	if u == nil || u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range callbackDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func hostOf(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Hostname()
}
