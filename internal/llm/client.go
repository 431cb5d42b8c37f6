package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/maeum-coach/coaching-server-go/internal/errors"
	"github.com/maeum-coach/coaching-server-go/internal/model"
	"github.com/maeum-coach/coaching-server-go/internal/retry"
)

const (
	serviceName = "upstage"

	// MaxContextMessages bounds how much history is sent per call.
	MaxContextMessages = 6

	maxErrorBody = 2048
)

type Config struct {
	APIURL      string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	Retry       retry.Policy
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Retry.Name == "" {
		cfg.Retry.Name = serviceName
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type chatMessage struct {
	Role    model.Role `json:"role"`
	Content string     `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete returns the raw text of the first choice. Transient failures are
// retried according to the configured policy.
func (c *Client) Complete(ctx context.Context, systemPrompt string, history []model.Message) (string, error) {
	if c.cfg.APIKey == "" {
		return "", apperrors.New(apperrors.ErrCodeUpstreamRejected, "UPSTAGE_API_KEY not configured")
	}

	body, err := json.Marshal(c.buildRequest(systemPrompt, history))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var text string
	err = c.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		var attemptErr error
		text, attemptErr = c.attempt(ctx, body)
		return attemptErr
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// Generate returns a cleaned single-question reply.
func (c *Client) Generate(ctx context.Context, systemPrompt string, history []model.Message) (string, error) {
	raw, err := c.Complete(ctx, EnhancePrompt(systemPrompt), history)
	if err != nil {
		return "", err
	}

	reply := CleanReply(raw)
	if reply == "" {
		return "", apperrors.UpstreamMalformed(serviceName, "empty reply after cleaning")
	}
	return reply, nil
}

// GenerateStructured asks for the coaching JSON schema. A reply that does not
// parse is wrapped into a synthesized response instead of failing; when no
// text survives the error is UpstreamMalformed so callers use their fallback.
func (c *Client) GenerateStructured(ctx context.Context, systemPrompt string, history []model.Message) (*model.CoachResponse, error) {
	raw, err := c.Complete(ctx, systemPrompt, history)
	if err != nil {
		return nil, err
	}

	resp, err := ParseStructured(raw)
	if err != nil {
		log.Warn().Err(err).Msg("structured reply did not parse, synthesizing")
		resp = Synthesize(raw)
		if resp == nil {
			return nil, apperrors.UpstreamMalformed(serviceName, "empty reply after cleaning")
		}
	}
	if ReplyText(resp) == "" {
		return nil, apperrors.UpstreamMalformed(serviceName, "empty reply after cleaning")
	}
	return resp, nil
}

func (c *Client) buildRequest(systemPrompt string, history []model.Message) chatRequest {
	if len(history) > MaxContextMessages {
		history = history[len(history)-MaxContextMessages:]
	}

	messages := make([]chatMessage, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: model.RoleSystem, Content: systemPrompt})
	}
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	return chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Stream:      false,
	}
}

func (c *Client) attempt(ctx context.Context, body []byte) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if isTimeout(err) {
			log.Warn().Err(err).Dur("elapsed", elapsed).Msg("language model request timed out")
			return "", apperrors.UpstreamTransient(serviceName, err)
		}
		if ctxErr := context.Cause(ctx); ctxErr != nil {
			return "", ctxErr
		}
		log.Warn().Err(err).Dur("elapsed", elapsed).Msg("language model request failed")
		return "", apperrors.UpstreamTransient(serviceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(snippet)).
			Dur("elapsed", elapsed).
			Msg("language model returned error status")
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", apperrors.UpstreamTransient(serviceName, fmt.Errorf("status %d", resp.StatusCode))
		}
		return "", apperrors.UpstreamRejected(serviceName, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperrors.UpstreamMalformed(serviceName, "invalid response body")
	}
	if len(parsed.Choices) == 0 {
		return "", apperrors.UpstreamMalformed(serviceName, "no choices")
	}

	log.Debug().Dur("elapsed", elapsed).Msg("language model reply received")
	return parsed.Choices[0].Message.Content, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
