package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/maeum-coach/coaching-server-go/internal/errors"
	"github.com/maeum-coach/coaching-server-go/internal/httputil"
	"github.com/maeum-coach/coaching-server-go/internal/service"
	"github.com/maeum-coach/coaching-server-go/internal/util"
)

// Coach turns one inbound message into reply text. It never fails.
type Coach interface {
	Handle(ctx context.Context, in service.Inbound) string
}

type CallbackSender interface {
	SendCallback(ctx context.Context, callbackURL string, payload any) error
}

type RateLimiter interface {
	Allow(ctx context.Context, userID string) bool
}

type KakaoHandlerConfig struct {
	CallbackEnabled bool
	CallbackTTL     time.Duration
}

type KakaoHandler struct {
	coach     Coach
	callbacks CallbackSender
	limiter   RateLimiter
	stats     *Stats
	cfg       KakaoHandlerConfig
	inflight  sync.WaitGroup
}

// NewKakaoHandler wires the webhook. limiter may be nil.
func NewKakaoHandler(
	coach Coach,
	callbacks CallbackSender,
	limiter RateLimiter,
	stats *Stats,
	cfg KakaoHandlerConfig,
) *KakaoHandler {
	return &KakaoHandler{
		coach:     coach,
		callbacks: callbacks,
		limiter:   limiter,
		stats:     stats,
		cfg:       cfg,
	}
}

func (h *KakaoHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	h.stats.RecordRequest()

	var req KakaoWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("invalid kakao webhook request")
		h.stats.RecordError()
		httputil.WriteError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	in, err := req.Inbound()
	if err != nil {
		log.Warn().Err(err).Msg("kakao webhook without user id")
		h.stats.RecordError()
		httputil.WriteError(w, err)
		return
	}

	ctx := r.Context()
	callbackURL := req.UserRequest.CallbackURL

	log.Info().
		Str("user", util.MaskUserID(in.UserID)).
		Str("utterance", util.TruncateRunes(in.Utterance, 50)).
		Bool("hasCallback", callbackURL != "").
		Msg("received kakao webhook")

	if h.limiter != nil && !h.limiter.Allow(ctx, in.UserID) {
		httputil.WriteJSON(w, http.StatusOK, NewTextResponse(service.SlowDownMessage))
		return
	}

	if h.cfg.CallbackEnabled && in.CallbackConfirmed && h.callbacks != nil {
		httputil.WriteJSON(w, http.StatusOK, NewCallbackResponse())
		h.inflight.Add(1)
		go h.deliver(context.WithoutCancel(ctx), in, callbackURL)
		return
	}

	reply := h.coach.Handle(ctx, in)
	if reply == service.ApologyMessage {
		h.stats.RecordError()
	}
	httputil.WriteJSON(w, http.StatusOK, NewTextResponse(reply))
}

// deliver processes a message in the background and posts the reply to the
// Kakao callback URL before the callback window closes.
func (h *KakaoHandler) deliver(parent context.Context, in service.Inbound, callbackURL string) {
	defer h.inflight.Done()

	ctx, cancel := context.WithTimeout(parent, h.cfg.CallbackTTL)
	defer cancel()

	reply := h.coach.Handle(ctx, in)
	if reply == service.ApologyMessage {
		h.stats.RecordError()
	}

	if err := h.callbacks.SendCallback(ctx, callbackURL, NewTextResponse(reply)); err != nil {
		h.stats.RecordError()
		log.Error().
			Err(err).
			Str("user", util.MaskUserID(in.UserID)).
			Msg("failed to deliver kakao callback")
	}
}

// Drain waits for background callbacks to finish or ctx to end.
func (h *KakaoHandler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
