package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/maeum-coach/coaching-server-go/internal/audit"
	apperrors "github.com/maeum-coach/coaching-server-go/internal/errors"
	"github.com/maeum-coach/coaching-server-go/internal/httputil"
	"github.com/maeum-coach/coaching-server-go/internal/util"
)

const KakaoSignatureHeader = "X-Kakao-Signature"

// KakaoSignature rejects webhook calls whose body does not match the
// X-Kakao-Signature HMAC. With an empty secret every request passes.
func KakaoSignature(secret string) func(http.Handler) http.Handler {
	if secret == "" {
		log.Warn().Msg("kakao signature verification disabled: KAKAO_SIGNATURE_SECRET is not configured")
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signature := r.Header.Get(KakaoSignatureHeader)
			if signature == "" {
				rejectSignature(w, r, "missing")
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					httputil.WriteErrorWithStatus(w, http.StatusRequestEntityTooLarge,
						apperrors.ValidationError("Request body too large"))
					return
				}
				httputil.WriteError(w, apperrors.ValidationError("Failed to read request body"))
				return
			}

			if !util.VerifyBodySignature(secret, body, signature) {
				rejectSignature(w, r, "mismatch")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

func rejectSignature(w http.ResponseWriter, r *http.Request, reason string) {
	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventSignatureRejected,
		Details: map[string]interface{}{"reason": reason},
	})
	httputil.WriteError(w, apperrors.Unauthorized("Invalid signature"))
}
