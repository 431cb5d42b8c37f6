package middleware

import (
	"net/http"

	apperrors "github.com/maeum-coach/coaching-server-go/internal/errors"
	"github.com/maeum-coach/coaching-server-go/internal/httputil"
)

// DefaultMaxBodySize covers any Kakao skill payload.
const DefaultMaxBodySize int64 = 256 << 10

// BodyLimit refuses declared oversize bodies up front and caps the rest
// while they are read. A non-positive limit means DefaultMaxBodySize.
func BodyLimit(limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				httputil.WriteErrorWithStatus(w, http.StatusRequestEntityTooLarge,
					apperrors.ValidationError("Request body too large"))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
