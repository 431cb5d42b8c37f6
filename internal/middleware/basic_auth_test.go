package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBasicAuthMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name     string
		hash     string
		user     string
		password string
		setAuth  bool
		expected int
	}{
		{"valid password", string(hash), "ops", "s3cret", true, http.StatusOK},
		{"wrong password", string(hash), "ops", "nope", true, http.StatusUnauthorized},
		{"missing credentials", string(hash), "", "", false, http.StatusUnauthorized},
		{"not configured", "", "ops", "s3cret", true, http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewBasicAuthMiddleware(tc.hash).Handler(ok)
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			if tc.setAuth {
				req.SetBasicAuth(tc.user, tc.password)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.expected, rec.Code)
			if tc.expected == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
